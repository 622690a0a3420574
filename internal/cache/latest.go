// Package cache exposes the short-lived "latest known reading per dog"
// entries that polling clients read instead of hitting the database.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"collarwatch/internal/model"
)

// LatestTTL bounds how long a reading counts as "latest". A collar that went
// quiet for longer than this has no current state worth serving.
const LatestTTL = 5 * time.Minute

// Latest is the per-dog latest-reading cache backed by Redis.
type Latest struct {
	client *redis.Client
}

func NewLatest(client *redis.Client) *Latest {
	return &Latest{client: client}
}

func key(dogID string) string { return fmt.Sprintf("dog:%s:latest", dogID) }

// SetLatest stores the enriched reading payload under the dog's key with the
// fixed TTL.
func (l *Latest) SetLatest(ctx context.Context, dogID string, payload []byte) error {
	if err := l.client.Set(ctx, key(dogID), payload, LatestTTL).Err(); err != nil {
		return fmt.Errorf("cache latest for dog %s: %w", dogID, err)
	}
	return nil
}

// GetLatest returns the cached payload, or model.ErrNotFound when the entry
// is absent or expired.
func (l *Latest) GetLatest(ctx context.Context, dogID string) ([]byte, error) {
	raw, err := l.client.Get(ctx, key(dogID)).Bytes()
	if err == redis.Nil {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read latest for dog %s: %w", dogID, err)
	}
	return raw, nil
}
