package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("woof-woof-123")
	require.NoError(t, err)
	assert.NotEqual(t, "woof-woof-123", hash)
	assert.True(t, CheckPassword(hash, "woof-woof-123"))
	assert.False(t, CheckPassword(hash, "meow"))
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret")
	token, expires, err := m.Issue("user-1", "alice", true)
	require.NoError(t, err)
	assert.False(t, expires.IsZero())

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, _, err := NewManager("secret-a").Issue("user-1", "alice", false)
	require.NoError(t, err)

	_, err = NewManager("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewManager("secret").Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	m := NewManager("secret")
	var seen *Claims
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Bad token.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Valid token reaches the handler with claims attached.
	token, _, err := m.Issue("user-1", "alice", false)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}
