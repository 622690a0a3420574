package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"collarwatch/internal/model"
)

var (
	readingsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collarwatch_readings_scored_total",
		Help: "Telemetry readings run through the scoring pipeline",
	})
	interventionsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collarwatch_interventions_total",
		Help: "Interventions triggered by deterrent tier",
	}, []string{"tier"})
	scoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collarwatch_score_duration_seconds",
		Help:    "End-to-end duration of one scoring pipeline run",
		Buckets: prometheus.DefBuckets,
	})
)

// Collaborators the pipeline drives. Implementations live in store, cache
// and realtime; tests substitute stubs.
type (
	// DogLookup resolves the static attributes the transform needs.
	DogLookup interface {
		DogAttributes(ctx context.Context, dogID string) (model.DogAttributes, error)
	}

	// ReadingStore persists enriched readings.
	ReadingStore interface {
		InsertReading(ctx context.Context, r *model.SensorReading) error
	}

	// InterventionStore persists triggered interventions.
	InterventionStore interface {
		InsertIntervention(ctx context.Context, iv *model.Intervention) error
	}

	// LatestCache keeps the short-lived latest-reading entry per dog.
	LatestCache interface {
		SetLatest(ctx context.Context, dogID string, payload []byte) error
	}

	// Notifier fans scored readings and alerts out to live observers.
	Notifier interface {
		SendSensorUpdate(dogID string, data any)
		SendInterventionAlert(dogID string, tier model.InterventionTier, data any)
		SendHealthAlert(dogID string, data any)
	}
)

// Result is what one ingest call produces: the enriched reading and, when a
// deterrent fired, the persisted intervention.
type Result struct {
	Reading      *model.SensorReading `json:"reading"`
	Intervention *model.Intervention  `json:"intervention,omitempty"`
	Decision     InterventionDecision `json:"-"`
}

// Pipeline is the unit of work behind every ingest call: feature transform,
// classifier, intervention policy, then the ordered side effects.
type Pipeline struct {
	classifier    *Classifier
	dogs          DogLookup
	readings      ReadingStore
	interventions InterventionStore
	cache         LatestCache
	notifier      Notifier
}

// NewPipeline wires the pipeline. cache and notifier may be nil (degraded
// deployments); stores and the classifier may not.
func NewPipeline(classifier *Classifier, dogs DogLookup, readings ReadingStore, interventions InterventionStore, cache LatestCache, notifier Notifier) *Pipeline {
	return &Pipeline{
		classifier:    classifier,
		dogs:          dogs,
		readings:      readings,
		interventions: interventions,
		cache:         cache,
		notifier:      notifier,
	}
}

// ScoreAndRecord scores one validated reading and applies the side effects
// in order: persist the enriched reading, persist the intervention when the
// tier is MEDIUM or above, refresh the latest-reading cache, then notify
// subscribers. Persistence failures propagate; cache and delivery failures
// never do. The reading returned to the caller always carries its score.
func (p *Pipeline) ScoreAndRecord(ctx context.Context, r *model.SensorReading) (*Result, error) {
	start := time.Now()
	defer func() { scoreDuration.Observe(time.Since(start).Seconds()) }()

	attrs, err := p.dogs.DogAttributes(ctx, r.DogID)
	if err != nil {
		return nil, fmt.Errorf("lookup dog %s: %w", r.DogID, err)
	}

	score := p.classifier.Score(ctx, r, attrs)
	decision := Decide(score.ClassIndex, score.Probability)

	now := time.Now().UTC()
	level := model.AggressionLevel(score.ClassIndex)
	prob := score.Probability

	// Enriched reading is built field by field so every value's origin is
	// explicit: input fields stay as received, score fields come from the
	// classifier, timestamps from the pipeline.
	r.ID = uuid.NewString()
	if r.RecordedAt.IsZero() {
		r.RecordedAt = now
	}
	r.AggressionLevel = &level
	r.AggressionLabel = score.Label
	r.AggressionProbability = &prob
	r.InterventionRequired = decision.Tier.Physical()
	r.ProcessedAt = &now

	if err := p.readings.InsertReading(ctx, r); err != nil {
		return nil, fmt.Errorf("persist reading: %w", err)
	}
	readingsScored.Inc()

	result := &Result{Reading: r, Decision: decision}

	if decision.Tier.Physical() {
		iv := &model.Intervention{
			ID:                  uuid.NewString(),
			DogID:               r.DogID,
			CollarID:            r.CollarID,
			Type:                decision.Tier,
			UltrasonicFrequency: decision.FrequencyHz,
			DurationSeconds:     decision.DurationSeconds,
			AggressionLevel:     level,
			Confidence:          score.Probability,
			ReadingID:           r.ID,
			TriggeredAt:         now,
		}
		if trigger, err := json.Marshal(r); err == nil {
			iv.TriggerData = string(trigger)
		}
		if err := p.interventions.InsertIntervention(ctx, iv); err != nil {
			return nil, fmt.Errorf("persist intervention: %w", err)
		}
		interventionsTriggered.WithLabelValues(string(decision.Tier)).Inc()
		result.Intervention = iv
	}

	p.publishLatest(ctx, result)
	p.notify(result)

	return result, nil
}

func (p *Pipeline) publishLatest(ctx context.Context, res *Result) {
	if p.cache == nil {
		return
	}
	payload, err := json.Marshal(res.Reading)
	if err != nil {
		log.Printf("pipeline: marshal latest reading for dog %s: %v", res.Reading.DogID, err)
		return
	}
	if err := p.cache.SetLatest(ctx, res.Reading.DogID, payload); err != nil {
		log.Printf("pipeline: cache latest reading for dog %s: %v", res.Reading.DogID, err)
	}
}

func (p *Pipeline) notify(res *Result) {
	if p.notifier == nil {
		return
	}
	p.notifier.SendSensorUpdate(res.Reading.DogID, res.Reading)
	if res.Intervention != nil {
		p.notifier.SendInterventionAlert(res.Reading.DogID, res.Intervention.Type, res.Intervention)
	}
	if alert := healthAlert(res.Reading); alert != nil {
		p.notifier.SendHealthAlert(res.Reading.DogID, alert)
	}
}

// Healthy vitals band: body temperature within 1.5C of the resting 38.8C,
// heart rate at or below 160 bpm.
const (
	maxTempDeviationC      = 1.5
	maxHealthyHeartRateBPM = 160.0
)

func healthAlert(r *model.SensorReading) map[string]any {
	deviation := r.BodyTemperature - restingBodyTempC
	if deviation < 0 {
		deviation = -deviation
	}
	switch {
	case deviation > maxTempDeviationC:
		return map[string]any{"metric": "body_temperature", "value": r.BodyTemperature, "reading_id": r.ID}
	case r.HeartRateBPM > maxHealthyHeartRateBPM:
		return map[string]any{"metric": "heart_rate_bpm", "value": r.HeartRateBPM, "reading_id": r.ID}
	}
	return nil
}
