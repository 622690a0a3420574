package scoring

import (
	"context"
	"errors"
	"testing"

	"collarwatch/internal/model"
)

// recorder implements every pipeline collaborator and logs call order.
type recorder struct {
	calls []string

	attrs    model.DogAttributes
	attrsErr error

	readingErr      error
	interventionErr error
	cacheErr        error

	reading      *model.SensorReading
	intervention *model.Intervention
	alerts       []string
}

func (r *recorder) DogAttributes(_ context.Context, dogID string) (model.DogAttributes, error) {
	r.calls = append(r.calls, "lookup")
	return r.attrs, r.attrsErr
}

func (r *recorder) InsertReading(_ context.Context, reading *model.SensorReading) error {
	r.calls = append(r.calls, "reading")
	r.reading = reading
	return r.readingErr
}

func (r *recorder) InsertIntervention(_ context.Context, iv *model.Intervention) error {
	r.calls = append(r.calls, "intervention")
	r.intervention = iv
	return r.interventionErr
}

func (r *recorder) SetLatest(_ context.Context, dogID string, payload []byte) error {
	r.calls = append(r.calls, "cache")
	return r.cacheErr
}

func (r *recorder) SendSensorUpdate(dogID string, data any) {
	r.calls = append(r.calls, "notify:sensor")
}

func (r *recorder) SendInterventionAlert(dogID string, tier model.InterventionTier, data any) {
	r.calls = append(r.calls, "notify:intervention")
}

func (r *recorder) SendHealthAlert(dogID string, data any) {
	r.calls = append(r.calls, "notify:health")
	r.alerts = append(r.alerts, dogID)
}

func newTestPipeline(rec *recorder, outputs [][]float64) *Pipeline {
	c := NewClassifier(testArtifact(), &stubScorer{outputs: outputs})
	return NewPipeline(c, rec, rec, rec, rec, rec)
}

func calmReading() *model.SensorReading {
	return &model.SensorReading{
		DogID:           "dog-1",
		CollarID:        "collar-1",
		HeartRateBPM:    80,
		BodyTemperature: 38.8,
	}
}

func TestPipelineOrdering(t *testing.T) {
	rec := &recorder{attrs: youngMale()}
	p := newTestPipeline(rec, [][]float64{{0, 0, 0, 0.9, 0.1}})

	res, err := p.ScoreAndRecord(context.Background(), fullReading())
	if err != nil {
		t.Fatalf("ScoreAndRecord: %v", err)
	}
	if res.Intervention == nil {
		t.Fatal("probability 0.9 must produce an intervention")
	}

	want := []string{"lookup", "reading", "intervention", "cache", "notify:sensor", "notify:intervention"}
	if len(rec.calls) < len(want) {
		t.Fatalf("calls = %v, want prefix %v", rec.calls, want)
	}
	for i, step := range want {
		if rec.calls[i] != step {
			t.Fatalf("calls = %v, want %v", rec.calls, want)
		}
	}
}

func TestPipelineEnrichesReading(t *testing.T) {
	rec := &recorder{attrs: youngMale()}
	p := newTestPipeline(rec, [][]float64{{0, 0, 0, 0, 0.9}})

	res, err := p.ScoreAndRecord(context.Background(), calmReading())
	if err != nil {
		t.Fatalf("ScoreAndRecord: %v", err)
	}

	r := res.Reading
	if r.ID == "" {
		t.Error("reading was not assigned an id")
	}
	if r.AggressionLevel == nil || *r.AggressionLevel != model.AggressionDangerous {
		t.Errorf("aggression level = %v, want DANGEROUS", r.AggressionLevel)
	}
	if r.AggressionLabel != "DANGEROUS" {
		t.Errorf("label = %q, want DANGEROUS", r.AggressionLabel)
	}
	if r.AggressionProbability == nil || *r.AggressionProbability != 0.9 {
		t.Errorf("probability = %v, want 0.9", r.AggressionProbability)
	}
	if !r.InterventionRequired {
		t.Error("intervention_required must be set for CRITICAL")
	}
	if r.ProcessedAt == nil || r.RecordedAt.IsZero() {
		t.Error("timestamps were not filled in")
	}

	iv := res.Intervention
	if iv.Type != model.TierCritical || iv.UltrasonicFrequency != 22000 || iv.DurationSeconds != 5 {
		t.Errorf("intervention = %+v, want CRITICAL 22000Hz/5s", iv)
	}
	if iv.ReadingID != r.ID {
		t.Error("intervention does not reference the reading")
	}
	if iv.TriggerData == "" {
		t.Error("intervention is missing its trigger snapshot")
	}
}

func TestPipelineLowTierSkipsIntervention(t *testing.T) {
	rec := &recorder{attrs: youngMale()}
	p := newTestPipeline(rec, [][]float64{{0.6, 0.4, 0, 0, 0}})

	res, err := p.ScoreAndRecord(context.Background(), calmReading())
	if err != nil {
		t.Fatalf("ScoreAndRecord: %v", err)
	}
	if res.Intervention != nil {
		t.Fatalf("LOW decision persisted an intervention: %+v", res.Intervention)
	}
	if res.Reading.InterventionRequired {
		t.Error("intervention_required set for LOW")
	}
	for _, call := range rec.calls {
		if call == "intervention" || call == "notify:intervention" {
			t.Errorf("unexpected call %s for LOW decision", call)
		}
	}
}

func TestPipelinePersistenceFailuresPropagate(t *testing.T) {
	rec := &recorder{attrs: youngMale(), readingErr: errors.New("db down")}
	p := newTestPipeline(rec, [][]float64{{0, 0, 0, 0, 0.9}})
	if _, err := p.ScoreAndRecord(context.Background(), calmReading()); err == nil {
		t.Fatal("reading persistence failure did not propagate")
	}
	for _, call := range rec.calls {
		if call == "cache" || call == "notify:sensor" {
			t.Errorf("side effect %s ran after persistence failed", call)
		}
	}

	rec = &recorder{attrs: youngMale(), interventionErr: errors.New("db down")}
	p = newTestPipeline(rec, [][]float64{{0, 0, 0, 0, 0.9}})
	if _, err := p.ScoreAndRecord(context.Background(), calmReading()); err == nil {
		t.Fatal("intervention persistence failure did not propagate")
	}
}

func TestPipelineCacheFailureIsSwallowed(t *testing.T) {
	rec := &recorder{attrs: youngMale(), cacheErr: errors.New("redis down")}
	p := newTestPipeline(rec, [][]float64{{1, 0, 0, 0, 0}})

	if _, err := p.ScoreAndRecord(context.Background(), calmReading()); err != nil {
		t.Fatalf("cache failure leaked: %v", err)
	}
	found := false
	for _, call := range rec.calls {
		if call == "notify:sensor" {
			found = true
		}
	}
	if !found {
		t.Error("notification skipped after cache failure")
	}
}

func TestPipelineUnknownDogFails(t *testing.T) {
	rec := &recorder{attrsErr: model.ErrNotFound}
	p := newTestPipeline(rec, [][]float64{{1, 0, 0, 0, 0}})
	if _, err := p.ScoreAndRecord(context.Background(), calmReading()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPipelineEmitsHealthAlert(t *testing.T) {
	rec := &recorder{attrs: youngMale()}
	p := newTestPipeline(rec, [][]float64{{1, 0, 0, 0, 0}})

	feverish := calmReading()
	feverish.BodyTemperature = 40.6
	if _, err := p.ScoreAndRecord(context.Background(), feverish); err != nil {
		t.Fatalf("ScoreAndRecord: %v", err)
	}
	if len(rec.alerts) != 1 || rec.alerts[0] != "dog-1" {
		t.Errorf("health alerts = %v, want one for dog-1", rec.alerts)
	}

	rec2 := &recorder{attrs: youngMale()}
	p2 := newTestPipeline(rec2, [][]float64{{1, 0, 0, 0, 0}})
	if _, err := p2.ScoreAndRecord(context.Background(), calmReading()); err != nil {
		t.Fatalf("ScoreAndRecord: %v", err)
	}
	if len(rec2.alerts) != 0 {
		t.Errorf("health alert fired for healthy vitals: %v", rec2.alerts)
	}
}

func TestPipelineDegradedClassifierStillRecords(t *testing.T) {
	rec := &recorder{attrs: youngMale()}
	p := NewPipeline(NewClassifier(nil, nil), rec, rec, rec, rec, rec)

	res, err := p.ScoreAndRecord(context.Background(), calmReading())
	if err != nil {
		t.Fatalf("ScoreAndRecord: %v", err)
	}
	if res.Reading.AggressionLabel != "CALM" {
		t.Errorf("degraded label = %q, want CALM", res.Reading.AggressionLabel)
	}
	if res.Intervention != nil {
		t.Error("degraded score must never trigger an intervention")
	}
}
