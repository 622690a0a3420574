package model

import "testing"

func validReading() *SensorReading {
	return &SensorReading{
		DogID:           "dog-1",
		CollarID:        "collar-1",
		HeartRateBPM:    95,
		BodyTemperature: 38.6,
	}
}

func TestValidateAcceptsMinimalReading(t *testing.T) {
	if err := validReading().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	negative := -1.0
	negativeCount := -2
	cases := []struct {
		name   string
		mutate func(*SensorReading)
	}{
		{"missing dog id", func(r *SensorReading) { r.DogID = "" }},
		{"missing collar id", func(r *SensorReading) { r.CollarID = "" }},
		{"heart rate too low", func(r *SensorReading) { r.HeartRateBPM = 20 }},
		{"heart rate too high", func(r *SensorReading) { r.HeartRateBPM = 250 }},
		{"temperature too low", func(r *SensorReading) { r.BodyTemperature = 30 }},
		{"temperature too high", func(r *SensorReading) { r.BodyTemperature = 43 }},
		{"unknown posture", func(r *SensorReading) { r.BodyPosture = "SLEEPING" }},
		{"unknown tail position", func(r *SensorReading) { r.TailPosition = "WAGGING" }},
		{"unknown ear position", func(r *SensorReading) { r.EarPosition = "FLOPPY" }},
		{"unknown vocalization", func(r *SensorReading) { r.Vocalization = "HOWLING" }},
		{"unknown time of day", func(r *SensorReading) { r.TimeOfDay = "DUSK" }},
		{"negative proximity", func(r *SensorReading) { r.HumanProximityMeters = &negative }},
		{"negative dog count", func(r *SensorReading) { r.OtherDogsNearby = &negativeCount }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validReading()
			tc.mutate(r)
			err := r.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid reading")
			}
			if !IsValidation(err) {
				t.Fatalf("err %v is not a ValidationError", err)
			}
		})
	}
}

func TestValidateBoundaryVitals(t *testing.T) {
	r := validReading()
	r.HeartRateBPM = MinHeartRateBPM
	r.BodyTemperature = MaxBodyTempC
	if err := r.Validate(); err != nil {
		t.Fatalf("boundary values rejected: %v", err)
	}
}

func TestAggressionLabels(t *testing.T) {
	if AggressionCalm.Label() != "CALM" || AggressionDangerous.Label() != "DANGEROUS" {
		t.Error("canonical labels wrong")
	}
	if AggressionLevel(7).Label() != "7" {
		t.Errorf("out-of-range label = %q, want stringified index", AggressionLevel(7).Label())
	}
}

func TestEnumCodes(t *testing.T) {
	if c, ok := VocalSnarling.Code(); !ok || c != 4 {
		t.Errorf("SNARLING code = %v/%v, want 4/true", c, ok)
	}
	if c, ok := Vocalization("").Code(); ok || c != 0 {
		t.Errorf("absent vocalization code = %v/%v, want 0/false", c, ok)
	}
	if c, ok := Night.Code(); !ok || c != 3 {
		t.Errorf("NIGHT code = %v/%v, want 3/true", c, ok)
	}
}
