package model

import (
	"errors"
	"fmt"
)

// ValidationError marks input that fails domain constraints. The scoring
// pipeline never sees a reading that carries one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Domain bounds for physiological signals. Values outside these ranges are
// sensor faults, not biology.
const (
	MinHeartRateBPM = 30.0
	MaxHeartRateBPM = 200.0
	MinBodyTempC    = 35.0
	MaxBodyTempC    = 42.0
)

// Validate checks the reading against domain constraints. Absent optional
// fields are fine; present ones must be members of their closed sets.
func (r *SensorReading) Validate() error {
	if r.DogID == "" {
		return &ValidationError{Field: "dog_id", Reason: "required"}
	}
	if r.CollarID == "" {
		return &ValidationError{Field: "collar_id", Reason: "required"}
	}
	if r.HeartRateBPM < MinHeartRateBPM || r.HeartRateBPM > MaxHeartRateBPM {
		return &ValidationError{Field: "heart_rate_bpm", Reason: fmt.Sprintf("must be within [%g, %g]", MinHeartRateBPM, MaxHeartRateBPM)}
	}
	if r.BodyTemperature < MinBodyTempC || r.BodyTemperature > MaxBodyTempC {
		return &ValidationError{Field: "body_temperature", Reason: fmt.Sprintf("must be within [%g, %g]", MinBodyTempC, MaxBodyTempC)}
	}
	if r.BodyPosture != "" && !r.BodyPosture.Valid() {
		return &ValidationError{Field: "body_posture", Reason: "unknown value"}
	}
	if r.TailPosition != "" && !r.TailPosition.Valid() {
		return &ValidationError{Field: "tail_position", Reason: "unknown value"}
	}
	if r.EarPosition != "" && !r.EarPosition.Valid() {
		return &ValidationError{Field: "ear_position", Reason: "unknown value"}
	}
	if r.Vocalization != "" && !r.Vocalization.Valid() {
		return &ValidationError{Field: "vocalization_type", Reason: "unknown value"}
	}
	if r.TimeOfDay != "" && !r.TimeOfDay.Valid() {
		return &ValidationError{Field: "time_of_day", Reason: "unknown value"}
	}
	if r.HumanProximityMeters != nil && *r.HumanProximityMeters < 0 {
		return &ValidationError{Field: "human_proximity_meters", Reason: "must be non-negative"}
	}
	if r.OtherDogsNearby != nil && *r.OtherDogsNearby < 0 {
		return &ValidationError{Field: "other_dogs_nearby", Reason: "must be non-negative"}
	}
	return nil
}
