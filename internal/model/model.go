package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	HashedPassword string     `json:"-"`
	FullName       string     `json:"full_name,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsAdmin        bool       `json:"is_admin"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type Dog struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Breed              string        `json:"breed,omitempty"`
	AgeYears           int           `json:"age_years"`
	Sex                Sex           `json:"sex,omitempty"`
	Sterilization      Sterilization `json:"sterilization_status,omitempty"`
	WeightKg           *float64      `json:"weight_kg,omitempty"`
	Color              string        `json:"color,omitempty"`
	MedicalHistory     string        `json:"medical_history,omitempty"`
	VaccinationRecords string        `json:"vaccination_records,omitempty"`
	PhotoURL           string        `json:"photo_url,omitempty"`
	MicrochipID        string        `json:"microchip_id,omitempty"`
	OwnerID            string        `json:"owner_id,omitempty"`
	IsActive           bool          `json:"is_active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          *time.Time    `json:"updated_at,omitempty"`
}

// Attributes are the static fields the feature transform needs.
func (d *Dog) Attributes() DogAttributes {
	return DogAttributes{AgeYears: d.AgeYears, Sex: d.Sex, Sterilization: d.Sterilization}
}

// DogAttributes is the subject-side input of the feature transform.
type DogAttributes struct {
	AgeYears      int
	Sex           Sex
	Sterilization Sterilization
}

type Collar struct {
	ID              string     `json:"id"`
	DeviceID        string     `json:"device_id"`
	DogID           string     `json:"dog_id,omitempty"`
	BatteryLevel    float64    `json:"battery_level"`
	IsOnline        bool       `json:"is_online"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
	FirmwareVersion string     `json:"firmware_version,omitempty"`
	GPSLatitude     *float64   `json:"gps_latitude,omitempty"`
	GPSLongitude    *float64   `json:"gps_longitude,omitempty"`
	GPSAccuracy     *float64   `json:"gps_accuracy,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// SensorReading is one telemetry sample. The score fields at the bottom are
// filled in by the scoring pipeline; everything above them comes off the
// device and is immutable once created.
type SensorReading struct {
	ID       string `json:"id,omitempty"`
	DogID    string `json:"dog_id"`
	CollarID string `json:"collar_id"`

	HeartRateBPM    float64  `json:"heart_rate_bpm"`
	HRVRmssd        *float64 `json:"hrv_rmssd,omitempty"`
	BodyTemperature float64  `json:"body_temperature"`
	StressCortisol  *float64 `json:"stress_cortisol,omitempty"`

	BodyPosture  BodyPosture  `json:"body_posture,omitempty"`
	TailPosition TailPosition `json:"tail_position,omitempty"`
	EarPosition  EarPosition  `json:"ear_position,omitempty"`
	Vocalization Vocalization `json:"vocalization_type,omitempty"`

	TimeOfDay            TimeOfDay `json:"time_of_day,omitempty"`
	HumanProximityMeters *float64  `json:"human_proximity_meters,omitempty"`
	OtherDogsNearby      *int      `json:"other_dogs_nearby,omitempty"`

	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`
	GPSAccuracy  *float64 `json:"gps_accuracy,omitempty"`

	AggressionLevel       *AggressionLevel `json:"aggression_level,omitempty"`
	AggressionLabel       string           `json:"aggression_label,omitempty"`
	AggressionProbability *float64         `json:"aggression_probability,omitempty"`
	InterventionRequired  bool             `json:"intervention_required"`

	RecordedAt  time.Time  `json:"recorded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type Intervention struct {
	ID       string `json:"id"`
	DogID    string `json:"dog_id"`
	CollarID string `json:"collar_id"`

	Type                InterventionTier `json:"intervention_type"`
	UltrasonicFrequency int              `json:"ultrasonic_frequency"`
	DurationSeconds     int              `json:"duration_seconds"`

	AggressionLevel AggressionLevel `json:"aggression_level"`
	Confidence      float64         `json:"confidence"`
	ReadingID       string          `json:"reading_id,omitempty"`
	TriggerData     string          `json:"trigger_data,omitempty"`

	IsAcknowledged bool       `json:"is_acknowledged"`
	Notes          string     `json:"notes,omitempty"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}
