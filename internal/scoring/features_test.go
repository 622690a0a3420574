package scoring

import (
	"math"
	"testing"

	"collarwatch/internal/model"
)

func fullReading() *model.SensorReading {
	proximity := 3.0
	otherDogs := 0
	hrv := 42.0
	cortisol := 11.5
	return &model.SensorReading{
		DogID:                "dog-1",
		CollarID:             "collar-1",
		HeartRateBPM:         120,
		HRVRmssd:             &hrv,
		BodyTemperature:      39.5,
		StressCortisol:       &cortisol,
		BodyPosture:          model.PostureTense,
		TailPosition:         model.TailStiff,
		EarPosition:          model.EarFlattened,
		Vocalization:         model.VocalGrowling,
		TimeOfDay:            model.Night,
		HumanProximityMeters: &proximity,
		OtherDogsNearby:      &otherDogs,
	}
}

func youngMale() model.DogAttributes {
	return model.DogAttributes{AgeYears: 2, Sex: model.SexMale, Sterilization: model.NotSterilized}
}

func TestFeaturesDerivedSignals(t *testing.T) {
	f, err := Features(fullReading(), youngMale())
	if err != nil {
		t.Fatalf("Features: %v", err)
	}

	want := map[string]float64{
		"hr_stress_indicator":  (120.0 - 85.0) / 85.0,
		"night_risk":           3,
		"close_human_stress":   1,
		"pack_isolation":       1,
		"young_male_risk":      1,
		"behavioral_composite": (2.0 + 3.0 + 2.0 + 3.0) / 4.0,
		"temp_deviation":       0.7,
	}
	for name, v := range want {
		got, ok := f[name]
		if !ok {
			t.Fatalf("missing feature %s", name)
		}
		if math.Abs(got-v) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, v)
		}
	}
}

func TestFeaturesDeterministic(t *testing.T) {
	r := fullReading()
	dog := youngMale()
	a, err := Features(r, dog)
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	b, err := Features(r, dog)
	if err != nil {
		t.Fatalf("Features second run: %v", err)
	}
	for name, v := range a {
		if b[name] != v {
			t.Errorf("feature %s changed between identical runs: %v vs %v", name, v, b[name])
		}
	}
}

// Absent optional fields encode neutrally and evidence flags stay off.
func TestFeaturesAbsentOptionals(t *testing.T) {
	r := &model.SensorReading{
		DogID:           "dog-1",
		CollarID:        "collar-1",
		HeartRateBPM:    85,
		BodyTemperature: 38.8,
	}
	dog := model.DogAttributes{AgeYears: 2, Sex: model.SexMale}

	f, err := Features(r, dog)
	if err != nil {
		t.Fatalf("Features: %v", err)
	}

	for _, name := range []string{
		"body_posture", "tail_position", "ear_position", "vocalization_type", "time_of_day",
		"human_proximity_meters", "other_dogs_nearby",
		"night_risk", "close_human_stress", "pack_isolation",
		"hr_stress_indicator", "temp_deviation", "behavioral_composite",
	} {
		if f[name] != 0 {
			t.Errorf("%s = %v, want 0 when absent or at baseline", name, f[name])
		}
	}
	// Sterilization absent means the young-male conjunction still holds only
	// when the dog is explicitly not sterilized.
	if f["young_male_risk"] != 0 {
		t.Errorf("young_male_risk = %v without explicit sterilization status, want 0", f["young_male_risk"])
	}
}

func TestFeaturesYoungMaleBoundary(t *testing.T) {
	r := &model.SensorReading{DogID: "d", CollarID: "c", HeartRateBPM: 90, BodyTemperature: 38.8}
	cases := []struct {
		name string
		dog  model.DogAttributes
		want float64
	}{
		{"young intact male", model.DogAttributes{AgeYears: 2, Sex: model.SexMale, Sterilization: model.NotSterilized}, 1},
		{"exactly three years", model.DogAttributes{AgeYears: 3, Sex: model.SexMale, Sterilization: model.NotSterilized}, 0},
		{"young female", model.DogAttributes{AgeYears: 2, Sex: model.SexFemale, Sterilization: model.NotSterilized}, 0},
		{"young sterilized male", model.DogAttributes{AgeYears: 2, Sex: model.SexMale, Sterilization: model.Sterilized}, 0},
	}
	for _, tc := range cases {
		f, err := Features(r, tc.dog)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if f["young_male_risk"] != tc.want {
			t.Errorf("%s: young_male_risk = %v, want %v", tc.name, f["young_male_risk"], tc.want)
		}
	}
}

func TestVectorOrderAndUnknownColumn(t *testing.T) {
	r := fullReading()
	dog := youngMale()

	vec, err := Vector(r, dog, []string{"heart_rate_bpm", "night_risk", "age_years"})
	if err != nil {
		t.Fatalf("Vector: %v", err)
	}
	if vec[0] != 120 || vec[1] != 3 || vec[2] != 2 {
		t.Errorf("Vector = %v, want [120 3 2]", vec)
	}

	if _, err := Vector(r, dog, []string{"heart_rate_bpm", "no_such_column"}); err == nil {
		t.Fatal("Vector accepted an unknown column")
	}
}

func TestFeaturesRejectsEmptyVitals(t *testing.T) {
	if _, err := Features(&model.SensorReading{BodyTemperature: 38.8}, youngMale()); err == nil {
		t.Error("Features accepted a reading with no heart rate")
	}
	if _, err := Features(&model.SensorReading{HeartRateBPM: 90}, youngMale()); err == nil {
		t.Error("Features accepted a reading with no body temperature")
	}
}
