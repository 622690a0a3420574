package scoring

import (
	"fmt"

	"collarwatch/internal/model"
)

// Feature column names understood by the transform. The model artifact picks
// the subset and order the classifier was trained on.
const (
	colAgeYears       = "age_years"
	colSex            = "sex"
	colSterilization  = "sterilization_status"
	colHeartRate      = "heart_rate_bpm"
	colHRV            = "hrv_rmssd"
	colBodyTemp       = "body_temperature"
	colCortisol       = "stress_cortisol"
	colBodyPosture    = "body_posture"
	colTailPosition   = "tail_position"
	colEarPosition    = "ear_position"
	colVocalization   = "vocalization_type"
	colTimeOfDay      = "time_of_day"
	colHumanProximity = "human_proximity_meters"
	colOtherDogs      = "other_dogs_nearby"

	colHRStress     = "hr_stress_indicator"
	colNightRisk    = "night_risk"
	colCloseHuman   = "close_human_stress"
	colPackIsolated = "pack_isolation"
	colYoungMale    = "young_male_risk"
	colBehavioral   = "behavioral_composite"
	colTempDev      = "temp_deviation"
)

// Baselines the derived signals are centered on.
const (
	restingHeartRateBPM = 85.0
	restingBodyTempC    = 38.8
	closeHumanMeters    = 5.0
	nightRiskWeight     = 3.0
	youngMaleAgeYears   = 3
)

// Features computes every known column for one reading. Deterministic and
// side-effect free; the same reading always yields the same values.
//
// Absent optional fields take the neutral/zero encoding: categorical codes
// encode as 0 (the calm end of every scale) and evidence-based flags
// (close_human_stress, pack_isolation, night_risk) only fire when the
// underlying field was actually reported.
func Features(r *model.SensorReading, dog model.DogAttributes) (map[string]float64, error) {
	if r.HeartRateBPM == 0 {
		return nil, fmt.Errorf("feature transform: reading has no heart rate")
	}
	if r.BodyTemperature == 0 {
		return nil, fmt.Errorf("feature transform: reading has no body temperature")
	}

	sex, _ := dog.Sex.Code()
	sterilized, _ := dog.Sterilization.Code()
	posture, _ := r.BodyPosture.Code()
	tail, _ := r.TailPosition.Code()
	ear, _ := r.EarPosition.Code()
	vocal, _ := r.Vocalization.Code()
	tod, _ := r.TimeOfDay.Code()

	f := map[string]float64{
		colAgeYears:      float64(dog.AgeYears),
		colSex:           sex,
		colSterilization: sterilized,
		colHeartRate:     r.HeartRateBPM,
		colHRV:           deref(r.HRVRmssd),
		colBodyTemp:      r.BodyTemperature,
		colCortisol:      deref(r.StressCortisol),
		colBodyPosture:   posture,
		colTailPosition:  tail,
		colEarPosition:   ear,
		colVocalization:  vocal,
		colTimeOfDay:     tod,
	}

	f[colHRStress] = (r.HeartRateBPM - restingHeartRateBPM) / restingHeartRateBPM
	f[colTempDev] = abs(r.BodyTemperature - restingBodyTempC)
	f[colBehavioral] = (posture + tail + ear + vocal) / 4

	f[colNightRisk] = 0
	if r.TimeOfDay == model.Night {
		f[colNightRisk] = nightRiskWeight
	}

	f[colHumanProximity] = 0
	f[colCloseHuman] = 0
	if r.HumanProximityMeters != nil {
		f[colHumanProximity] = *r.HumanProximityMeters
		if *r.HumanProximityMeters < closeHumanMeters {
			f[colCloseHuman] = 1
		}
	}

	f[colOtherDogs] = 0
	f[colPackIsolated] = 0
	if r.OtherDogsNearby != nil {
		f[colOtherDogs] = float64(*r.OtherDogsNearby)
		if *r.OtherDogsNearby == 0 {
			f[colPackIsolated] = 1
		}
	}

	f[colYoungMale] = 0
	if dog.AgeYears < youngMaleAgeYears && dog.Sex == model.SexMale && dog.Sterilization == model.NotSterilized {
		f[colYoungMale] = 1
	}

	return f, nil
}

// Vector lays the computed features out in the caller-specified column order.
// Unknown column names are a contract violation between artifact and code.
func Vector(r *model.SensorReading, dog model.DogAttributes, order []string) ([]float64, error) {
	f, err := Features(r, dog)
	if err != nil {
		return nil, err
	}
	vec := make([]float64, len(order))
	for i, name := range order {
		v, ok := f[name]
		if !ok {
			return nil, fmt.Errorf("feature transform: unknown column %q", name)
		}
		vec[i] = v
	}
	return vec, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
