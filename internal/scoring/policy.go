package scoring

import "collarwatch/internal/model"

// InterventionDecision is the deterrent the policy selected for one scored
// reading. FrequencyHz and DurationSeconds are zero for TierLow.
type InterventionDecision struct {
	Tier            model.InterventionTier
	FrequencyHz     int
	DurationSeconds int
}

// Decide maps a (class index, probability) pair to a deterrent tier. Rules
// are evaluated in order, first match wins.
//
// CRITICAL and HIGH trigger on probability alone regardless of class, while
// MEDIUM triggers on class alone regardless of probability. The asymmetry is
// intentional and matches the trained policy; both comparisons are strict.
func Decide(classIndex int, probability float64) InterventionDecision {
	switch {
	case probability > 0.8:
		return InterventionDecision{Tier: model.TierCritical, FrequencyHz: 22000, DurationSeconds: 5}
	case probability > 0.6:
		return InterventionDecision{Tier: model.TierHigh, FrequencyHz: 20000, DurationSeconds: 3}
	case classIndex >= int(model.AggressionAgitated):
		return InterventionDecision{Tier: model.TierMedium, FrequencyHz: 18000, DurationSeconds: 2}
	default:
		return InterventionDecision{Tier: model.TierLow}
	}
}
