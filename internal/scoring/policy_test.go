package scoring

import (
	"testing"

	"collarwatch/internal/model"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name        string
		classIndex  int
		probability float64
		wantTier    model.InterventionTier
		wantFreq    int
		wantDur     int
	}{
		{"high probability dangerous", 3, 0.85, model.TierCritical, 22000, 5},
		{"elevated probability", 1, 0.7, model.TierHigh, 20000, 3},
		{"agitated class low probability", 2, 0.4, model.TierMedium, 18000, 2},
		{"calm", 0, 0.3, model.TierLow, 0, 0},

		// Both probability comparisons are strict.
		{"exactly 0.8 is not critical", 0, 0.8, model.TierHigh, 20000, 3},
		{"exactly 0.6 falls through to class rule", 1, 0.6, model.TierLow, 0, 0},
		{"exactly 0.6 with agitated class", 2, 0.6, model.TierMedium, 18000, 2},

		// Probability dominates class on the way up, class fires alone on the
		// way down.
		{"calm class with critical probability", 0, 0.95, model.TierCritical, 22000, 5},
		{"dangerous class with tiny probability", 4, 0.1, model.TierMedium, 18000, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.classIndex, tc.probability)
			if d.Tier != tc.wantTier {
				t.Fatalf("tier = %s, want %s", d.Tier, tc.wantTier)
			}
			if d.FrequencyHz != tc.wantFreq || d.DurationSeconds != tc.wantDur {
				t.Errorf("deterrent = %dHz/%ds, want %dHz/%ds",
					d.FrequencyHz, d.DurationSeconds, tc.wantFreq, tc.wantDur)
			}
		})
	}
}

func TestPhysicalTiers(t *testing.T) {
	if model.TierLow.Physical() {
		t.Error("LOW must not drive an emission")
	}
	for _, tier := range []model.InterventionTier{model.TierMedium, model.TierHigh, model.TierCritical} {
		if !tier.Physical() {
			t.Errorf("%s must drive an emission", tier)
		}
	}
}
