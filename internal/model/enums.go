package model

import "strconv"

// Closed enumerations shared by the API, the feature transform and the store.
// Each carries the ordinal encoding the classifier was trained on.

// AggressionLevel is the risk class predicted by the classifier, ordered by
// severity. The integer value is the class index.
type AggressionLevel int

const (
	AggressionCalm AggressionLevel = iota
	AggressionAlert
	AggressionAgitated
	AggressionAggressive
	AggressionDangerous
)

var aggressionLabels = []string{"CALM", "ALERT", "AGITATED", "AGGRESSIVE", "DANGEROUS"}

// Label returns the canonical label for the class index, or the stringified
// index when the index is outside the known range.
func (l AggressionLevel) Label() string {
	if l >= 0 && int(l) < len(aggressionLabels) {
		return aggressionLabels[l]
	}
	return strconv.Itoa(int(l))
}

// NumAggressionLevels is the size of the class set.
const NumAggressionLevels = 5

// InterventionTier is the graduated deterrent severity.
type InterventionTier string

const (
	TierLow      InterventionTier = "LOW"
	TierMedium   InterventionTier = "MEDIUM"
	TierHigh     InterventionTier = "HIGH"
	TierCritical InterventionTier = "CRITICAL"
)

// Physical returns true when the tier drives an actual ultrasonic emission.
// LOW is a decision outcome, not an action.
func (t InterventionTier) Physical() bool { return t != TierLow && t != "" }

type Sex string

const (
	SexFemale Sex = "FEMALE"
	SexMale   Sex = "MALE"
)

var sexCodes = map[Sex]float64{SexFemale: 0, SexMale: 1}

type Sterilization string

const (
	NotSterilized Sterilization = "NOT_STERILIZED"
	Sterilized    Sterilization = "STERILIZED"
)

var sterilizationCodes = map[Sterilization]float64{NotSterilized: 0, Sterilized: 1}

type BodyPosture string

const (
	PostureRelaxed    BodyPosture = "RELAXED"
	PostureAlert      BodyPosture = "ALERT"
	PostureTense      BodyPosture = "TENSE"
	PostureAggressive BodyPosture = "AGGRESSIVE"
)

var postureCodes = map[BodyPosture]float64{
	PostureRelaxed: 0, PostureAlert: 1, PostureTense: 2, PostureAggressive: 3,
}

type TailPosition string

const (
	TailDown    TailPosition = "DOWN"
	TailNeutral TailPosition = "NEUTRAL"
	TailUp      TailPosition = "UP"
	TailStiff   TailPosition = "STIFF"
)

var tailCodes = map[TailPosition]float64{
	TailDown: 0, TailNeutral: 1, TailUp: 2, TailStiff: 3,
}

type EarPosition string

const (
	EarRelaxed   EarPosition = "RELAXED"
	EarAlert     EarPosition = "ALERT"
	EarFlattened EarPosition = "FLATTENED"
	EarBack      EarPosition = "BACK"
)

var earCodes = map[EarPosition]float64{
	EarRelaxed: 0, EarAlert: 1, EarFlattened: 2, EarBack: 3,
}

type Vocalization string

const (
	VocalNone     Vocalization = "NONE"
	VocalWhining  Vocalization = "WHINING"
	VocalBarking  Vocalization = "BARKING"
	VocalGrowling Vocalization = "GROWLING"
	VocalSnarling Vocalization = "SNARLING"
)

var vocalCodes = map[Vocalization]float64{
	VocalNone: 0, VocalWhining: 1, VocalBarking: 2, VocalGrowling: 3, VocalSnarling: 4,
}

type TimeOfDay string

const (
	Morning   TimeOfDay = "MORNING"
	Afternoon TimeOfDay = "AFTERNOON"
	Evening   TimeOfDay = "EVENING"
	Night     TimeOfDay = "NIGHT"
)

var timeOfDayCodes = map[TimeOfDay]float64{
	Morning: 0, Afternoon: 1, Evening: 2, Night: 3,
}

// Code returns the ordinal encoding used during training. Empty values
// (absent optional fields) encode as 0, the neutral code of every table.
// The bool reports whether the value was actually present and known.
func (s Sex) Code() (float64, bool)           { return lookupCode(sexCodes, s) }
func (s Sterilization) Code() (float64, bool) { return lookupCode(sterilizationCodes, s) }
func (p BodyPosture) Code() (float64, bool)   { return lookupCode(postureCodes, p) }
func (p TailPosition) Code() (float64, bool)  { return lookupCode(tailCodes, p) }
func (p EarPosition) Code() (float64, bool)   { return lookupCode(earCodes, p) }
func (v Vocalization) Code() (float64, bool)  { return lookupCode(vocalCodes, v) }
func (t TimeOfDay) Code() (float64, bool)     { return lookupCode(timeOfDayCodes, t) }

func lookupCode[K comparable](table map[K]float64, k K) (float64, bool) {
	c, ok := table[k]
	return c, ok
}

// Valid reports whether the value is one of the closed set. The empty string
// is not valid; callers treat it as "absent" before validating.
func (s Sex) Valid() bool           { _, ok := sexCodes[s]; return ok }
func (s Sterilization) Valid() bool { _, ok := sterilizationCodes[s]; return ok }
func (p BodyPosture) Valid() bool   { _, ok := postureCodes[p]; return ok }
func (p TailPosition) Valid() bool  { _, ok := tailCodes[p]; return ok }
func (p EarPosition) Valid() bool   { _, ok := earCodes[p]; return ok }
func (v Vocalization) Valid() bool  { _, ok := vocalCodes[v]; return ok }
func (t TimeOfDay) Valid() bool     { _, ok := timeOfDayCodes[t]; return ok }
