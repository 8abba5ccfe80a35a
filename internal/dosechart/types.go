package dosechart

// Level is a named dosage intensity tier.
type Level string

const (
	Threshold Level = "threshold"
	Light     Level = "light"
	Common    Level = "common"
	Strong    Level = "strong"
	Heavy     Level = "heavy"
)

// Levels lists dosage levels from weakest to strongest.
var Levels = []Level{Threshold, Light, Common, Strong, Heavy}

// Phase is a named stage of a substance's effect timeline.
type Phase string

const (
	Total        Phase = "total"
	Onset        Phase = "onset"
	ComeUp       Phase = "come_up"
	Peak         Phase = "peak"
	Offset       Phase = "offset"
	AfterEffects Phase = "after_effects"
)

// Phases lists duration phases in timeline order.
var Phases = []Phase{Total, Onset, ComeUp, Peak, Offset, AfterEffects}

var (
	DosageUnits   = []string{"µg", "mg"}
	DurationUnits = []string{"seconds", "minutes", "hours", "days"}
)

// Dose is the representative quantity of one dosage level.
type Dose struct {
	Quantity float64
	Unit     string
}

// Range is the low and high bound of one duration phase. A single value
// is stored with Low == High.
type Range struct {
	Low  float64
	High float64
	Unit string
}

// Record holds the dose chart of one route of administration.
type Record struct {
	Dosage   map[Level]Dose
	Duration map[Phase]Range
}

// Chart maps a lower-cased route of administration to its record.
type Chart map[string]Record

// Next returns the level after l and false when l is the strongest.
func (l Level) Next() (Level, bool) {
	for i, level := range Levels {
		if level == l && i+1 < len(Levels) {
			return Levels[i+1], true
		}
	}
	return "", false
}

// LevelHref is the anchor target the wiki uses for a dosage level.
func LevelHref(l Level) string {
	return "/wiki/Dosage_classification#" + capitalize(string(l))
}

// PhaseHref is the anchor target the wiki uses for a duration phase.
func PhaseHref(p Phase) string {
	return "/wiki/Duration#" + capitalize(string(p))
}

// ScaleDosage returns a copy of dosage with every quantity multiplied by
// factor. Units are unchanged.
func ScaleDosage(dosage map[Level]Dose, factor float64) map[Level]Dose {
	scaled := make(map[Level]Dose, len(dosage))
	for level, dose := range dosage {
		scaled[level] = Dose{Quantity: dose.Quantity * factor, Unit: dose.Unit}
	}
	return scaled
}
