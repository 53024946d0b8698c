package domain

import (
	"strings"
	"time"
)

// PhaseType names a periodization phase.
type PhaseType string

const (
	PhaseEvaluation PhaseType = "evaluation"
	PhaseBase       PhaseType = "base" // "grunnperiode"
	PhaseSpecific   PhaseType = "specific"
	PhaseTaper      PhaseType = "taper"
)

// VolumeIntensity is the coarse load label of a single week.
type VolumeIntensity string

const (
	IntensityLow    VolumeIntensity = "low"
	IntensityMedium VolumeIntensity = "medium"
	IntensityHigh   VolumeIntensity = "high"
	IntensityPeak   VolumeIntensity = "peak"
	IntensityTaper  VolumeIntensity = "taper"
)

// Level maps the label onto the 1-10 scale stored on assignments.
func (v VolumeIntensity) Level() int {
	switch v {
	case IntensityLow:
		return 3
	case IntensityHigh:
		return 7
	case IntensityPeak:
		return 9
	case IntensityTaper:
		return 4
	default:
		return 5
	}
}

// PhaseSpec is the static definition of one phase type.
type PhaseSpec struct {
	Type                 PhaseType
	Code                 string // period letter
	DefaultWeeklyHours   float64
	DefaultLearningPhase string
	// DropPriority orders phases for removal when a season is shorter than
	// the number of requested phases. Lower values are dropped first.
	DropPriority int
}

var phaseCatalog = []PhaseSpec{
	{Type: PhaseEvaluation, Code: "E", DefaultWeeklyHours: 8, DefaultLearningPhase: "assess", DropPriority: 0},
	{Type: PhaseBase, Code: "G", DefaultWeeklyHours: 12, DefaultLearningPhase: "build", DropPriority: 1},
	{Type: PhaseSpecific, Code: "S", DefaultWeeklyHours: 10, DefaultLearningPhase: "refine", DropPriority: 2},
	{Type: PhaseTaper, Code: "T", DefaultWeeklyHours: 6, DefaultLearningPhase: "peak", DropPriority: 3},
}

// Phases returns the catalog in canonical season order.
func Phases() []PhaseSpec {
	out := make([]PhaseSpec, len(phaseCatalog))
	copy(out, phaseCatalog)
	return out
}

// LookupPhase finds a phase by type.
func LookupPhase(t PhaseType) (PhaseSpec, bool) {
	for _, p := range phaseCatalog {
		if p.Type == t {
			return p, true
		}
	}
	return PhaseSpec{}, false
}

// ParsePhaseType accepts the canonical names plus the Norwegian "grunnperiode".
func ParsePhaseType(s string) (PhaseType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evaluation", "e":
		return PhaseEvaluation, true
	case "base", "grunnperiode", "g":
		return PhaseBase, true
	case "specific", "s":
		return PhaseSpecific, true
	case "taper", "t":
		return PhaseTaper, true
	}
	return "", false
}

// VolumeIntensityAt returns the load label of week weekIndex (0-based) of a
// phase that lasts totalWeeks.
func (p PhaseSpec) VolumeIntensityAt(weekIndex, totalWeeks int) VolumeIntensity {
	if totalWeeks <= 0 {
		return IntensityMedium
	}
	progress := float64(weekIndex) / float64(totalWeeks)
	switch p.Type {
	case PhaseEvaluation:
		return IntensityLow
	case PhaseBase:
		if progress < 0.3 {
			return IntensityMedium
		}
		if progress < 0.7 {
			return IntensityHigh
		}
		return IntensityMedium
	case PhaseSpecific:
		return IntensityHigh
	case PhaseTaper:
		if progress < 0.5 {
			return IntensityPeak
		}
		return IntensityTaper
	}
	return IntensityMedium
}

// PhaseWindow is a contiguous run of weeks belonging to one phase.
type PhaseWindow struct {
	Phase         PhaseType `bson:"phase" json:"phase"`
	Period        string    `bson:"period" json:"period"`
	StartWeek     int       `bson:"startWeek" json:"startWeek"` // ISO week of the first week
	EndWeek       int       `bson:"endWeek" json:"endWeek"`     // ISO week of the last week, inclusive
	StartDate     time.Time `bson:"startDate" json:"startDate"`
	EndDate       time.Time `bson:"endDate" json:"endDate"` // Exclusive
	Weeks         int       `bson:"weeks" json:"weeks"`
	WeeklyHours   float64   `bson:"weeklyHours" json:"weeklyHours"`
	LearningPhase string    `bson:"learningPhase" json:"learningPhase"`
}
