package service

import (
	"math"
	"sort"
	"time"

	"golfacademy/training-planner/internal/domain"
)

// MaxSeasonWeeks caps a season so ISO week numbers never repeat inside one plan.
const MaxSeasonWeeks = 52

// mixTolerance is how far the proportions may drift from 1.0.
const mixTolerance = 0.01

// PhaseShare is one entry of a phase mix. Zero WeeklyHours or an empty
// LearningPhase fall back to the catalog defaults.
type PhaseShare struct {
	Phase         domain.PhaseType `json:"phase"`
	Proportion    float64          `json:"proportion"`
	WeeklyHours   float64          `json:"weeklyHours,omitempty"`
	LearningPhase string           `json:"learningPhase,omitempty"`
}

// StandardMix is the default season split.
func StandardMix() []PhaseShare {
	return []PhaseShare{
		{Phase: domain.PhaseEvaluation, Proportion: 0.1},
		{Phase: domain.PhaseBase, Proportion: 0.5},
		{Phase: domain.PhaseSpecific, Proportion: 0.3},
		{Phase: domain.PhaseTaper, Proportion: 0.1},
	}
}

// PlanResult is the planner output. Weeks are periodization drafts without
// ids, owner references or timestamps.
type PlanResult struct {
	SeasonStart time.Time              `json:"seasonStart"`
	SeasonEnd   time.Time              `json:"seasonEnd"` // Exclusive
	Windows     []domain.PhaseWindow   `json:"windows"`
	Weeks       []domain.Periodization `json:"weeks"`
	Dropped     []domain.PhaseType     `json:"dropped,omitempty"`
}

// PeriodizationPlanner partitions a season into phase windows.
type PeriodizationPlanner interface {
	Plan(seasonStart time.Time, seasonLengthWeeks int, mix []PhaseShare) (*PlanResult, error)
}

type periodizationPlanner struct{}

// NewPeriodizationPlanner creates the planner. It is stateless.
func NewPeriodizationPlanner() PeriodizationPlanner {
	return periodizationPlanner{}
}

type activePhase struct {
	share PhaseShare
	spec  domain.PhaseSpec
	weeks int
}

// Plan allocates whole weeks to phases with largest-remainder rounding and
// walks them in the given order from the season start.
func (periodizationPlanner) Plan(seasonStart time.Time, seasonLengthWeeks int, mix []PhaseShare) (*PlanResult, error) {
	// 1. Validate Inputs
	if seasonLengthWeeks < 1 || seasonLengthWeeks > MaxSeasonWeeks {
		return nil, domain.NewConfigurationError(domain.ErrInvalidSeason, "season length %d not in 1..%d", seasonLengthWeeks, MaxSeasonWeeks)
	}
	if len(mix) == 0 {
		return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "empty phase mix")
	}

	var (
		total   float64
		seen    = map[domain.PhaseType]bool{}
		active  []activePhase
		dropped []domain.PhaseType
	)
	for _, share := range mix {
		spec, ok := domain.LookupPhase(share.Phase)
		if !ok {
			return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "unknown phase %q", share.Phase)
		}
		if seen[share.Phase] {
			return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "phase %q listed twice", share.Phase)
		}
		seen[share.Phase] = true
		if share.Proportion < 0 || math.IsNaN(share.Proportion) {
			return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "phase %q has proportion %v", share.Phase, share.Proportion)
		}
		if share.WeeklyHours < 0 {
			return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "phase %q has negative weekly hours", share.Phase)
		}
		total += share.Proportion
		if share.Proportion == 0 {
			dropped = append(dropped, share.Phase)
			continue
		}
		active = append(active, activePhase{share: share, spec: spec})
	}
	if math.Abs(total-1) > mixTolerance {
		return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "proportions sum to %.4f", total)
	}

	// 2. Short seasons lose phases in drop-priority order
	for len(active) > seasonLengthWeeks {
		victim := 0
		for i := range active {
			if active[i].spec.DropPriority < active[victim].spec.DropPriority {
				victim = i
			}
		}
		dropped = append(dropped, active[victim].share.Phase)
		active = append(active[:victim], active[victim+1:]...)
	}

	// 3. Allocate weeks
	allocate(active, seasonLengthWeeks)
	ensureOneWeekEach(active)

	// 4. Walk the phases
	start := domain.DateOf(seasonStart)
	result := &PlanResult{
		SeasonStart: start,
		SeasonEnd:   start.AddDate(0, 0, 7*seasonLengthWeeks),
		Dropped:     dropped,
	}
	cursor := 0
	for _, ap := range active {
		hours := ap.share.WeeklyHours
		if hours == 0 {
			hours = ap.spec.DefaultWeeklyHours
		}
		learning := ap.share.LearningPhase
		if learning == "" {
			learning = ap.spec.DefaultLearningPhase
		}

		first := start.AddDate(0, 0, 7*cursor)
		last := start.AddDate(0, 0, 7*(cursor+ap.weeks-1))
		result.Windows = append(result.Windows, domain.PhaseWindow{
			Phase:         ap.spec.Type,
			Period:        ap.spec.Code,
			StartWeek:     domain.ISOWeek(first),
			EndWeek:       domain.ISOWeek(last),
			StartDate:     first,
			EndDate:       last.AddDate(0, 0, 7),
			Weeks:         ap.weeks,
			WeeklyHours:   hours,
			LearningPhase: learning,
		})
		for j := 0; j < ap.weeks; j++ {
			day := start.AddDate(0, 0, 7*(cursor+j))
			result.Weeks = append(result.Weeks, domain.Periodization{
				PhaseType:       ap.spec.Type,
				Period:          ap.spec.Code,
				WeekNumber:      domain.ISOWeek(day),
				WeekStart:       domain.WeekMonday(day),
				WeekInPhase:     j + 1,
				WeeklyHours:     hours,
				LearningPhase:   learning,
				VolumeIntensity: ap.spec.VolumeIntensityAt(j, ap.weeks),
			})
		}
		cursor += ap.weeks
	}
	return result, nil
}

// allocate applies largest-remainder rounding. Ties on the remainder go to
// the phase listed first.
func allocate(active []activePhase, weeks int) {
	var sum float64
	for _, ap := range active {
		sum += ap.share.Proportion
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(active))
	assigned := 0
	for i := range active {
		quota := float64(weeks) * active[i].share.Proportion / sum
		whole := math.Floor(quota + 1e-9)
		active[i].weeks = int(whole)
		assigned += active[i].weeks
		rems[i] = rem{idx: i, frac: math.Max(0, quota-whole)}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac+1e-12 })
	for k := 0; assigned < weeks; k++ {
		active[rems[k%len(rems)].idx].weeks++
		assigned++
	}
}

// ensureOneWeekEach moves a week from the largest phase (the latest one on
// ties) to every phase that rounded down to zero.
func ensureOneWeekEach(active []activePhase) {
	for i := range active {
		if active[i].weeks > 0 {
			continue
		}
		donor := -1
		for j := range active {
			if donor == -1 || active[j].weeks >= active[donor].weeks {
				donor = j
			}
		}
		if donor == -1 || active[donor].weeks < 2 {
			return
		}
		active[donor].weeks--
		active[i].weeks++
	}
}
