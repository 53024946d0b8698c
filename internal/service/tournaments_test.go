package service

import (
	"testing"

	"golfacademy/training-planner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twentyWeeks starts on Monday 2025-01-06 (ISO week 2), so row i is ISO week i+2.
func (f *fixture) twentyWeeks(a domain.Athlete, tournaments ...TournamentInput) (*PlanOutcome, error) {
	return f.planService().GeneratePlan(f.ctx, GeneratePlanInput{
		PlayerID:    a.ID,
		SeasonStart: date("2025-01-06"),
		Weeks:       20,
		Tournaments: tournaments,
	})
}

func TestTournamentAShapesThreePeakWeeksThenTaper(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.addAthlete("Ada", "elite")

	baseline, err := NewPeriodizationPlanner().Plan(date("2025-01-06"), 20, StandardMix())
	require.NoError(t, err)

	// Saturday of ISO week 11.
	out, err := f.twentyWeeks(a, TournamentInput{Name: "Spring Open", Date: date("2025-03-15"), Importance: domain.ImportanceA})
	require.NoError(t, err)
	rows := out.Periodization
	require.Len(t, rows, 20)

	for i := 6; i <= 8; i++ {
		assert.Equal(t, "S", rows[i].Period, "week %d", rows[i].WeekNumber)
		assert.Equal(t, domain.IntensityPeak, rows[i].VolumeIntensity, "week %d", rows[i].WeekNumber)
	}
	assert.Equal(t, 11, rows[9].WeekNumber)
	assert.Equal(t, "T", rows[9].Period)
	assert.Equal(t, domain.IntensityTaper, rows[9].VolumeIntensity)

	// Everything outside the build-up is the plain plan.
	for _, i := range []int{0, 5, 10, 19} {
		assert.Equal(t, baseline.Weeks[i].Period, rows[i].Period)
		assert.Equal(t, baseline.Weeks[i].VolumeIntensity, rows[i].VolumeIntensity)
	}
	for i := range rows {
		assert.Equal(t, baseline.Weeks[i].PhaseType, rows[i].PhaseType, "phase windows are unchanged")
	}

	require.Len(t, out.Plan.Tournaments, 1)
	sched := out.Plan.Tournaments[0]
	assert.Equal(t, "Spring Open", sched.Name)
	assert.Equal(t, 11, sched.WeekNumber)
	assert.Equal(t, 8, sched.ToppingStartWeek)
	assert.Equal(t, 3, sched.ToppingWeeks)
	assert.Equal(t, 7, sched.TaperingDays)
	assert.Equal(t, date("2025-03-08"), sched.TaperingStartDate)

	// The stored rows and the assignments built from them carry the taper.
	week, err := f.periods.FindForWeek(f.ctx, a.ID, out.Plan.ID, 11)
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.Equal(t, domain.IntensityTaper, week.VolumeIntensity)

	report, err := f.scheduler().Refresh(f.ctx, RefreshRequest{
		RunID:       "run-t",
		WindowStart: date("2025-03-10"),
		WindowEnd:   date("2025-03-17"),
		Players:     []domain.Athlete{f.athlete(a.ID)},
	})
	require.NoError(t, err)
	require.Positive(t, report.Created)
	for _, row := range f.store.Assignments() {
		assert.Equal(t, "T", row.Period)
		assert.Equal(t, domain.IntensityTaper.Level(), row.Intensity)
	}
}

func TestTournamentImportanceSetsBuildUp(t *testing.T) {
	tests := []struct {
		importance domain.TournamentImportance
		topping    int
		taperDays  int
	}{
		{domain.ImportanceA, 3, 7},
		{domain.ImportanceB, 2, 5},
		{domain.ImportanceC, 1, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.importance), func(t *testing.T) {
			f := newFixture(t)
			a := f.addAthlete("Ada", "elite")

			out, err := f.twentyWeeks(a, TournamentInput{Date: date("2025-04-02"), Importance: tt.importance})
			require.NoError(t, err)
			// 2025-04-02 is in ISO week 14, row 12.
			rows := out.Periodization
			assert.Equal(t, "T", rows[12].Period)
			for i := 12 - tt.topping; i < 12; i++ {
				assert.Equal(t, domain.IntensityPeak, rows[i].VolumeIntensity)
			}
			assert.NotEqual(t, domain.IntensityPeak, rows[12-tt.topping-1].VolumeIntensity)
			assert.Equal(t, tt.topping, out.Plan.Tournaments[0].ToppingWeeks)
			assert.Equal(t, tt.taperDays, out.Plan.Tournaments[0].TaperingDays)
		})
	}
}

func TestTournamentToppingStopsAtSeasonStart(t *testing.T) {
	f := newFixture(t)
	a := f.addAthlete("Ada", "elite")

	out, err := f.twentyWeeks(a, TournamentInput{Date: date("2025-01-14"), Importance: domain.ImportanceA})
	require.NoError(t, err)

	rows := out.Periodization
	assert.Equal(t, domain.IntensityPeak, rows[0].VolumeIntensity)
	assert.Equal(t, "T", rows[1].Period)
	sched := out.Plan.Tournaments[0]
	assert.Equal(t, 1, sched.ToppingWeeks)
	assert.Equal(t, 2, sched.ToppingStartWeek)
}

func TestTournamentWeekWinsOverNeighbourBuildUp(t *testing.T) {
	f := newFixture(t)
	a := f.addAthlete("Ada", "elite")

	// The C event's single topping week is the A event's tournament week.
	out, err := f.twentyWeeks(a,
		TournamentInput{Date: date("2025-03-22"), Importance: domain.ImportanceC},
		TournamentInput{Date: date("2025-03-15"), Importance: domain.ImportanceA},
	)
	require.NoError(t, err)

	rows := out.Periodization
	assert.Equal(t, "T", rows[9].Period)
	assert.Equal(t, domain.IntensityTaper, rows[9].VolumeIntensity)
	assert.Equal(t, "T", rows[10].Period)

	require.Len(t, out.Plan.Tournaments, 2)
	assert.Equal(t, 11, out.Plan.Tournaments[0].WeekNumber, "ordered by date")
	assert.Equal(t, 12, out.Plan.Tournaments[1].WeekNumber)
}

func TestTournamentRejectedBeforeAnythingIsWritten(t *testing.T) {
	f := newFixture(t)
	a := f.addAthlete("Ada", "elite")

	for _, in := range []TournamentInput{
		{Date: date("2025-03-15"), Importance: "D"},
		{Date: date("2025-03-15")},
		{Date: date("2024-12-30"), Importance: domain.ImportanceA},
		{Date: date("2025-05-26"), Importance: domain.ImportanceB},
		{Importance: domain.ImportanceC},
	} {
		_, err := f.twentyWeeks(a, in)
		assert.ErrorIs(t, err, domain.ErrInvalidTournament, "%+v", in)
		var cfgErr *domain.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	}

	plans, err := f.plans.ListByPlayer(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)
}
