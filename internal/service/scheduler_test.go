package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golfacademy/training-planner/internal/claim"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"
	"golfacademy/training-planner/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func buildMix() []PhaseShare {
	return []PhaseShare{
		{Phase: domain.PhaseEvaluation, Proportion: 0.1},
		{Phase: domain.PhaseBase, Proportion: 0.5, WeeklyHours: 4, LearningPhase: "build"},
		{Phase: domain.PhaseSpecific, Proportion: 0.3},
		{Phase: domain.PhaseTaper, Proportion: 0.1},
	}
}

// plannedAthlete has a season from 2025-01-06 whose June weeks are Base.
func (f *fixture) plannedAthlete(name string) domain.Athlete {
	a := f.addAthlete(name, "elite")
	f.generate(a, "2025-01-06", 52, buildMix())
	return f.athlete(a.ID)
}

func juneWeek(players ...domain.Athlete) RefreshRequest {
	return RefreshRequest{
		RunID:       "run-1",
		WindowStart: date("2025-06-02"),
		WindowEnd:   date("2025-06-09"),
		Players:     players,
	}
}

func TestRefreshOneWeekScenario(t *testing.T) {
	f := newFixture(t)
	tmpl := f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	report, err := f.scheduler().Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Created)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 1, report.AthletesProcessed)
	assert.Equal(t, 2, report.WeekendDays)
	require.Len(t, report.Players, 1)
	assert.Equal(t, AthleteOK, report.Players[0].Status)
	assert.Equal(t, 1, report.Players[0].Attempts)

	rows, err := f.assignments.ListInRange(f.ctx, a.ID, date("2025-06-02"), date("2025-06-09"))
	require.NoError(t, err)
	require.Len(t, rows, 5)

	for i, row := range rows {
		assert.Equal(t, date("2025-06-02").AddDate(0, 0, i), row.AssignedDate)
		assert.NotEqual(t, time.Saturday, row.AssignedDate.Weekday())
		assert.NotEqual(t, time.Sunday, row.AssignedDate.Weekday())
		assert.Equal(t, int(row.AssignedDate.Weekday()), row.DayOfWeek)
		assert.Equal(t, 23, row.WeekNumber)
		assert.Equal(t, "build", row.LearningPhase)
		assert.Equal(t, "G", row.Period)
		assert.Equal(t, domain.IntensityHigh.Level(), row.Intensity)
		assert.Equal(t, domain.DefaultClubSpeedLevel, row.ClubSpeed)
		assert.Equal(t, domain.StatusPending, row.Status)
		assert.Equal(t, *a.CurrentPlanID, row.AnnualPlanID)
		assert.Equal(t, tmpl[row.SessionType].ID, row.SessionTemplateID)
		assert.Equal(t, tmpl[row.SessionType].Duration, row.EstimatedDuration)
	}

	assert.Equal(t, domain.SessionTraining, rows[0].SessionType)
	assert.Equal(t, domain.SessionTraining, rows[1].SessionType)
	assert.Contains(t, []domain.SessionType{domain.SessionTraining, domain.SessionTest}, rows[2].SessionType)
	assert.Equal(t, domain.SessionTraining, rows[3].SessionType)
	assert.Equal(t, domain.SessionRecovery, rows[4].SessionType)

	assert.Equal(t, 1, report.ByType[domain.SessionRecovery])
	assert.Equal(t, 5, report.ByType[domain.SessionTraining]+report.ByType[domain.SessionTest]+report.ByType[domain.SessionRecovery])
}

func TestRefreshIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")
	b := f.plannedAthlete("Bo")
	req := RefreshRequest{WindowStart: date("2025-05-26"), WindowEnd: date("2025-06-23"), Players: []domain.Athlete{a, b}}

	first, err := f.scheduler().Refresh(f.ctx, req)
	require.NoError(t, err)
	after1 := views(f.store.Assignments())

	second, err := f.scheduler().Refresh(f.ctx, req)
	require.NoError(t, err)
	after2 := views(f.store.Assignments())

	assert.Equal(t, after1, after2)
	assert.Equal(t, first.Created, second.Created)
	assert.Equal(t, first.Created, second.Deleted)
	assert.Equal(t, first.ByType, second.ByType)
	assert.Equal(t, 40, first.Created)
}

func TestRefreshUniquenessAndInvariants(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	var players []domain.Athlete
	for i := 0; i < 12; i++ {
		players = append(players, f.plannedAthlete(fmt.Sprintf("player-%d", i)))
	}

	report, err := f.scheduler().Refresh(f.ctx, RefreshRequest{
		WindowStart: date("2025-04-07"),
		WindowEnd:   date("2025-05-05"),
		Players:     players,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, report.AthletesProcessed)
	assert.Equal(t, 12*20, report.Created)

	keys := map[domain.AssignmentKey]bool{}
	for _, row := range f.store.Assignments() {
		assert.False(t, keys[row.Key()], "duplicate key %+v", row.Key())
		keys[row.Key()] = true
		assert.False(t, domain.IsWeekend(row.AssignedDate))
		if row.AssignedDate.Weekday() == time.Friday {
			assert.Equal(t, domain.SessionRecovery, row.SessionType)
		}
	}
}

func TestRefreshDryRunLeavesStorageUntouched(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	_, err := f.scheduler().Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)
	before := f.store.Assignments()

	req := juneWeek(a)
	req.DryRun = true
	req.WindowEnd = date("2025-06-16")
	report, err := f.scheduler().Refresh(f.ctx, req)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 10, report.Created)
	assert.Equal(t, 5, report.Deleted)
	assert.ElementsMatch(t, before, f.store.Assignments())
}

func TestRefreshMissingPeriodizationIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	// Bo's season starts a week later; its week 23 belongs to 2026.
	b := f.addAthlete("Bo", "elite")
	f.generate(b, "2025-06-09", 52, StandardMix())
	b = f.athlete(b.ID)

	report, err := f.scheduler().Refresh(f.ctx, juneWeek(a, b))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Created)
	assert.Equal(t, 5, report.Skipped)
	require.Len(t, report.Players, 2)

	assert.Equal(t, AthleteOK, report.Players[0].Status)
	assert.Equal(t, 5, report.Players[0].Created)

	bo := report.Players[1]
	assert.Equal(t, 0, bo.Created)
	require.Len(t, bo.Skips, 1)
	assert.Equal(t, SkipNoPeriodization, bo.Skips[0].Reason)
	assert.Equal(t, 23, bo.Skips[0].Week)
	assert.Len(t, bo.Skips[0].Dates, 5)

	rows, err := f.assignments.ListInRange(f.ctx, b.ID, date("2025-06-02"), date("2025-06-09"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRefreshNoTemplate(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.addAthlete("Cy", "junior")
	f.generate(a, "2025-01-06", 52, StandardMix())
	a = f.athlete(a.ID)

	report, err := f.scheduler().Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 5, report.Skipped)
	for _, s := range report.Players[0].Skips {
		assert.Equal(t, SkipNoTemplate, s.Reason)
		assert.NotEmpty(t, s.SessionType)
	}
}

func TestRefreshExcludeDates(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	req := juneWeek(a)
	req.ExcludeDates = []time.Time{date("2025-06-04"), date("2025-06-07")}
	report, err := f.scheduler().Refresh(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Created)
	require.Len(t, report.Players[0].Skips, 1)
	assert.Equal(t, SkipExcluded, report.Players[0].Skips[0].Reason)
	assert.Equal(t, []string{"2025-06-04"}, report.Players[0].Skips[0].Dates)
}

func TestRefreshEmptyWindow(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	req := juneWeek(a)
	req.WindowEnd = req.WindowStart
	report, err := f.scheduler().Refresh(f.ctx, req)
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.AthletesProcessed)
	assert.Empty(t, report.Players)

	req.WindowEnd = req.WindowStart.AddDate(0, 0, -3)
	report, err = f.scheduler().Refresh(f.ctx, req)
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Empty(t, f.store.Assignments())
}

func TestRefreshAthleteWithoutPlan(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.addAthlete("Dee", "elite")

	report, err := f.scheduler().Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)
	require.Len(t, report.Players, 1)
	assert.Equal(t, AthleteSkipped, report.Players[0].Status)
	assert.Equal(t, SkipNoPlan, report.Players[0].Skips[0].Reason)
	assert.Equal(t, 1, report.AthletesProcessed)
}

func TestRefreshRetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	flaky := &flakyAssignments{AssignmentRepository: f.assignments, player: a.ID, remaining: 2}
	report, err := f.schedulerWith(flaky).Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)

	assert.Equal(t, AthleteOK, report.Players[0].Status)
	assert.Equal(t, 3, report.Players[0].Attempts)
	assert.Equal(t, 5, report.Created)
	assert.Equal(t, 3, flaky.calls)
}

// conflictingAssignments rejects every insert as a unique key violation.
type conflictingAssignments struct {
	repository.AssignmentRepository
	calls int
}

func (c *conflictingAssignments) InsertMany(context.Context, []domain.DailyTrainingAssignment) (int, error) {
	c.calls++
	return 0, memory.ErrDuplicateKey
}

func TestRefreshDoesNotRetryDuplicateKeys(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	conflicting := &conflictingAssignments{AssignmentRepository: f.assignments}
	report, err := f.schedulerWith(conflicting).Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, AthleteFailed, report.Players[0].Status)
	assert.Equal(t, 1, report.Players[0].Attempts)
	assert.Contains(t, report.Players[0].Error, "duplicate key")
	assert.Equal(t, 1, conflicting.calls)
	assert.Empty(t, f.store.Assignments())
}

func TestRefreshGivesUpAfterMaxAttemptsAndRollsBack(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")
	b := f.plannedAthlete("Bo")

	_, err := f.scheduler().Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)
	before := views(f.store.Assignments())
	require.Len(t, before, 5)

	flaky := &flakyAssignments{AssignmentRepository: f.assignments, player: a.ID, remaining: 10}
	report, err := f.schedulerWith(flaky).Refresh(f.ctx, juneWeek(a, b))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, AthleteFailed, report.Players[0].Status)
	assert.Equal(t, 3, report.Players[0].Attempts)
	assert.Contains(t, report.Players[0].Error, "connection reset")
	assert.Equal(t, AthleteOK, report.Players[1].Status)
	assert.Equal(t, 5, report.Created)

	// Ada's previous assignments survived the failed delete+insert.
	rows, err := f.assignments.ListInRange(f.ctx, a.ID, date("2025-06-02"), date("2025-06-09"))
	require.NoError(t, err)
	assert.Equal(t, before, views(rows))
}

func TestRefreshDefersAfterDeadline(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")
	b := f.plannedAthlete("Bo")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	report, err := f.scheduler().Refresh(ctx, juneWeek(a, b))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Deferred)
	assert.Zero(t, report.AthletesProcessed)
	for _, p := range report.Players {
		assert.Equal(t, AthleteDeferred, p.Status)
	}
	assert.Empty(t, f.store.Assignments())
}

func TestRefreshSkipsClaimedAthlete(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")
	b := f.plannedAthlete("Bo")

	ok, err := f.claimer.Claim(f.ctx, a.ID, "other-run")
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.scheduler().Refresh(f.ctx, juneWeek(a, b))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Claimed)
	assert.Equal(t, AthleteClaimed, report.Players[0].Status)
	assert.Equal(t, AthleteOK, report.Players[1].Status)
	assert.Equal(t, 5, report.Created)

	// Claims are released after the unit.
	ok, err = f.claimer.Claim(f.ctx, b.ID, "other-run")
	require.NoError(t, err)
	assert.True(t, ok)
}

// overlapClaimer starts a second run the moment the first one holds the
// athlete.
type overlapClaimer struct {
	claim.Claimer
	once   bool
	second func() *RefreshReport
	got    *RefreshReport
}

func (c *overlapClaimer) Claim(ctx context.Context, playerID primitive.ObjectID, token string) (bool, error) {
	ok, err := c.Claimer.Claim(ctx, playerID, token)
	if ok && !c.once {
		c.once = true
		c.got = c.second()
	}
	return ok, err
}

func TestRefreshOverlappingWindowsShareOneClaim(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	fourWeeks := RefreshRequest{RunID: "run-4w", WindowStart: date("2025-06-02"), WindowEnd: date("2025-06-30"), Players: []domain.Athlete{a}}
	twoWeeks := RefreshRequest{RunID: "run-2w", WindowStart: date("2025-06-02"), WindowEnd: date("2025-06-16"), Players: []domain.Athlete{a}}

	oc := &overlapClaimer{Claimer: f.claimer}
	f.claimer = oc
	oc.second = func() *RefreshReport {
		r, err := f.scheduler().Refresh(f.ctx, twoWeeks)
		assert.NoError(t, err)
		return r
	}

	first, err := f.scheduler().Refresh(f.ctx, fourWeeks)
	require.NoError(t, err)

	require.NotNil(t, oc.got)
	assert.Equal(t, 1, oc.got.Claimed)
	assert.Equal(t, AthleteClaimed, oc.got.Players[0].Status)
	assert.Zero(t, oc.got.Created)

	assert.Equal(t, AthleteOK, first.Players[0].Status)
	assert.Equal(t, 20, first.Created)
	assert.Len(t, f.store.Assignments(), 20)
}

func TestRefreshUsesLatestRevision(t *testing.T) {
	f := newFixture(t)
	f.addTemplates("elite")
	a := f.plannedAthlete("Ada")

	f.now = f.now.Add(time.Hour)
	_, err := f.planService().ReviseWeeks(f.ctx, a.ID, []WeekRevision{{WeekNumber: 23, LearningPhase: "peak", VolumeIntensity: domain.IntensityPeak}})
	require.NoError(t, err)

	_, err = f.scheduler().Refresh(f.ctx, juneWeek(a))
	require.NoError(t, err)

	rows, err := f.assignments.ListInRange(f.ctx, a.ID, date("2025-06-02"), date("2025-06-09"))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.Equal(t, "peak", row.LearningPhase)
		assert.Equal(t, 9, row.Intensity)
	}
}
