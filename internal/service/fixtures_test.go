package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"golfacademy/training-planner/internal/claim"
	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/repository"
	"golfacademy/training-planner/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func date(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Weeks:                    4,
		Workers:                  4,
		MaxAttempts:              3,
		RetryInitial:             time.Millisecond,
		RetryMax:                 5 * time.Millisecond,
		Deadline:                 time.Minute,
		WednesdayTestProbability: DefaultWednesdayTestProbability,
		Interval:                 time.Hour,
	}
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	tenant primitive.ObjectID
	now    time.Time

	athletes    repository.AthleteRepository
	plans       repository.AnnualPlanRepository
	periods     repository.PeriodizationRepository
	templates   repository.TemplateRepository
	assignments repository.AssignmentRepository
	runs        repository.RefreshRunRepository
	tx          repository.Transactor
	claimer     claim.Claimer
	cfg         config.SchedulerConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		tenant:      primitive.NewObjectID(),
		now:         time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC),
		athletes:    memory.NewAthleteRepository(store),
		plans:       memory.NewAnnualPlanRepository(store),
		periods:     memory.NewPeriodizationRepository(store),
		templates:   memory.NewTemplateRepository(store),
		assignments: memory.NewAssignmentRepository(store),
		runs:        memory.NewRefreshRunRepository(store),
		tx:          store.Transactor(),
		claimer:     claim.NewMemory(time.Minute),
		cfg:         testSchedulerConfig(),
	}
	store.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) addAthlete(name, category string) domain.Athlete {
	return f.store.PutAthlete(domain.Athlete{
		TenantID: f.tenant,
		Name:     name,
		Category: category,
		Active:   true,
	})
}

func (f *fixture) addTemplates(tier string) map[domain.SessionType]domain.SessionTemplate {
	out := map[domain.SessionType]domain.SessionTemplate{}
	for st, minutes := range map[domain.SessionType]int{
		domain.SessionTraining: 90,
		domain.SessionTest:     60,
		domain.SessionRecovery: 45,
	} {
		out[st] = f.store.PutTemplate(domain.SessionTemplate{
			TenantID:    f.tenant,
			Name:        string(st) + " " + tier,
			SessionType: st,
			Tier:        tier,
			Duration:    minutes,
		})
	}
	return out
}

func (f *fixture) planService() AnnualPlanService {
	return NewAnnualPlanService(f.athletes, f.plans, f.periods, f.tx, NewPeriodizationPlanner(), f.clock, logger.Nop())
}

func (f *fixture) scheduler() AssignmentScheduler {
	return f.schedulerWith(f.assignments)
}

func (f *fixture) schedulerWith(assignments repository.AssignmentRepository) AssignmentScheduler {
	return NewAssignmentScheduler(f.athletes, f.periods, assignments, f.tx,
		NewSessionTemplateResolver(f.templates), f.claimer, f.cfg, logger.Nop())
}

// generate creates a plan starting at start with the given mix.
func (f *fixture) generate(a domain.Athlete, start string, weeks int, mix []PhaseShare) *PlanOutcome {
	f.t.Helper()
	out, err := f.planService().GeneratePlan(f.ctx, GeneratePlanInput{
		PlayerID:    a.ID,
		SeasonStart: date(start),
		Weeks:       weeks,
		Mix:         mix,
	})
	require.NoError(f.t, err)
	return out
}

func (f *fixture) athlete(id primitive.ObjectID) domain.Athlete {
	f.t.Helper()
	a, err := f.athletes.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return *a
}

// comparable view of an assignment without storage-assigned fields
type assignmentView struct {
	Key           domain.AssignmentKey
	TemplateID    primitive.ObjectID
	Duration      int
	LearningPhase string
	Intensity     int
	ClubSpeed     string
	Status        domain.AssignmentStatus
}

func views(rows []domain.DailyTrainingAssignment) []assignmentView {
	out := make([]assignmentView, 0, len(rows))
	for i := range rows {
		out = append(out, assignmentView{
			Key:           rows[i].Key(),
			TemplateID:    rows[i].SessionTemplateID,
			Duration:      rows[i].EstimatedDuration,
			LearningPhase: rows[i].LearningPhase,
			Intensity:     rows[i].Intensity,
			ClubSpeed:     rows[i].ClubSpeed,
			Status:        rows[i].Status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.PlayerID != b.PlayerID {
			return a.PlayerID.Hex() < b.PlayerID.Hex()
		}
		if !a.AssignedDate.Equal(b.AssignedDate) {
			return a.AssignedDate.Before(b.AssignedDate)
		}
		return a.SessionType < b.SessionType
	})
	return out
}

var errConnReset = errors.New("connection reset by peer")

// flakyAssignments fails InsertMany for one player a fixed number of times.
type flakyAssignments struct {
	repository.AssignmentRepository
	mu        sync.Mutex
	player    primitive.ObjectID
	remaining int
	calls     int
}

func (f *flakyAssignments) InsertMany(ctx context.Context, rows []domain.DailyTrainingAssignment) (int, error) {
	f.mu.Lock()
	if len(rows) > 0 && rows[0].PlayerID == f.player {
		f.calls++
		if f.remaining > 0 {
			f.remaining--
			f.mu.Unlock()
			return 0, errConnReset
		}
	}
	f.mu.Unlock()
	return f.AssignmentRepository.InsertMany(ctx, rows)
}

// failingPeriods fails every InsertMany.
type failingPeriods struct {
	repository.PeriodizationRepository
}

func (failingPeriods) InsertMany(context.Context, []domain.Periodization) error {
	return errConnReset
}

// brokenAthletes fails ListActive.
type brokenAthletes struct {
	repository.AthleteRepository
}

func (brokenAthletes) ListActive(context.Context, domain.AthleteFilter) ([]domain.Athlete, error) {
	return nil, errConnReset
}
