package service

import (
	"context"
	"errors"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// GeneratePlanInput is the general form of plan generation. A zero
// SeasonStart means the Monday of the current ISO week; an empty Mix means
// the standard mix. Tournaments reshape the weeks leading into them.
type GeneratePlanInput struct {
	PlayerID    primitive.ObjectID
	SeasonStart time.Time
	Weeks       int
	Mix         []PhaseShare
	Tournaments []TournamentInput
}

// PlanOutcome is a persisted plan with its periodization rows.
type PlanOutcome struct {
	Plan          *domain.AnnualTrainingPlan `json:"plan"`
	Periodization []domain.Periodization     `json:"periodization"`
	Dropped       []domain.PhaseType         `json:"dropped,omitempty"`
}

// WeekRevision corrects one week of the current plan. Zero fields keep the
// value of the row being corrected.
type WeekRevision struct {
	WeekNumber      int                    `json:"weekNumber" binding:"required,min=1,max=53"`
	Phase           domain.PhaseType       `json:"phase,omitempty"`
	WeeklyHours     float64                `json:"weeklyHours,omitempty" binding:"gte=0"`
	LearningPhase   string                 `json:"learningPhase,omitempty"`
	VolumeIntensity domain.VolumeIntensity `json:"volumeIntensity,omitempty"`
}

// Schedule is the current plan with the latest row of every week.
type Schedule struct {
	Plan  *domain.AnnualTrainingPlan `json:"plan"`
	Weeks []domain.Periodization     `json:"weeks"`
}

// AnnualPlanService generates and revises athletes' season plans.
type AnnualPlanService interface {
	GetPlayer(ctx context.Context, playerID primitive.ObjectID) (*domain.Athlete, error)
	GeneratePlan(ctx context.Context, in GeneratePlanInput) (*PlanOutcome, error)
	GenerateStandardAnnualPlan(ctx context.Context, playerID primitive.ObjectID, seasonLengthWeeks int) (*PlanOutcome, error)
	ReviseWeeks(ctx context.Context, playerID primitive.ObjectID, revisions []WeekRevision) ([]domain.Periodization, error)
	CurrentSchedule(ctx context.Context, playerID primitive.ObjectID) (*Schedule, error)
}

type annualPlanService struct {
	athleteRepo       repository.AthleteRepository
	planRepo          repository.AnnualPlanRepository
	periodizationRepo repository.PeriodizationRepository
	transactor        repository.Transactor
	planner           PeriodizationPlanner
	now               Clock
	log               *logger.Logger
}

func NewAnnualPlanService(
	athleteRepo repository.AthleteRepository,
	planRepo repository.AnnualPlanRepository,
	periodizationRepo repository.PeriodizationRepository,
	transactor repository.Transactor,
	planner PeriodizationPlanner,
	now Clock,
	log *logger.Logger,
) AnnualPlanService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &annualPlanService{
		athleteRepo:       athleteRepo,
		planRepo:          planRepo,
		periodizationRepo: periodizationRepo,
		transactor:        transactor,
		planner:           planner,
		now:               now,
		log:               log.Component("annual-plan"),
	}
}

func (s *annualPlanService) GetPlayer(ctx context.Context, playerID primitive.ObjectID) (*domain.Athlete, error) {
	athlete, err := s.athleteRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError(domain.ErrPlayerNotFound, playerID.Hex())
		}
		return nil, domain.NewPersistenceError("get player", err)
	}
	return athlete, nil
}

func (s *annualPlanService) GenerateStandardAnnualPlan(ctx context.Context, playerID primitive.ObjectID, seasonLengthWeeks int) (*PlanOutcome, error) {
	return s.GeneratePlan(ctx, GeneratePlanInput{PlayerID: playerID, Weeks: seasonLengthWeeks})
}

// GeneratePlan creates a plan and its rows and moves the current-plan
// pointer, all in one transaction.
func (s *annualPlanService) GeneratePlan(ctx context.Context, in GeneratePlanInput) (*PlanOutcome, error) {
	// 1. Validate the athlete
	athlete, err := s.GetPlayer(ctx, in.PlayerID)
	if err != nil {
		return nil, err
	}
	if !athlete.Active {
		return nil, domain.NewNotFoundError(domain.ErrPlayerNotFound, in.PlayerID.Hex())
	}

	// 2. Plan before touching storage
	now := s.now()
	seasonStart := in.SeasonStart
	if seasonStart.IsZero() {
		seasonStart = domain.WeekMonday(now)
	}
	mix := in.Mix
	if len(mix) == 0 {
		mix = StandardMix()
	}
	result, err := s.planner.Plan(seasonStart, in.Weeks, mix)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Periodization, len(result.Weeks))
	copy(rows, result.Weeks)
	tournaments, err := scheduleTournaments(result.SeasonStart, result.SeasonEnd, rows, in.Tournaments)
	if err != nil {
		return nil, err
	}

	plan := &domain.AnnualTrainingPlan{
		TenantID:          athlete.TenantID,
		PlayerID:          athlete.ID,
		SeasonStartDate:   result.SeasonStart,
		SeasonEndDate:     result.SeasonEnd,
		SeasonLengthWeeks: in.Weeks,
		Phases:            result.Windows,
		Tournaments:       tournaments,
		CreatedAt:         now,
	}

	// 3. Persist atomically
	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		planID, err := s.planRepo.Create(txCtx, plan)
		if err != nil {
			return domain.NewPersistenceError("create plan", err)
		}
		plan.ID = planID
		for i := range rows {
			rows[i].TenantID = athlete.TenantID
			rows[i].PlayerID = athlete.ID
			rows[i].AnnualPlanID = planID
			rows[i].CreatedAt = now
		}
		if err := s.periodizationRepo.InsertMany(txCtx, rows); err != nil {
			return domain.NewPersistenceError("insert periodization", err)
		}
		if err := s.athleteRepo.SetCurrentPlan(txCtx, athlete.ID, planID); err != nil {
			return domain.NewPersistenceError("set current plan", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("plan generation failed", "player_id", athlete.ID.Hex(), "error", err)
		return nil, err
	}

	s.log.Info("plan generated",
		"player_id", athlete.ID.Hex(),
		"plan_id", plan.ID.Hex(),
		"season_start", plan.SeasonStartDate.Format(domain.DateLayout),
		"weeks", in.Weeks,
		"dropped", len(result.Dropped),
		"tournaments", len(tournaments),
	)
	return &PlanOutcome{Plan: plan, Periodization: rows, Dropped: result.Dropped}, nil
}

func (s *annualPlanService) currentPlan(ctx context.Context, playerID primitive.ObjectID) (*domain.AnnualTrainingPlan, error) {
	plan, err := s.athleteRepo.GetCurrentPlan(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError(domain.ErrPlayerNotFound, playerID.Hex())
		}
		return nil, domain.NewPersistenceError("get current plan", err)
	}
	if plan == nil {
		return nil, domain.NewNotFoundError(domain.ErrPlanNotFound, playerID.Hex())
	}
	return plan, nil
}

func (s *annualPlanService) CurrentSchedule(ctx context.Context, playerID primitive.ObjectID) (*Schedule, error) {
	plan, err := s.currentPlan(ctx, playerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.periodizationRepo.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("list periodization", err)
	}
	return &Schedule{Plan: plan, Weeks: domain.LatestPerWeek(rows)}, nil
}

// ReviseWeeks appends corrective rows for weeks of the current plan. Existing
// rows are never touched; readers pick the newest row per week.
func (s *annualPlanService) ReviseWeeks(ctx context.Context, playerID primitive.ObjectID, revisions []WeekRevision) ([]domain.Periodization, error) {
	if len(revisions) == 0 {
		return nil, domain.NewConfigurationError(domain.ErrWeekNotInPlan, "no revisions given")
	}
	schedule, err := s.CurrentSchedule(ctx, playerID)
	if err != nil {
		return nil, err
	}
	byWeek := make(map[int]domain.Periodization, len(schedule.Weeks))
	for _, row := range schedule.Weeks {
		byWeek[row.WeekNumber] = row
	}

	now := s.now()
	rows := make([]domain.Periodization, 0, len(revisions))
	for _, rev := range revisions {
		base, ok := byWeek[rev.WeekNumber]
		if !ok {
			return nil, domain.NewConfigurationError(domain.ErrWeekNotInPlan, "week %d", rev.WeekNumber)
		}
		if rev.WeeklyHours < 0 {
			return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "week %d has negative weekly hours", rev.WeekNumber)
		}
		row := base
		row.ID = primitive.NilObjectID
		row.CreatedAt = now
		if rev.Phase != "" {
			spec, ok := domain.LookupPhase(rev.Phase)
			if !ok {
				return nil, domain.NewConfigurationError(domain.ErrInvalidPhaseMix, "unknown phase %q", rev.Phase)
			}
			row.PhaseType = spec.Type
			row.Period = spec.Code
		}
		if rev.WeeklyHours > 0 {
			row.WeeklyHours = rev.WeeklyHours
		}
		if rev.LearningPhase != "" {
			row.LearningPhase = rev.LearningPhase
		}
		if rev.VolumeIntensity != "" {
			row.VolumeIntensity = rev.VolumeIntensity
		}
		rows = append(rows, row)
		byWeek[rev.WeekNumber] = row
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.periodizationRepo.InsertMany(txCtx, rows); err != nil {
			return domain.NewPersistenceError("insert revisions", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("periodization revised", "player_id", playerID.Hex(), "plan_id", schedule.Plan.ID.Hex(), "weeks", len(rows))
	return rows, nil
}
