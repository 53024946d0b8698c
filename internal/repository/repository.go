package repository

import (
	"context"
	"time"

	"golfacademy/training-planner/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as one all-or-nothing unit. Repository calls made with
// the ctx passed to fn take part in the transaction; readers outside it never
// observe a partial result.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AthleteRepository reads athletes and maintains the current-plan pointer.
type AthleteRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Athlete, error)
	ListActive(ctx context.Context, filter domain.AthleteFilter) ([]domain.Athlete, error)
	// GetCurrentPlan returns (nil, nil) when the athlete has no current plan.
	GetCurrentPlan(ctx context.Context, playerID primitive.ObjectID) (*domain.AnnualTrainingPlan, error)
	SetCurrentPlan(ctx context.Context, playerID, planID primitive.ObjectID) error
}

// AnnualPlanRepository stores plan roots.
type AnnualPlanRepository interface {
	Create(ctx context.Context, plan *domain.AnnualTrainingPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AnnualTrainingPlan, error)
	ListByPlayer(ctx context.Context, playerID primitive.ObjectID) ([]domain.AnnualTrainingPlan, error)
}

// PeriodizationRepository is append-only.
type PeriodizationRepository interface {
	InsertMany(ctx context.Context, rows []domain.Periodization) error
	// FindForWeek returns the most recently created row for the week, or
	// (nil, nil) when there is none.
	FindForWeek(ctx context.Context, playerID, planID primitive.ObjectID, weekNumber int) (*domain.Periodization, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Periodization, error)
}

// TemplateRepository looks up session templates.
type TemplateRepository interface {
	// FindMatch returns the matching template with the lowest id, or
	// (nil, nil) when none matches.
	FindMatch(ctx context.Context, tenantID primitive.ObjectID, sessionType domain.SessionType, tier string) (*domain.SessionTemplate, error)
}

// AssignmentRepository manages daily assignments. Ranges are [start, endExclusive).
type AssignmentRepository interface {
	DeleteInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) (int, error)
	CountInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) (int, error)
	InsertMany(ctx context.Context, rows []domain.DailyTrainingAssignment) (int, error)
	ListInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) ([]domain.DailyTrainingAssignment, error)
}

// RefreshRunRepository keeps the audit trail of batch refreshes.
type RefreshRunRepository interface {
	Create(ctx context.Context, run *domain.RefreshRun) error
	GetByID(ctx context.Context, id string) (*domain.RefreshRun, error)
}
