package service

import (
	"context"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxListDays bounds a single assignment listing.
const MaxListDays = 366

// AssignmentService reads materialized assignments.
type AssignmentService interface {
	ListForPlayer(ctx context.Context, playerID primitive.ObjectID, from, to time.Time) ([]domain.DailyTrainingAssignment, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
}

func NewAssignmentService(assignmentRepo repository.AssignmentRepository) AssignmentService {
	return &assignmentService{assignmentRepo: assignmentRepo}
}

// ListForPlayer returns assignments in [from, to).
func (s *assignmentService) ListForPlayer(ctx context.Context, playerID primitive.ObjectID, from, to time.Time) ([]domain.DailyTrainingAssignment, error) {
	from, to = domain.DateOf(from), domain.DateOf(to)
	if !to.After(from) || to.Sub(from) > MaxListDays*24*time.Hour {
		return nil, domain.NewConfigurationError(domain.ErrInvalidWindow, "%s..%s", from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}
	rows, err := s.assignmentRepo.ListInRange(ctx, playerID, from, to)
	if err != nil {
		return nil, domain.NewPersistenceError("list assignments", err)
	}
	return rows, nil
}
