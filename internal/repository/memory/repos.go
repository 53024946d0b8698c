package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- athletes ---

type athleteRepository struct{ s *Store }

// NewAthleteRepository returns an AthleteRepository over the store.
func NewAthleteRepository(s *Store) repository.AthleteRepository { return &athleteRepository{s: s} }

func (r *athleteRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Athlete, error) {
	defer r.s.read(ctx)()
	a, ok := r.s.athletes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *athleteRepository) ListActive(ctx context.Context, f domain.AthleteFilter) ([]domain.Athlete, error) {
	defer r.s.read(ctx)()
	wanted := map[primitive.ObjectID]bool{}
	for _, id := range f.PlayerIDs {
		wanted[id] = true
	}
	out := []domain.Athlete{}
	for _, a := range r.s.athletes {
		if !a.Active {
			continue
		}
		if f.TenantID != primitive.NilObjectID && a.TenantID != f.TenantID {
			continue
		}
		if len(wanted) > 0 && !wanted[a.ID] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *athleteRepository) GetCurrentPlan(ctx context.Context, playerID primitive.ObjectID) (*domain.AnnualTrainingPlan, error) {
	defer r.s.read(ctx)()
	a, ok := r.s.athletes[playerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !a.HasCurrentPlan() {
		return nil, nil
	}
	p, ok := r.s.plans[*a.CurrentPlanID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *athleteRepository) SetCurrentPlan(ctx context.Context, playerID, planID primitive.ObjectID) error {
	defer r.s.write(ctx)()
	a, ok := r.s.athletes[playerID]
	if !ok {
		return repository.ErrNotFound
	}
	id := planID
	a.CurrentPlanID = &id
	a.UpdatedAt = r.s.now()
	r.s.athletes[playerID] = a
	return nil
}

// --- plans ---

type annualPlanRepository struct{ s *Store }

// NewAnnualPlanRepository returns an AnnualPlanRepository over the store.
func NewAnnualPlanRepository(s *Store) repository.AnnualPlanRepository {
	return &annualPlanRepository{s: s}
}

func (r *annualPlanRepository) Create(ctx context.Context, plan *domain.AnnualTrainingPlan) (primitive.ObjectID, error) {
	if plan.PlayerID == primitive.NilObjectID {
		return primitive.NilObjectID, fmt.Errorf("%w: plan requires playerId", domain.ErrInvalidRecord)
	}
	defer r.s.write(ctx)()
	plan.ID = primitive.NewObjectID()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = r.s.now()
	}
	r.s.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (r *annualPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AnnualTrainingPlan, error) {
	defer r.s.read(ctx)()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *annualPlanRepository) ListByPlayer(ctx context.Context, playerID primitive.ObjectID) ([]domain.AnnualTrainingPlan, error) {
	defer r.s.read(ctx)()
	out := []domain.AnnualTrainingPlan{}
	for _, p := range r.s.plans {
		if p.PlayerID == playerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- periodization ---

type periodizationRepository struct{ s *Store }

// NewPeriodizationRepository returns an append-only PeriodizationRepository.
func NewPeriodizationRepository(s *Store) repository.PeriodizationRepository {
	return &periodizationRepository{s: s}
}

func (r *periodizationRepository) InsertMany(ctx context.Context, rows []domain.Periodization) error {
	defer r.s.write(ctx)()
	now := r.s.now()
	for i := range rows {
		if rows[i].PlayerID == primitive.NilObjectID || rows[i].AnnualPlanID == primitive.NilObjectID {
			return fmt.Errorf("%w: periodization requires playerId and annualPlanId", domain.ErrInvalidRecord)
		}
	}
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		r.s.periods = append(r.s.periods, rows[i])
	}
	return nil
}

func (r *periodizationRepository) FindForWeek(ctx context.Context, playerID, planID primitive.ObjectID, weekNumber int) (*domain.Periodization, error) {
	defer r.s.read(ctx)()
	var best *domain.Periodization
	for i := range r.s.periods {
		row := r.s.periods[i]
		if row.PlayerID != playerID || row.AnnualPlanID != planID || row.WeekNumber != weekNumber {
			continue
		}
		if best == nil || domain.NewerThan(row, *best) {
			best = &row
		}
	}
	return best, nil
}

func (r *periodizationRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Periodization, error) {
	defer r.s.read(ctx)()
	out := []domain.Periodization{}
	for _, row := range r.s.periods {
		if row.AnnualPlanID == planID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].WeekStart.Equal(out[j].WeekStart) {
			return out[i].WeekStart.Before(out[j].WeekStart)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- templates ---

type templateRepository struct{ s *Store }

// NewTemplateRepository returns a TemplateRepository over the store.
func NewTemplateRepository(s *Store) repository.TemplateRepository { return &templateRepository{s: s} }

func (r *templateRepository) FindMatch(ctx context.Context, tenantID primitive.ObjectID, sessionType domain.SessionType, tier string) (*domain.SessionTemplate, error) {
	defer r.s.read(ctx)()
	var best *domain.SessionTemplate
	for i := range r.s.templates {
		t := r.s.templates[i]
		if t.TenantID != tenantID || t.SessionType != sessionType || t.Tier != tier {
			continue
		}
		if best == nil || t.ID.Hex() < best.ID.Hex() {
			best = &t
		}
	}
	return best, nil
}

// --- assignments ---

type assignmentRepository struct{ s *Store }

// NewAssignmentRepository returns an AssignmentRepository over the store.
// Like the unique index in MongoDB, it rejects duplicate uniqueness keys.
func NewAssignmentRepository(s *Store) repository.AssignmentRepository {
	return &assignmentRepository{s: s}
}

// ErrDuplicateKey mirrors a unique index violation.
var ErrDuplicateKey = fmt.Errorf("%w: assignment", domain.ErrDuplicateKey)

func inRange(a domain.DailyTrainingAssignment, playerID primitive.ObjectID, start, end time.Time) bool {
	d := domain.DateOf(a.AssignedDate)
	return a.PlayerID == playerID && !d.Before(domain.DateOf(start)) && d.Before(domain.DateOf(end))
}

func (r *assignmentRepository) DeleteInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) (int, error) {
	defer r.s.write(ctx)()
	n := 0
	for id, a := range r.s.assignments {
		if inRange(a, playerID, start, endExclusive) {
			delete(r.s.assignments, id)
			n++
		}
	}
	return n, nil
}

func (r *assignmentRepository) CountInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) (int, error) {
	defer r.s.read(ctx)()
	n := 0
	for _, a := range r.s.assignments {
		if inRange(a, playerID, start, endExclusive) {
			n++
		}
	}
	return n, nil
}

func (r *assignmentRepository) InsertMany(ctx context.Context, rows []domain.DailyTrainingAssignment) (int, error) {
	defer r.s.write(ctx)()
	existing := make(map[domain.AssignmentKey]bool, len(r.s.assignments)+len(rows))
	for _, a := range r.s.assignments {
		existing[a.Key()] = true
	}
	for i := range rows {
		k := rows[i].Key()
		if existing[k] {
			return 0, ErrDuplicateKey
		}
		existing[k] = true
	}

	now := r.s.now()
	for i := range rows {
		rows[i].ID = primitive.NewObjectID()
		rows[i].AssignedDate = domain.DateOf(rows[i].AssignedDate)
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		if rows[i].Status == "" {
			rows[i].Status = domain.StatusPending
		}
		r.s.assignments[rows[i].ID] = rows[i]
	}
	return len(rows), nil
}

func (r *assignmentRepository) ListInRange(ctx context.Context, playerID primitive.ObjectID, start, endExclusive time.Time) ([]domain.DailyTrainingAssignment, error) {
	defer r.s.read(ctx)()
	out := []domain.DailyTrainingAssignment{}
	for _, a := range r.s.assignments {
		if inRange(a, playerID, start, endExclusive) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedDate.Equal(out[j].AssignedDate) {
			return out[i].AssignedDate.Before(out[j].AssignedDate)
		}
		return out[i].SessionType < out[j].SessionType
	})
	return out, nil
}

// --- refresh runs ---

type refreshRunRepository struct{ s *Store }

// NewRefreshRunRepository returns a RefreshRunRepository over the store.
func NewRefreshRunRepository(s *Store) repository.RefreshRunRepository {
	return &refreshRunRepository{s: s}
}

func (r *refreshRunRepository) Create(ctx context.Context, run *domain.RefreshRun) error {
	if run.ID == "" {
		return fmt.Errorf("%w: refresh run requires an id", domain.ErrInvalidRecord)
	}
	defer r.s.write(ctx)()
	r.s.runs[run.ID] = *run
	return nil
}

func (r *refreshRunRepository) GetByID(ctx context.Context, id string) (*domain.RefreshRun, error) {
	defer r.s.read(ctx)()
	run, ok := r.s.runs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &run, nil
}
