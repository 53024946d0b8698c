// Package memory keeps every collection in process memory. It backs the
// tests and local dry runs with database.driver=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// Store holds all tables behind one lock. A transaction holds the write
// lock for its whole duration, so readers never see a half-applied unit.
type Store struct {
	mu sync.RWMutex

	athletes    map[primitive.ObjectID]domain.Athlete
	plans       map[primitive.ObjectID]domain.AnnualTrainingPlan
	periods     []domain.Periodization
	templates   []domain.SessionTemplate
	assignments map[primitive.ObjectID]domain.DailyTrainingAssignment
	runs        map[string]domain.RefreshRun

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		athletes:    map[primitive.ObjectID]domain.Athlete{},
		plans:       map[primitive.ObjectID]domain.AnnualTrainingPlan{},
		assignments: map[primitive.ObjectID]domain.DailyTrainingAssignment{},
		runs:        map[string]domain.RefreshRun{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for createdAt stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(*Store)
	return v != nil
}

// read and write take the lock unless the caller already runs inside a
// transaction on this store.
func (s *Store) read(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	athletes    map[primitive.ObjectID]domain.Athlete
	plans       map[primitive.ObjectID]domain.AnnualTrainingPlan
	periods     []domain.Periodization
	assignments map[primitive.ObjectID]domain.DailyTrainingAssignment
	runs        map[string]domain.RefreshRun
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		athletes:    make(map[primitive.ObjectID]domain.Athlete, len(s.athletes)),
		plans:       make(map[primitive.ObjectID]domain.AnnualTrainingPlan, len(s.plans)),
		periods:     append([]domain.Periodization(nil), s.periods...),
		assignments: make(map[primitive.ObjectID]domain.DailyTrainingAssignment, len(s.assignments)),
		runs:        make(map[string]domain.RefreshRun, len(s.runs)),
	}
	for k, v := range s.athletes {
		snap.athletes[k] = v
	}
	for k, v := range s.plans {
		snap.plans[k] = v
	}
	for k, v := range s.assignments {
		snap.assignments[k] = v
	}
	for k, v := range s.runs {
		snap.runs[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.athletes = snap.athletes
	s.plans = snap.plans
	s.periods = snap.periods
	s.assignments = snap.assignments
	s.runs = snap.runs
}

// Transactor returns a repository.Transactor over the store.
func (s *Store) Transactor() repository.Transactor {
	return &transactor{store: s}
}

type transactor struct {
	store *Store
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, t.store)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// PutAthlete inserts or replaces an athlete. Used for seeding.
func (s *Store) PutAthlete(a domain.Athlete) domain.Athlete {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == primitive.NilObjectID {
		a.ID = primitive.NewObjectID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.athletes[a.ID] = a
	return a
}

// PutTemplate adds a session template. Used for seeding.
func (s *Store) PutTemplate(t domain.SessionTemplate) domain.SessionTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == primitive.NilObjectID {
		t.ID = primitive.NewObjectID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.templates = append(s.templates, t)
	return t
}

// Assignments returns a copy of every stored assignment.
func (s *Store) Assignments() []domain.DailyTrainingAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DailyTrainingAssignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	return out
}
