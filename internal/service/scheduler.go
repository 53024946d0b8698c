package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golfacademy/training-planner/internal/claim"
	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// SkipReason explains why a day produced no assignment.
type SkipReason string

const (
	SkipNoPlan          SkipReason = "NoPlan"
	SkipNoPeriodization SkipReason = "NoPeriodization"
	SkipNoTemplate      SkipReason = "NoTemplate"
	SkipExcluded        SkipReason = "Excluded"
)

// AthleteStatus is the outcome of one athlete unit.
type AthleteStatus string

const (
	AthleteOK       AthleteStatus = "ok"
	AthleteSkipped  AthleteStatus = "skipped"  // No current plan
	AthleteFailed   AthleteStatus = "failed"   // Retries exhausted
	AthleteDeferred AthleteStatus = "deferred" // Deadline passed before the unit started
	AthleteClaimed  AthleteStatus = "claimed"  // Another worker holds the window
)

// SkipEntry groups skipped days sharing a reason, ISO week and session type.
type SkipEntry struct {
	Reason      SkipReason         `json:"reason"`
	Week        int                `json:"week,omitempty"`
	SessionType domain.SessionType `json:"sessionType,omitempty"`
	Dates       []string           `json:"dates,omitempty"`
}

// AthleteReport is the per-athlete line of a refresh report.
type AthleteReport struct {
	PlayerID    primitive.ObjectID `json:"playerId"`
	Status      AthleteStatus      `json:"status"`
	Created     int                `json:"created"`
	Deleted     int                `json:"deleted"`
	WeekendDays int                `json:"weekendDays"`
	Skips       []SkipEntry        `json:"skips,omitempty"`
	Error       string             `json:"error,omitempty"`
	Attempts    int                `json:"attempts"`

	byType map[domain.SessionType]int
}

// SkippedDays counts the weekdays that produced nothing.
func (r *AthleteReport) SkippedDays() int {
	n := 0
	for _, s := range r.Skips {
		n += len(s.Dates)
	}
	return n
}

// RefreshRequest describes one batch refresh. WindowEnd is exclusive.
type RefreshRequest struct {
	RunID        string
	WindowStart  time.Time
	WindowEnd    time.Time
	Players      []domain.Athlete
	DryRun       bool
	ExcludeDates []time.Time
}

// RefreshReport aggregates a batch refresh. In a dry run Created and Deleted
// are what a real run would have done.
type RefreshReport struct {
	RunID             string                     `json:"runId"`
	WindowStart       time.Time                  `json:"windowStart"`
	WindowEnd         time.Time                  `json:"windowEnd"`
	DryRun            bool                       `json:"dryRun"`
	AthletesProcessed int                        `json:"athletesProcessed"`
	Created           int                        `json:"created"`
	Deleted           int                        `json:"deleted"`
	Skipped           int                        `json:"skipped"`
	WeekendDays       int                        `json:"weekendDays"`
	Failed            int                        `json:"failed"`
	Deferred          int                        `json:"deferred"`
	Claimed           int                        `json:"claimed"`
	ByType            map[domain.SessionType]int `json:"byType"`
	Players           []AthleteReport            `json:"players"`
}

// AssignmentScheduler regenerates daily assignments over a rolling window.
type AssignmentScheduler interface {
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshReport, error)
}

type assignmentScheduler struct {
	athleteRepo       repository.AthleteRepository
	periodizationRepo repository.PeriodizationRepository
	assignmentRepo    repository.AssignmentRepository
	transactor        repository.Transactor
	resolver          SessionTemplateResolver
	claimer           claim.Claimer
	policy            SessionPolicy
	cfg               config.SchedulerConfig
	log               *logger.Logger
}

// NewAssignmentScheduler wires the scheduler. A nil claimer grants every claim.
func NewAssignmentScheduler(
	athleteRepo repository.AthleteRepository,
	periodizationRepo repository.PeriodizationRepository,
	assignmentRepo repository.AssignmentRepository,
	transactor repository.Transactor,
	resolver SessionTemplateResolver,
	claimer claim.Claimer,
	cfg config.SchedulerConfig,
	log *logger.Logger,
) AssignmentScheduler {
	if claimer == nil {
		claimer = claim.Noop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &assignmentScheduler{
		athleteRepo:       athleteRepo,
		periodizationRepo: periodizationRepo,
		assignmentRepo:    assignmentRepo,
		transactor:        transactor,
		resolver:          resolver,
		claimer:           claimer,
		policy:            SessionPolicy{WednesdayTestProbability: cfg.WednesdayTestProbability},
		cfg:               cfg,
		log:               log.Component("assignment-scheduler"),
	}
}

// Refresh processes every athlete on a bounded worker pool. Per-athlete
// failures land in the report; the call itself only fails on bad input.
func (s *assignmentScheduler) Refresh(ctx context.Context, req RefreshRequest) (*RefreshReport, error) {
	start, end := domain.DateOf(req.WindowStart), domain.DateOf(req.WindowEnd)
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	report := &RefreshReport{
		RunID:       req.RunID,
		WindowStart: start,
		WindowEnd:   end,
		DryRun:      req.DryRun,
		ByType:      map[domain.SessionType]int{},
		Players:     []AthleteReport{},
	}
	if !end.After(start) {
		return report, nil
	}

	excluded := make(map[string]bool, len(req.ExcludeDates))
	for _, d := range req.ExcludeDates {
		excluded[domain.DateOf(d).Format(domain.DateLayout)] = true
	}

	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	results := make([]AthleteReport, len(req.Players))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i := range req.Players {
		athlete := req.Players[i]
		if ctx.Err() != nil {
			results[i] = AthleteReport{PlayerID: athlete.ID, Status: AthleteDeferred}
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = AthleteReport{PlayerID: athlete.ID, Status: AthleteDeferred}
				return nil
			}
			// In-flight units run to completion past the deadline.
			results[i] = s.processAthlete(context.WithoutCancel(ctx), req, start, end, excluded, athlete)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		switch r.Status {
		case AthleteDeferred:
			report.Deferred++
		case AthleteClaimed:
			report.Claimed++
		case AthleteFailed:
			report.Failed++
			report.AthletesProcessed++
		default:
			report.AthletesProcessed++
		}
		report.Created += r.Created
		report.Deleted += r.Deleted
		report.Skipped += r.SkippedDays()
		report.WeekendDays += r.WeekendDays
		for t, n := range r.byType {
			report.ByType[t] += n
		}
		report.Players = append(report.Players, r)
	}

	s.log.Info("refresh finished",
		"run_id", report.RunID,
		"window_start", start.Format(domain.DateLayout),
		"window_end", end.Format(domain.DateLayout),
		"dry_run", req.DryRun,
		"athletes", report.AthletesProcessed,
		"created", report.Created,
		"deleted", report.Deleted,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"deferred", report.Deferred,
		"claimed", report.Claimed,
	)
	return report, nil
}

func (s *assignmentScheduler) processAthlete(ctx context.Context, req RefreshRequest, start, end time.Time, excluded map[string]bool, athlete domain.Athlete) AthleteReport {
	log := s.log.With("run_id", req.RunID, "player_id", athlete.ID.Hex())
	out := AthleteReport{PlayerID: athlete.ID}

	ok, err := s.claimer.Claim(ctx, athlete.ID, req.RunID)
	if err != nil {
		log.Warn("claim failed", "error", err)
		out.Status = AthleteFailed
		out.Error = err.Error()
		return out
	}
	if !ok {
		out.Status = AthleteClaimed
		return out
	}
	defer func() {
		if err := s.claimer.Release(ctx, athlete.ID, req.RunID); err != nil {
			log.Warn("claim release failed", "error", err)
		}
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RetryInitial
	if s.cfg.RetryMax > 0 {
		bo.MaxInterval = s.cfg.RetryMax
	}

	attempts := 0
	unit, err := backoff.Retry(ctx, func() (AthleteReport, error) {
		attempts++
		r, err := s.runUnit(ctx, req, start, end, excluded, athlete)
		if err != nil && !domain.IsRetryable(err) {
			return r, backoff.Permanent(err)
		}
		if err != nil {
			log.Warn("athlete unit failed", "attempt", attempts, "error", err)
		}
		return r, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
	)
	if err != nil {
		log.Warn("athlete failed", "attempts", attempts, "error", err)
		return AthleteReport{PlayerID: athlete.ID, Status: AthleteFailed, Error: err.Error(), Attempts: attempts}
	}
	unit.Attempts = attempts
	return unit
}

type skipKey struct {
	reason      SkipReason
	week        int
	sessionType domain.SessionType
}

// runUnit builds the drafts for one athlete and, unless dry-running, replaces
// the window's assignments in one transaction.
func (s *assignmentScheduler) runUnit(ctx context.Context, req RefreshRequest, start, end time.Time, excluded map[string]bool, athlete domain.Athlete) (AthleteReport, error) {
	out := AthleteReport{PlayerID: athlete.ID, Status: AthleteOK, byType: map[domain.SessionType]int{}}

	plan, err := s.athleteRepo.GetCurrentPlan(ctx, athlete.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return out, domain.NewPersistenceError("get current plan", err)
	}
	if plan == nil {
		out.Status = AthleteSkipped
		out.Skips = []SkipEntry{{Reason: SkipNoPlan}}
		return out, nil
	}

	var (
		drafts    []domain.DailyTrainingAssignment
		seen      = map[domain.AssignmentKey]bool{}
		weeks     = map[time.Time]*domain.Periodization{}
		templates = newTemplateCache(s.resolver)
		skips     = map[skipKey]*SkipEntry{}
		skipOrder []skipKey
	)
	addSkip := func(k skipKey, day time.Time) {
		e, ok := skips[k]
		if !ok {
			e = &SkipEntry{Reason: k.reason, Week: k.week, SessionType: k.sessionType}
			skips[k] = e
			skipOrder = append(skipOrder, k)
		}
		e.Dates = append(e.Dates, day.Format(domain.DateLayout))
	}

	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		sessionType, weekday := s.policy.SessionTypeFor(athlete.ID, day)
		if !weekday {
			out.WeekendDays++
			continue
		}
		week := domain.ISOWeek(day)
		if excluded[day.Format(domain.DateLayout)] {
			addSkip(skipKey{reason: SkipExcluded, week: week}, day)
			continue
		}

		monday := domain.WeekMonday(day)
		row, cached := weeks[monday]
		if !cached {
			row, err = s.periodizationRepo.FindForWeek(ctx, athlete.ID, plan.ID, week)
			if err != nil {
				return out, domain.NewPersistenceError("find periodization", err)
			}
			// Same ISO week number from another season does not count.
			if row != nil && !domain.DateOf(row.WeekStart).Equal(monday) {
				row = nil
			}
			weeks[monday] = row
		}
		if row == nil {
			addSkip(skipKey{reason: SkipNoPeriodization, week: week}, day)
			continue
		}

		tmpl, err := templates.Resolve(ctx, athlete.TenantID, sessionType, athlete.Category)
		if err != nil {
			var miss *domain.TemplateResolutionMiss
			if errors.As(err, &miss) {
				addSkip(skipKey{reason: SkipNoTemplate, week: week, sessionType: sessionType}, day)
				continue
			}
			return out, err
		}

		draft := domain.DailyTrainingAssignment{
			TenantID:          athlete.TenantID,
			PlayerID:          athlete.ID,
			AnnualPlanID:      plan.ID,
			WeekNumber:        week,
			AssignedDate:      day,
			DayOfWeek:         int(day.Weekday()),
			SessionType:       sessionType,
			SessionTemplateID: tmpl.ID,
			EstimatedDuration: tmpl.Duration,
			Status:            domain.StatusPending,
			Period:            row.Period,
			LearningPhase:     row.LearningPhase,
			ClubSpeed:         athlete.SpeedLevel(),
			Intensity:         row.VolumeIntensity.Level(),
		}
		if seen[draft.Key()] {
			continue
		}
		seen[draft.Key()] = true
		drafts = append(drafts, draft)
	}

	for _, k := range skipOrder {
		out.Skips = append(out.Skips, *skips[k])
	}
	sort.SliceStable(out.Skips, func(i, j int) bool { return out.Skips[i].Dates[0] < out.Skips[j].Dates[0] })
	for _, d := range drafts {
		out.byType[d.SessionType]++
	}

	if req.DryRun {
		n, err := s.assignmentRepo.CountInRange(ctx, athlete.ID, start, end)
		if err != nil {
			return out, domain.NewPersistenceError("count assignments", err)
		}
		out.Deleted = n
		out.Created = len(drafts)
		return out, nil
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		deleted, err := s.assignmentRepo.DeleteInRange(txCtx, athlete.ID, start, end)
		if err != nil {
			return domain.NewPersistenceError("delete assignments", err)
		}
		created := 0
		if len(drafts) > 0 {
			created, err = s.assignmentRepo.InsertMany(txCtx, drafts)
			if err != nil {
				return domain.NewPersistenceError("insert assignments", err)
			}
		}
		out.Deleted, out.Created = deleted, created
		return nil
	})
	if err != nil {
		if !domain.IsRetryable(err) {
			err = domain.NewPersistenceError("replace window", err)
		}
		return out, fmt.Errorf("player %s: %w", athlete.ID.Hex(), err)
	}
	return out, nil
}
