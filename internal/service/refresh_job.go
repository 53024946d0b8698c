package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/repository"
	"golfacademy/training-planner/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrRunNotFound        = errors.New("refresh run not found")
	ErrReportNotArchived  = errors.New("refresh report was not archived")
	ErrReportURLGenerated = errors.New("failed to generate report URL")
)

// RefreshJobRequest selects athletes and the window length for a run. The
// window is [today, today + 7*Weeks days).
type RefreshJobRequest struct {
	Weeks        int
	DryRun       bool
	TenantID     primitive.ObjectID
	PlayerIDs    []primitive.ObjectID
	ExcludeDates []time.Time
}

// RefreshJob runs the scheduler over all active athletes and keeps an audit
// record of every run.
type RefreshJob interface {
	Run(ctx context.Context, req RefreshJobRequest) (*RefreshReport, error)
	// RunEvery runs immediately and then once per interval until ctx ends.
	RunEvery(ctx context.Context, interval time.Duration, req RefreshJobRequest) error
	ReportURL(ctx context.Context, runID string) (string, error)
}

type refreshJob struct {
	athleteRepo repository.AthleteRepository
	runRepo     repository.RefreshRunRepository
	scheduler   AssignmentScheduler
	archive     storage.ReportArchive // nil when archiving is off
	s3          config.S3Config
	weeks       int
	now         Clock
	log         *logger.Logger
}

func NewRefreshJob(
	athleteRepo repository.AthleteRepository,
	runRepo repository.RefreshRunRepository,
	scheduler AssignmentScheduler,
	archive storage.ReportArchive,
	s3 config.S3Config,
	defaultWeeks int,
	now Clock,
	log *logger.Logger,
) RefreshJob {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &refreshJob{
		athleteRepo: athleteRepo,
		runRepo:     runRepo,
		scheduler:   scheduler,
		archive:     archive,
		s3:          s3,
		weeks:       defaultWeeks,
		now:         now,
		log:         log.Component("refresh-job"),
	}
}

func (j *refreshJob) Run(ctx context.Context, req RefreshJobRequest) (*RefreshReport, error) {
	weeks := req.Weeks
	if weeks == 0 {
		weeks = j.weeks
	}
	if weeks < 1 || weeks > MaxSeasonWeeks {
		return nil, domain.NewConfigurationError(domain.ErrInvalidWindow, "weeks %d not in 1..%d", weeks, MaxSeasonWeeks)
	}

	startedAt := j.now()
	today := domain.DateOf(startedAt)
	windowEnd := today.AddDate(0, 0, 7*weeks)

	athletes, err := j.athleteRepo.ListActive(ctx, domain.AthleteFilter{TenantID: req.TenantID, PlayerIDs: req.PlayerIDs})
	if err != nil {
		j.log.Error("cannot list athletes", "error", err)
		return nil, fmt.Errorf("%w: list athletes: %v", domain.ErrStorageUnavailable, err)
	}

	runID := uuid.NewString()
	report, err := j.scheduler.Refresh(ctx, RefreshRequest{
		RunID:        runID,
		WindowStart:  today,
		WindowEnd:    windowEnd,
		Players:      athletes,
		DryRun:       req.DryRun,
		ExcludeDates: req.ExcludeDates,
	})
	if err != nil {
		return nil, err
	}

	run := &domain.RefreshRun{
		ID:                runID,
		WindowStart:       report.WindowStart,
		WindowEnd:         report.WindowEnd,
		DryRun:            report.DryRun,
		AthletesProcessed: report.AthletesProcessed,
		Created:           report.Created,
		Deleted:           report.Deleted,
		Skipped:           report.Skipped,
		Failed:            report.Failed,
		Deferred:          report.Deferred,
		Claimed:           report.Claimed,
		WeekendDays:       report.WeekendDays,
		ByType:            make(map[string]int, len(report.ByType)),
		StartedAt:         startedAt,
	}
	for t, n := range report.ByType {
		run.ByType[string(t)] = n
	}

	// Bookkeeping outlives a cancelled caller.
	bookCtx := context.WithoutCancel(ctx)
	if j.archive != nil {
		key := path.Join(j.s3.ReportPrefix, runID+".json")
		body, err := json.MarshalIndent(report, "", "  ")
		if err == nil {
			err = j.archive.PutReport(bookCtx, key, body)
		}
		if err != nil {
			j.log.Warn("report archive failed", "run_id", runID, "error", err)
		} else {
			run.ReportObjectKey = key
		}
	}
	run.FinishedAt = j.now()
	if err := j.runRepo.Create(bookCtx, run); err != nil {
		j.log.Error("failed to record refresh run", "run_id", runID, "error", err)
		// Nothing points at the archived report any more.
		if run.ReportObjectKey != "" {
			if delErr := j.archive.DeleteObject(bookCtx, run.ReportObjectKey); delErr != nil {
				j.log.Warn("orphaned report left in archive", "key", run.ReportObjectKey, "error", delErr)
			}
		}
	}
	return report, nil
}

func (j *refreshJob) RunEvery(ctx context.Context, interval time.Duration, req RefreshJobRequest) error {
	if interval <= 0 {
		return domain.NewConfigurationError(domain.ErrInvalidWindow, "interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := j.Run(ctx, req); err != nil {
			var cfgErr *domain.ConfigurationError
			if errors.As(err, &cfgErr) {
				return err
			}
			j.log.Error("scheduled refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (j *refreshJob) ReportURL(ctx context.Context, runID string) (string, error) {
	run, err := j.runRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrRunNotFound
		}
		return "", domain.NewPersistenceError("get refresh run", err)
	}
	if j.archive == nil || run.ReportObjectKey == "" {
		return "", ErrReportNotArchived
	}
	url, err := j.archive.GeneratePresignedDownloadURL(ctx, run.ReportObjectKey, j.s3.PresignTTL)
	if err != nil {
		j.log.Error("presign failed", "run_id", runID, "key", run.ReportObjectKey, "error", err)
		return "", ErrReportURLGenerated
	}
	return url, nil
}
