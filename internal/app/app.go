// Package app wires repositories, claims, storage and services from a
// loaded Config. The server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golfacademy/training-planner/internal/claim"
	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/repository"
	"golfacademy/training-planner/internal/repository/memory"
	"golfacademy/training-planner/internal/repository/mongo"
	"golfacademy/training-planner/internal/service"
	"golfacademy/training-planner/internal/storage"
)

const indexTimeout = time.Minute

// App is the assembled service graph.
type App struct {
	PlanService       service.AnnualPlanService
	AssignmentService service.AssignmentService
	RefreshJob        service.RefreshJob
	Athletes          repository.AthleteRepository

	// Store is set with database.driver=memory.
	Store *memory.Store

	closers []func() error
}

type repos struct {
	athletes    repository.AthleteRepository
	plans       repository.AnnualPlanRepository
	periods     repository.PeriodizationRepository
	templates   repository.TemplateRepository
	assignments repository.AssignmentRepository
	runs        repository.RefreshRunRepository
	tx          repository.Transactor
}

// Build connects to the configured backends and constructs the services.
// now may be nil.
func Build(ctx context.Context, cfg config.Config, log *logger.Logger, now service.Clock) (*App, error) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	a := &App{}

	// --- Repositories ---
	var r repos
	switch cfg.Database.Driver {
	case "memory":
		log.Info("using in-memory store")
		a.Store = memory.NewStore()
		a.Store.SetClock(now)
		r = repos{
			athletes:    memory.NewAthleteRepository(a.Store),
			plans:       memory.NewAnnualPlanRepository(a.Store),
			periods:     memory.NewPeriodizationRepository(a.Store),
			templates:   memory.NewTemplateRepository(a.Store),
			assignments: memory.NewAssignmentRepository(a.Store),
			runs:        memory.NewRefreshRunRepository(a.Store),
			tx:          a.Store.Transactor(),
		}
	case "mongo":
		client, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("%w: connect mongo: %v", domain.ErrStorageUnavailable, err)
		}
		a.closers = append(a.closers, func() error { return mongo.DisconnectDB(client) })
		db := client.Database(cfg.Database.Name)
		log.Info("database connection established", "database", cfg.Database.Name)

		idxCtx, cancel := context.WithTimeout(ctx, indexTimeout)
		err = mongo.EnsureIndexes(idxCtx, db)
		cancel()
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("%w: ensure indexes: %v", domain.ErrStorageUnavailable, err)
		}
		r = repos{
			athletes:    mongo.NewMongoAthleteRepository(db),
			plans:       mongo.NewMongoAnnualPlanRepository(db),
			periods:     mongo.NewMongoPeriodizationRepository(db),
			templates:   mongo.NewMongoTemplateRepository(db),
			assignments: mongo.NewMongoAssignmentRepository(db),
			runs:        mongo.NewMongoRefreshRunRepository(db),
			tx:          mongo.NewTransactor(client),
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	// --- Claims ---
	claimer := claim.Noop()
	if cfg.Redis.ClaimsEnabled() {
		c, closeRedis, err := claim.NewRedis(ctx, log, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ClaimTTL)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		a.closers = append(a.closers, closeRedis)
		claimer = c
	}

	// --- Report archive ---
	var archive storage.ReportArchive
	if cfg.S3.ArchiveEnabled() {
		s3Archive, err := storage.NewS3Archive(ctx, log, cfg.S3)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("init report archive: %w", err)
		}
		archive = s3Archive
	}

	// --- Services ---
	scheduler := service.NewAssignmentScheduler(r.athletes, r.periods, r.assignments, r.tx,
		service.NewSessionTemplateResolver(r.templates), claimer, cfg.Scheduler, log)

	a.Athletes = r.athletes
	a.PlanService = service.NewAnnualPlanService(r.athletes, r.plans, r.periods, r.tx,
		service.NewPeriodizationPlanner(), now, log)
	a.AssignmentService = service.NewAssignmentService(r.assignments)
	a.RefreshJob = service.NewRefreshJob(r.athletes, r.runs, scheduler, archive, cfg.S3, cfg.Scheduler.Weeks, now, log)
	return a, nil
}

// Close releases backend connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
