package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golfacademy/training-planner/internal/api" // Import API package
	"golfacademy/training-planner/internal/app"
	"golfacademy/training-planner/internal/config"
	"golfacademy/training-planner/internal/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		stdlog.Fatalf("FATAL: Could not load config: %v", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		stdlog.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer log.Sync()
	log.Info("starting training planner server", "driver", cfg.Database.Driver)

	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret must be set")
	}

	// --- Repositories, claims, archive, services ---
	ctx := context.Background()
	planner, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		log.Fatal("could not initialise services", "error", err)
	}
	defer func() {
		log.Info("closing backends")
		if err := planner.Close(); err != nil {
			log.Error("failed to close backends", "error", err)
		}
	}()

	// --- Initialize Gin Engine ---
	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, planner.PlanService, planner.AssignmentService, planner.RefreshJob, log)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Scheduler.Deadline + 10*time.Second, // on-demand refreshes run inline
		IdleTimeout:  120 * time.Second,
	}

	log.Info("server starting", "address", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen failed", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exiting")
}
