// Package main runs the universe discovery daemon: the discovery job on a cron
// schedule plus the HTTP API that serves the universe and the run history.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aristath/nasdaq-universe/internal/di"
	"github.com/aristath/nasdaq-universe/internal/scheduler"
	"github.com/aristath/nasdaq-universe/internal/server"
	"github.com/aristath/nasdaq-universe/pkg/logger"
)

// main loads configuration, wires dependencies, schedules the jobs, serves
// the API and waits for a shutdown signal
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting NASDAQ universe server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing the database writes the final WAL checkpoint
	defer container.Close()

	sched := scheduler.New(log)
	if err := di.ScheduleJobs(sched, jobs, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}

	srvCfg := server.Config{
		Log:        log,
		Port:       cfg.Port,
		Universe:   container.Store,
		Discovery:  jobs.DiscoverUniverse,
		DB:         container.DB,
		CronSecret: cfg.CronSecret,
	}
	if container.RunRepo != nil {
		srvCfg.Runs = container.RunRepo
	}
	srv := server.New(srvCfg)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sched.Start()
	log.Info().
		Int("port", cfg.Port).
		Str("schedule", cfg.Schedule).
		Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Waits for a scheduled run in progress to return
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
