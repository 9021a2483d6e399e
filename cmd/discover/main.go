// Package main runs a single universe discovery pass and writes
// data/nasdaq_universe.json (or UNIVERSE_OUTPUT_PATH).
//
// It takes no arguments. Environment variables, optionally from a .env file,
// override the defaults. The exit status is 0 on success, 1 when the run
// fails (including when the listing cannot be retrieved and no fallback is
// allowed) and 2 when the configuration is invalid.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aristath/nasdaq-universe/internal/di"
	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/aristath/nasdaq-universe/internal/history"
	"github.com/aristath/nasdaq-universe/pkg/logger"
)

const (
	exitOK          = 0
	exitRunFailed   = 1
	exitConfigError = 2
)

// discoveryRunner runs one discovery pass to completion
type discoveryRunner interface {
	RunOnce(ctx context.Context) (*history.Run, error)
}

// wireFunc builds the runner and returns a cleanup for its resources
type wireFunc func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (discoveryRunner, func(), error)

func main() {
	// Ctrl+C cancels the run between or during batches
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, config.Load, wireContainer, os.Stdout))
}

func wireContainer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (discoveryRunner, func(), error) {
	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := container.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close resources")
		}
	}
	return jobs.DiscoverUniverse, cleanup, nil
}

func run(ctx context.Context, load func() (*config.Config, error), wire wireFunc, out io.Writer) int {
	cfg, err := load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
			Output: out,
		})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return exitConfigError
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: out,
	})
	logger.SetGlobalLogger(log)

	runner, cleanup, err := wire(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return exitRunFailed
	}
	defer cleanup()

	record, err := runner.RunOnce(ctx)
	if err != nil {
		var listingErr *domain.ListingError
		switch {
		case errors.As(err, &listingErr):
			log.Error().
				Err(err).
				Str("source", listingErr.Source).
				Msg("Could not retrieve the exchange listing; set UNIVERSE_ALLOW_FALLBACK=true to use the placeholder list")
		case errors.Is(err, context.Canceled):
			log.Warn().Msg("Discovery cancelled")
		default:
			log.Error().Err(err).Msg("Discovery failed")
		}
		return exitRunFailed
	}

	log.Info().
		Str("run_id", record.ID).
		Int("count", record.Kept).
		Str("path", record.OutputPath).
		Msg("Universe written")

	return exitOK
}
