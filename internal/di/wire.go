package di

import (
	"context"
	"fmt"

	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize the database (when storage is enabled)
// 2. Initialize repositories
// 3. Initialize services
// 4. Register jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	// Step 1: Initialize database
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Step 2: Initialize repositories
	InitializeRepositories(container, log)

	// Step 3: Initialize services
	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 4: Register jobs
	jobs := RegisterJobs(container, cfg, log)

	log.Info().
		Str("profile", cfg.Universe.Profile).
		Str("source", container.Source.Name()).
		Str("provider", container.Provider.Name()).
		Bool("storage", container.DB != nil).
		Bool("publish", container.Publisher != nil).
		Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
