package di

import (
	"fmt"

	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aristath/nasdaq-universe/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens and migrates the cache and history database.
// With storage disabled the container is returned without one.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if !cfg.Storage.Enabled() {
		log.Info().Msg("No database path configured, cache and run history disabled")
		return container, nil
	}

	db, err := database.New(database.Config{
		Path:    cfg.Storage.DBPath,
		Profile: database.ProfileStandard,
		Name:    "universe",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	container.DB = db
	log.Info().Str("path", db.Path()).Msg("Database initialized")

	return container, nil
}
