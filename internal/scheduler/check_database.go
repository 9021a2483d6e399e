package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/nasdaq-universe/internal/database"
	"github.com/aristath/nasdaq-universe/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// CheckDatabaseJob verifies integrity of the cache and history database
type CheckDatabaseJob struct {
	base.JobBase
	log zerolog.Logger
	db  *database.DB
}

// NewCheckDatabaseJob creates a new CheckDatabaseJob
func NewCheckDatabaseJob(db *database.DB, log zerolog.Logger) *CheckDatabaseJob {
	return &CheckDatabaseJob{
		log: log.With().Str("job", "check_database").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *CheckDatabaseJob) Name() string {
	return "check_database"
}

// Run executes the integrity check
func (j *CheckDatabaseJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return j.Finish(nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		// Corruption cannot be repaired here; the cache can be rebuilt by deleting the file
		j.log.Error().
			Err(err).
			Str("database", j.db.Name()).
			Msg("Database integrity check failed")
		return j.Finish(fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err))
	}

	j.log.Info().Str("database", j.db.Name()).Msg("Database integrity check passed")
	return j.Finish(nil)
}
