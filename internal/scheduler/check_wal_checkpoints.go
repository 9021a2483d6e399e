package scheduler

import (
	"github.com/aristath/nasdaq-universe/internal/database"
	"github.com/aristath/nasdaq-universe/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// walTruncateFrames is the WAL size, in frames, above which the job truncates the log
const walTruncateFrames = 1000

// CheckWALCheckpointsJob checkpoints the WAL and truncates it once it grows large
type CheckWALCheckpointsJob struct {
	base.JobBase
	log zerolog.Logger
	db  *database.DB
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(db *database.DB, log zerolog.Logger) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		log: log.With().Str("job", "check_wal_checkpoints").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the checkpoint
func (j *CheckWALCheckpointsJob) Run() error {
	if j.db == nil {
		return j.Finish(nil)
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
		return j.Finish(err)
	}

	if frames > walTruncateFrames {
		j.log.Warn().
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if err := j.db.Conn().QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &frames, &checkpointed); err != nil {
			return j.Finish(err)
		}
	}

	j.log.Debug().
		Int("busy", busy).
		Int("wal_frames", frames).
		Msg("WAL checkpoint completed")

	return j.Finish(nil)
}
