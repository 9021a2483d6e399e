package di

import (
	"fmt"

	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/config"
	"github.com/aristath/nasdaq-universe/internal/scheduler"
	"github.com/rs/zerolog"
)

// Maintenance schedules (seconds field first)
const (
	clientDataCleanupSchedule = "0 30 3 * * *"
	checkDatabaseSchedule     = "0 0 4 * * SUN"
	walCheckpointSchedule     = "0 0 * * * *"
)

// RegisterJobs creates the job instances
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) *JobInstances {
	jobCfg := scheduler.DiscoverUniverseJobConfig{
		Discoverer: container.Discoverer,
		OutputPath: cfg.Universe.OutputPath,
		Profile:    cfg.Universe.Profile,
		Source:     container.Source.Name(),
		Provider:   container.Provider.Name(),
		Log:        log,
	}
	// Optional dependencies stay nil interfaces when absent
	if container.RunRepo != nil {
		jobCfg.Recorder = container.RunRepo
	}
	if container.Publisher != nil {
		jobCfg.Publisher = container.Publisher
	}

	jobs := &JobInstances{
		DiscoverUniverse: scheduler.NewDiscoverUniverseJob(jobCfg),
	}

	if container.DB != nil {
		jobs.ClientDataCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)
		jobs.CheckDatabase = scheduler.NewCheckDatabaseJob(container.DB, log)
		jobs.WALCheckpoints = scheduler.NewCheckWALCheckpointsJob(container.DB, log)
	}

	return jobs
}

// ScheduleJobs registers the jobs with the scheduler
func ScheduleJobs(s *scheduler.Scheduler, jobs *JobInstances, cfg *config.Config) error {
	if err := s.AddJob(cfg.Schedule, jobs.DiscoverUniverse); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", jobs.DiscoverUniverse.Name(), err)
	}

	if jobs.ClientDataCleanup != nil {
		if err := s.AddJob(clientDataCleanupSchedule, jobs.ClientDataCleanup); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", jobs.ClientDataCleanup.Name(), err)
		}
	}
	if jobs.CheckDatabase != nil {
		if err := s.AddJob(checkDatabaseSchedule, jobs.CheckDatabase); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", jobs.CheckDatabase.Name(), err)
		}
	}
	if jobs.WALCheckpoints != nil {
		if err := s.AddJob(walCheckpointSchedule, jobs.WALCheckpoints); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", jobs.WALCheckpoints.Name(), err)
		}
	}

	return nil
}
