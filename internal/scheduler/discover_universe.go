package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aristath/nasdaq-universe/internal/discovery"
	"github.com/aristath/nasdaq-universe/internal/history"
	"github.com/aristath/nasdaq-universe/internal/scheduler/base"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRunInProgress is returned when a discovery run is requested while one is running
var ErrRunInProgress = errors.New("discovery run already in progress")

// DefaultRunTimeout bounds a single discovery run
const DefaultRunTimeout = 30 * time.Minute

// UniverseDiscoverer is the discovery pass the job drives
type UniverseDiscoverer interface {
	Discover(ctx context.Context) (*discovery.Report, error)
	Persist(universe []string) error
}

// RunRecorder stores run history
type RunRecorder interface {
	Record(run *history.Run) error
}

// Publisher uploads the written universe file
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// DiscoverUniverseJobConfig holds the job dependencies
type DiscoverUniverseJobConfig struct {
	Discoverer UniverseDiscoverer
	Recorder   RunRecorder // Optional
	Publisher  Publisher   // Optional
	OutputPath string
	Profile    string
	Source     string // Source name for runs that fail before a report exists
	Provider   string
	Timeout    time.Duration
	Log        zerolog.Logger
}

// DiscoverUniverseJob runs discovery, writes the universe, records the run
// and publishes the file. Only one run executes at a time.
type DiscoverUniverseJob struct {
	base.JobBase
	discoverer UniverseDiscoverer
	recorder   RunRecorder
	publisher  Publisher
	outputPath string
	profile    string
	source     string
	provider   string
	timeout    time.Duration
	running    atomic.Bool
	log        zerolog.Logger
}

// NewDiscoverUniverseJob creates a new DiscoverUniverseJob
func NewDiscoverUniverseJob(cfg DiscoverUniverseJobConfig) *DiscoverUniverseJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &DiscoverUniverseJob{
		discoverer: cfg.Discoverer,
		recorder:   cfg.Recorder,
		publisher:  cfg.Publisher,
		outputPath: cfg.OutputPath,
		profile:    cfg.Profile,
		source:     cfg.Source,
		provider:   cfg.Provider,
		timeout:    timeout,
		log:        cfg.Log.With().Str("job", "discover_universe").Logger(),
	}
}

// Name returns the job name
func (j *DiscoverUniverseJob) Name() string {
	return "discover_universe"
}

// Running reports whether a run is in progress
func (j *DiscoverUniverseJob) Running() bool {
	return j.running.Load()
}

// Run executes one discovery run with the default timeout
func (j *DiscoverUniverseJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.RunOnce(ctx)
	return err
}

// RunOnce executes one discovery run and returns its record. The record is
// returned alongside the error when the run fails after it started.
func (j *DiscoverUniverseJob) RunOnce(ctx context.Context) (*history.Run, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer j.running.Store(false)

	return j.execute(ctx, uuid.New().String())
}

// Trigger starts a run in the background and returns its ID immediately
func (j *DiscoverUniverseJob) Trigger() (string, error) {
	if !j.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	id := uuid.New().String()
	go func() {
		defer j.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()

		if _, err := j.execute(ctx, id); err != nil {
			j.log.Error().Err(err).Str("run_id", id).Msg("Triggered run failed")
		}
	}()

	return id, nil
}

func (j *DiscoverUniverseJob) execute(ctx context.Context, id string) (*history.Run, error) {
	startedAt := time.Now().UTC()
	log := j.log.With().Str("run_id", id).Logger()
	log.Info().Msg("Starting universe discovery")

	report, err := j.discoverer.Discover(ctx)
	if err != nil {
		run := history.FailedRun(startedAt, j.profile, j.source, j.provider, err)
		run.ID = id
		j.record(run)
		log.Error().Err(err).Msg("Discovery failed")
		return run, j.Finish(err)
	}

	run := history.NewRun(report, j.profile)
	run.ID = id

	if err := j.discoverer.Persist(report.Universe()); err != nil {
		run.Error = err.Error()
		j.record(run)
		return run, j.Finish(err)
	}
	run.OutputPath = j.outputPath

	if j.publisher != nil {
		target, err := j.publisher.Publish(ctx, j.outputPath)
		if err != nil {
			run.Error = err.Error()
			j.record(run)
			return run, j.Finish(fmt.Errorf("universe written but not published: %w", err))
		}
		run.PublishedTo = target
	}

	run.FinishedAt = time.Now().UTC()
	j.record(run)

	log.Info().
		Int("kept", run.Kept).
		Int("excluded", run.Excluded).
		Dur("duration_ms", run.FinishedAt.Sub(startedAt)).
		Msg("Universe discovery completed")

	return run, j.Finish(nil)
}

// record stores the run. A history failure never fails the run itself.
func (j *DiscoverUniverseJob) record(run *history.Run) {
	if j.recorder == nil {
		return
	}
	if err := j.recorder.Record(run); err != nil {
		j.log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record run")
	}
}
