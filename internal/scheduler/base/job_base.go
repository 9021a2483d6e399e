// Package base provides base implementation for scheduler jobs.
package base

import (
	"sync"
	"time"
)

// JobBase tracks the outcome of a job's runs.
// Jobs embed it and call Finish at the end of Run.
type JobBase struct {
	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
	runs    int
}

// Finish records a completed run and returns err unchanged
func (j *JobBase) Finish(err error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRun = time.Now()
	j.lastErr = err
	j.runs++
	return err
}

// LastRun returns when the job last finished and the error it finished with.
// The zero time means the job has not run yet.
func (j *JobBase) LastRun() (time.Time, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastRun, j.lastErr
}

// Runs returns how many times the job has finished
func (j *JobBase) Runs() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.runs
}
