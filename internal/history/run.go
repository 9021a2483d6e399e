// Package history records discovery runs so the API can report what each run
// kept, what it excluded, and why.
package history

import (
	"time"

	"github.com/aristath/nasdaq-universe/internal/discovery"
	"github.com/aristath/nasdaq-universe/internal/domain"
)

// Run is one discovery pass
type Run struct {
	ID           string                         `json:"id"`
	StartedAt    time.Time                      `json:"started_at"`
	FinishedAt   time.Time                      `json:"finished_at"`
	Profile      string                         `json:"profile"`
	Source       string                         `json:"source"`
	Provider     string                         `json:"provider"`
	Listed       int                            `json:"listed"`
	Candidates   int                            `json:"candidates"`
	Kept         int                            `json:"kept"`
	Excluded     int                            `json:"excluded"`
	ReasonCounts map[domain.ExclusionReason]int `json:"reason_counts"`
	Summary      discovery.Summary              `json:"summary"`
	OutputPath   string                         `json:"output_path,omitempty"`
	PublishedTo  string                         `json:"published_to,omitempty"`
	Error        string                         `json:"error,omitempty"`
	Exclusions   []domain.Exclusion             `json:"exclusions,omitempty"` // Only loaded by Get
}

// Succeeded reports whether the run finished without error
func (r *Run) Succeeded() bool {
	return r.Error == ""
}

// NewRun builds a run record from a discovery report
func NewRun(report *discovery.Report, profile string) *Run {
	exclusions := report.Exclusions()
	counts := make(map[domain.ExclusionReason]int)
	for _, e := range exclusions {
		counts[e.Reason]++
	}

	return &Run{
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Profile:      profile,
		Source:       report.Source,
		Provider:     report.Provider,
		Listed:       report.Candidates.Listed,
		Candidates:   len(report.Candidates.Symbols),
		Kept:         len(report.Universe()),
		Excluded:     len(exclusions),
		ReasonCounts: counts,
		Summary:      report.Summary,
		Exclusions:   exclusions,
	}
}

// FailedRun builds a record for a run that never produced a report
func FailedRun(startedAt time.Time, profile, source, provider string, err error) *Run {
	return &Run{
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
		Profile:      profile,
		Source:       source,
		Provider:     provider,
		ReasonCounts: map[domain.ExclusionReason]int{},
		Error:        err.Error(),
	}
}
