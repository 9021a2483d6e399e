package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultListLimit caps List when the caller passes a non-positive limit
const DefaultListLimit = 20

const runColumns = `id, started_at, finished_at, profile, source, provider,
	listed, candidates, kept, excluded, reason_counts, summary,
	output_path, published_to, error`

// Repository stores runs in the runs table
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// Record inserts a run. An empty ID is replaced with a new UUID, which is
// written back to run.ID.
func (r *Repository) Record(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	counts, err := json.Marshal(run.ReasonCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal reason counts: %w", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	var exclusions []byte
	if len(run.Exclusions) > 0 {
		exclusions, err = msgpack.Marshal(run.Exclusions)
		if err != nil {
			return fmt.Errorf("failed to encode exclusions: %w", err)
		}
	}

	_, err = r.db.Exec(`
		INSERT INTO runs
		(`+runColumns+`, exclusions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		run.Profile,
		run.Source,
		run.Provider,
		run.Listed,
		run.Candidates,
		run.Kept,
		run.Excluded,
		string(counts),
		string(summary),
		run.OutputPath,
		run.PublishedTo,
		run.Error,
		exclusions,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	r.log.Debug().Str("run_id", run.ID).Int("kept", run.Kept).Msg("Run recorded")
	return nil
}

// List returns the most recent runs, newest first, without exclusions
func (r *Repository) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// Latest returns the most recent run, or nil if there is none
func (r *Repository) Latest() (*Run, error) {
	runs, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Get returns a run with its exclusions, or nil if the ID is unknown
func (r *Repository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT `+runColumns+`, exclusions
		FROM runs
		WHERE id = ?
	`, id)

	var blob []byte
	run, err := scanRun(row, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(blob) > 0 {
		var exclusions []domain.Exclusion
		if err := msgpack.Unmarshal(blob, &exclusions); err != nil {
			return nil, fmt.Errorf("failed to decode exclusions for run %s: %w", id, err)
		}
		run.Exclusions = exclusions
	}

	return run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner, extra ...interface{}) (*Run, error) {
	var (
		run                   Run
		startedAt, finishedAt int64
		counts, summary       string
	)

	dest := []interface{}{
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.Profile,
		&run.Source,
		&run.Provider,
		&run.Listed,
		&run.Candidates,
		&run.Kept,
		&run.Excluded,
		&counts,
		&summary,
		&run.OutputPath,
		&run.PublishedTo,
		&run.Error,
	}
	dest = append(dest, extra...)

	if err := s.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = time.Unix(startedAt, 0).UTC()
	run.FinishedAt = time.Unix(finishedAt, 0).UTC()

	if err := json.Unmarshal([]byte(counts), &run.ReasonCounts); err != nil {
		return nil, fmt.Errorf("failed to parse reason counts: %w", err)
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}

	return &run, nil
}
