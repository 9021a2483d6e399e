package history

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/nasdaq-universe/internal/discovery"
	"github.com/aristath/nasdaq-universe/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    profile TEXT NOT NULL,
    source TEXT NOT NULL,
    provider TEXT NOT NULL,
    listed INTEGER NOT NULL DEFAULT 0,
    candidates INTEGER NOT NULL DEFAULT 0,
    kept INTEGER NOT NULL DEFAULT 0,
    excluded INTEGER NOT NULL DEFAULT 0,
    reason_counts TEXT NOT NULL DEFAULT '{}',
    summary TEXT NOT NULL DEFAULT '{}',
    output_path TEXT NOT NULL DEFAULT '',
    published_to TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    exclusions BLOB
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func sampleReport(started time.Time) *discovery.Report {
	return &discovery.Report{
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Source:     "datahub",
		Provider:   "yahoo",
		Candidates: discovery.Candidates{
			Symbols:  []string{"AAPL", "MSFT", "GOOGL"},
			Rejected: []domain.Exclusion{{Symbol: "ZZZZZZ", Reason: domain.ReasonInvalidSymbol}},
			Listed:   4,
		},
		Filter: &discovery.FilterResult{
			MarketCaps: map[string]float64{"AAPL": 2e12, "MSFT": 2e12},
			Universe:   []string{"AAPL", "MSFT"},
			Exclusions: []domain.Exclusion{{Symbol: "GOOGL", Reason: domain.ReasonBelowThreshold, MarketCap: 5e7}},
			Batches:    1,
			Processed:  3,
		},
		Summary: discovery.Summarize([]float64{2e12, 2e12}),
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun(sampleReport(time.Now()), "datahub")

	assert.Equal(t, 4, run.Listed)
	assert.Equal(t, 3, run.Candidates)
	assert.Equal(t, 2, run.Kept)
	assert.Equal(t, 2, run.Excluded)
	assert.Equal(t, 1, run.ReasonCounts[domain.ReasonInvalidSymbol])
	assert.Equal(t, 1, run.ReasonCounts[domain.ReasonBelowThreshold])
	assert.True(t, run.Succeeded())
}

func TestRecordAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	started := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	run := NewRun(sampleReport(started), "datahub")
	run.OutputPath = "data/nasdaq_universe.json"

	require.NoError(t, repo.Record(run))
	require.NotEmpty(t, run.ID)

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, started, got.StartedAt)
	assert.Equal(t, started.Add(time.Minute), got.FinishedAt)
	assert.Equal(t, "yahoo", got.Provider)
	assert.Equal(t, 2, got.Kept)
	assert.Equal(t, run.ReasonCounts, got.ReasonCounts)
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, "data/nasdaq_universe.json", got.OutputPath)
	assert.Equal(t, run.Exclusions, got.Exclusions)
}

func TestGet_Unknown(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	got, err := repo.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListAndLatest(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Record(NewRun(sampleReport(base.Add(time.Duration(i)*time.Hour)), "datahub")))
	}
	failed := FailedRun(base.Add(5*time.Hour), "datahub", "datahub", "yahoo", errors.New("listing unavailable"))
	require.NoError(t, repo.Record(failed))

	runs, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, failed.ID, runs[0].ID)
	assert.False(t, runs[0].Succeeded())
	assert.Empty(t, runs[1].Exclusions, "List does not load exclusions")

	limited, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err = repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "listing unavailable", latest.Error)
}

func TestRecord_DuplicateID(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	run := NewRun(sampleReport(time.Now()), "datahub")
	run.ID = "fixed"
	require.NoError(t, repo.Record(run))
	assert.Error(t, repo.Record(run))
}
