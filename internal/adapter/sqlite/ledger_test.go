package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_MigratesToLatest(t *testing.T) {
	l := openTestLedger(t)

	version, err := schemaVersion(l.conn)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := Open(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, first.RecordRun(context.Background(), domain.SourceOutcome{
		Source: "ign", Status: domain.StatusOK, StartedAt: time.Now(), FinishedAt: time.Now(),
	}))
	require.NoError(t, first.Close())

	second, err := Open(path, discardLogger())
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 10, 8, 0, 0, 123456789, time.UTC)

	failed := domain.SourceOutcome{
		Source:     "aemet",
		Status:     domain.StatusFailed,
		Strategy:   "unique_key",
		ErrorClass: "transport",
		Error:      "GET https://opendata.aemet.es: status 503",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	ok := domain.SourceOutcome{
		Source:     "usgs_earthquakes",
		Status:     domain.StatusOK,
		Strategy:   "unique_key",
		Fetched:    14,
		Skipped:    1,
		Saved:      13,
		Path:       "data/raw/usgs_earthquakes/usgs_earthquakes_alerts.json",
		StartedAt:  started.Add(2 * time.Second),
		FinishedAt: started.Add(3 * time.Second),
	}
	require.NoError(t, l.RecordRun(ctx, failed))
	require.NoError(t, l.RecordRun(ctx, ok))

	runs, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, ok.Source, runs[0].Source)
	assert.Equal(t, ok.Path, runs[0].Path)
	assert.Equal(t, 13, runs[0].Saved)
	assert.Empty(t, runs[0].ErrorClass)
	assert.True(t, ok.StartedAt.Equal(runs[0].StartedAt))

	assert.Equal(t, failed.Source, runs[1].Source)
	assert.Equal(t, "transport", runs[1].ErrorClass)
	assert.Equal(t, failed.Error, runs[1].Error)
	assert.Empty(t, runs[1].Path)
	assert.True(t, failed.FinishedAt.Equal(runs[1].FinishedAt))
}

func TestRecent_Limit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	for i := range 5 {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, l.RecordRun(ctx, domain.SourceOutcome{
			Source: "gdacs", Status: domain.StatusOK, Saved: i, StartedAt: at, FinishedAt: at,
		}))
	}

	runs, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 4, runs[0].Saved)
	assert.Equal(t, 3, runs[1].Saved)

	runs, err = l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
