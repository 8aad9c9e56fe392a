package store

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uniqueKeyConfig(dir string) config.Source {
	return config.Source{
		BaseDataPath:   dir,
		OutputFilename: "alerts.json",
		UniqueKey:      "id",
	}
}

func newStrategy(t *testing.T, cfg config.Source, clock clockwork.Clock) Strategy {
	t.Helper()
	s, err := New("test", cfg, clock, discardLogger())
	require.NoError(t, err)
	return s
}

func readStore(t *testing.T, path string) []domain.Record {
	t.Helper()
	records, err := Load(path)
	require.NoError(t, err)
	return records
}

func TestNew_Selection(t *testing.T) {
	yes := true
	clock := clockwork.NewFakeClock()

	s := newStrategy(t, config.Source{}, clock)
	assert.Equal(t, config.DedupUniqueKey, s.Name())

	s = newStrategy(t, config.Source{Incremental: &yes, TimestampField: "sent"}, clock)
	assert.Equal(t, config.DedupTimestamp, s.Name())

	_, err := New("test", config.Source{Dedup: config.DedupTimestamp}, clock, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp_field")
}

func TestUniqueKey_SaveMerges(t *testing.T) {
	dir := t.TempDir()
	s := newStrategy(t, uniqueKeyConfig(dir), clockwork.NewFakeClock())

	_, err := s.Save([]domain.Record{{"id": "A", "v": 1}, {"id": "B", "v": 2}})
	require.NoError(t, err)

	res, err := s.Save([]domain.Record{{"id": "B", "v": 3}, {"id": "C", "v": 4}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alerts.json"), res.Path)
	assert.Len(t, res.Written, 2)

	want := []domain.Record{
		{"id": "A", "v": json.Number("1")},
		{"id": "B", "v": json.Number("3")},
		{"id": "C", "v": json.Number("4")},
	}
	if diff := cmp.Diff(want, readStore(t, res.Path)); diff != "" {
		t.Errorf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestUniqueKey_IdempotentFile(t *testing.T) {
	dir := t.TempDir()
	s := newStrategy(t, uniqueKeyConfig(dir), clockwork.NewFakeClock())
	batch := []domain.Record{{"id": "A", "place": "Cádiz <coast> & sea"}, {"id": "B", "place": nil}}

	res, err := s.Save(batch)
	require.NoError(t, err)
	first, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	_, err = s.Save(batch)
	require.NoError(t, err)
	second, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "Cádiz <coast> & sea")
	assert.Contains(t, string(first), "\n  {\n    \"id\": \"A\",")
	assert.Contains(t, string(first), `"place": null`)
}

func TestUniqueKey_UnchangedRecordsNotWritten(t *testing.T) {
	dir := t.TempDir()
	s := newStrategy(t, uniqueKeyConfig(dir), clockwork.NewFakeClock())
	batch := []domain.Record{{"id": "A", "mag": 4.6, "place": "Alborán"}, {"id": "B", "mag": 2.0}}

	res, err := s.Save(batch)
	require.NoError(t, err)
	require.Len(t, res.Written, 2)
	info, err := os.Stat(res.Path)
	require.NoError(t, err)

	res, err = s.Save(batch)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	again, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime(), "unchanged store must not be rewritten")

	res, err = s.Save([]domain.Record{{"id": "A", "mag": 4.6, "place": "Alborán"}, {"id": "B", "mag": 2.1}})
	require.NoError(t, err)
	require.Len(t, res.Written, 1)
	assert.Equal(t, "B", res.Written[0]["id"])
}

func TestUniqueKey_NothingToSave(t *testing.T) {
	dir := t.TempDir()
	s := newStrategy(t, uniqueKeyConfig(dir), clockwork.NewFakeClock())

	res, err := s.Save(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Written)

	_, err = os.Stat(res.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "no file should be written")
}

func TestUniqueKey_CorruptStoreRecovered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "A", `), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrCorrupt)

	s := newStrategy(t, uniqueKeyConfig(dir), clockwork.NewFakeClock())
	_, err = s.Save([]domain.Record{{"id": "B"}})
	require.NoError(t, err)

	assert.Equal(t, []domain.Record{{"id": "B"}}, readStore(t, path))
}

func TestUniqueKey_CreatesParentDirs(t *testing.T) {
	cfg := uniqueKeyConfig(filepath.Join(t.TempDir(), "data", "raw", "gdacs"))
	s := newStrategy(t, cfg, clockwork.NewFakeClock())

	res, err := s.Save([]domain.Record{{"id": "A"}})
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestUniqueKey_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := uniqueKeyConfig(filepath.Join(blocker, "nested"))
	s := newStrategy(t, cfg, clockwork.NewFakeClock())

	_, err := s.Save([]domain.Record{{"id": "A"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreIO)
}

func TestUniqueKey_FIRMSRowsCollapse(t *testing.T) {
	row := domain.FIRMSRow{"latitude": "38.1", "longitude": "-1.5", "acq_date": "2024-05-10", "acq_time": "0125", "frp": "4.2"}
	a, err := domain.ParseFIRMSRow(row)
	require.NoError(t, err)
	row["frp"] = "4.3"
	b, err := domain.ParseFIRMSRow(row)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := uniqueKeyConfig(dir)
	cfg.UniqueKey = "firms_id"
	s := newStrategy(t, cfg, clockwork.NewFakeClock())

	res, err := s.Save([]domain.Record{a, b})
	require.NoError(t, err)

	stored := readStore(t, res.Path)
	require.Len(t, stored, 1)
	assert.Equal(t, json.Number("4.3"), stored[0]["frp"])
}

func timestampConfig(dir string) config.Source {
	return config.Source{
		BaseDataPath:       dir,
		OutputFilename:     "noaa_alerts.json",
		UniqueKey:          "id",
		Dedup:              config.DedupTimestamp,
		TimestampField:     "issue_datetime",
		TimestampFormat:    domain.DefaultTimestampFormat,
		TimestampUTCSuffix: true,
		LastTimestampPath:  filepath.Join(dir, "noaa_last_timestamp.txt"),
	}
}

func TestTimestamp_FiltersByMarker(t *testing.T) {
	dir := t.TempDir()
	cfg := timestampConfig(dir)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 23, 30, 0, 0, time.UTC))
	s := newStrategy(t, cfg, clock)

	require.NoError(t, os.WriteFile(cfg.LastTimestampPath, []byte("2024-05-10 12:00:00.000000 UTC\n"), 0o644))

	res, err := s.Save([]domain.Record{
		{"id": "old", "issue_datetime": "2024-05-10 11:00:00.000"},
		{"id": "same", "issue_datetime": "2024-05-10 12:00:00.000"},
		{"id": "new1", "issue_datetime": "2024-05-10 13:00:00.250"},
		{"id": "new2", "issue_datetime": "2024-05-10 12:30:00.000"},
		{"id": "bad", "issue_datetime": "yesterday"},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "2024-05-10", "noaa_alerts.json"), res.Path)
	require.Len(t, res.Written, 2)
	assert.Equal(t, "new1", res.Written[0]["id"])
	assert.Equal(t, "new2", res.Written[1]["id"])

	marker, err := os.ReadFile(cfg.LastTimestampPath)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10 13:00:00.250000 UTC", string(marker))
}

func TestTimestamp_NoMarkerAcceptsAll(t *testing.T) {
	dir := t.TempDir()
	cfg := timestampConfig(dir)
	cfg.TimestampUTCSuffix = false
	s := newStrategy(t, cfg, clockwork.NewFakeClockAt(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)))

	res, err := s.Save([]domain.Record{
		{"id": "a", "issue_datetime": "2024-05-10 11:00:00.000"},
		{"id": "b", "issue_datetime": "2024-05-10 09:00:00.000"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Written, 2)

	marker, err := os.ReadFile(cfg.LastTimestampPath)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10 11:00:00.000000", string(marker))
}

func TestTimestamp_SecondRunIsNoop(t *testing.T) {
	dir := t.TempDir()
	cfg := timestampConfig(dir)
	s := newStrategy(t, cfg, clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)))
	batch := []domain.Record{{"id": "a", "issue_datetime": "2024-05-10 11:00:00.000"}}

	_, err := s.Save(batch)
	require.NoError(t, err)

	res, err := s.Save(batch)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Len(t, readStore(t, res.Path), 1)
}

func TestTimestamp_DatedOutputFollowsClock(t *testing.T) {
	dir := t.TempDir()
	cfg := timestampConfig(dir)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC))
	s := newStrategy(t, cfg, clock)

	res, err := s.Save([]domain.Record{{"id": "a", "issue_datetime": "2024-05-10 11:00:00.000"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-05-10", "noaa_alerts.json"), res.Path)

	clock.Advance(2 * time.Minute)
	res, err = s.Save([]domain.Record{{"id": "b", "issue_datetime": "2024-05-11 00:00:30.000"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-05-11", "noaa_alerts.json"), res.Path)
}
