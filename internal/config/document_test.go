package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_Default(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", "firms-secret")
	t.Setenv("AEMET_API_KEY", "aemet-secret")

	doc, err := ParseDocument(DefaultDocumentYAML)
	require.NoError(t, err)

	assert.Equal(t, "%Y-%m-%d %H:%M:%S.%f", doc.TimestampFormat)
	assert.Len(t, doc.Sources, 8)

	firms := doc.Sources["firms"]
	assert.Equal(t, "firms-secret", firms.MapKey)
	assert.Equal(t, "VIIRS_SNPP_NRT", firms.Product)
	assert.Equal(t, 1, firms.DayRange)
	assert.Equal(t, 20*time.Second, firms.Timeout)
	assert.Contains(t, firms.URLTemplate, "{MAP_KEY}")

	assert.Equal(t, "aemet-secret", doc.Sources["aemet"].Token)
	assert.True(t, doc.Sources["usgs_earthquakes"].Enabled)
	assert.Equal(t, "code", doc.Sources["usgs_earthquakes"].UniqueKey)
}

func TestParseDocument_JSON(t *testing.T) {
	data := []byte(`{
  "timestamp_format": "%Y-%m-%d %H:%M:%S.%f",
  "noaa_swpc": {
    "url": "https://services.swpc.noaa.gov/products/alerts.json",
    "base_data_path": "data/raw/noaa",
    "output_filename": "noaa_alerts.json",
    "incremental": true,
    "timestamp_field": "issue_datetime",
    "timestamp_utc_suffix": true
  }
}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	noaa := doc.Sources["noaa_swpc"]
	assert.Equal(t, "data/raw/noaa", noaa.BaseDataPath)
	assert.Equal(t, "issue_datetime", noaa.TimestampField)
	assert.True(t, noaa.TimestampUTCSuffix)
	assert.Equal(t, DedupTimestamp, noaa.Strategy())
	assert.NotContains(t, doc.Sources, "timestamp_format")
}

func TestSource_Strategy(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name string
		src  Source
		want string
	}{
		{"default", Source{}, DedupUniqueKey},
		{"incremental", Source{Incremental: &yes}, DedupTimestamp},
		{"incremental off", Source{Incremental: &no}, DedupUniqueKey},
		{"explicit wins", Source{Incremental: &yes, Dedup: DedupUniqueKey}, DedupUniqueKey},
		{"explicit timestamp", Source{Dedup: DedupTimestamp}, DedupTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.src.Strategy())
		})
	}
}

func TestParseDocument_InvalidDedup(t *testing.T) {
	_, err := ParseDocument([]byte("gdacs:\n  dedup: newest\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gdacs")
}

func TestParseDocument_Malformed(t *testing.T) {
	_, err := ParseDocument([]byte("gdacs: [unclosed"))
	require.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.yaml")
	fromEnv := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(fromEnv, []byte("{}"), 0o600))

	t.Setenv("ALERTETL_CONFIG", fromEnv)

	got, err := ResolvePath(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	got, err = ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, fromEnv, got)

	_, err = ResolvePath(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestResolvePath_WorkingDirectory(t *testing.T) {
	t.Setenv("ALERTETL_CONFIG", "")
	t.Chdir(t.TempDir())

	_, err := ResolvePath("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alertetl init")

	require.NoError(t, os.WriteFile("config.json", []byte("{}"), 0o600))
	got, err := ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, "config.json", got)

	require.NoError(t, os.WriteFile("config.yaml", []byte("{}"), 0o600))
	got, err = ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", got)
}
