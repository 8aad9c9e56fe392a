package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultDocumentYAML []byte

// Dedup strategy names accepted in the source document.
const (
	DedupUniqueKey = "unique_key"
	DedupTimestamp = "timestamp"
)

// Source is one source's entry in the document. Zero values mean "use the
// source's built-in default".
type Source struct {
	Enabled            bool          `yaml:"enabled"`
	URL                string        `yaml:"url"`
	URLTemplate        string        `yaml:"url_template"`
	BaseDataPath       string        `yaml:"base_data_path"`
	OutputFilename     string        `yaml:"output_filename"`
	UniqueKey          string        `yaml:"unique_key"`
	TimestampFormat    string        `yaml:"timestamp_format"`
	TimestampField     string        `yaml:"timestamp_field"`
	TimestampUTCSuffix bool          `yaml:"timestamp_utc_suffix"`
	LastTimestampPath  string        `yaml:"last_timestamp_path"`
	Dedup              string        `yaml:"dedup"`
	Incremental        *bool         `yaml:"incremental"`
	Token              string        `yaml:"token"`
	MapKey             string        `yaml:"MAP_KEY"`
	Product            string        `yaml:"SOURCE"`
	DayRange           int           `yaml:"DAY_RANGE"`
	Timeout            time.Duration `yaml:"timeout"`
	Geocode            bool          `yaml:"geocode"`
}

// Strategy returns the dedup strategy for the source: an explicit dedup
// value wins, then incremental: true selects the timestamp marker, otherwise
// unique-key merge.
func (s Source) Strategy() string {
	if s.Dedup != "" {
		return s.Dedup
	}
	if s.Incremental != nil && *s.Incremental {
		return DedupTimestamp
	}
	return DedupUniqueKey
}

// Document is the decoded source document. Source entries sit at the top
// level next to the global timestamp_format.
type Document struct {
	TimestampFormat string            `yaml:"timestamp_format"`
	Sources         map[string]Source `yaml:",inline"`
}

// ParseDocument decodes YAML (or JSON) bytes and expands ${VAR} references
// in URLs and credentials.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing config: %w", err)
	}
	if doc.Sources == nil {
		doc.Sources = map[string]Source{}
	}
	for key, src := range doc.Sources {
		switch src.Dedup {
		case "", DedupUniqueKey, DedupTimestamp:
		default:
			return Document{}, fmt.Errorf("source %s: invalid dedup %q: want %s or %s", key, src.Dedup, DedupUniqueKey, DedupTimestamp)
		}
		if src.Timeout < 0 {
			return Document{}, fmt.Errorf("source %s: timeout must not be negative", key)
		}
		src.URL = os.ExpandEnv(src.URL)
		src.URLTemplate = os.ExpandEnv(src.URLTemplate)
		src.Token = strings.TrimSpace(os.ExpandEnv(src.Token))
		src.MapKey = strings.TrimSpace(os.ExpandEnv(src.MapKey))
		doc.Sources[key] = src
	}
	return doc, nil
}

// ResolvePath finds the source document: explicit path, then
// $ALERTETL_CONFIG, then ./config.yaml, then ./config.json.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if env := os.Getenv("ALERTETL_CONFIG"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config file from ALERTETL_CONFIG not found: %s", env)
		}
		return env, nil
	}
	for _, candidate := range []string{"config.yaml", "config.json"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no config file found; searched ./config.yaml and ./config.json\n\nRun 'alertetl init' to create a default config")
}
