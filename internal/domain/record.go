package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one normalized alert. Fields are flat and source specific; a nil
// value is written as JSON null.
type Record map[string]any

// Key returns the string form of the record's value for field. Missing and
// null values report false.
func (r Record) Key(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprint(t), true
	}
}

// String returns field as a string, or "" when missing or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Float returns field as a float64 when it holds a number.
func (r Record) Float(field string) (float64, bool) {
	switch t := r[field].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Clone returns a shallow copy so enrichment never mutates a parsed record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Batch is the outcome of decoding and parsing one source payload.
type Batch struct {
	Records []Record
	Skipped []RecordParseError
}

// Run statuses recorded per source.
const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusFailed = "failed"
)

// SourceOutcome summarizes one source's share of an orchestrator pass.
type SourceOutcome struct {
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Strategy   string    `json:"strategy"`
	Fetched    int       `json:"fetched"`
	Skipped    int       `json:"skipped"`
	Saved      int       `json:"saved"`
	Path       string    `json:"path,omitempty"`
	ErrorClass string    `json:"error_class,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failed reports whether the source ended in an error.
func (o SourceOutcome) Failed() bool { return o.Status == StatusFailed }

// nullable converts an empty string into a JSON null.
func nullable(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// derefString returns nil for a nil pointer, otherwise the pointed-to value.
func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
