// Package source holds the dispatch table of upstream hazard feeds. Each
// entry knows its default settings, how to fetch the raw payload and how to
// turn that payload into records.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/david-j-lopez-m/RF/internal/adapter/upstream"
	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

// Payload formats.
const (
	FormatJSON       = "json"
	FormatCSV        = "csv"
	FormatRSS        = "rss"
	FormatCAPArchive = "cap-archive"
)

const defaultTimeout = 10 * time.Second

// Source is one upstream feed.
type Source interface {
	Key() string
	Format() string
	// Defaults returns the built-in settings used where the document is silent.
	Defaults() config.Source
	// Fetch retrieves the raw payload. Errors are domain.TransportError or
	// domain.FormatError.
	Fetch(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error)
	// Decode turns a raw payload into records. Items that fail to parse are
	// reported in Batch.Skipped; only an unreadable payload is an error.
	Decode(raw []byte) (domain.Batch, error)
}

// definition is a Source whose items decode to T and parse one at a time.
type definition[T any] struct {
	key      string
	format   string
	defaults config.Source
	fetch    func(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error)
	decode   func(raw []byte) ([]T, error)
	parse    func(item T) (domain.Record, error)
	ref      func(item T) string
}

func (d *definition[T]) Key() string             { return d.key }
func (d *definition[T]) Format() string          { return d.format }
func (d *definition[T]) Defaults() config.Source { return d.defaults }

func (d *definition[T]) Fetch(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error) {
	return d.fetch(ctx, client, cfg)
}

func (d *definition[T]) Decode(raw []byte) (domain.Batch, error) {
	items, err := d.decode(raw)
	if err != nil {
		return domain.Batch{}, err
	}
	batch := domain.Batch{Records: make([]domain.Record, 0, len(items))}
	for i, item := range items {
		rec, err := d.parse(item)
		if err != nil {
			skip := domain.RecordParseError{Index: i, Err: err}
			if d.ref != nil {
				skip.Ref = d.ref(item)
			}
			batch.Skipped = append(batch.Skipped, skip)
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

// Registry is the ordered dispatch table.
type Registry struct {
	sources []Source
	byKey   map[string]Source
}

// NewRegistry builds the table in the fixed run order.
func NewRegistry(logger *slog.Logger) *Registry {
	sources := []Source{
		noaaSWPC(),
		nasaDONKI(),
		usgsEarthquakes(),
		firms(),
		aemet(logger),
		ign(),
		gdacs(),
		meteoalarm(),
	}
	r := &Registry{sources: sources, byKey: make(map[string]Source, len(sources))}
	for _, s := range sources {
		r.byKey[s.Key()] = s
	}
	return r
}

// All returns every source in run order.
func (r *Registry) All() []Source { return r.sources }

// Lookup finds a source by key.
func (r *Registry) Lookup(key string) (Source, bool) {
	s, ok := r.byKey[key]
	return s, ok
}

// Keys returns the source keys in run order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.sources))
	for i, s := range r.sources {
		keys[i] = s.Key()
	}
	return keys
}

// Unknown returns the document entries that name no known source, sorted.
func (r *Registry) Unknown(entries map[string]config.Source) []string {
	var out []string
	for key := range entries {
		if _, ok := r.byKey[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve overlays a document entry on the source's defaults. The timestamp
// format falls back from the entry to the source default, then to the
// document-wide format and finally to domain.DefaultTimestampFormat.
func Resolve(src Source, entry config.Source, globalFormat string) config.Source {
	out := src.Defaults()
	out.Enabled = entry.Enabled
	out.Geocode = entry.Geocode
	out.TimestampUTCSuffix = entry.TimestampUTCSuffix
	out.Incremental = entry.Incremental

	override(&out.URL, entry.URL)
	override(&out.URLTemplate, entry.URLTemplate)
	override(&out.BaseDataPath, entry.BaseDataPath)
	override(&out.OutputFilename, entry.OutputFilename)
	override(&out.UniqueKey, entry.UniqueKey)
	override(&out.TimestampFormat, entry.TimestampFormat)
	override(&out.TimestampField, entry.TimestampField)
	override(&out.LastTimestampPath, entry.LastTimestampPath)
	override(&out.Dedup, entry.Dedup)
	override(&out.Token, entry.Token)
	override(&out.MapKey, entry.MapKey)
	override(&out.Product, entry.Product)
	if entry.DayRange > 0 {
		out.DayRange = entry.DayRange
	}
	if entry.Timeout > 0 {
		out.Timeout = entry.Timeout
	}

	if out.BaseDataPath == "" {
		out.BaseDataPath = filepath.Join("data", "raw", src.Key())
	}
	if out.OutputFilename == "" {
		out.OutputFilename = src.Key() + "_alerts.json"
	}
	if out.LastTimestampPath == "" {
		out.LastTimestampPath = filepath.Join(out.BaseDataPath, src.Key()+"_last_timestamp.txt")
	}
	if out.TimestampFormat == "" {
		out.TimestampFormat = globalFormat
	}
	if out.TimestampFormat == "" {
		out.TimestampFormat = domain.DefaultTimestampFormat
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	return out
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// fetchJSON is the fetch step of plain JSON endpoints.
func fetchJSON(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is not configured")
	}
	resp, err := client.GetJSON(ctx, cfg.URL, nil, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// fetchRaw is the fetch step of feeds whose body is decoded as-is.
func fetchRaw(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is not configured")
	}
	resp, err := client.Get(ctx, cfg.URL, nil, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
