package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

// Result describes one Save.
type Result struct {
	// Path is the store file written, or the one that would have been.
	Path string
	// Written holds the records this save contributed.
	Written []domain.Record
}

// Strategy decides which parsed records are new and persists them.
type Strategy interface {
	Name() string
	Save(records []domain.Record) (Result, error)
}

// New returns the strategy selected by cfg for the named source.
func New(source string, cfg config.Source, clock clockwork.Clock, logger *slog.Logger) (Strategy, error) {
	logger = logger.With("source", source)
	switch cfg.Strategy() {
	case config.DedupUniqueKey:
		return &UniqueKey{
			path:     filepath.Join(cfg.BaseDataPath, cfg.OutputFilename),
			keyField: cfg.UniqueKey,
			logger:   logger,
		}, nil
	case config.DedupTimestamp:
		if cfg.TimestampField == "" {
			return nil, fmt.Errorf("source %s: timestamp dedup needs timestamp_field", source)
		}
		return &Timestamp{
			baseDir:    cfg.BaseDataPath,
			filename:   cfg.OutputFilename,
			markerPath: cfg.LastTimestampPath,
			keyField:   cfg.UniqueKey,
			field:      cfg.TimestampField,
			format:     cfg.TimestampFormat,
			utcSuffix:  cfg.TimestampUTCSuffix,
			clock:      clock,
			logger:     logger,
		}, nil
	default:
		return nil, fmt.Errorf("source %s: unknown dedup strategy %q", source, cfg.Strategy())
	}
}

// UniqueKey merges every batch into a single store file by key.
type UniqueKey struct {
	path     string
	keyField string
	logger   *slog.Logger
}

func (s *UniqueKey) Name() string { return config.DedupUniqueKey }

// Path returns the store file.
func (s *UniqueKey) Path() string { return s.path }

func (s *UniqueKey) Save(records []domain.Record) (Result, error) {
	res := Result{Path: s.path}
	if len(records) == 0 {
		s.logger.Info("nothing to save", "path", s.path)
		return res, nil
	}
	existing, err := loadExisting(s.path, s.logger)
	if err != nil {
		return res, err
	}
	merged, changed := mergeChanges(existing, records, s.keyField)
	if len(changed) == 0 {
		s.logger.Info("store unchanged", "path", s.path, "records", len(records))
		return res, nil
	}
	if err := Write(s.path, merged); err != nil {
		return res, err
	}
	res.Written = changed
	s.logger.Info("store saved", "path", s.path, "records", len(records), "changed", len(changed), "stored", len(merged))
	return res, nil
}

// Timestamp keeps only records newer than the last-seen marker and merges
// them into a dated store file.
type Timestamp struct {
	baseDir    string
	filename   string
	markerPath string
	keyField   string
	field      string
	format     string
	utcSuffix  bool
	clock      clockwork.Clock
	logger     *slog.Logger
}

func (s *Timestamp) Name() string { return config.DedupTimestamp }

func (s *Timestamp) Save(records []domain.Record) (Result, error) {
	day := s.clock.Now().UTC().Format(time.DateOnly)
	res := Result{Path: filepath.Join(s.baseDir, day, s.filename)}

	marker, hasMarker, err := s.readMarker()
	if err != nil {
		return res, err
	}

	var (
		fresh  []domain.Record
		newest time.Time
	)
	for _, rec := range records {
		ts, err := domain.ParseTimestamp(s.format, rec.String(s.field))
		if err != nil {
			s.logger.Warn("skipping record without usable timestamp",
				"field", s.field, "key", identity(rec, s.keyField), "error", err)
			continue
		}
		if hasMarker && !ts.After(marker) {
			continue
		}
		fresh = append(fresh, rec)
		if ts.After(newest) {
			newest = ts
		}
	}

	if len(fresh) == 0 {
		s.logger.Info("nothing to save", "path", res.Path, "marker", s.markerPath)
		return res, nil
	}

	existing, err := loadExisting(res.Path, s.logger)
	if err != nil {
		return res, err
	}
	merged, changed := mergeChanges(existing, fresh, s.keyField)
	if len(changed) > 0 {
		if err := Write(res.Path, merged); err != nil {
			return res, err
		}
	}
	value := domain.FormatTimestamp(s.format, newest, s.utcSuffix)
	if err := writeFile(s.markerPath, []byte(value)); err != nil {
		return res, err
	}
	res.Written = changed
	s.logger.Info("store saved", "path", res.Path, "records", len(fresh), "changed", len(changed), "marker", value)
	return res, nil
}

// readMarker returns the last processed timestamp. A missing or blank marker
// means no lower bound.
func (s *Timestamp) readMarker() (time.Time, bool, error) {
	data, err := os.ReadFile(s.markerPath)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &domain.StoreIOError{Path: s.markerPath, Err: err}
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return time.Time{}, false, nil
	}
	ts, err := domain.ParseTimestamp(s.format, value)
	if err != nil {
		s.logger.Warn("ignoring unreadable marker", "path", s.markerPath, "error", err)
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// loadExisting reads the current store. A corrupt store counts as empty and
// is overwritten by the next write.
func loadExisting(path string, logger *slog.Logger) ([]domain.Record, error) {
	existing, err := Load(path)
	if errors.Is(err, ErrCorrupt) {
		logger.Warn("existing store corrupt, starting empty", "path", path, "error", err)
		return nil, nil
	}
	return existing, err
}
