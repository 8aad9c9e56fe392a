// Package sqlite persists per-source run outcomes in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ledger records one row per source per orchestrator pass.
type Ledger struct {
	conn *sql.DB
	path string
}

// Open creates or opens the ledger at path and brings its schema up to date.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	// A single writer keeps modernc/sqlite from returning SQLITE_BUSY under WAL.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrate(conn, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating ledger schema: %w", err)
	}

	return &Ledger{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// RecordRun appends a source outcome.
func (l *Ledger) RecordRun(ctx context.Context, o domain.SourceOutcome) error {
	_, err := l.conn.ExecContext(ctx, `
INSERT INTO source_runs
    (source, status, strategy, fetched, skipped, saved, path, error_class, error, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Source, o.Status, o.Strategy, o.Fetched, o.Skipped, o.Saved,
		nullString(o.Path), nullString(o.ErrorClass), nullString(o.Error),
		o.StartedAt.UTC().Format(timeLayout), o.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording %s run: %w", o.Source, err)
	}
	return nil
}

// Recent returns up to limit outcomes, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]domain.SourceOutcome, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := l.conn.QueryContext(ctx, `
SELECT source, status, strategy, fetched, skipped, saved, path, error_class, error, started_at, finished_at
FROM source_runs
ORDER BY started_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOutcome(rows *sql.Rows) (domain.SourceOutcome, error) {
	var (
		o                     domain.SourceOutcome
		path, class, errText  sql.NullString
		startedAt, finishedAt string
	)
	if err := rows.Scan(&o.Source, &o.Status, &o.Strategy, &o.Fetched, &o.Skipped, &o.Saved,
		&path, &class, &errText, &startedAt, &finishedAt); err != nil {
		return o, fmt.Errorf("scanning run: %w", err)
	}
	o.Path = path.String
	o.ErrorClass = class.String
	o.Error = errText.String

	var err error
	if o.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return o, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if o.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return o, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
	}
	return o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
