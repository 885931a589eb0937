// Package sqlite keeps a local log of gateway calls in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/rexliu/m365/pkg/core"
)

// DefaultLimit is used by Recent when limit is not positive.
const DefaultLimit = 20

// Store owns the history database for a profile.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time; the CLI and m365d may share a file
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS calls (
			id TEXT PRIMARY KEY,
			method TEXT NOT NULL,
			params TEXT,
			outcome TEXT NOT NULL CHECK (outcome IN ('ok','timeout','spawn','malformed','remote')),
			error TEXT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_started ON calls(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_method ON calls(method);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Record inserts one call. It satisfies gateway.Recorder.
func (s *Store) Record(ctx context.Context, rec core.CallRecord) error {
	if rec.ID == "" {
		rec.ID = core.NewRequestID()
	}
	var params, callErr *string
	if len(rec.Params) > 0 {
		p := string(rec.Params)
		params = &p
	}
	if rec.Error != "" {
		callErr = &rec.Error
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO calls(id, method, params, outcome, error, started_at, duration_ms) VALUES(?,?,?,?,?,?,?)`,
		rec.ID, rec.Method, params, string(rec.Outcome), callErr, rec.StartedAt, rec.DurationMS)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.Method, err)
	}
	return nil
}

// Recent returns up to limit records, newest first. Records that started in the
// same millisecond are ordered by id, which sorts by creation.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.CallRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, method, params, outcome, error, started_at, duration_ms
		FROM calls
		ORDER BY started_at DESC, id DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]core.CallRecord, 0, limit)
	for rows.Next() {
		var (
			rec     core.CallRecord
			params  *string
			outcome string
			callErr *string
		)
		if err := rows.Scan(&rec.ID, &rec.Method, &params, &outcome, &callErr, &rec.StartedAt, &rec.DurationMS); err != nil {
			return nil, err
		}
		rec.Outcome = core.Outcome(outcome)
		if params != nil {
			rec.Params = []byte(*params)
		}
		if callErr != nil {
			rec.Error = *callErr
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Prune deletes all but the newest keep records and reports how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, errors.New("keep must not be negative")
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM calls WHERE id NOT IN (
			SELECT id FROM calls ORDER BY started_at DESC, id DESC LIMIT ?
		);
	`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
