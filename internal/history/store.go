// Package history persists the outcome of completed work units in SQLite.
// Recording is best-effort: a store failure is logged and never surfaces
// into the reply path.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one completed unit of work.
type Entry struct {
	ID        int64
	Kind      string // paste-text | paste-named | paste-image | link-set | file-set
	Source    string // filename, original URL, or a short content description
	URL       string // hosted URL, empty on failure
	ShortURL  string
	Outcome   string // ok | failed | unsupported
	CreatedAt time.Time
}

const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeUnsupported = "unsupported"
)

// Store implements upload-history persistence using SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       TEXT NOT NULL,
		source     TEXT,
		url        TEXT,
		short_url  TEXT,
		outcome    TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (kind, source, url, short_url, outcome) VALUES (?, ?, ?, ?, ?)`,
		e.Kind, e.Source, e.URL, e.ShortURL, e.Outcome,
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, source, url, short_url, outcome, created_at
		 FROM uploads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Source, &e.URL, &e.ShortURL, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
