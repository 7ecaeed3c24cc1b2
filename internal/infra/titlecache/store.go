// Package titlecache persists resolved titles in SQLite so restarts do not
// pay for resolving the whole autoplaylist again.
package titlecache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed url -> title map.
type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create cache dir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open title cache")
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure title cache")
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS titles (
			url         TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			resolved_at INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create titles table")
	}

	return &Store{db: db}, nil
}

// Get returns the cached title for url.
func (s *Store) Get(ctx context.Context, url string) (string, bool, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM titles WHERE url = ?`, url).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to read title")
	}
	return title, true, nil
}

// Put stores title for url, replacing any previous value.
func (s *Store) Put(ctx context.Context, url, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO titles (url, title, resolved_at) VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET title = excluded.title, resolved_at = excluded.resolved_at
	`, url, title, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "failed to write title")
	}
	return nil
}

// Len returns the number of cached titles.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count titles")
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
