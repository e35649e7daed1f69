// Package store is the persisted library index: artists, albums, tracks, and
// scan runs in SQLite. It exclusively owns Track/Album/Artist persistence;
// the scanner drives writes, the API layer reads.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for the library index.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// albumLocks serializes aggregate writes per album identity key so
	// concurrent upserts of distinct files cannot lose updates to
	// track-count or artwork flags.
	albumLocks *SyncMap[string, *sync.Mutex]
}

// Open creates a SQLite store at the given path. It configures WAL mode,
// sets pragmas, and applies the embedded schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:         db,
		logger:     logger,
		albumLocks: NewSyncMap[string, *sync.Mutex](),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// lockAlbum acquires the per-album mutex for an identity key. The caller must
// call the returned unlock function.
func (s *Store) lockAlbum(key string) func() {
	mu, _ := s.albumLocks.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// boolInt converts a bool to the 0/1 representation stored in SQLite.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
