// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists the last-synced state per document. The store is
// the single source of truth for incremental-skip decisions: an entry is
// written only after every artifact of the document is durably on disk.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry records the last-synced state of one document.
type Entry struct {
	GUID       string
	Version    int64
	OutputPath string
	SyncedAt   time.Time
}

// Store is the sync index database. All mutations go through a single
// writer guarded by mu; readers may see a slightly stale snapshot but
// never a torn write.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// DefaultPath returns the index location for an output tree rooted at dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, ".wizbak-index.db")
}

// Open opens or creates the index database at path. A corrupt database is
// removed and recreated empty, which forces a full resync but is never
// fatal.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := open(path)
	if err != nil {
		// Corrupt or unreadable store: start over empty.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		db, err = open(path)
		if err != nil {
			return nil, fmt.Errorf("recreating index: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		guid        TEXT PRIMARY KEY,
		version     INTEGER NOT NULL,
		output_path TEXT NOT NULL,
		synced_at   TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for guid, or ok=false when the document has never
// been synced.
func (s *Store) Get(guid string) (Entry, bool, error) {
	var e Entry
	var syncedAt string
	err := s.db.QueryRow(
		`SELECT guid, version, output_path, synced_at FROM documents WHERE guid = ?`, guid,
	).Scan(&e.GUID, &e.Version, &e.OutputPath, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading index entry: %w", err)
	}
	e.SyncedAt, _ = time.Parse(time.RFC3339Nano, syncedAt)
	return e, true, nil
}

// Put upserts the entry for guid. Callers invoke Put strictly after the
// document's output is fully written, so a crash before Put leaves the
// document eligible for re-fetch rather than falsely marked synced.
func (s *Store) Put(guid string, version int64, outputPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO documents (guid, version, output_path, synced_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(guid) DO UPDATE SET
			version=excluded.version, output_path=excluded.output_path,
			synced_at=excluded.synced_at`,
		guid, version, outputPath, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing index entry: %w", err)
	}
	return nil
}

// Claimant returns the guid that currently owns outputPath, or ok=false
// when no committed document claims it. The writer consults this before
// reusing a filename so two documents never share an output path.
func (s *Store) Claimant(outputPath string) (string, bool, error) {
	var guid string
	err := s.db.QueryRow(
		`SELECT guid FROM documents WHERE output_path = ?`, outputPath,
	).Scan(&guid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving output path owner: %w", err)
	}
	return guid, true, nil
}

// ListAll returns every entry ordered by guid.
func (s *Store) ListAll() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT guid, version, output_path, synced_at FROM documents ORDER BY guid`)
	if err != nil {
		return nil, fmt.Errorf("listing index entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var syncedAt string
		if err := rows.Scan(&e.GUID, &e.Version, &e.OutputPath, &syncedAt); err != nil {
			return nil, fmt.Errorf("scanning index entry: %w", err)
		}
		e.SyncedAt, _ = time.Parse(time.RFC3339Nano, syncedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
