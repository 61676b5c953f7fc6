// Package state is a reference implementation of the host-owned
// persisted state spec.md §6 leaves to "the host": a per-project
// high-water mark, plus a local audit trail of published paths. Neither
// table is required for correctness — publication is already
// path-idempotent at the content store — but both let an operator run
// this pipeline standalone without a bespoke host.
package state

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

const schemaVersion = 1

// Store wraps a single-file SQLite database holding high-water marks and
// a published-path ledger.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS high_water_marks (
		project_path TEXT PRIMARY KEY,
		modified TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS published_documents (
		path TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		published_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("state: init schema: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO metadata(key, value) VALUES('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprintf("%d", schemaVersion),
	)
	if err != nil {
		return fmt.Errorf("state: record schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// HighWaterMark returns the stored mark for a project, or the zero time
// if none is recorded yet.
func (s *Store) HighWaterMark(projectPath string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified string
	err := s.db.QueryRow(
		`SELECT modified FROM high_water_marks WHERE project_path = ?`, projectPath,
	).Scan(&modified)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("state: read high water mark: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, modified)
	if err != nil {
		return time.Time{}, fmt.Errorf("state: parse high water mark: %w", err)
	}
	return t, nil
}

// AdvanceHighWaterMark sets a project's mark, per §4.8/§5: called only
// after an orderly batch completes, never on a per-session failure.
func (s *Store) AdvanceHighWaterMark(projectPath string, modified time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO high_water_marks(project_path, modified) VALUES(?, ?)
		 ON CONFLICT(project_path) DO UPDATE SET modified = excluded.modified`,
		projectPath, modified.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("state: advance high water mark: %w", err)
	}
	return nil
}

// RecordPublished appends a row to the local audit trail. It never
// blocks publication itself: the content store's upsert already makes
// re-publication harmless.
func (s *Store) RecordPublished(path string, sessionID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO published_documents(path, session_id, published_at) VALUES(?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET session_id = excluded.session_id, published_at = excluded.published_at`,
		path, sessionID, publishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("state: record published document: %w", err)
	}
	return nil
}

// WasPublished reports whether path has been recorded as published.
func (s *Store) WasPublished(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM published_documents WHERE path = ?`, path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("state: check published document: %w", err)
	}
	return count > 0, nil
}

// AdvanceAll advances the high-water mark for every project in marks,
// the batch runner's single-goroutine write step per spec.md §5.
func (s *Store) AdvanceAll(marks map[string]domain.SessionIndexEntry) error {
	for project, entry := range marks {
		if err := s.AdvanceHighWaterMark(project, entry.Modified); err != nil {
			return err
		}
	}
	return nil
}

// AllHighWaterMarks loads every project's mark as a map suitable for
// batch.Runner.Run's marks argument.
func (s *Store) AllHighWaterMarks() (map[string]domain.SessionIndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT project_path, modified FROM high_water_marks`)
	if err != nil {
		return nil, fmt.Errorf("state: list high water marks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	marks := make(map[string]domain.SessionIndexEntry)
	for rows.Next() {
		var project, modified string
		if err := rows.Scan(&project, &modified); err != nil {
			return nil, fmt.Errorf("state: scan high water mark row: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, modified)
		if err != nil {
			continue
		}
		marks[project] = domain.SessionIndexEntry{ProjectPath: project, Modified: t}
	}
	return marks, rows.Err()
}
