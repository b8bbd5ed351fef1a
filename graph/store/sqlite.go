package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It persists sessions and build history in a single-file database, with
// zero external setup. Designed for:
//   - Development and testing
//   - Single-process deployments
//   - Local graphs that need durable sessions
//
// The store uses WAL mode so readers don't block behind the single writer,
// and auto-migrates its schema on first use.
//
// Example:
//
//	s, err := store.NewSQLiteStore("./sessions.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
// For tests, ":memory:" gives an in-memory database that is lost on close.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema. Pass ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	sessionsTable := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT NOT NULL PRIMARY KEY,
			snapshot BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, sessionsTable); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	buildsTable := `
		CREATE TABLE IF NOT EXISTS vertex_builds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			vertex_id TEXT NOT NULL,
			result BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(run_id, seq)
		)
	`
	if _, err := s.db.ExecContext(ctx, buildsTable); err != nil {
		return fmt.Errorf("failed to create vertex_builds table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_builds_run_id ON vertex_builds(run_id)"); err != nil {
		return fmt.Errorf("failed to create idx_builds_run_id: %w", err)
	}
	return nil
}

// SaveSession implements Store.
func (s *SQLiteStore) SaveSession(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (session_id, snapshot, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, snapshot); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// LoadSession implements Store.
func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var snapshot []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM sessions WHERE session_id = ?", sessionID).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return snapshot, nil
}

// DeleteSession implements Store.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// SaveBuild implements Store.
func (s *SQLiteStore) SaveBuild(ctx context.Context, runID string, seq int, vertexID string, result []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	query := `
		INSERT INTO vertex_builds (run_id, seq, vertex_id, result)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, runID, seq, vertexID, result); err != nil {
		return fmt.Errorf("failed to save build %s/%d: %w", runID, seq, err)
	}
	return nil
}

// LoadBuilds implements Store.
func (s *SQLiteStore) LoadBuilds(ctx context.Context, runID string) ([]BuildRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, vertex_id, result FROM vertex_builds WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load builds for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	records := []BuildRecord{}
	for rows.Next() {
		var r BuildRecord
		if err := rows.Scan(&r.Seq, &r.VertexID, &r.Result); err != nil {
			return nil, fmt.Errorf("failed to scan build record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate build records: %w", err)
	}
	return records, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
