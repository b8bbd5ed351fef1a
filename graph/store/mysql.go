package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL implementation of Store.
//
// Designed for multi-process deployments where several engine instances
// share session state. Requires MySQL 5.7+ (uses ON DUPLICATE KEY UPDATE
// and utf8mb4).
//
// The DSN follows the go-sql-driver format, e.g.:
//
//	user:password@tcp(localhost:3306)/flowgraph?parseTime=true
//
// The store auto-migrates its schema on first use.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore connects to MySQL with the given DSN and migrates the
// schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	sessionsTable := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id VARCHAR(255) NOT NULL PRIMARY KEY,
			snapshot LONGBLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	if _, err := s.db.ExecContext(ctx, sessionsTable); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	buildsTable := `
		CREATE TABLE IF NOT EXISTS vertex_builds (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			vertex_id VARCHAR(255) NOT NULL,
			result LONGBLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_run_seq (run_id, seq),
			KEY idx_builds_run_id (run_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	if _, err := s.db.ExecContext(ctx, buildsTable); err != nil {
		return fmt.Errorf("failed to create vertex_builds table: %w", err)
	}
	return nil
}

// SaveSession implements Store.
func (s *MySQLStore) SaveSession(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (session_id, snapshot)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE snapshot = VALUES(snapshot)
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, snapshot); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// LoadSession implements Store.
func (s *MySQLStore) LoadSession(ctx context.Context, sessionID string) ([]byte, error) {
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
func (s *MySQLStore) DeleteSession(ctx context.Context, sessionID string) error {
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
func (s *MySQLStore) SaveBuild(ctx context.Context, runID string, seq int, vertexID string, result []byte) error {
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
func (s *MySQLStore) LoadBuilds(ctx context.Context, runID string) ([]BuildRecord, error) {
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
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *MySQLStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
