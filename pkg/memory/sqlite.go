package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a local, file-backed CaseStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the cases
// table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memory: create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("memory: open sqlite store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		case_text TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: migrate sqlite store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Insert stores a case text and returns its 1-based id.
func (s *SQLiteStore) Insert(ctx context.Context, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO cases (case_text) VALUES (?)", text)
	if err != nil {
		return 0, fmt.Errorf("memory: insert case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("memory: insert case id: %w", err)
	}
	return id, nil
}

// Get returns the case text for id. The second return is false when no case
// has that id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx, "SELECT case_text FROM cases WHERE id = ?", id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory: get case %d: %w", id, err)
	}
	return text, true, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
