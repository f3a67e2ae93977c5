package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// PostgresStore is a shared CaseStore for multi-node deployments.
type PostgresStore struct {
	conn sqlx.SqlConn
}

// NewPostgresStore connects to Postgres through the pgx stdlib driver.
func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{conn: sqlx.NewSqlConn("pgx", dsn)}
}

// Migrate ensures the cases table exists. Called by the ingest tooling, not
// on every connection.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id        BIGSERIAL PRIMARY KEY,
		case_text TEXT NOT NULL
	)`
	if _, err := s.conn.ExecCtx(ctx, schema); err != nil {
		return fmt.Errorf("memory: migrate postgres store: %w", err)
	}
	return nil
}

// Insert stores a case text and returns its 1-based id.
func (s *PostgresStore) Insert(ctx context.Context, text string) (int64, error) {
	var id int64
	err := s.conn.QueryRowCtx(ctx, &id,
		"INSERT INTO cases (case_text) VALUES ($1) RETURNING id", text)
	if err != nil {
		return 0, fmt.Errorf("memory: insert case: %w", err)
	}
	return id, nil
}

// Get returns the case text for id. The second return is false when no case
// has that id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (string, bool, error) {
	var text string
	err := s.conn.QueryRowCtx(ctx, &text, "SELECT case_text FROM cases WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, sqlc.ErrNotFound) || errors.Is(err, sqlx.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory: get case %d: %w", id, err)
	}
	return text, true, nil
}

// Close is a no-op; go-zero pools connections internally.
func (s *PostgresStore) Close() error { return nil }
