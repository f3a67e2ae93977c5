package memory

import (
	"context"
	"fmt"
)

// CaseStore persists historical case texts keyed by a 1-based sequential id.
// Index positions are 0-based, so a neighbour at index position i maps to the
// stored case with id i+1.
type CaseStore interface {
	Insert(ctx context.Context, text string) (int64, error)
	Get(ctx context.Context, id int64) (string, bool, error)
	Close() error
}

// NewCaseStore constructs the store named by cfg.Driver.
func NewCaseStore(cfg StoreConfig) (CaseStore, error) {
	switch cfg.Driver {
	case StoreSQLite:
		return NewSQLiteStore(cfg.Path)
	case StorePostgres:
		return NewPostgresStore(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("memory: unsupported store driver %q", cfg.Driver)
	}
}
