package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store bundles the database handle with the transaction helper shared by
// core operations. Every mutation that touches more than one row runs
// through RunTx so status changes and inventory deltas commit together.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// RunTx executes fn inside a database transaction, rolling back on any
// error. The transaction handle is passed explicitly to repository methods
// rather than being reached for as ambient state.
func (s *Store) RunTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
