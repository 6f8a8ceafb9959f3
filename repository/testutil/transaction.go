package testutil

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// InTx runs fn against a fresh transaction on the test database, committing
// only when fn succeeds
func (tdb *TestDatabase) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := tdb.DB.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
