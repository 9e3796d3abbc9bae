// Package dbx provides the small DB abstractions shared by repositories:
// DBTX, implemented by both *sql.DB and *sql.Tx, and WithTx, which runs a
// unit of work inside a single transaction.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrBegin marks a failure to open the transaction: the store is
	// unreachable and nothing was executed.
	ErrBegin = errors.New("begin transaction")
	// ErrCommit marks a failure of the final COMMIT.
	ErrCommit = errors.New("commit transaction")
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    votes := manager.Votes(tx)
//	    ...
//	})
//
// Begin and commit failures are wrapped with ErrBegin and ErrCommit so callers
// can tell an unreachable store from a failed unit of work.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBegin, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrCommit, cerr)
		}
	}()

	err = fn(ctx, tx)
	return err
}
