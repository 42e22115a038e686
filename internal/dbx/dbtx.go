// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// helpers to run functions inside a transaction, and the Postgres
// transaction-scoped primitives (RLS identity claim, advisory locks) the
// authorization and ordering code relies on.
package dbx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
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
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
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
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// WithIdentityTx is WithTx with the row-level security claim set for the
// lifetime of the transaction. An empty profileID runs the transaction as the
// anonymous caller, so only the public policies match.
func WithIdentityTx(ctx context.Context, db *sql.DB, profileID string, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		if err := SetIdentity(ctx, tx, profileID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

// SetIdentity sets common.ProfileIDSetting and switches to the matching
// database role, both local to the current transaction. Row-level security
// policies are written against those roles.
func SetIdentity(ctx context.Context, tx DBTX, profileID string) error {
	role := common.AuthenticatedRole
	if profileID == "" {
		role = common.AnonRole
	}
	q := `SELECT set_config($1, $2, true), set_config('role', $3, true)`
	if _, err := tx.ExecContext(ctx, q, common.ProfileIDSetting, profileID, role); err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	return nil
}

// AdvisoryXactLock takes a transaction-scoped advisory lock on key. The lock
// is released automatically at commit or rollback.
func AdvisoryXactLock(ctx context.Context, tx DBTX, key string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}
