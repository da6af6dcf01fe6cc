package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx executes fn within a RepeatableRead transaction. Every multi-row
// ledger mutation goes through here so partial application cannot survive a
// mid-flight failure.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// InvoiceNumberLockKey serializes invoice number allocation across concurrent
// creates. Taken as a pg_advisory_xact_lock inside the inserting transaction,
// released automatically at commit or rollback.
const InvoiceNumberLockKey = int64(7355608101)

// AcquireInvoiceNumberLock blocks until the allocation lock is held by tx.
func AcquireInvoiceNumberLock(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", InvoiceNumberLockKey); err != nil {
		return fmt.Errorf("platform/db: advisory lock: %w", err)
	}
	return nil
}
