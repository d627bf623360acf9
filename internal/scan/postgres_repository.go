package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger is a PostgreSQL implementation of Ledger.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger creates a new PostgreSQL ledger.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// CountSince returns the number of rows for (userID, storeID) since the given time.
func (l *PostgresLedger) CountSince(ctx context.Context, userID, storeID int64, since time.Time) (int, error) {
	var count int
	err := l.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM points
		WHERE user_id = $1 AND store_id = $2 AND created_at >= $3
	`, userID, storeID, since).Scan(&count)
	return count, err
}

// InsertWithinLimit takes a transaction-scoped advisory lock on the
// (user, store) pair, so concurrent scans for the same pair are serialised
// between the window count and the insert.
func (l *PostgresLedger) InsertWithinLimit(ctx context.Context, ev *Event, since time.Time, limit int) (InsertOutcome, error) {
	var out InsertOutcome

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return out, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockKey := fmt.Sprintf("points:%d:%d", ev.UserID, ev.StoreID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return out, fmt.Errorf("lock ledger: %w", err)
	}

	var oldest *time.Time
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM points
		WHERE user_id = $1 AND store_id = $2 AND created_at >= $3
	`, ev.UserID, ev.StoreID, since).Scan(&out.Count, &oldest)
	if err != nil {
		return out, fmt.Errorf("count window: %w", err)
	}
	if oldest != nil {
		out.Oldest = *oldest
	}

	if out.Count >= limit {
		return out, nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO points (user_id, store_id, points, type, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, ev.UserID, ev.StoreID, ev.Points, ev.Type, ev.Reference, ev.CreatedAt).Scan(&ev.ID)
	if err != nil {
		return out, fmt.Errorf("insert points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("commit: %w", err)
	}

	out.Inserted = true
	return out, nil
}

var _ Ledger = (*PostgresLedger)(nil)
