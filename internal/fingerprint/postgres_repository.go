package fingerprint

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL fingerprint repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// IsBlocked reports whether hash is on the blocklist.
func (r *PostgresRepository) IsBlocked(ctx context.Context, hash string) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_devices WHERE fingerprint_hash = $1)`, hash,
	).Scan(&blocked)
	return blocked, err
}

// CountAccounts returns the number of distinct user ids registered with hash.
func (r *PostgresRepository) CountAccounts(ctx context.Context, hash string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM device_fingerprints WHERE fingerprint_hash = $1`, hash,
	).Scan(&count)
	return count, err
}

const insertRecord = `
	INSERT INTO device_fingerprints (fingerprint_hash, user_id, ip, user_agent, components, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
`

// Insert records a registration unconditionally.
func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	return r.pool.QueryRow(ctx, insertRecord, recordArgs(rec)...).Scan(&rec.ID)
}

// TryRegisterWithLimit serialises registrations per hash with a
// transaction-scoped advisory lock so concurrent callers cannot both pass the
// count check.
func (r *PostgresRepository) TryRegisterWithLimit(ctx context.Context, rec *Record, limit int) (bool, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, rec.Hash); err != nil {
		return false, 0, fmt.Errorf("lock fingerprint: %w", err)
	}

	var count int
	var known bool
	err = tx.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_id), COALESCE(bool_or(user_id = $2), false)
		FROM device_fingerprints
		WHERE fingerprint_hash = $1
	`, rec.Hash, rec.UserID).Scan(&count, &known)
	if err != nil {
		return false, 0, fmt.Errorf("count accounts: %w", err)
	}

	if !known && count >= limit {
		return false, count, nil
	}

	if err := tx.QueryRow(ctx, insertRecord, recordArgs(rec)...).Scan(&rec.ID); err != nil {
		return false, count, fmt.Errorf("insert fingerprint: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, count, fmt.Errorf("commit: %w", err)
	}

	if !known {
		count++
	}
	return true, count, nil
}

func recordArgs(rec *Record) []any {
	var components any
	if len(rec.Components) > 0 {
		components = []byte(rec.Components)
	}
	return []any{rec.Hash, rec.UserID, rec.IP, rec.UserAgent, components, rec.CreatedAt}
}

// Block adds hash to the blocklist.
func (r *PostgresRepository) Block(ctx context.Context, b *BlockedDevice) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO blocked_devices (fingerprint_hash, reason, blocked_by, blocked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint_hash) DO NOTHING
	`, b.Hash, b.Reason, b.BlockedBy, b.BlockedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Unblock removes hash from the blocklist.
func (r *PostgresRepository) Unblock(ctx context.Context, hash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_devices WHERE fingerprint_hash = $1`, hash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListBlocked returns all blocklist entries, newest first.
func (r *PostgresRepository) ListBlocked(ctx context.Context) ([]*BlockedDevice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT fingerprint_hash, reason, blocked_by, blocked_at
		FROM blocked_devices
		ORDER BY blocked_at DESC
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*BlockedDevice, error) {
		var b BlockedDevice
		err := row.Scan(&b.Hash, &b.Reason, &b.BlockedBy, &b.BlockedAt)
		return &b, err
	})
}

var _ Repository = (*PostgresRepository)(nil)
