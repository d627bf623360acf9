package userdevice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punktepass/punktepass/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const deviceColumns = `id, store_id, fingerprint_hash, device_name, user_agent, status, registered_at, last_used_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.StoreID, &d.Hash, &d.Name, &d.UserAgent, &d.Status, &d.RegisteredAt, &d.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindDevice returns the active device with hash in storeID.
func (r *PostgresRepository) FindDevice(ctx context.Context, storeID int64, hash string) (*Device, error) {
	return scanDevice(r.pool.QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM user_devices
		WHERE store_id = $1 AND fingerprint_hash = $2 AND status = 'active'
	`, storeID, hash))
}

// GetDevice returns an active device by id within storeID.
func (r *PostgresRepository) GetDevice(ctx context.Context, storeID, deviceID int64) (*Device, error) {
	return scanDevice(r.pool.QueryRow(ctx, `
		SELECT `+deviceColumns+`
		FROM user_devices
		WHERE id = $1 AND store_id = $2 AND status = 'active'
	`, deviceID, storeID))
}

// CountActive returns the number of active devices in storeID.
func (r *PostgresRepository) CountActive(ctx context.Context, storeID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_devices WHERE store_id = $1 AND status = 'active'`, storeID,
	).Scan(&count)
	return count, err
}

// ListActive returns the active devices of storeID, oldest first.
func (r *PostgresRepository) ListActive(ctx context.Context, storeID int64) ([]*Device, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+deviceColumns+`
		FROM user_devices
		WHERE store_id = $1 AND status = 'active'
		ORDER BY registered_at, id
	`, storeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Device, error) {
		return scanDevice(row)
	})
}

// InsertWithinLimit serialises inserts per store with a transaction-scoped
// advisory lock so the cap holds under concurrent registrations.
func (r *PostgresRepository) InsertWithinLimit(ctx context.Context, d *Device, limit int) (bool, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockKey := fmt.Sprintf("user_devices:%d", d.StoreID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return false, 0, fmt.Errorf("lock devices: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_devices WHERE store_id = $1 AND status = 'active'`, d.StoreID,
	).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("count devices: %w", err)
	}
	if count >= limit {
		return false, count, nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO user_devices (store_id, fingerprint_hash, device_name, user_agent, status, registered_at, last_used_at)
		VALUES ($1, $2, $3, $4, 'active', $5, $5)
		RETURNING id
	`, d.StoreID, d.Hash, d.Name, d.UserAgent, d.RegisteredAt).Scan(&d.ID)
	if database.IsUniqueViolation(err) {
		return false, count, ErrDeviceExists
	}
	if err != nil {
		return false, count, fmt.Errorf("insert device: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, count, fmt.Errorf("commit: %w", err)
	}

	d.Status = StatusActive
	d.LastUsedAt = &d.RegisteredAt
	return true, count, nil
}

// Touch sets last_used_at on the active device with hash.
func (r *PostgresRepository) Touch(ctx context.Context, storeID int64, hash string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_devices SET last_used_at = $3
		WHERE store_id = $1 AND fingerprint_hash = $2 AND status = 'active'
	`, storeID, hash, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CreateRequest stores a pending request.
func (r *PostgresRepository) CreateRequest(ctx context.Context, req *Request) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO device_requests
			(store_id, fingerprint_hash, device_name, user_agent, request_type, approval_token, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
		RETURNING id
	`, req.StoreID, req.Hash, req.DeviceName, req.UserAgent, req.Type, req.Token, req.RequestedAt).Scan(&req.ID)
	if database.IsUniqueViolation(err) {
		return ErrRequestPending
	}
	if err != nil {
		return err
	}
	req.Status = RequestPending
	return nil
}

// Resolve transitions a pending request and applies its effect in one transaction.
func (r *PostgresRepository) Resolve(ctx context.Context, token, status, processedBy string, at time.Time) (*Decision, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var req Request
	err = tx.QueryRow(ctx, `
		UPDATE device_requests
		SET status = $2, processed_at = $3, processed_by = $4
		WHERE approval_token = $1 AND status = 'pending'
		RETURNING id, store_id, fingerprint_hash, device_name, user_agent, request_type,
		          approval_token, status, requested_at, processed_at, processed_by
	`, token, status, at, processedBy).Scan(
		&req.ID, &req.StoreID, &req.Hash, &req.DeviceName, &req.UserAgent, &req.Type,
		&req.Token, &req.Status, &req.RequestedAt, &req.ProcessedAt, &req.ProcessedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}

	decision := &Decision{Request: &req}
	if status == RequestApproved {
		var affected int64
		switch req.Type {
		case RequestAdd:
			tag, err := tx.Exec(ctx, `
				INSERT INTO user_devices (store_id, fingerprint_hash, device_name, user_agent, status, registered_at)
				VALUES ($1, $2, $3, $4, 'active', $5)
				ON CONFLICT (store_id, fingerprint_hash)
				DO UPDATE SET status = 'active', device_name = EXCLUDED.device_name, user_agent = EXCLUDED.user_agent
			`, req.StoreID, req.Hash, req.DeviceName, req.UserAgent, at)
			if err != nil {
				return nil, fmt.Errorf("add device: %w", err)
			}
			affected = tag.RowsAffected()
		case RequestRemove:
			tag, err := tx.Exec(ctx,
				`DELETE FROM user_devices WHERE store_id = $1 AND fingerprint_hash = $2`, req.StoreID, req.Hash)
			if err != nil {
				return nil, fmt.Errorf("remove device: %w", err)
			}
			affected = tag.RowsAffected()
		}
		decision.Applied = affected > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return decision, nil
}

var _ Repository = (*PostgresRepository)(nil)
