package auditlog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit log repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append inserts a new entry.
func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO scan_logs (store_id, user_id, message, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query,
		entry.StoreID,
		entry.UserID,
		entry.Message,
		entry.Type,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// ListByStore returns the most recent entries for a store, newest first.
func (r *PostgresRepository) ListByStore(ctx context.Context, storeID int64, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, store_id, user_id, message, type, created_at
		FROM scan_logs
		WHERE store_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StoreID, &e.UserID, &e.Message, &e.Type, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
