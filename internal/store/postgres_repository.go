package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL store repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectStore = `
	SELECT id, store_key, pos_token, name, admin_email, parent_store_id
	FROM stores
`

// GetByID retrieves a store by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Store, error) {
	return r.scanStore(ctx, selectStore+` WHERE id = $1`, id)
}

// GetByKey retrieves a store by its public store key.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*Store, error) {
	return r.scanStore(ctx, selectStore+` WHERE store_key = $1`, key)
}

// GetByPOSToken retrieves a store by its POS terminal token.
func (r *PostgresRepository) GetByPOSToken(ctx context.Context, token string) (*Store, error) {
	return r.scanStore(ctx, selectStore+` WHERE pos_token = $1`, token)
}

func (r *PostgresRepository) scanStore(ctx context.Context, query string, args ...any) (*Store, error) {
	var s Store
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.Key,
		&s.POSToken,
		&s.Name,
		&s.AdminEmail,
		&s.ParentStoreID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ Repository = (*PostgresRepository)(nil)
