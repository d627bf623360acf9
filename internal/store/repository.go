package store

import "context"

// Repository defines the interface for store lookups. Stores are created
// outside this service and are read-only here.
type Repository interface {
	// GetByID retrieves a store by id.
	GetByID(ctx context.Context, id int64) (*Store, error)

	// GetByKey retrieves a store by its public store key.
	GetByKey(ctx context.Context, key string) (*Store, error)

	// GetByPOSToken retrieves a store by its POS terminal token.
	GetByPOSToken(ctx context.Context, token string) (*Store, error)
}
