package store

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	stores map[int64]*Store
}

// NewInMemoryRepository creates a new in-memory store repository seeded with stores.
func NewInMemoryRepository(stores ...*Store) *InMemoryRepository {
	r := &InMemoryRepository{stores: make(map[int64]*Store)}
	for _, s := range stores {
		r.Put(s)
	}
	return r
}

// Put adds or replaces a store.
func (r *InMemoryRepository) Put(s *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.ID] = copyStore(s)
}

// GetByID retrieves a store by id.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[id]
	if !ok {
		return nil, ErrStoreNotFound
	}
	return copyStore(s), nil
}

// GetByKey retrieves a store by its public store key.
func (r *InMemoryRepository) GetByKey(_ context.Context, key string) (*Store, error) {
	return r.find(func(s *Store) bool { return s.Key == key })
}

// GetByPOSToken retrieves a store by its POS terminal token.
func (r *InMemoryRepository) GetByPOSToken(_ context.Context, token string) (*Store, error) {
	return r.find(func(s *Store) bool { return s.POSToken != nil && *s.POSToken == token })
}

func (r *InMemoryRepository) find(match func(*Store) bool) (*Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.stores {
		if match(s) {
			return copyStore(s), nil
		}
	}
	return nil, ErrStoreNotFound
}

func copyStore(s *Store) *Store {
	c := *s
	if s.POSToken != nil {
		v := *s.POSToken
		c.POSToken = &v
	}
	if s.AdminEmail != nil {
		v := *s.AdminEmail
		c.AdminEmail = &v
	}
	if s.ParentStoreID != nil {
		v := *s.ParentStoreID
		c.ParentStoreID = &v
	}
	return &c
}

var _ Repository = (*InMemoryRepository)(nil)
