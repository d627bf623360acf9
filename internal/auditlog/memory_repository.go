package auditlog

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry
	nextID  int64
}

// NewInMemoryRepository creates a new in-memory audit log.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Append inserts a new entry.
func (r *InMemoryRepository) Append(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

// ListByStore returns the most recent entries for a store, newest first.
func (r *InMemoryRepository) ListByStore(_ context.Context, storeID int64, limit int) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*Entry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].StoreID == storeID {
			c := *r.entries[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// Len returns the total number of entries.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

var _ Repository = (*InMemoryRepository)(nil)
