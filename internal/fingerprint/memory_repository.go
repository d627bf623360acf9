package fingerprint

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []*Record
	blocked map[string]*BlockedDevice
	nextID  int64

	// Lookups counts repository reads, letting tests assert that fail-open
	// paths never touch storage.
	Lookups int
}

// NewInMemoryRepository creates a new in-memory fingerprint repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{blocked: make(map[string]*BlockedDevice)}
}

// IsBlocked reports whether hash is on the blocklist.
func (r *InMemoryRepository) IsBlocked(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lookups++
	_, ok := r.blocked[hash]
	return ok, nil
}

// CountAccounts returns the number of distinct user ids registered with hash.
func (r *InMemoryRepository) CountAccounts(_ context.Context, hash string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lookups++
	count, _ := r.countLocked(hash, 0)
	return count, nil
}

func (r *InMemoryRepository) countLocked(hash string, userID int64) (int, bool) {
	users := make(map[int64]struct{})
	for _, rec := range r.records {
		if rec.Hash == hash {
			users[rec.UserID] = struct{}{}
		}
	}
	_, known := users[userID]
	return len(users), known
}

// Insert records a registration unconditionally.
func (r *InMemoryRepository) Insert(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(rec)
	return nil
}

func (r *InMemoryRepository) insertLocked(rec *Record) {
	r.nextID++
	rec.ID = r.nextID
	c := *rec
	r.records = append(r.records, &c)
}

// TryRegisterWithLimit records a registration if the limit allows it.
func (r *InMemoryRepository) TryRegisterWithLimit(_ context.Context, rec *Record, limit int) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, known := r.countLocked(rec.Hash, rec.UserID)
	if !known && count >= limit {
		return false, count, nil
	}
	r.insertLocked(rec)
	if !known {
		count++
	}
	return true, count, nil
}

// Block adds hash to the blocklist.
func (r *InMemoryRepository) Block(_ context.Context, b *BlockedDevice) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocked[b.Hash]; ok {
		return false, nil
	}
	c := *b
	r.blocked[b.Hash] = &c
	return true, nil
}

// Unblock removes hash from the blocklist.
func (r *InMemoryRepository) Unblock(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocked[hash]; !ok {
		return false, nil
	}
	delete(r.blocked, hash)
	return true, nil
}

// ListBlocked returns all blocklist entries, newest first.
func (r *InMemoryRepository) ListBlocked(_ context.Context) ([]*BlockedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*BlockedDevice, 0, len(r.blocked))
	for _, b := range r.blocked {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockedAt.After(out[j].BlockedAt) })
	return out, nil
}

// Records returns the number of stored registration rows.
func (r *InMemoryRepository) Records() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

var _ Repository = (*InMemoryRepository)(nil)
