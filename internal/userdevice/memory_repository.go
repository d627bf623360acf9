package userdevice

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository for tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	devices   map[int64]*Device
	requests  map[string]*Request
	nextDevID int64
	nextReqID int64
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices:  make(map[int64]*Device),
		requests: make(map[string]*Request),
	}
}

func (r *InMemoryRepository) findLocked(storeID int64, hash string) *Device {
	for _, d := range r.devices {
		if d.StoreID == storeID && d.Hash == hash && d.Status == StatusActive {
			return d
		}
	}
	return nil
}

func (r *InMemoryRepository) countLocked(storeID int64) int {
	n := 0
	for _, d := range r.devices {
		if d.StoreID == storeID && d.Status == StatusActive {
			n++
		}
	}
	return n
}

// FindDevice returns the active device with hash in storeID.
func (r *InMemoryRepository) FindDevice(_ context.Context, storeID int64, hash string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := r.findLocked(storeID, hash)
	if d == nil {
		return nil, ErrDeviceNotFound
	}
	c := *d
	return &c, nil
}

// GetDevice returns an active device by id within storeID.
func (r *InMemoryRepository) GetDevice(_ context.Context, storeID, deviceID int64) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[deviceID]
	if !ok || d.StoreID != storeID || d.Status != StatusActive {
		return nil, ErrDeviceNotFound
	}
	c := *d
	return &c, nil
}

// CountActive returns the number of active devices in storeID.
func (r *InMemoryRepository) CountActive(_ context.Context, storeID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(storeID), nil
}

// ListActive returns the active devices of storeID, oldest first.
func (r *InMemoryRepository) ListActive(_ context.Context, storeID int64) ([]*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Device, 0)
	for _, d := range r.devices {
		if d.StoreID == storeID && d.Status == StatusActive {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertWithinLimit inserts d if the store is under limit.
func (r *InMemoryRepository) InsertWithinLimit(_ context.Context, d *Device, limit int) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.countLocked(d.StoreID)
	if count >= limit {
		return false, count, nil
	}
	if r.findLocked(d.StoreID, d.Hash) != nil {
		return false, count, ErrDeviceExists
	}

	r.nextDevID++
	d.ID = r.nextDevID
	d.Status = StatusActive
	d.LastUsedAt = &d.RegisteredAt
	c := *d
	r.devices[d.ID] = &c
	return true, count, nil
}

// Touch sets last_used_at on the active device with hash.
func (r *InMemoryRepository) Touch(_ context.Context, storeID int64, hash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.findLocked(storeID, hash)
	if d == nil {
		return false, nil
	}
	d.LastUsedAt = &at
	return true, nil
}

// CreateRequest stores a pending request.
func (r *InMemoryRepository) CreateRequest(_ context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.requests {
		if existing.Status == RequestPending &&
			existing.StoreID == req.StoreID &&
			existing.Hash == req.Hash &&
			existing.Type == req.Type {
			return ErrRequestPending
		}
	}

	r.nextReqID++
	req.ID = r.nextReqID
	req.Status = RequestPending
	c := *req
	r.requests[req.Token] = &c
	return nil
}

// Resolve transitions a pending request and applies its effect.
func (r *InMemoryRepository) Resolve(_ context.Context, token, status, processedBy string, at time.Time) (*Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[token]
	if !ok || req.Status != RequestPending {
		return nil, ErrRequestNotFound
	}

	req.Status = status
	req.ProcessedAt = &at
	req.ProcessedBy = &processedBy

	decision := &Decision{}
	if status == RequestApproved {
		switch req.Type {
		case RequestAdd:
			if d := r.findLocked(req.StoreID, req.Hash); d != nil {
				d.Name = req.DeviceName
				d.UserAgent = req.UserAgent
			} else {
				r.nextDevID++
				r.devices[r.nextDevID] = &Device{
					ID:           r.nextDevID,
					StoreID:      req.StoreID,
					Hash:         req.Hash,
					Name:         req.DeviceName,
					UserAgent:    req.UserAgent,
					Status:       StatusActive,
					RegisteredAt: at,
				}
			}
			decision.Applied = true
		case RequestRemove:
			for id, d := range r.devices {
				if d.StoreID == req.StoreID && d.Hash == req.Hash {
					delete(r.devices, id)
					decision.Applied = true
				}
			}
		}
	}

	c := *req
	decision.Request = &c
	return decision, nil
}

// Request returns a copy of the request with token, if any.
func (r *InMemoryRepository) Request(token string) (*Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[token]
	if !ok {
		return nil, false
	}
	c := *req
	return &c, true
}

var _ Repository = (*InMemoryRepository)(nil)
