package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Health is a snapshot of one outbound dependency.
type Health struct {
	Name          string
	State         gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the breaker is closed.
func (h *Health) Healthy() bool {
	return h.State == gobreaker.StateClosed
}

// Status returns "ok", "degraded" or "down" for the breaker state.
func (h *Health) Status() string {
	switch h.State {
	case gobreaker.StateClosed:
		return "ok"
	case gobreaker.StateHalfOpen:
		return "degraded"
	default:
		return "down"
	}
}

// Registry tracks resilient clients for the readiness endpoint.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*entry
	now     func() time.Time
}

type entry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*entry), now: time.Now}
}

// Register adds or replaces a client.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = &entry{client: client}
}

// RecordSuccess marks a successful call.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.clients[name]; ok {
		now := r.now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure marks a failed call.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.clients[name]; ok {
		now := r.now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// Get returns the health of one client, or nil if unknown.
func (r *Registry) Get(name string) *Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.clients[name]
	if !ok {
		return nil
	}
	return e.health(name)
}

// All returns the health of every client ordered by name.
func (r *Registry) All() []*Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Health, 0, len(r.clients))
	for name, e := range r.clients {
		out = append(out, e.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *entry) health(name string) *Health {
	return &Health{
		Name:          name,
		State:         e.client.State(),
		Counts:        e.client.Counts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
