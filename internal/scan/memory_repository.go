package scan

import (
	"context"
	"sync"
	"time"
)

// InMemoryLedger is an in-memory implementation of Ledger for tests.
type InMemoryLedger struct {
	mu     sync.RWMutex
	events []*Event
	nextID int64
}

// NewInMemoryLedger creates a new in-memory ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{}
}

// CountSince returns the number of rows for (userID, storeID) since the given time.
func (l *InMemoryLedger) CountSince(_ context.Context, userID, storeID int64, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count, _ := l.windowLocked(userID, storeID, since)
	return count, nil
}

func (l *InMemoryLedger) windowLocked(userID, storeID int64, since time.Time) (int, time.Time) {
	var (
		count  int
		oldest time.Time
	)
	for _, ev := range l.events {
		if ev.UserID != userID || ev.StoreID != storeID || ev.CreatedAt.Before(since) {
			continue
		}
		count++
		if oldest.IsZero() || ev.CreatedAt.Before(oldest) {
			oldest = ev.CreatedAt
		}
	}
	return count, oldest
}

// InsertWithinLimit inserts ev if the window allows it.
func (l *InMemoryLedger) InsertWithinLimit(_ context.Context, ev *Event, since time.Time, limit int) (InsertOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, oldest := l.windowLocked(ev.UserID, ev.StoreID, since)
	out := InsertOutcome{Count: count, Oldest: oldest}
	if count >= limit {
		return out, nil
	}

	l.insertLocked(ev)
	out.Inserted = true
	return out, nil
}

// Insert appends ev unconditionally. Tests use it to seed history.
func (l *InMemoryLedger) Insert(ev *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insertLocked(ev)
}

func (l *InMemoryLedger) insertLocked(ev *Event) {
	l.nextID++
	ev.ID = l.nextID
	c := *ev
	l.events = append(l.events, &c)
}

// Events returns a copy of all ledger rows in insertion order.
func (l *InMemoryLedger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, *ev)
	}
	return out
}

var _ Ledger = (*InMemoryLedger)(nil)
