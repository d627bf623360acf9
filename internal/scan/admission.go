package scan

import (
	"context"
	"time"
)

// Admission is the rolling-window scan admission controller. It keeps no
// state of its own: the window is computed from the ledger on every call.
type Admission struct {
	ledger Ledger
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewAdmission creates an admission controller allowing limit scans per user
// and store within window.
func NewAdmission(ledger Ledger, limit int, window time.Duration) *Admission {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Admission{ledger: ledger, limit: limit, window: window, now: time.Now}
}

// Admit reports whether a scan for (userID, storeID) would currently be
// admitted. It writes nothing and records no audit entry.
func (a *Admission) Admit(ctx context.Context, userID, storeID int64) (bool, error) {
	count, err := a.ledger.CountSince(ctx, userID, storeID, a.now().Add(-a.window))
	if err != nil {
		return false, err
	}
	return count < a.limit, nil
}

// Record atomically admits and writes ev. When denied it returns a
// *RateLimitError whose RetryAt is when the oldest scan leaves the window.
func (a *Admission) Record(ctx context.Context, ev *Event) error {
	now := a.now()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}

	out, err := a.ledger.InsertWithinLimit(ctx, ev, now.Add(-a.window), a.limit)
	if err != nil {
		return err
	}
	if !out.Inserted {
		retryAt := now.Add(a.window)
		if !out.Oldest.IsZero() {
			retryAt = out.Oldest.Add(a.window)
		}
		return &RateLimitError{RetryAt: retryAt}
	}
	return nil
}

// Window returns the admission window.
func (a *Admission) Window() time.Duration {
	return a.window
}
