package scan

import (
	"context"
	"time"
)

// Ledger defines the interface for point ledger persistence.
type Ledger interface {
	// CountSince returns the number of rows for (userID, storeID) created at
	// or after since.
	CountSince(ctx context.Context, userID, storeID int64, since time.Time) (int, error)

	// InsertWithinLimit inserts ev only if fewer than limit rows exist for
	// (ev.UserID, ev.StoreID) created at or after since. The count and insert
	// are atomic with respect to other calls for the same user and store.
	InsertWithinLimit(ctx context.Context, ev *Event, since time.Time, limit int) (InsertOutcome, error)
}
