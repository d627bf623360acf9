// Package auditlog records the append-only trail of scans, registrations and
// admin actions.
package auditlog

import (
	"context"
	"time"
)

// Entry types.
const (
	TypeScan          = "scan"
	TypeOfflineSync   = "offline_sync"
	TypeFingerprint   = "fingerprint"
	TypeDevice        = "device"
	TypeDeviceRequest = "device_request"
	TypeAdmin         = "admin"
)

// Entry is a single audit log row.
type Entry struct {
	ID        int64
	StoreID   int64
	UserID    *int64
	Message   string
	Type      string
	CreatedAt time.Time
}

// Repository defines the interface for audit log persistence.
type Repository interface {
	// Append inserts a new entry.
	Append(ctx context.Context, entry *Entry) error

	// ListByStore returns the most recent entries for a store, newest first.
	ListByStore(ctx context.Context, storeID int64, limit int) ([]*Entry, error)
}
