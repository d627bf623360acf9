// Package scan awards loyalty points for QR scans: it decodes customer QR
// payloads, admits scans through a per user and store rolling window, and
// reconciles batches of scans captured while a POS terminal was offline.
package scan

import (
	"errors"
	"fmt"
	"time"
)

// Ledger event types.
const (
	TypeQRScan     = "qr_scan"
	TypePOSOffline = "pos_offline"
)

// PointsPerScan is the award for one admitted scan.
const PointsPerScan = 1

// ErrRateLimited is returned when a scan is denied by the admission window.
var ErrRateLimited = errors.New("scan rate limit exceeded")

// RateLimitError carries the instant after which the scan may be retried.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAt.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Event is an append-only ledger row.
type Event struct {
	ID        int64
	UserID    int64
	StoreID   int64
	Points    int
	Type      string
	Reference *string
	CreatedAt time.Time
}

// InsertOutcome reports what a conditional ledger insert did.
type InsertOutcome struct {
	Inserted bool
	// Count is the number of rows in the window before the insert.
	Count int
	// Oldest is the creation time of the oldest row in the window, zero when
	// the window was empty.
	Oldest time.Time
}

// ScanInput is a single online scan request.
type ScanInput struct {
	QR       string
	StoreKey string
}

// ScanResult is the outcome of an admitted scan.
type ScanResult struct {
	UserID  int64
	StoreID int64
	Points  int
	Time    time.Time
}

// OfflineScan is one scan captured while the terminal was offline.
type OfflineScan struct {
	QR       string
	StoreKey string
}

// SkipReason tags why an offline scan was not synced.
type SkipReason string

const (
	SkipEmpty        SkipReason = "empty"
	SkipUnknownStore SkipReason = "unknown_store"
	SkipInvalidQR    SkipReason = "invalid_qr"
	SkipDuplicate    SkipReason = "duplicate"
	SkipStorageError SkipReason = "storage_error"
)

// SkippedScan describes an offline scan that was not synced.
type SkippedScan struct {
	Index  int
	QR     string
	Reason SkipReason
}

// SyncResult summarises an offline sync batch.
type SyncResult struct {
	Synced         int
	Duplicates     []string
	DuplicateCount int
	Skipped        []SkippedScan
}
