package models

import (
	"strings"
	"time"
)

// POSSessionRequest opens a session for a POS terminal.
type POSSessionRequest struct {
	StoreKey string `json:"store_key"`
	POSToken string `json:"pos_token"`
}

// Validate checks the session request.
func (r POSSessionRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.StoreKey) == "" {
		errs = append(errs, required("store_key"))
	}
	if strings.TrimSpace(r.POSToken) == "" {
		errs = append(errs, required("pos_token"))
	}
	return errs
}

// SessionResponse carries a signed session token.
type SessionResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	StoreID   int64     `json:"store_id,omitempty"`
}

// ScanRequest is a live QR scan at a POS terminal.
type ScanRequest struct {
	QR       string `json:"qr"`
	StoreKey string `json:"store_key"`
}

// Validate checks the scan request.
func (r ScanRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.QR) == "" {
		errs = append(errs, required("qr"))
	}
	if strings.TrimSpace(r.StoreKey) == "" {
		errs = append(errs, required("store_key"))
	}
	return errs
}

// ScanResponse is returned for an accepted scan.
type ScanResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	UserID  int64     `json:"user_id"`
	StoreID int64     `json:"store_id"`
	Points  int       `json:"points"`
	Time    time.Time `json:"time"`
}

// OfflineScanItem is one scan buffered while the terminal was offline.
type OfflineScanItem struct {
	QR       string `json:"qr"`
	StoreKey string `json:"store_key"`
}

// SyncOfflineRequest uploads buffered scans.
type SyncOfflineRequest struct {
	Scans []OfflineScanItem `json:"scans"`
}

// SkippedScan explains why an uploaded scan was not recorded.
type SkippedScan struct {
	Index  int    `json:"index"`
	QR     string `json:"qr"`
	Reason string `json:"reason"`
}

// SyncOfflineResponse summarises an offline upload.
type SyncOfflineResponse struct {
	Success        bool          `json:"success"`
	Synced         int           `json:"synced"`
	Duplicates     []string      `json:"duplicates"`
	DuplicateCount int           `json:"duplicate_count"`
	Skipped        []SkippedScan `json:"skipped"`
}
