package models

import (
	"regexp"
	"strings"
	"time"
)

var fingerprintHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// AdminSessionRequest opens an admin session.
type AdminSessionRequest struct {
	AdminKey string `json:"admin_key"`
}

// BlockDeviceRequest adds a device to the blocklist.
type BlockDeviceRequest struct {
	FingerprintHash string `json:"fingerprint_hash"`
	Reason          string `json:"reason"`
}

// Validate checks the block request.
func (r BlockDeviceRequest) Validate() []FieldError {
	hash := strings.ToLower(strings.TrimSpace(r.FingerprintHash))
	if hash == "" {
		return []FieldError{required("fingerprint_hash")}
	}
	if !fingerprintHashPattern.MatchString(hash) {
		return []FieldError{{Field: "fingerprint_hash", Message: "fingerprint_hash must be a sha256 hex digest", Code: "INVALID"}}
	}
	return nil
}

// BlockedDevice is a blocklist entry.
type BlockedDevice struct {
	FingerprintHash string    `json:"fingerprint_hash"`
	Reason          string    `json:"reason"`
	BlockedBy       int64     `json:"blocked_by"`
	BlockedAt       time.Time `json:"blocked_at"`
}

// BlockedDeviceListResponse lists the blocklist.
type BlockedDeviceListResponse struct {
	Success bool            `json:"success"`
	Devices []BlockedDevice `json:"devices"`
}
