// Package fingerprint limits how many consumer accounts may be created from
// one physical device and maintains the device blocklist.
package fingerprint

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors returned by the fingerprint service.
var (
	ErrInvalidInput        = errors.New("invalid fingerprint input")
	ErrDeviceBlocked       = errors.New("device is blocked")
	ErrAccountLimitReached = errors.New("account limit reached for device")
)

// Record is one account registration observed from a device.
type Record struct {
	ID         int64
	Hash       string
	UserID     int64
	IP         string
	UserAgent  string
	Components json.RawMessage
	CreatedAt  time.Time
}

// BlockedDevice is an admin blocklist entry.
type BlockedDevice struct {
	Hash      string
	Reason    string
	BlockedBy int64
	BlockedAt time.Time
}

// LimitResult is the outcome of an account-limit check.
type LimitResult struct {
	Allowed  bool
	Blocked  bool
	Accounts int
	Limit    int
}

// RegisterInput describes an account registration from a device.
type RegisterInput struct {
	UserID      int64
	Fingerprint string
	IP          string
	UserAgent   string
	Components  json.RawMessage
}

// RegisterResult is the outcome of recording a registration.
type RegisterResult struct {
	Accepted bool
	Accounts int
	Limit    int
}
