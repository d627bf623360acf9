// Package userdevice manages the per-store allow-list of trusted scanner
// devices and the email-approval workflow for changing it.
//
// Device trust is shared across a store hierarchy: every operation resolves a
// branch store to its parent before touching the list.
package userdevice

import (
	"errors"
	"time"
)

// Domain errors.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRequestPending  = errors.New("a request for this device is already pending")
	ErrRequestNotFound = errors.New("request not found or already processed")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrDeviceExists    = errors.New("device already registered")
)

// Device statuses.
const (
	StatusActive = "active"
)

// Request types.
const (
	RequestAdd    = "add"
	RequestRemove = "remove"
)

// Request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// TokenLength is the length of an approval token.
const TokenLength = 32

// Device is a trusted scanner device of a parent store.
type Device struct {
	ID           int64      `json:"id"`
	StoreID      int64      `json:"store_id"`
	Hash         string     `json:"-"`
	Name         string     `json:"device_name"`
	UserAgent    string     `json:"user_agent,omitempty"`
	Status       string     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

// Request is an add or remove request awaiting an admin decision.
type Request struct {
	ID          int64
	StoreID     int64
	Hash        string
	DeviceName  string
	UserAgent   string
	Type        string
	Token       string
	Status      string
	RequestedAt time.Time
	ProcessedAt *time.Time
	ProcessedBy *string
}

// RegisterInput is a device registration from a scanner.
type RegisterInput struct {
	Fingerprint string
	DeviceName  string
	UserAgent   string
}

// RegisterResult is the outcome of Register. Exactly one of Registered,
// AlreadyRegistered and LimitReached is true.
type RegisterResult struct {
	Registered        bool
	AlreadyRegistered bool
	LimitReached      bool
	DeviceCount       int
	MaxDevices        int
	Device            *Device
}

// Decision is the outcome of approving or rejecting a request.
type Decision struct {
	Request *Request
	// Applied reports whether the allow-list changed.
	Applied bool
}
