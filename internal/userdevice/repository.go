package userdevice

import (
	"context"
	"time"
)

// Repository defines storage for trusted devices and device requests.
type Repository interface {
	// FindDevice returns the active device with hash in storeID, or ErrDeviceNotFound.
	FindDevice(ctx context.Context, storeID int64, hash string) (*Device, error)

	// GetDevice returns an active device by id within storeID, or ErrDeviceNotFound.
	GetDevice(ctx context.Context, storeID, deviceID int64) (*Device, error)

	// CountActive returns the number of active devices in storeID.
	CountActive(ctx context.Context, storeID int64) (int, error)

	// ListActive returns the active devices of storeID, oldest first.
	ListActive(ctx context.Context, storeID int64) ([]*Device, error)

	// InsertWithinLimit inserts d as active if storeID has fewer than limit
	// active devices. It returns whether the row was inserted and the active
	// count before the insert. An active row for the same hash yields
	// ErrDeviceExists.
	InsertWithinLimit(ctx context.Context, d *Device, limit int) (bool, int, error)

	// Touch sets last_used_at on the active device with hash. It reports
	// whether a device matched.
	Touch(ctx context.Context, storeID int64, hash string, at time.Time) (bool, error)

	// CreateRequest stores a pending request. A pending request for the same
	// store, hash and type yields ErrRequestPending.
	CreateRequest(ctx context.Context, req *Request) error

	// Resolve moves the pending request with token to status and applies its
	// effect in one step. A token that is unknown or not pending yields
	// ErrRequestNotFound and changes nothing.
	Resolve(ctx context.Context, token, status, processedBy string, at time.Time) (*Decision, error)
}
