package models

import (
	"strings"
	"time"
)

// UserDeviceRequest identifies a scanner device of the session store.
type UserDeviceRequest struct {
	Fingerprint string `json:"fingerprint"`
	DeviceName  string `json:"device_name"`
}

// Validate checks the device request.
func (r UserDeviceRequest) Validate() []FieldError {
	if strings.TrimSpace(r.Fingerprint) == "" {
		return []FieldError{required("fingerprint")}
	}
	return nil
}

// UserDeviceRegisterResponse is the outcome of a device registration.
type UserDeviceRegisterResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AlreadyRegistered bool   `json:"already_registered,omitempty"`
	LimitReached      bool   `json:"limit_reached,omitempty"`
	DeviceCount       int    `json:"device_count"`
	MaxDevices        int    `json:"max_devices"`
}

// UserDeviceRemoveRequest asks for a device to be removed.
type UserDeviceRemoveRequest struct {
	DeviceID int64 `json:"device_id"`
}

// Validate checks the removal request.
func (r UserDeviceRemoveRequest) Validate() []FieldError {
	if r.DeviceID <= 0 {
		return []FieldError{{Field: "device_id", Message: "device_id must be a positive integer", Code: "INVALID"}}
	}
	return nil
}

// UserDevice is a trusted device as listed to the store.
type UserDevice struct {
	ID           int64      `json:"id"`
	DeviceName   string     `json:"device_name"`
	UserAgent    string     `json:"user_agent,omitempty"`
	Status       string     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

// UserDeviceListResponse lists the active devices of the store.
type UserDeviceListResponse struct {
	Success    bool         `json:"success"`
	Devices    []UserDevice `json:"devices"`
	MaxDevices int          `json:"max_devices"`
}

// UserDeviceCheckResponse reports whether a device is trusted.
type UserDeviceCheckResponse struct {
	Success bool `json:"success"`
	Trusted bool `json:"trusted"`
}
