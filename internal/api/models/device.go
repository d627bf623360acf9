package models

import (
	"encoding/json"
	"strings"
)

// DeviceCheckRequest asks whether another account may be created from a device.
type DeviceCheckRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// DeviceCheckResponse is the account-limit verdict for a device.
type DeviceCheckResponse struct {
	Allowed  bool `json:"allowed"`
	Blocked  bool `json:"blocked"`
	Accounts int  `json:"accounts"`
	Limit    int  `json:"limit"`
}

// DeviceRegisterRequest records an account registration from a device.
type DeviceRegisterRequest struct {
	Fingerprint string          `json:"fingerprint"`
	UserID      int64           `json:"user_id"`
	Components  json.RawMessage `json:"components,omitempty"`
}

// Validate checks the registration request.
func (r DeviceRegisterRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Fingerprint) == "" {
		errs = append(errs, required("fingerprint"))
	}
	if r.UserID <= 0 {
		errs = append(errs, FieldError{Field: "user_id", Message: "user_id must be a positive integer", Code: "INVALID"})
	}
	return errs
}
