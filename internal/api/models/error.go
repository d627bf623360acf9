package models

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every API error. It keeps the success/message
// envelope POS clients already parse, plus a stable error code and trace id.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"error"`
	Status  int          `json:"-"`
	TraceID string       `json:"trace_id"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Error codes.
const (
	CodeValidation   = "validation_error"
	CodeInvalidQR    = "invalid_qr"
	CodeUnknownStore = "unknown_store"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeBlocked      = "device_blocked"
	CodeLimit        = "account_limit_reached"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
	CodeUnavailable  = "service_unavailable"
	CodeTLSRequired  = "tls_required"
	CodeMediaType    = "unsupported_media_type"
)

// NewError creates an ErrorResponse.
func NewError(status int, code, message, traceID string) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
		Status:  status,
		TraceID: traceID,
	}
}

// WithErrors adds field errors.
func (e *ErrorResponse) WithErrors(errors []FieldError) *ErrorResponse {
	e.Errors = errors
	return e
}

// Write writes the error as JSON.
func (e *ErrorResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if e.TraceID != "" {
		w.Header().Set("X-Request-Id", e.TraceID)
	}
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// NewBadRequest creates a 400 validation error.
func NewBadRequest(traceID, message string, errors []FieldError) *ErrorResponse {
	return NewError(http.StatusBadRequest, CodeValidation, message, traceID).WithErrors(errors)
}

// NewUnauthorized creates a 401 error.
func NewUnauthorized(traceID, message string) *ErrorResponse {
	return NewError(http.StatusUnauthorized, CodeUnauthorized, message, traceID)
}

// NewForbidden creates a 403 error.
func NewForbidden(traceID, message string) *ErrorResponse {
	return NewError(http.StatusForbidden, CodeForbidden, message, traceID)
}

// NewNotFound creates a 404 error.
func NewNotFound(traceID, message string) *ErrorResponse {
	return NewError(http.StatusNotFound, CodeNotFound, message, traceID)
}

// NewConflict creates a 409 error.
func NewConflict(traceID, message string) *ErrorResponse {
	return NewError(http.StatusConflict, CodeConflict, message, traceID)
}

// NewTooManyRequests creates a 429 error.
func NewTooManyRequests(traceID, message string) *ErrorResponse {
	return NewError(http.StatusTooManyRequests, CodeRateLimited, message, traceID)
}

// NewInternalError creates a 500 error.
func NewInternalError(traceID, message string) *ErrorResponse {
	return NewError(http.StatusInternalServerError, CodeInternal, message, traceID)
}

// NewServiceUnavailable creates a 503 error.
func NewServiceUnavailable(traceID, message string) *ErrorResponse {
	return NewError(http.StatusServiceUnavailable, CodeUnavailable, message, traceID)
}
