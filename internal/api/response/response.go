// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/punktepass/punktepass/internal/api/middleware"
	"github.com/punktepass/punktepass/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Message writes a {success, message} envelope.
func Message(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, models.MessageResponse{Success: status < http.StatusBadRequest, Message: message})
}

// HTML writes a rendered HTML page. The API-wide Content-Security-Policy is
// relaxed to allow the page's inline styles.
func HTML(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// PNG writes an image/png body.
func PNG(w http.ResponseWriter, r *http.Request, body []byte) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, _ *http.Request, err *models.ErrorResponse) {
	err.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// BadRequestCode writes a 400 error with a specific error code.
func BadRequestCode(w http.ResponseWriter, r *http.Request, code, detail string) {
	Error(w, r, models.NewError(http.StatusBadRequest, code, detail, middleware.GetRequestID(r.Context())))
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnauthorized(middleware.GetRequestID(r.Context()), detail))
}

// Forbidden writes a 403 error with the given code.
func Forbidden(w http.ResponseWriter, r *http.Request, code, detail string) {
	Error(w, r, models.NewError(http.StatusForbidden, code, detail, middleware.GetRequestID(r.Context())))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// Conflict writes a 409 Conflict error response.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewConflict(middleware.GetRequestID(r.Context()), detail))
}

// TooManyRequests writes a 429 Too Many Requests error response. A non-zero
// retryAt sets the Retry-After header in whole seconds, rounded up.
func TooManyRequests(w http.ResponseWriter, r *http.Request, detail string, retryAt time.Time) {
	if !retryAt.IsZero() {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(time.Now(), retryAt)))
	}
	Error(w, r, models.NewTooManyRequests(middleware.GetRequestID(r.Context()), detail))
}

// RetryAfterSeconds returns the whole seconds from now until retryAt, at least 1.
func RetryAfterSeconds(now, retryAt time.Time) int {
	secs := int(math.Ceil(retryAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}
