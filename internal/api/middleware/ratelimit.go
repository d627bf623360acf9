package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/punktepass/punktepass/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// AuthRateLimit applies to session endpoints (10 req/min).
	AuthRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// DeviceRateLimit applies to the public fingerprint endpoints (30 req/min).
	DeviceRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// ScanRateLimit applies per IP to POS scan endpoints (120 req/min).
	ScanRateLimit = RateLimitConfig{
		RequestLimit: 120,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to standard endpoints (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware using client IP address.
// Uses X-Forwarded-For header if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler(cfg)),
	)
}

// RateLimitByStore creates a rate limiter middleware keyed by the session store.
// Falls back to IP-based rate limiting for requests without a session.
func RateLimitByStore(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByStoreOrIP),
		httprate.WithLimitHandler(rateLimitExceededHandler(cfg)),
	)
}

// keyByStoreOrIP returns the store id if a session is present, otherwise the client IP.
func keyByStoreOrIP(r *http.Request) (string, error) {
	if storeID := GetStoreID(r); storeID > 0 {
		return "store:" + strconv.FormatInt(storeID, 10), nil
	}
	return httprate.KeyByRealIP(r)
}

// rateLimitExceededHandler writes the error envelope when a limit is exceeded.
// httprate does not expose the reset time, so Retry-After is the full window.
func rateLimitExceededHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").Write(w)
	}
}
