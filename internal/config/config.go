// Package config provides the tunable limits for scan admission and device trust.
package config

import (
	"os"
	"strconv"
	"time"
)

// Limits holds the anti-abuse thresholds shared by the scan and device packages.
type Limits struct {
	// MaxAccountsPerDevice is the number of distinct accounts one device
	// fingerprint may register before the guard reports allowed=false.
	MaxAccountsPerDevice int

	// MaxDevicesPerStore is the number of active trusted scanner devices per
	// parent store. Adding more requires an approved device request.
	MaxDevicesPerStore int

	// RateLimitScans is the number of scan-derived point awards allowed per
	// user and store within RateLimitWindow.
	RateLimitScans int

	// RateLimitWindow is the rolling admission window.
	RateLimitWindow time.Duration

	// OfflineDedupWindow is the trailing window used to detect replayed
	// offline scans, measured from reconciliation time.
	OfflineDedupWindow time.Duration

	// AtomicAccountLimit makes device registration enforce the account limit
	// inside the storage operation instead of treating it as advisory.
	AtomicAccountLimit bool
}

// DefaultLimits returns the production defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxAccountsPerDevice: 2,
		MaxDevicesPerStore:   2,
		RateLimitScans:       1,
		RateLimitWindow:      24 * time.Hour,
		OfflineDedupWindow:   2 * time.Minute,
		AtomicAccountLimit:   false,
	}
}

// LimitsFromEnv creates Limits from environment variables, falling back to
// DefaultLimits for anything unset or unparsable.
func LimitsFromEnv() Limits {
	l := DefaultLimits()

	l.MaxAccountsPerDevice = getEnvInt("MAX_ACCOUNTS_PER_DEVICE", l.MaxAccountsPerDevice)
	l.MaxDevicesPerStore = getEnvInt("MAX_DEVICES_PER_USER", l.MaxDevicesPerStore)
	l.RateLimitScans = getEnvInt("RATE_LIMIT_SCANS", l.RateLimitScans)
	l.RateLimitWindow = getEnvSeconds("RATE_LIMIT_WINDOW", l.RateLimitWindow)
	l.OfflineDedupWindow = getEnvSeconds("OFFLINE_DEDUP_WINDOW", l.OfflineDedupWindow)
	l.AtomicAccountLimit = os.Getenv("DEVICE_LIMIT_ATOMIC") == "true"

	return l
}

// GetEnvOrDefault returns the value of key, or defaultValue when unset.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// getEnvSeconds accepts either a bare number of seconds ("86400") or a Go
// duration string ("24h").
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
