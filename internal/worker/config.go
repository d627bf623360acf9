// Package worker delivers device approval notices queued on Pub/Sub.
package worker

import (
	"strconv"
	"time"

	"github.com/punktepass/punktepass/internal/config"
)

// Config holds configuration for the approval mail worker.
type Config struct {
	// ProjectID is the Google Cloud project of the subscription.
	ProjectID string

	// SubscriptionName is the subscription attached to the approval topic.
	SubscriptionName string

	// MaxOutstandingMessages bounds concurrent deliveries.
	// Default: 10
	MaxOutstandingMessages int

	// MaxExtension is how long a message lease is extended while delivering.
	// Default: 10 minutes
	MaxExtension time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		SubscriptionName:       "device-approvals-mailer",
		MaxOutstandingMessages: 10,
		MaxExtension:           10 * time.Minute,
	}
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ProjectID = config.GetEnvOrDefault("PUBSUB_PROJECT_ID", "")
	cfg.SubscriptionName = config.GetEnvOrDefault("PUBSUB_APPROVAL_SUBSCRIPTION", cfg.SubscriptionName)
	if n, err := strconv.Atoi(config.GetEnvOrDefault("PUBSUB_MAX_OUTSTANDING", "")); err == nil && n > 0 {
		cfg.MaxOutstandingMessages = n
	}
	return cfg
}
