// Package notify delivers device approval requests to store administrators.
//
// The device workflow only needs to know that a notice was dispatched, so
// every transport implements the single Notifier method. Delivery failures
// are returned to the caller, which logs them without failing the request.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ApprovalRequest describes a pending device request awaiting an admin decision.
type ApprovalRequest struct {
	RequestID   int64     `json:"request_id"`
	StoreID     int64     `json:"store_id"`
	StoreName   string    `json:"store_name"`
	Recipient   string    `json:"recipient,omitempty"`
	RequestType string    `json:"request_type"`
	DeviceName  string    `json:"device_name"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ApproveURL  string    `json:"approve_url"`
	RejectURL   string    `json:"reject_url"`
	RequestedAt time.Time `json:"requested_at"`
}

// Notifier sends approval requests.
type Notifier interface {
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) error
}

// LogNotifier writes approval requests to the log. It is the fallback when no
// transport is configured, so approve links are still recoverable.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendApprovalRequest logs req.
func (n *LogNotifier) SendApprovalRequest(_ context.Context, req ApprovalRequest) error {
	n.logger.Info().
		Int64("request_id", req.RequestID).
		Int64("store_id", req.StoreID).
		Str("request_type", req.RequestType).
		Str("device_name", req.DeviceName).
		Str("approve_url", req.ApproveURL).
		Str("reject_url", req.RejectURL).
		Msg("device approval requested")
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
