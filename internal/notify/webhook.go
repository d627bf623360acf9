package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/punktepass/punktepass/internal/resilience"
)

// Webhook posts approval requests as JSON to an HTTP endpoint.
type Webhook struct {
	url    string
	secret string
	client *resilience.Client
}

// NewWebhook creates a Webhook notifier. secret, when set, is sent as a bearer token.
func NewWebhook(url, secret string, client *resilience.Client) *Webhook {
	return &Webhook{url: url, secret: secret, client: client}
}

// SendApprovalRequest posts req to the webhook URL.
func (w *Webhook) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode approval request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.secret)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

var _ Notifier = (*Webhook)(nil)
