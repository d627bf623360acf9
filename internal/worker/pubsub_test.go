package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/notify"
)

type fakeMailer struct {
	err  error
	sent []notify.ApprovalRequest
}

func (f *fakeMailer) SendApprovalRequest(_ context.Context, req notify.ApprovalRequest) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

func approvalMessage(t *testing.T) (map[string]string, []byte) {
	t.Helper()
	msg, err := notify.EncodeMessage(notify.ApprovalRequest{
		RequestID:   7,
		StoreID:     3,
		StoreName:   "Bäckerei Muster",
		Recipient:   "owner@example.com",
		RequestType: "add",
		DeviceName:  "Kasse 2",
		ApproveURL:  "https://example.com/v1/user-devices/approve/abc",
		RejectURL:   "https://example.com/v1/user-devices/reject/abc",
		RequestedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	return msg.Attributes, msg.Data
}

func TestHandle_Delivers(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewMessageHandler(mailer, zerolog.Nop())

	attrs, data := approvalMessage(t)
	assert.Equal(t, Ack, h.Handle(context.Background(), attrs, data))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, int64(7), mailer.sent[0].RequestID)
	assert.Equal(t, "Kasse 2", mailer.sent[0].DeviceName)
}

func TestHandle_UnknownTypeAcked(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewMessageHandler(mailer, zerolog.Nop())

	_, data := approvalMessage(t)
	assert.Equal(t, Ack, h.Handle(context.Background(), map[string]string{"type": "other"}, data))
	assert.Empty(t, mailer.sent)
}

func TestHandle_MalformedPayloadAcked(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewMessageHandler(mailer, zerolog.Nop())

	attrs := map[string]string{"type": notify.MessageType}
	assert.Equal(t, Ack, h.Handle(context.Background(), attrs, []byte("{not json")))
	assert.Equal(t, Ack, h.Handle(context.Background(), attrs, []byte(`{"request_id":1}`)))
	assert.Empty(t, mailer.sent)
}

func TestHandle_NoRecipientAcked(t *testing.T) {
	h := NewMessageHandler(&fakeMailer{err: notify.ErrNoRecipient}, zerolog.Nop())

	attrs, data := approvalMessage(t)
	assert.Equal(t, Ack, h.Handle(context.Background(), attrs, data))
}

func TestHandle_SendFailureNacked(t *testing.T) {
	h := NewMessageHandler(&fakeMailer{err: errors.New("connection refused")}, zerolog.Nop())

	attrs, data := approvalMessage(t)
	assert.Equal(t, Nack, h.Handle(context.Background(), attrs, data))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PUBSUB_PROJECT_ID", "punktepass-prod")
	t.Setenv("PUBSUB_APPROVAL_SUBSCRIPTION", "approvals")
	t.Setenv("PUBSUB_MAX_OUTSTANDING", "4")

	cfg := ConfigFromEnv()
	assert.Equal(t, "punktepass-prod", cfg.ProjectID)
	assert.Equal(t, "approvals", cfg.SubscriptionName)
	assert.Equal(t, 4, cfg.MaxOutstandingMessages)
	assert.Equal(t, 10*time.Minute, cfg.MaxExtension)
}

func TestClose_WithoutClient(t *testing.T) {
	h := NewMessageHandler(&fakeMailer{}, zerolog.Nop())
	assert.NoError(t, h.Close())
}
