package notify_test

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/notify"
)

func TestMailer_SendApprovalRequest(t *testing.T) {
	m := notify.NewMailer(notify.SMTPConfig{
		Host:             "smtp.example.com",
		Port:             587,
		Username:         "user",
		Password:         "pass",
		From:             "noreply@example.com",
		FromName:         "PunktePass",
		DefaultRecipient: "ops@example.com",
	})

	var (
		gotAddr string
		gotTo   []string
		gotAuth smtp.Auth
	)
	m.SetSendMail(func(addr string, a smtp.Auth, _ string, to []string, _ []byte) error {
		gotAddr, gotAuth, gotTo = addr, a, to
		return nil
	})

	req := sampleRequest()
	req.Recipient = ""
	require.NoError(t, m.SendApprovalRequest(context.Background(), req))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
}

func TestMailer_TransportError(t *testing.T) {
	m := notify.NewMailer(notify.SMTPConfig{Host: "smtp.example.com", Port: 25})
	m.SetSendMail(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})

	err := m.SendApprovalRequest(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "connection refused")
}
