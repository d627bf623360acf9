package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/punktepass/punktepass/internal/config"
)

// ErrNoRecipient is returned when neither the request nor the mailer config
// names an address.
var ErrNoRecipient = errors.New("no recipient for approval email")

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// DefaultRecipient receives requests for stores without an admin email.
	DefaultRecipient string
}

// SMTPConfigFromEnv reads SMTP settings from the environment.
func SMTPConfigFromEnv() SMTPConfig {
	port, _ := strconv.Atoi(config.GetEnvOrDefault("SMTP_PORT", "587"))
	return SMTPConfig{
		Host:             config.GetEnvOrDefault("SMTP_HOST", ""),
		Port:             port,
		Username:         config.GetEnvOrDefault("SMTP_USER", ""),
		Password:         config.GetEnvOrDefault("SMTP_PASSWORD", ""),
		From:             config.GetEnvOrDefault("EMAIL_FROM", "noreply@punktepass.de"),
		FromName:         config.GetEnvOrDefault("EMAIL_FROM_NAME", "PunktePass"),
		DefaultRecipient: config.GetEnvOrDefault("ADMIN_EMAIL", ""),
	}
}

// Enabled reports whether a mail host is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends approval requests by email.
type Mailer struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

// NewMailer creates a Mailer that delivers through net/smtp.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, sendMail: smtp.SendMail}
}

// SendApprovalRequest emails req to the store admin.
func (m *Mailer) SendApprovalRequest(_ context.Context, req ApprovalRequest) error {
	to := strings.TrimSpace(req.Recipient)
	if to == "" {
		to = m.cfg.DefaultRecipient
	}
	if to == "" {
		return ErrNoRecipient
	}

	msg, err := ComposeApprovalEmail(m.cfg.From, m.cfg.FromName, to, req)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send approval email: %w", err)
	}
	return nil
}

var approvalEmail = template.Must(template.New("approval").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
<h2>{{ .Title }}</h2>
<p>Filiale: <strong>{{ .Req.StoreName }}</strong></p>
<p>Gerät: <strong>{{ .Req.DeviceName }}</strong></p>
{{ if .Req.UserAgent }}<p style="color: #6b7280; font-size: 12px;">{{ .Req.UserAgent }}</p>{{ end }}
<p>
  <a href="{{ .Req.ApproveURL }}" style="background: #16a34a; color: #fff; padding: 10px 18px; border-radius: 6px; text-decoration: none;">Genehmigen</a>
  &nbsp;
  <a href="{{ .Req.RejectURL }}" style="background: #dc2626; color: #fff; padding: 10px 18px; border-radius: 6px; text-decoration: none;">Ablehnen</a>
</p>
</body>
</html>
`))

// ComposeApprovalEmail builds the RFC 5322 message for req.
func ComposeApprovalEmail(from, fromName, to string, req ApprovalRequest) ([]byte, error) {
	title := "Neues Gerät angefragt"
	if req.RequestType == "remove" {
		title = "Geräteentfernung angefragt"
	}

	var body bytes.Buffer
	if err := approvalEmail.Execute(&body, struct {
		Title string
		Req   ApprovalRequest
	}{Title: title, Req: req}); err != nil {
		return nil, fmt.Errorf("render approval email: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: \"%s\" <%s>\r\n", fromName, from)
	subject := fmt.Sprintf("PunktePass: %s (%s)", title, req.StoreName)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

var _ Notifier = (*Mailer)(nil)
