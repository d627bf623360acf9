package notify

import "net/smtp"

// SetSendMail replaces the SMTP transport in tests.
func (m *Mailer) SetSendMail(fn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) {
	m.sendMail = fn
}
