package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"BlogWatch/internal/config"
	"BlogWatch/internal/ports"
)

// Sender delivers HTML digests over SMTP with STARTTLS.
type Sender struct {
	host     string
	port     int
	account  string
	password string
}

var _ ports.EmailSender = (*Sender)(nil)

// NewSender builds a sender from configuration.
func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{
		host:     cfg.Server,
		port:     cfg.Port,
		account:  cfg.Address,
		password: cfg.Password,
	}
}

// Send delivers one HTML message. net/smtp has no context support; the ctx
// parameter satisfies the port and cancellation falls back to the server's
// own timeouts.
func (s *Sender) Send(_ context.Context, to, subject, htmlBody string) error {
	if s.account == "" || s.password == "" {
		return fmt.Errorf("email sender misconfigured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.account)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.account, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.account, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
