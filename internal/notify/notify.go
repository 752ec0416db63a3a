// Package notify sends the outbound order and contact emails. It is
// deliberately separate from the chat pipeline: a broken SMTP relay must
// never affect replies.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// ErrSendFailed wraps any SMTP-level failure. The HTTP layer maps it to a
// 500 with the wrapped detail.
var ErrSendFailed = errors.New("notify: send failed")

// Mailer delivers a single plain-text email.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay. Auth is optional; local
// relays typically run without it.
type SMTPMailer struct {
	Host string
	Port int
	From string
	To   string
	Auth smtp.Auth

	// sendMail is swapped in tests; defaults to smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host string, port int, from, to string, auth smtp.Auth) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		From:     from,
		To:       to,
		Auth:     auth,
		sendMail: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Host == "" || m.From == "" || m.To == "" {
		return fmt.Errorf("%w: mailer not configured", ErrSendFailed)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	if err := m.sendMail(addr, m.Auth, m.From, []string{m.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}
