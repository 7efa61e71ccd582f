// Package notify sends short messages to an e-mail address.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Message is a plain-text mail.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message, now or later.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no mail transport is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	slog.InfoContext(ctx, "Mail not delivered, no transport configured",
		"to", m.To,
		"subject", m.Subject,
		"body", m.Body)
	return nil
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	Addr     string // host:port
	Username string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(addr, username, password, from string) *SMTPSender {
	return &SMTPSender{Addr: addr, Username: username, Password: password, From: from, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	var auth smtp.Auth
	if s.Username != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}

	if err := s.send(s.Addr, auth, s.From, []string{m.To}, Format(s.From, m)); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	slog.InfoContext(ctx, "Mail sent", "to", m.To, "subject", m.Subject)
	return nil
}

// Format renders m as an RFC 5322 message.
func Format(from string, m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + strings.ReplaceAll(m.Subject, "\n", " ") + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}
