// Package mailer delivers rendered invoices over SMTP behind a small Sender
// interface so handlers and tests never touch a real mail server directly.
package mailer

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// Message is one outbound invoice email. HTML carries the rendered invoice;
// Body is the sender's plain-text note.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    string
}

// Sender delivers a message or reports a delivery failure. Invoice state is
// never changed on failure.
type Sender interface {
	Send(msg Message) error
}

// Config is injected at construction time, never read from the environment
// mid-operation.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends via gomail.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(cfg Config) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTP) Send(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}
	return nil
}
