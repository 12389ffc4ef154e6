// Package contact validates contact form messages and delivers them to the
// site owner.
package contact

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
)

const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxMessageLength = 5000
)

var (
	ErrIncomplete   = errors.New("please fill in your name, email and message")
	ErrInvalidEmail = errors.New("please enter a valid email address")
	ErrTooLong      = errors.New("your message is too long")
	ErrInvalidName  = errors.New("name must not contain line breaks")
)

// Message is a validated contact form submission.
type Message struct {
	Name    string
	Email   string
	Message string
}

// NewMessage trims every field and validates the result.
func NewMessage(name, email, message string) (Message, error) {
	m := Message{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Message: strings.TrimSpace(message),
	}
	return m, m.Validate()
}

func (m Message) Validate() error {
	if m.Name == "" || m.Email == "" || m.Message == "" {
		return ErrIncomplete
	}
	if utf8.RuneCountInString(m.Name) > MaxNameLength ||
		len(m.Email) > MaxEmailLength ||
		utf8.RuneCountInString(m.Message) > MaxMessageLength {
		return ErrTooLong
	}
	addr, err := mail.ParseAddress(m.Email)
	if err != nil || addr.Address != m.Email {
		return ErrInvalidEmail
	}
	// Header injection through the name or reply-to address.
	if strings.ContainsAny(m.Name, "\r\n") {
		return ErrInvalidName
	}
	return nil
}

func (m Message) Subject() string {
	return fmt.Sprintf("Portfolio Contact: %s", m.Name)
}

// Body is the plain text notification sent to the owner.
func (m Message) Body() string {
	return fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, m.Name, m.Email, m.Message)
}

// Sender delivers a message to the site owner.
type Sender interface {
	Send(ctx context.Context, m Message) error
	// Name identifies the delivery channel in logs and metrics.
	Name() string
}

// NewSender picks Resend when an API key is configured, then SMTP when
// credentials are, and otherwise only logs messages.
func NewSender(cfg config.ContactConfig, log *zap.SugaredLogger) Sender {
	switch {
	case cfg.ResendAPIKey != "":
		return NewResendSender(cfg.ResendAPIKey, cfg.From, cfg.To, log)
	case cfg.SMTPUser != "" && cfg.SMTPPass != "":
		return NewSMTPSender(cfg, log)
	default:
		log.Warn("No contact delivery configured, messages will only be logged")
		return NewLogSender(log)
	}
}

// LogSender writes messages to the log. Used in development.
type LogSender struct {
	log *zap.SugaredLogger
}

func NewLogSender(log *zap.SugaredLogger) *LogSender {
	return &LogSender{log: log.Named("contact")}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.log.Infow("Contact message received", "name", m.Name, "email", m.Email, "length", len(m.Message))
	return nil
}
