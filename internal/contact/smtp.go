package contact

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends through an authenticated SMTP relay such as Gmail.
type SMTPSender struct {
	host, port string
	user, pass string
	to         string
	sendMail   sendMailFunc
	log        *zap.SugaredLogger
}

func NewSMTPSender(cfg config.ContactConfig, log *zap.SugaredLogger) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		pass:     cfg.SMTPPass,
		to:       cfg.To,
		sendMail: smtp.SendMail,
		log:      log.Named("contact"),
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send ignores ctx once the transfer has started; net/smtp has no
// cancellation.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if s.user == "" || s.pass == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	if err := s.sendMail(net.JoinHostPort(s.host, s.port), auth, s.user, []string{s.to}, s.compose(m)); err != nil {
		s.log.Errorw("Failed to send contact email", "error", err, "host", s.host)
		return fmt.Errorf("failed to send contact email: %w", err)
	}

	s.log.Infow("Contact email sent", "name", m.Name, "email", m.Email)
	return nil
}

func (s *SMTPSender) compose(m Message) []byte {
	return []byte("To: " + s.to + "\r\n" +
		"Subject: " + m.Subject() + "\r\n" +
		"From: " + s.user + "\r\n" +
		"Reply-To: " + m.Email + "\r\n" +
		"\r\n" +
		m.Body() + "\r\n")
}
