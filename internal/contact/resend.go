package contact

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
	to     string
	log    *zap.SugaredLogger
}

func NewResendSender(apiKey, from, to string, log *zap.SugaredLogger) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
		log:    log.Named("contact"),
	}
}

func (s *ResendSender) Name() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, m Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{s.to},
		Subject: m.Subject(),
		ReplyTo: m.Email,
		Text:    m.Body(),
	}

	resp, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.Errorw("Failed to send contact email", "error", err, "to", s.to)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.log.Infow("Contact email sent", "id", resp.Id, "name", m.Name)
	return nil
}
