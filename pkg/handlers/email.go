package handlers

import (
	"context"
	"net/mail"

	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Mailer sends emails.
type Mailer interface {
	Send(ctx context.Context, msg jobs.EmailSend) error
}

// Email validates the recipient and hands the message to a Mailer.
type Email struct {
	Mailer Mailer
	Log    *zap.Logger
}

// Handle validates and sends an email.
func (h *Email) Handle(ctx context.Context, p jobs.EmailSend) error {
	if _, err := mail.ParseAddress(p.To); err != nil {
		return &jobs.ValidationError{Kind: jobs.KindEmailSend, Field: "to", Reason: err.Error()}
	}
	return h.Mailer.Send(ctx, p)
}

// LogMailer only logs emails.
type LogMailer struct {
	Log *zap.Logger
}

// Send logs the subject of the email.
func (m *LogMailer) Send(_ context.Context, msg jobs.EmailSend) error {
	m.Log.Info("Sending email", zap.String("email.subject", msg.Subject))
	return nil
}
