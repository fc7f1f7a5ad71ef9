package service

import (
	"context"
	"fmt"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// emailNotifier mirrors inbox notifications to recipients who registered an email
// address. Most providers sign up with a phone only and are skipped.
type emailNotifier struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailNotifier(apiKey, fromEmail, fromName string) Notifier {
	return &emailNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailNotifier) Name() string { return "email" }

func (s *emailNotifier) Notify(ctx context.Context, recipient *domain.Provider, note *domain.Notification) error {
	if recipient == nil || recipient.Email == "" {
		return nil
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(recipient.Name, recipient.Email)
	body := fmt.Sprintf("Hello %s,\n\n%s\n\nOpen your Niko Soko inbox to respond.\n\nNiko Soko", recipient.Name, note.Message)
	message := mail.NewSingleEmail(from, note.Title, to, body, "")

	logger.ExternalServiceCall("sendgrid", "send", "userID", recipient.ID)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "userID", recipient.ID)
	return err
}
