package service

import (
	"context"
	"fmt"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// pushNotifier sends inbox notifications to the recipient's device through Firebase
// Cloud Messaging. Recipients without a registered device token are skipped.
type pushNotifier struct {
	client *messaging.Client
}

func NewPushNotifier(ctx context.Context, credentialsFile string) (Notifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &pushNotifier{client: client}, nil
}

func (p *pushNotifier) Name() string { return "push" }

func (p *pushNotifier) Notify(ctx context.Context, recipient *domain.Provider, note *domain.Notification) error {
	if recipient == nil || recipient.PushToken == "" {
		return nil
	}
	data := map[string]string{"notification_id": fmt.Sprintf("%d", note.ID)}
	for k, v := range note.Attributes {
		data[k] = v
	}
	msg := &messaging.Message{
		Token: recipient.PushToken,
		Notification: &messaging.Notification{
			Title: note.Title,
			Body:  note.Message,
		},
		Data: data,
	}

	logger.ExternalServiceCall("fcm", "send", "userID", recipient.ID)
	id, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "messageID", id)
	return err
}
