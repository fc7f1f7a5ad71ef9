package service

import (
	"context"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/events"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/metrics"
	"nikosoko-backend/internal/repository"
)

// InboxSender is the "from" line on system generated notifications.
const InboxSender = "Niko Soko"

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetInbox(ctx context.Context, userID int32, phone string, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, phone, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

type inbox struct {
	noteRepo  repository.NotificationRepository
	notifiers []Notifier
	metrics   *metrics.Metrics
}

func NewInbox(noteRepo repository.NotificationRepository, m *metrics.Metrics, notifiers ...Notifier) Inbox {
	return &inbox{noteRepo: noteRepo, notifiers: notifiers, metrics: m}
}

func (b *inbox) Deliver(ctx context.Context, recipient *domain.Provider, note *domain.Notification) {
	if note.From == "" {
		note.From = InboxSender
	}
	if recipient != nil {
		note.UserID = recipient.ID
		if note.RecipientPhone == "" {
			note.RecipientPhone = recipient.Phone
		}
	}
	if err := b.noteRepo.Create(ctx, note); err != nil {
		logger.Error("Failed to store notification", "title", note.Title, "userID", note.UserID, "error", err)
		b.metrics.DispatchFailure("inbox")
		return
	}
	for _, n := range b.notifiers {
		if err := n.Notify(ctx, recipient, note); err != nil {
			logger.Warn("Notification channel failed", "channel", n.Name(), "notificationID", note.ID, "error", err)
			b.metrics.DispatchFailure(n.Name())
		}
	}
}

func publish(ctx context.Context, pub events.Publisher, subject string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, payload); err != nil {
		logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
