package grpc

import (
	"context"

	"nikosoko-backend/internal/service"

	"google.golang.org/protobuf/types/known/structpb"
)

type InboxHandler struct {
	noteSvc service.NotificationService
}

func NewInboxHandler(noteSvc service.NotificationService) *InboxHandler {
	return &InboxHandler{noteSvc: noteSvc}
}

func (h *InboxHandler) ServiceName() string { return "InboxService" }

func (h *InboxHandler) Methods() map[string]UnaryMethod {
	return map[string]UnaryMethod{
		"GetNotifications":     h.GetNotifications,
		"MarkNotificationRead": h.MarkNotificationRead,
	}
}

// GetNotifications lists notifications addressed to the caller's id or phone, newest first.
func (h *InboxHandler) GetNotifications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	phone, _ := GetPhoneFromContext(ctx)
	var in struct {
		Page     int32 `json:"page"`
		PageSize int32 `json:"page_size"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}

	notes, count, err := h.noteSvc.GetInbox(ctx, userID, phone, in.Page, in.PageSize)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{
		"notifications": notes,
		"total_count":   count,
	})
}

func (h *InboxHandler) MarkNotificationRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		NotificationID int32 `json:"notification_id"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if err := h.noteSvc.MarkAsRead(ctx, userID, in.NotificationID); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]bool{"success": true})
}
