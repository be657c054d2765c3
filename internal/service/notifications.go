package service

import (
	"context"

	"example.com/backstage/services/inventory/internal/models"
)

// ListNotifications lists the recipient's notifications, newest first.
func (s *service) ListNotifications(ctx context.Context, recipient *models.User) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, recipient.ID)
}

// MarkNotificationRead flags one of the recipient's notifications as read.
// Notifications are scoped to their recipient, another user's id yields
// not found.
func (s *service) MarkNotificationRead(ctx context.Context, recipient *models.User, id uint) error {
	return s.repo.MarkNotificationRead(ctx, id, recipient.ID)
}
