package contract

import (
	"context"

	"team-messenger-be/internal/model"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
	GetNotificationsByUserID(ctx context.Context, userID int64, limit, offset int) ([]*model.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID int64) (int64, error)

	// MarkAsRead only touches rows owned by userID, so a forged id is a no-op.
	MarkAsRead(ctx context.Context, userID int64, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}
