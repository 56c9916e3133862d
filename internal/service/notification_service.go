package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/model"
	"team-messenger-be/internal/pkg/logger"
	"team-messenger-be/internal/repository/contract"
	"team-messenger-be/pkg/events"
	pktNats "team-messenger-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type INotificationService interface {
	Start()
	List(ctx context.Context, userID int64, limit, offset int) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID int64, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}

type notificationService struct {
	repo       contract.NotificationRepository
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewNotificationService(repo contract.NotificationRepository, sub *pktNats.Subscriber, log logger.ILogger) INotificationService {
	return &notificationService{
		repo:       repo,
		subscriber: sub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *notificationService) Start() {
	if s.subscriber == nil {
		s.logger.Warn("NotificationService", "No NATS subscriber, mention notifications disabled", nil)
		return
	}
	err := s.subscriber.Subscribe("events.CHAT_MENTION", "mention-notif-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start mention subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.CHAT_MENTION", nil)
}

func (s *notificationService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	if typeCode != "CHAT_MENTION" {
		return nil
	}

	payload := event.Payload()
	senderID := asInt64(payload["sender_id"])
	senderName, _ := payload["sender_name"].(string)
	preview, _ := payload["preview"].(string)
	roomID := asInt64(payload["room_id"])
	messageID := asInt64(payload["message_id"])

	rawIDs, _ := payload["mentioned_ids"].([]interface{})
	for _, raw := range rawIDs {
		userID := asInt64(raw)
		if userID == 0 || userID == senderID {
			continue
		}

		meta, _ := json.Marshal(map[string]interface{}{
			"room_id":    roomID,
			"message_id": messageID,
			"sender_id":  senderID,
		})

		notif := &model.Notification{
			ID:       uuid.New(),
			UserID:   userID,
			ActorID:  senderID,
			TypeCode: typeCode,
			Title:    fmt.Sprintf("%s mentioned you", senderName),
			Message:  preview,
			Metadata: datatypes.JSON(meta),
		}
		if err := s.repo.CreateNotification(ctx, notif); err != nil {
			s.logger.Error("NotificationService", "Failed to persist mention notification", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			return err
		}
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID int64, limit, offset int) (*dto.NotificationListResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, total, err := s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.NotificationResponse, len(rows))
	for i, n := range rows {
		var meta map[string]interface{}
		if len(n.Metadata) > 0 {
			_ = json.Unmarshal(n.Metadata, &meta)
		}
		out[i] = dto.NotificationResponse{
			ID:        n.ID,
			TypeCode:  n.TypeCode,
			Title:     n.Title,
			Message:   n.Message,
			ActorID:   n.ActorID,
			Metadata:  meta,
			IsRead:    n.IsRead,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		}
	}

	return &dto.NotificationListResponse{
		Notifications: out,
		Total:         total,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID int64, notificationID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, notificationID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// asInt64 normalizes the numeric shapes JSON decoding can produce.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
