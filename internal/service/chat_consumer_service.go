package service

import (
	"context"
	"encoding/json"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/pkg/logger"
	"team-messenger-be/internal/repository/contract"
	"team-messenger-be/internal/repository/memory"
	"team-messenger-be/internal/repository/specification"
	"team-messenger-be/internal/sharding"
	"team-messenger-be/pkg/chatlog"
	"team-messenger-be/pkg/events"
)

// ChatDelivery pushes a persisted message to everyone subscribed to its
// room. Implemented by the WebSocket hub.
type ChatDelivery interface {
	PublishToRoom(roomID int64, payload []byte)
}

// EventPublisher sends domain events onto the NATS bus.
// Satisfied by *nats.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IChatConsumerService drains the delivery log: persist, enrich, fan out.
// Deliver is also the direct entry point for messages that never touch the
// log, such as system notices injected by the room service.
type IChatConsumerService interface {
	Start(ctx context.Context) error
	Deliver(ctx context.Context, event dto.ChatMessageEvent) error
}

type chatConsumerService struct {
	log         *chatlog.Log
	workers     int
	messageRepo contract.ChatMessageRepository
	roomRepo    contract.ChatRoomRepository
	memberRepo  contract.ChatRoomMemberRepository
	userRepo    contract.UserRepository
	senderCache *memory.SenderCache
	delivery    ChatDelivery
	publisher   EventPublisher
	logger      logger.ILogger
}

func NewChatConsumerService(
	log *chatlog.Log,
	workers int,
	messageRepo contract.ChatMessageRepository,
	roomRepo contract.ChatRoomRepository,
	memberRepo contract.ChatRoomMemberRepository,
	userRepo contract.UserRepository,
	delivery ChatDelivery,
	publisher EventPublisher,
	l logger.ILogger,
) IChatConsumerService {
	return &chatConsumerService{
		log:         log,
		workers:     workers,
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		senderCache: memory.NewSenderCache(),
		delivery:    delivery,
		publisher:   publisher,
		logger:      l,
	}
}

func (s *chatConsumerService) Start(ctx context.Context) error {
	return s.log.Consume(ctx, s.workers, s.handle)
}

// handle owns every failure mode. A malformed payload is logged and dropped;
// a retriable persistence failure is retried in place with backoff. Either
// way the log entry is consumed, so one poison event can never wedge a
// partition.
func (s *chatConsumerService) handle(ctx context.Context, payload []byte) {
	var event dto.ChatMessageEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error("ChatConsumer", "Dropping malformed chat event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := s.Deliver(ctx, event); err != nil {
		s.logger.Error("ChatConsumer", "Failed to deliver chat event", map[string]interface{}{
			"event_id": event.EventID.String(),
			"room_id":  event.RoomID,
			"error":    err.Error(),
		})
	}
}

func (s *chatConsumerService) Deliver(ctx context.Context, event dto.ChatMessageEvent) error {
	msg := &entity.ChatMessage{
		EventId:               event.EventID,
		RoomId:                event.RoomID,
		SenderId:              event.SenderID,
		Content:               event.Content,
		Kind:                  entity.ParseMessageKind(event.MessageKind),
		AttachmentURL:         event.AttachmentURL,
		AttachmentName:        event.AttachmentName,
		AttachmentContentType: event.AttachmentContentType,
		AttachmentSize:        event.AttachmentSize,
		Mentions:              entity.JoinMentionIDs(event.Mentions),
		SentAt:                event.SentAt,
	}

	// Persist on the shard that owns this room. The unique event id makes a
	// redelivered event a no-op, so retrying here is safe.
	err := sharding.Scoped(ctx, event.RoomID, func(ctx context.Context) error {
		return withRetry(ctx, 3, func() error {
			return s.messageRepo.Create(ctx, msg)
		})
	})
	if err != nil {
		return err
	}

	sender := s.resolveSender(ctx, event.SenderID, event.SenderName)

	// Best effort: the preview pointer lags at worst one message behind.
	if err := s.roomRepo.SetLastMessage(ctx, event.RoomID, msg.Id); err != nil {
		s.logger.Warn("ChatConsumer", "Failed to update last message pointer", map[string]interface{}{
			"room_id":    event.RoomID,
			"message_id": msg.Id,
			"error":      err.Error(),
		})
	}

	s.publishToRoom(ctx, event, msg, sender)
	s.publishMentions(ctx, event, msg, sender)
	return nil
}

// unreadMemberCount is how many members of the room, other than the sender,
// have a read mark older than the message. A failed lookup degrades to zero
// rather than holding up delivery.
func (s *chatConsumerService) unreadMemberCount(ctx context.Context, roomID, senderID int64, sentAt time.Time) int64 {
	var members []*entity.ChatRoomMember
	err := sharding.ScopedPrimary(ctx, func(ctx context.Context) error {
		var err error
		members, err = s.memberRepo.FindAll(ctx, specification.ByRoomID{RoomID: roomID})
		return err
	})
	if err != nil {
		s.logger.Warn("ChatConsumer", "Failed to load members for unread count", map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		})
		return 0
	}

	var unread int64
	for _, m := range members {
		if m.UserId == senderID {
			continue
		}
		if m.UnreadFor(sentAt) {
			unread++
		}
	}
	return unread
}

// resolveSender reads the sender profile from the primary store, preferring
// the in-process cache. Falls back to the name carried on the event so
// delivery never blocks on a profile lookup.
func (s *chatConsumerService) resolveSender(ctx context.Context, senderID int64, fallbackName string) *entity.User {
	if u, ok := s.senderCache.Get(senderID); ok {
		return u
	}

	var user *entity.User
	err := sharding.ScopedPrimary(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.userRepo.FindOne(ctx, specification.ByID{ID: senderID})
		return err
	})
	if err != nil || user == nil {
		if err != nil {
			s.logger.Warn("ChatConsumer", "Failed to resolve sender profile", map[string]interface{}{
				"sender_id": senderID,
				"error":     err.Error(),
			})
		}
		return &entity.User{Id: senderID, DisplayName: fallbackName}
	}

	s.senderCache.Save(user)
	return user
}

func (s *chatConsumerService) publishToRoom(ctx context.Context, event dto.ChatMessageEvent, msg *entity.ChatMessage, sender *entity.User) {
	payload := dto.ChatMessagePayload{
		Type:                  "chat.message",
		MessageID:             msg.Id,
		RoomID:                msg.RoomId,
		SenderID:              msg.SenderId,
		SenderName:            sender.DisplayName,
		SenderProfileImage:    sender.ProfileImage,
		Content:               msg.Content,
		MessageKind:           string(msg.Kind),
		AttachmentURL:         msg.AttachmentURL,
		AttachmentName:        msg.AttachmentName,
		AttachmentContentType: msg.AttachmentContentType,
		AttachmentSize:        msg.AttachmentSize,
		Mentions:              event.Mentions,
		UnreadMemberCount:     s.unreadMemberCount(ctx, msg.RoomId, msg.SenderId, msg.SentAt),
		SentAt:                msg.SentAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("ChatConsumer", "Failed to marshal broadcast payload", map[string]interface{}{
			"message_id": msg.Id,
			"error":      err.Error(),
		})
		return
	}
	s.delivery.PublishToRoom(msg.RoomId, data)
}

func (s *chatConsumerService) publishMentions(ctx context.Context, event dto.ChatMessageEvent, msg *entity.ChatMessage, sender *entity.User) {
	if s.publisher == nil || len(event.Mentions) == 0 {
		return
	}

	preview := msg.Content
	if len(preview) > 140 {
		preview = preview[:140]
	}

	evt := events.ChatMentionEvent{
		RoomID:       msg.RoomId,
		MessageID:    msg.Id,
		SenderID:     msg.SenderId,
		SenderName:   sender.DisplayName,
		MentionedIDs: event.Mentions,
		Preview:      preview,
		OccurredAt:   msg.SentAt,
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("ChatConsumer", "Failed to publish mention event", map[string]interface{}{
			"message_id": msg.Id,
			"error":      err.Error(),
		})
	}
}

func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return err
}
