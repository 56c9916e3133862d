package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/pkg/logger"
	"team-messenger-be/pkg/chatlog"

	"github.com/google/uuid"
)

// IChatProducerService accepts outgoing messages and appends them to the
// delivery log. Send never surfaces append failures to the caller: the HTTP
// or WebSocket request has already been accepted, so a broken log is an
// operational problem, not a client error.
type IChatProducerService interface {
	Send(ctx context.Context, senderID int64, senderName string, req dto.SendMessageRequest) dto.ChatMessageEvent
}

type chatProducerService struct {
	log    *chatlog.Log
	logger logger.ILogger
}

func NewChatProducerService(log *chatlog.Log, l logger.ILogger) IChatProducerService {
	return &chatProducerService{
		log:    log,
		logger: l,
	}
}

func (s *chatProducerService) Send(ctx context.Context, senderID int64, senderName string, req dto.SendMessageRequest) dto.ChatMessageEvent {
	event := dto.ChatMessageEvent{
		EventID:               uuid.New(),
		RoomID:                req.RoomID,
		SenderID:              senderID,
		SenderName:            senderName,
		Content:               req.Content,
		MessageKind:           string(entity.ParseMessageKind(req.MessageKind)),
		AttachmentURL:         req.AttachmentURL,
		AttachmentName:        req.AttachmentName,
		AttachmentContentType: req.AttachmentContentType,
		AttachmentSize:        req.AttachmentSize,
		Mentions:              req.Mentions,
		SentAt:                time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("ChatProducer", "Failed to marshal chat event", map[string]interface{}{
			"event_id": event.EventID.String(),
			"room_id":  event.RoomID,
			"error":    err.Error(),
		})
		return event
	}

	// Keyed by room id so all of a room's messages share a partition and
	// keep their order through the pipeline.
	key := strconv.FormatInt(event.RoomID, 10)
	if err := s.log.Append(key, payload); err != nil {
		s.logger.Error("ChatProducer", "Failed to append chat event to log", map[string]interface{}{
			"event_id": event.EventID.String(),
			"room_id":  event.RoomID,
			"error":    err.Error(),
		})
	}

	return event
}
