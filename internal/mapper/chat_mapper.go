package mapper

import (
	"time"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatMessage{
		Id:                    msg.Id,
		EventId:               msg.EventId,
		RoomId:                msg.RoomId,
		SenderId:              msg.SenderId,
		Content:               msg.Content,
		Kind:                  entity.MessageKind(msg.Kind),
		AttachmentURL:         msg.AttachmentURL,
		AttachmentName:        msg.AttachmentName,
		AttachmentContentType: msg.AttachmentContentType,
		AttachmentSize:        msg.AttachmentSize,
		Mentions:              msg.Mentions,
		SentAt:                msg.SentAt,
		CreatedAt:             msg.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.ChatMessage{
		Id:                    msg.Id,
		EventId:               msg.EventId,
		RoomId:                msg.RoomId,
		SenderId:              msg.SenderId,
		Content:               msg.Content,
		Kind:                  string(msg.Kind),
		AttachmentURL:         msg.AttachmentURL,
		AttachmentName:        msg.AttachmentName,
		AttachmentContentType: msg.AttachmentContentType,
		AttachmentSize:        msg.AttachmentSize,
		Mentions:              msg.Mentions,
		SentAt:                msg.SentAt,
		CreatedAt:             msg.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}

// Room Mappers

func (m *ChatMapper) ChatRoomToEntity(r *model.ChatRoom) *entity.ChatRoom {
	if r == nil {
		return nil
	}

	var updatedAt *time.Time
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatRoom{
		Id:            r.Id,
		Name:          r.Name,
		Kind:          entity.RoomKind(r.Kind),
		LastMessageId: r.LastMessageId,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ChatMapper) ChatRoomToModel(r *entity.ChatRoom) *model.ChatRoom {
	if r == nil {
		return nil
	}

	var updatedAt time.Time
	if r.UpdatedAt != nil {
		updatedAt = *r.UpdatedAt
	}

	return &model.ChatRoom{
		Id:            r.Id,
		Name:          r.Name,
		Kind:          string(r.Kind),
		LastMessageId: r.LastMessageId,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

// Member Mappers

func (m *ChatMapper) ChatRoomMemberToEntity(mem *model.ChatRoomMember) *entity.ChatRoomMember {
	if mem == nil {
		return nil
	}
	return &entity.ChatRoomMember{
		Id:         mem.Id,
		RoomId:     mem.RoomId,
		UserId:     mem.UserId,
		LastReadAt: mem.LastReadAt,
		CreatedAt:  mem.CreatedAt,
	}
}

func (m *ChatMapper) ChatRoomMemberToModel(mem *entity.ChatRoomMember) *model.ChatRoomMember {
	if mem == nil {
		return nil
	}
	return &model.ChatRoomMember{
		Id:         mem.Id,
		RoomId:     mem.RoomId,
		UserId:     mem.UserId,
		LastReadAt: mem.LastReadAt,
		CreatedAt:  mem.CreatedAt,
	}
}
