package dto

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessageEvent is the wire format appended to the delivery log. Every
// field a subscriber needs must travel in the event itself so redelivery is
// self-contained.
type ChatMessageEvent struct {
	EventID               uuid.UUID `json:"event_id"`
	RoomID                int64     `json:"room_id"`
	SenderID              int64     `json:"sender_id"`
	SenderName            string    `json:"sender_name,omitempty"`
	Content               string    `json:"content"`
	MessageKind           string    `json:"message_kind"`
	AttachmentURL         string    `json:"attachment_url,omitempty"`
	AttachmentName        string    `json:"attachment_name,omitempty"`
	AttachmentContentType string    `json:"attachment_content_type,omitempty"`
	AttachmentSize        int64     `json:"attachment_size,omitempty"`
	Mentions              []int64   `json:"mentions,omitempty"`
	SentAt                time.Time `json:"sent_at"`
}

// ChatMessagePayload is what subscribers receive over the WebSocket after a
// message is persisted. UnreadMemberCount is how many room members have not
// read as far as this message, computed against their read marks at delivery
// time.
type ChatMessagePayload struct {
	Type                  string    `json:"type"`
	MessageID             int64     `json:"message_id"`
	RoomID                int64     `json:"room_id"`
	SenderID              int64     `json:"sender_id"`
	SenderName            string    `json:"sender_name"`
	SenderProfileImage    string    `json:"sender_profile_image,omitempty"`
	Content               string    `json:"content"`
	MessageKind           string    `json:"message_kind"`
	AttachmentURL         string    `json:"attachment_url,omitempty"`
	AttachmentName        string    `json:"attachment_name,omitempty"`
	AttachmentContentType string    `json:"attachment_content_type,omitempty"`
	AttachmentSize        int64     `json:"attachment_size,omitempty"`
	Mentions              []int64   `json:"mentions,omitempty"`
	UnreadMemberCount     int64     `json:"unread_member_count"`
	SentAt                time.Time `json:"sent_at"`
}

type SendMessageRequest struct {
	RoomID                int64   `json:"room_id" validate:"required,gt=0"`
	Content               string  `json:"content" validate:"required_without=AttachmentURL,max=4000"`
	MessageKind           string  `json:"message_kind,omitempty"`
	AttachmentURL         string  `json:"attachment_url,omitempty"`
	AttachmentName        string  `json:"attachment_name,omitempty"`
	AttachmentContentType string  `json:"attachment_content_type,omitempty"`
	AttachmentSize        int64   `json:"attachment_size,omitempty"`
	Mentions              []int64 `json:"mentions,omitempty"`
}

type ChatMessageResponse struct {
	ID                    int64     `json:"id"`
	RoomID                int64     `json:"room_id"`
	SenderID              int64     `json:"sender_id"`
	SenderName            string    `json:"sender_name,omitempty"`
	Content               string    `json:"content"`
	MessageKind           string    `json:"message_kind"`
	AttachmentURL         string    `json:"attachment_url,omitempty"`
	AttachmentName        string    `json:"attachment_name,omitempty"`
	AttachmentContentType string    `json:"attachment_content_type,omitempty"`
	AttachmentSize        int64     `json:"attachment_size,omitempty"`
	Mentions              []int64   `json:"mentions,omitempty"`
	UnreadMemberCount     int64     `json:"unread_member_count"`
	SentAt                time.Time `json:"sent_at"`
}

type ChatHistoryResponse struct {
	Messages []ChatMessageResponse `json:"messages"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Total    int64                 `json:"total"`
}

type SenderActivityRequest struct {
	SenderID int64     `json:"sender_id" validate:"required,gt=0"`
	Start    time.Time `json:"start" validate:"required"`
	End      time.Time `json:"end" validate:"required"`
}
