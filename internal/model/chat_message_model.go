package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is the only sharded table: the same schema exists on every
// shard and a row's shard is decided by RoomId alone. No foreign keys here;
// rooms and users live on the primary store only, so integrity is an
// application contract.
type ChatMessage struct {
	Id       int64     `gorm:"primaryKey;autoIncrement"`
	EventId  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_chat_messages_event_id"`
	RoomId   int64     `gorm:"not null;index:idx_chat_messages_room_sent,priority:1"`
	SenderId int64     `gorm:"not null;index"`
	Content  string    `gorm:"type:text;not null"`
	Kind     string    `gorm:"type:varchar(20);not null;default:'TEXT'"`

	AttachmentURL         string `gorm:"type:varchar(500)"`
	AttachmentName        string `gorm:"type:varchar(255)"`
	AttachmentContentType string `gorm:"type:varchar(100)"`
	AttachmentSize        int64

	Mentions string `gorm:"type:varchar(500)"`

	SentAt    time.Time `gorm:"index:idx_chat_messages_room_sent,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
