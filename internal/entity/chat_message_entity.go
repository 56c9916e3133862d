package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageText   MessageKind = "TEXT"
	MessageImage  MessageKind = "IMAGE"
	MessageFile   MessageKind = "FILE"
	MessageSystem MessageKind = "SYSTEM"
)

// ParseMessageKind maps a wire value onto a kind, defaulting to TEXT for
// anything unknown.
func ParseMessageKind(raw string) MessageKind {
	switch MessageKind(raw) {
	case MessageImage, MessageFile, MessageSystem:
		return MessageKind(raw)
	default:
		return MessageText
	}
}

// ChatMessage is the sharded aggregate: RoomId decides which store holds the
// row and is immutable once persisted. SenderId is a plain value, not a
// foreign key; users only exist on the primary store.
type ChatMessage struct {
	Id       int64
	EventId  uuid.UUID // dedup key carried from the log event
	RoomId   int64
	SenderId int64
	Content  string
	Kind     MessageKind

	AttachmentURL         string
	AttachmentName        string
	AttachmentContentType string
	AttachmentSize        int64

	// Mentions is a comma separated user id list, e.g. "1,5,12".
	Mentions string

	SentAt    time.Time
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// JoinMentionIDs renders mention ids in the stored CSV form.
func JoinMentionIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// SplitMentionIDs parses the stored CSV form, dropping anything unparseable.
func SplitMentionIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
