package events

import "time"

// Event is the contract for everything that crosses the NATS bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "CHAT_MENTION").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a ready-made implementation for ad hoc events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ChatMentionEvent is raised by the delivery consumer whenever a persisted
// message mentions other members. The notification worker turns it into
// notification rows on the primary shard.
type ChatMentionEvent struct {
	RoomID       int64
	RoomName     string
	MessageID    int64
	SenderID     int64
	SenderName   string
	MentionedIDs []int64
	Preview      string
	OccurredAt   time.Time
}

func (e ChatMentionEvent) EventType() string {
	return "CHAT_MENTION"
}

func (e ChatMentionEvent) Payload() map[string]interface{} {
	ids := make([]interface{}, len(e.MentionedIDs))
	for i, id := range e.MentionedIDs {
		ids[i] = id
	}
	return map[string]interface{}{
		"room_id":       e.RoomID,
		"room_name":     e.RoomName,
		"message_id":    e.MessageID,
		"sender_id":     e.SenderID,
		"sender_name":   e.SenderName,
		"mentioned_ids": ids,
		"preview":       e.Preview,
		"occurred_at":   e.OccurredAt.Format(time.RFC3339),
	}
}

func (e ChatMentionEvent) Timestamp() time.Time {
	return e.OccurredAt
}
