package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByRoomID filters message and member queries to one room. Combined with the
// routing directive this keeps every room query on a single shard.
type ByRoomID struct {
	RoomID int64
}

func (s ByRoomID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_id = ?", s.RoomID)
}

// BySenderID filters messages by their sender. Sender queries are the one
// cross-shard case: callers run them against every shard and merge.
type BySenderID struct {
	SenderID int64
}

func (s BySenderID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sender_id = ?", s.SenderID)
}

// ByEventID filters by the dedup key carried on every log event.
type ByEventID struct {
	EventID uuid.UUID
}

func (s ByEventID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event_id = ?", s.EventID)
}

// SentAfter keeps messages sent strictly after the given instant. Exclusive
// boundary: a message stamped exactly at After is excluded, which is what
// makes unread counts treat the last-read instant as read.
type SentAfter struct {
	After time.Time
}

func (s SentAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sent_at > ?", s.After)
}

// SentBetween keeps messages inside [Start, End], both inclusive.
type SentBetween struct {
	Start time.Time
	End   time.Time
}

func (s SentBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sent_at BETWEEN ? AND ?", s.Start, s.End)
}

// ByUserID filters membership rows by user.
type ByUserID struct {
	UserID int64
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
