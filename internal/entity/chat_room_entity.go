package entity

import "time"

type RoomKind string

const (
	RoomDirect RoomKind = "DIRECT"
	RoomGroup  RoomKind = "GROUP"
)

// ChatRoom lives only on the primary store, however many message shards
// exist. LastMessageId is a preview optimization for room lists; it may lag
// behind the shard under concurrent sends.
type ChatRoom struct {
	Id            int64
	Name          string
	Kind          RoomKind
	LastMessageId *int64
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// ChatRoomMember is the membership edge. LastReadAt drives unread counts: a
// message with SentAt after LastReadAt (or any message when LastReadAt is
// nil) is unread for this member.
type ChatRoomMember struct {
	Id         int64
	RoomId     int64
	UserId     int64
	LastReadAt *time.Time
	CreatedAt  time.Time
}

// UnreadFor reports whether a message sent at sentAt is unread for this
// member. The boundary is exclusive: a message stamped exactly at LastReadAt
// counts as read.
func (m *ChatRoomMember) UnreadFor(sentAt time.Time) bool {
	return m.LastReadAt == nil || m.LastReadAt.Before(sentAt)
}
