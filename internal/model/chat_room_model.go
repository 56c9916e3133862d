package model

import "time"

// ChatRoom and ChatRoomMember exist on the primary store only.

type ChatRoom struct {
	Id            int64  `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:varchar(200);not null"`
	Kind          string `gorm:"type:varchar(20);not null"`
	LastMessageId *int64
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

type ChatRoomMember struct {
	Id         int64 `gorm:"primaryKey;autoIncrement"`
	RoomId     int64 `gorm:"not null;uniqueIndex:idx_room_members_room_user,priority:1"`
	UserId     int64 `gorm:"not null;uniqueIndex:idx_room_members_room_user,priority:2;index"`
	LastReadAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (ChatRoomMember) TableName() string {
	return "chat_room_members"
}
