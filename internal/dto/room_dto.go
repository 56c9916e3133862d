package dto

import "time"

type CreateRoomRequest struct {
	Name      string  `json:"name" validate:"required,max=120"`
	MemberIDs []int64 `json:"member_ids" validate:"required,min=1"`
}

type DirectRoomRequest struct {
	PeerID int64 `json:"peer_id" validate:"required,gt=0"`
}

type InviteMemberRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type RoomResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	MemberCount int64     `json:"member_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomSummaryResponse backs the room list screen: the last message preview
// plus how many messages the caller has not read yet.
type RoomSummaryResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Kind        string               `json:"kind"`
	LastMessage *ChatMessageResponse `json:"last_message,omitempty"`
	UnreadCount int64                `json:"unread_count"`
	LastReadAt  *time.Time           `json:"last_read_at,omitempty"`
}

type RoomMemberResponse struct {
	UserID       int64      `json:"user_id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	ProfileImage string     `json:"profile_image,omitempty"`
	Online       bool       `json:"online"`
	LastReadAt   *time.Time `json:"last_read_at,omitempty"`
}
