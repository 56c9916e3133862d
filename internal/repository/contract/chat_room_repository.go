package contract

import (
	"context"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/repository/specification"
)

type ChatRoomRepository interface {
	Create(ctx context.Context, room *entity.ChatRoom) error
	Update(ctx context.Context, room *entity.ChatRoom) error
	Delete(ctx context.Context, id int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatRoom, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatRoom, error)

	// SetLastMessage moves the room's preview pointer. Best effort from the
	// consumer; out-of-order updates are tolerated.
	SetLastMessage(ctx context.Context, roomID, messageID int64) error

	// FindDirectRoomBetween returns an existing DIRECT room both users are
	// members of, or nil.
	FindDirectRoomBetween(ctx context.Context, userA, userB int64) (*entity.ChatRoom, error)
}

type ChatRoomMemberRepository interface {
	Create(ctx context.Context, member *entity.ChatRoomMember) error
	Update(ctx context.Context, member *entity.ChatRoomMember) error
	Delete(ctx context.Context, id int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatRoomMember, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatRoomMember, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
