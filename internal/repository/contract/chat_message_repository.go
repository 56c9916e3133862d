package contract

import (
	"context"
	"time"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/repository/specification"
)

type ChatMessageRepository interface {
	// Create persists the message on the shard resolved from ctx's routing
	// directive. Idempotent on the event id: redelivered log events collapse
	// onto the already persisted row, whose identity is written back into
	// message.
	Create(ctx context.Context, message *entity.ChatMessage) error

	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// LatestByRoom returns the room's newest message, or nil when the room
	// has none. Backs the room-list preview when the room's pointer is stale
	// or missing.
	LatestByRoom(ctx context.Context, roomID int64) (*entity.ChatMessage, error)

	// FindOnShard is the per-partition primitive behind the daily report
	// collaborator. It bypasses the routing directive and queries exactly one
	// explicit shard; iterating shards and merging is the caller's job.
	FindOnShard(ctx context.Context, shard int, senderID int64, start, end time.Time) ([]*entity.ChatMessage, error)
}
