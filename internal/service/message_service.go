package service

import (
	"context"
	"sort"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/pkg/logger"
	"team-messenger-be/internal/repository/contract"
	"team-messenger-be/internal/repository/specification"
	"team-messenger-be/internal/sharding"
)

type IMessageService interface {
	History(ctx context.Context, roomID int64, page, pageSize int) (*dto.ChatHistoryResponse, error)
	UnreadCount(ctx context.Context, roomID int64, since *time.Time) (int64, error)
	SenderActivity(ctx context.Context, senderID int64, start, end time.Time) ([]dto.ChatMessageResponse, error)
}

type messageService struct {
	messageRepo contract.ChatMessageRepository
	memberRepo  contract.ChatRoomMemberRepository
	userRepo    contract.UserRepository
	cluster     *sharding.Cluster
	logger      logger.ILogger
}

func NewMessageService(
	messageRepo contract.ChatMessageRepository,
	memberRepo contract.ChatRoomMemberRepository,
	userRepo contract.UserRepository,
	cluster *sharding.Cluster,
	l logger.ILogger,
) IMessageService {
	return &messageService{
		messageRepo: messageRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		cluster:     cluster,
		logger:      l,
	}
}

// History returns one page of a room's messages in chronological order.
// The query runs newest-first on the room's shard and is reversed before
// returning, which keeps deep pagination cheap.
func (s *messageService) History(ctx context.Context, roomID int64, page, pageSize int) (*dto.ChatHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var messages []*entity.ChatMessage
	var total int64

	err := sharding.Scoped(ctx, roomID, func(ctx context.Context) error {
		var err error
		total, err = s.messageRepo.Count(ctx, specification.ByRoomID{RoomID: roomID})
		if err != nil {
			return err
		}

		messages, err = s.messageRepo.FindAll(ctx,
			specification.ByRoomID{RoomID: roomID},
			specification.OrderBy{Field: "sent_at", Desc: true},
			specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Oldest first for rendering.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	res := &dto.ChatHistoryResponse{
		Messages: s.toResponses(ctx, messages),
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	return res, nil
}

// UnreadCount counts a room's messages newer than the given watermark. Nil
// means the caller never read the room, so everything counts.
func (s *messageService) UnreadCount(ctx context.Context, roomID int64, since *time.Time) (int64, error) {
	var count int64
	err := sharding.Scoped(ctx, roomID, func(ctx context.Context) error {
		specs := []specification.Specification{specification.ByRoomID{RoomID: roomID}}
		if since != nil {
			specs = append(specs, specification.SentAfter{After: *since})
		}
		var err error
		count, err = s.messageRepo.Count(ctx, specs...)
		return err
	})
	return count, err
}

// SenderActivity gathers a sender's messages across every shard for a date
// range. Shards are queried independently and the merged result re-sorted;
// there is no global index to lean on.
func (s *messageService) SenderActivity(ctx context.Context, senderID int64, start, end time.Time) ([]dto.ChatMessageResponse, error) {
	var merged []*entity.ChatMessage
	for shard := 0; shard < s.cluster.Count(); shard++ {
		part, err := s.messageRepo.FindOnShard(ctx, shard, senderID, start, end)
		if err != nil {
			return nil, err
		}
		merged = append(merged, part...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].SentAt.Before(merged[j].SentAt)
	})

	return s.toResponses(ctx, merged), nil
}

func (s *messageService) toResponses(ctx context.Context, messages []*entity.ChatMessage) []dto.ChatMessageResponse {
	names := s.resolveSenderNames(ctx, messages)
	members := s.resolveRoomMembers(ctx, messages)

	out := make([]dto.ChatMessageResponse, len(messages))
	for i, m := range messages {
		out[i] = dto.ChatMessageResponse{
			ID:                    m.Id,
			RoomID:                m.RoomId,
			SenderID:              m.SenderId,
			SenderName:            names[m.SenderId],
			Content:               m.Content,
			MessageKind:           string(m.Kind),
			AttachmentURL:         m.AttachmentURL,
			AttachmentName:        m.AttachmentName,
			AttachmentContentType: m.AttachmentContentType,
			AttachmentSize:        m.AttachmentSize,
			Mentions:              entity.SplitMentionIDs(m.Mentions),
			UnreadMemberCount:     unreadMembers(members[m.RoomId], m.SenderId, m.SentAt),
			SentAt:                m.SentAt,
		}
	}
	return out
}

// resolveRoomMembers loads each distinct room's membership once from the
// primary store. Read marks are snapshotted here, so every message on the
// page is judged against the same marks.
func (s *messageService) resolveRoomMembers(ctx context.Context, messages []*entity.ChatMessage) map[int64][]*entity.ChatRoomMember {
	members := make(map[int64][]*entity.ChatRoomMember)
	for _, m := range messages {
		if _, ok := members[m.RoomId]; ok {
			continue
		}
		roomID := m.RoomId
		err := sharding.ScopedPrimary(ctx, func(ctx context.Context) error {
			found, err := s.memberRepo.FindAll(ctx, specification.ByRoomID{RoomID: roomID})
			if err != nil {
				return err
			}
			members[roomID] = found
			return nil
		})
		if err != nil {
			s.logger.Warn("MessageService", "Failed to load room members", map[string]interface{}{
				"room_id": roomID,
				"error":   err.Error(),
			})
			members[roomID] = nil
		}
	}
	return members
}

func unreadMembers(members []*entity.ChatRoomMember, senderID int64, sentAt time.Time) int64 {
	var unread int64
	for _, m := range members {
		if m.UserId == senderID {
			continue
		}
		if m.UnreadFor(sentAt) {
			unread++
		}
	}
	return unread
}

func (s *messageService) resolveSenderNames(ctx context.Context, messages []*entity.ChatMessage) map[int64]string {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, m := range messages {
		if _, ok := seen[m.SenderId]; ok {
			continue
		}
		seen[m.SenderId] = struct{}{}
		ids = append(ids, m.SenderId)
	}
	if len(ids) == 0 {
		return nil
	}

	names := make(map[int64]string, len(ids))
	err := sharding.ScopedPrimary(ctx, func(ctx context.Context) error {
		users, err := s.userRepo.FindByIds(ctx, ids)
		if err != nil {
			return err
		}
		for _, u := range users {
			names[u.Id] = u.DisplayName
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("MessageService", "Failed to resolve sender names", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return names
}
