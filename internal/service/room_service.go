package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/pkg/logger"
	"team-messenger-be/internal/repository/contract"
	"team-messenger-be/internal/repository/specification"
	"team-messenger-be/internal/sharding"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrNotMember     = errors.New("user is not a member of this room")
	ErrAlreadyMember = errors.New("user is already a member of this room")
	ErrDirectRoom    = errors.New("direct rooms have a fixed member pair")
)

type IRoomService interface {
	CreateRoom(ctx context.Context, creatorID int64, req dto.CreateRoomRequest) (*dto.RoomResponse, error)
	DirectRoom(ctx context.Context, userID, peerID int64) (*dto.RoomResponse, error)
	GetRoom(ctx context.Context, userID, roomID int64) (*dto.RoomResponse, error)
	ListRooms(ctx context.Context, userID int64) ([]dto.RoomSummaryResponse, error)
	MarkRead(ctx context.Context, userID, roomID int64) error
	Invite(ctx context.Context, actorID, roomID, userID int64) error
	RemoveMember(ctx context.Context, actorID, roomID, userID int64) error
	Leave(ctx context.Context, userID, roomID int64) error
	Members(ctx context.Context, userID, roomID int64) ([]dto.RoomMemberResponse, error)
}

type roomService struct {
	roomRepo    contract.ChatRoomRepository
	memberRepo  contract.ChatRoomMemberRepository
	userRepo    contract.UserRepository
	messages    IMessageService
	messageRepo contract.ChatMessageRepository
	presence    IPresenceService
	consumer    IChatConsumerService
	logger      logger.ILogger
}

func NewRoomService(
	roomRepo contract.ChatRoomRepository,
	memberRepo contract.ChatRoomMemberRepository,
	userRepo contract.UserRepository,
	messages IMessageService,
	messageRepo contract.ChatMessageRepository,
	presence IPresenceService,
	consumer IChatConsumerService,
	l logger.ILogger,
) IRoomService {
	return &roomService{
		roomRepo:    roomRepo,
		memberRepo:  memberRepo,
		userRepo:    userRepo,
		messages:    messages,
		messageRepo: messageRepo,
		presence:    presence,
		consumer:    consumer,
		logger:      l,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, creatorID int64, req dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	room := &entity.ChatRoom{
		Name: req.Name,
		Kind: entity.RoomGroup,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	memberIDs := append([]int64{creatorID}, req.MemberIDs...)
	seen := make(map[int64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		member := &entity.ChatRoomMember{RoomId: room.Id, UserId: id}
		if err := s.memberRepo.Create(ctx, member); err != nil {
			return nil, err
		}
	}

	return &dto.RoomResponse{
		ID:          room.Id,
		Name:        room.Name,
		Kind:        string(room.Kind),
		MemberCount: int64(len(seen)),
		CreatedAt:   room.CreatedAt,
	}, nil
}

// DirectRoom returns the existing one to one room between two users, creating
// it on first contact.
func (s *roomService) DirectRoom(ctx context.Context, userID, peerID int64) (*dto.RoomResponse, error) {
	if existing, err := s.roomRepo.FindDirectRoomBetween(ctx, userID, peerID); err != nil {
		return nil, err
	} else if existing != nil {
		return &dto.RoomResponse{
			ID:        existing.Id,
			Name:      existing.Name,
			Kind:      string(existing.Kind),
			CreatedAt: existing.CreatedAt,
		}, nil
	}

	peer, err := s.userRepo.FindOne(ctx, specification.ByID{ID: peerID})
	if err != nil {
		return nil, err
	}
	if peer == nil {
		return nil, fmt.Errorf("peer %d not found", peerID)
	}

	room := &entity.ChatRoom{
		Name: peer.DisplayName,
		Kind: entity.RoomDirect,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}
	for _, id := range []int64{userID, peerID} {
		if err := s.memberRepo.Create(ctx, &entity.ChatRoomMember{RoomId: room.Id, UserId: id}); err != nil {
			return nil, err
		}
	}

	return &dto.RoomResponse{
		ID:        room.Id,
		Name:      room.Name,
		Kind:      string(room.Kind),
		CreatedAt: room.CreatedAt,
	}, nil
}

// GetRoom returns one room's detail. Members only.
func (s *roomService) GetRoom(ctx context.Context, userID, roomID int64) (*dto.RoomResponse, error) {
	room, err := s.roomRepo.FindOne(ctx, specification.ByID{ID: roomID})
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if _, err := s.membership(ctx, roomID, userID); err != nil {
		return nil, err
	}

	memberCount, err := s.memberRepo.Count(ctx, specification.ByRoomID{RoomID: roomID})
	if err != nil {
		return nil, err
	}

	return &dto.RoomResponse{
		ID:          room.Id,
		Name:        room.Name,
		Kind:        string(room.Kind),
		MemberCount: memberCount,
		CreatedAt:   room.CreatedAt,
	}, nil
}

func (s *roomService) ListRooms(ctx context.Context, userID int64) ([]dto.RoomSummaryResponse, error) {
	memberships, err := s.memberRepo.FindAll(ctx, specification.ByUserID{UserID: userID})
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.RoomSummaryResponse, 0, len(memberships))
	for _, m := range memberships {
		room, err := s.roomRepo.FindOne(ctx, specification.ByID{ID: m.RoomId})
		if err != nil {
			return nil, err
		}
		if room == nil {
			continue
		}

		summary := dto.RoomSummaryResponse{
			ID:         room.Id,
			Name:       room.Name,
			Kind:       string(room.Kind),
			LastReadAt: m.LastReadAt,
		}

		summary.LastMessage = s.lastMessagePreview(ctx, room.Id, room.LastMessageId)

		unread, err := s.messages.UnreadCount(ctx, room.Id, m.LastReadAt)
		if err != nil {
			s.logger.Warn("RoomService", "Failed to count unread messages", map[string]interface{}{
				"room_id": room.Id,
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// lastMessagePreview loads the preview from the room's own shard. The
// pointer is the fast path; a nil or stale pointer (its update is best
// effort) falls back to the newest message on the shard.
func (s *roomService) lastMessagePreview(ctx context.Context, roomID int64, messageID *int64) *dto.ChatMessageResponse {
	var msg *entity.ChatMessage
	err := sharding.Scoped(ctx, roomID, func(ctx context.Context) error {
		var err error
		if messageID != nil {
			msg, err = s.messageRepo.FindOne(ctx, specification.ByID{ID: *messageID})
			if err != nil || msg != nil {
				return err
			}
		}
		msg, err = s.messageRepo.LatestByRoom(ctx, roomID)
		return err
	})
	if err != nil || msg == nil {
		return nil
	}
	return &dto.ChatMessageResponse{
		ID:          msg.Id,
		RoomID:      msg.RoomId,
		SenderID:    msg.SenderId,
		Content:     msg.Content,
		MessageKind: string(msg.Kind),
		SentAt:      msg.SentAt,
	}
}

func (s *roomService) MarkRead(ctx context.Context, userID, roomID int64) error {
	member, err := s.membership(ctx, roomID, userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	member.LastReadAt = &now
	return s.memberRepo.Update(ctx, member)
}

func (s *roomService) Invite(ctx context.Context, actorID, roomID, userID int64) error {
	room, err := s.roomRepo.FindOne(ctx, specification.ByID{ID: roomID})
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.Kind == entity.RoomDirect {
		return ErrDirectRoom
	}

	if _, err := s.membership(ctx, roomID, actorID); err != nil {
		return err
	}

	existing, err := s.memberRepo.FindOne(ctx,
		specification.ByRoomID{RoomID: roomID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyMember
	}

	user, err := s.userRepo.FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d not found", userID)
	}

	if err := s.memberRepo.Create(ctx, &entity.ChatRoomMember{RoomId: roomID, UserId: userID}); err != nil {
		return err
	}

	s.systemMessage(ctx, roomID, fmt.Sprintf("%s joined the room", user.DisplayName))
	return nil
}

func (s *roomService) RemoveMember(ctx context.Context, actorID, roomID, userID int64) error {
	room, err := s.roomRepo.FindOne(ctx, specification.ByID{ID: roomID})
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.Kind == entity.RoomDirect {
		return ErrDirectRoom
	}

	if _, err := s.membership(ctx, roomID, actorID); err != nil {
		return err
	}

	member, err := s.membership(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if err := s.memberRepo.Delete(ctx, member.Id); err != nil {
		return err
	}

	if user, _ := s.userRepo.FindOne(ctx, specification.ByID{ID: userID}); user != nil {
		s.systemMessage(ctx, roomID, fmt.Sprintf("%s was removed from the room", user.DisplayName))
	}
	return nil
}

func (s *roomService) Leave(ctx context.Context, userID, roomID int64) error {
	room, err := s.roomRepo.FindOne(ctx, specification.ByID{ID: roomID})
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.Kind == entity.RoomDirect {
		return ErrDirectRoom
	}

	member, err := s.membership(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if err := s.memberRepo.Delete(ctx, member.Id); err != nil {
		return err
	}

	remaining, err := s.memberRepo.Count(ctx, specification.ByRoomID{RoomID: roomID})
	if err == nil && remaining == 0 {
		if err := s.roomRepo.Delete(ctx, roomID); err != nil {
			s.logger.Warn("RoomService", "Failed to delete emptied room", map[string]interface{}{
				"room_id": roomID,
				"error":   err.Error(),
			})
		}
		return nil
	}

	if user, _ := s.userRepo.FindOne(ctx, specification.ByID{ID: userID}); user != nil {
		s.systemMessage(ctx, roomID, fmt.Sprintf("%s left the room", user.DisplayName))
	}
	return nil
}

func (s *roomService) Members(ctx context.Context, userID, roomID int64) ([]dto.RoomMemberResponse, error) {
	if _, err := s.membership(ctx, roomID, userID); err != nil {
		return nil, err
	}

	members, err := s.memberRepo.FindAll(ctx, specification.ByRoomID{RoomID: roomID})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UserId
	}
	users, err := s.userRepo.FindByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*entity.User, len(users))
	for _, u := range users {
		byID[u.Id] = u
	}

	out := make([]dto.RoomMemberResponse, 0, len(members))
	for _, m := range members {
		u := byID[m.UserId]
		if u == nil {
			continue
		}
		online, err := s.presence.IsOnline(ctx, u.Id)
		if err != nil {
			s.logger.Warn("RoomService", "Presence lookup failed", map[string]interface{}{
				"user_id": u.Id,
				"error":   err.Error(),
			})
		}
		out = append(out, dto.RoomMemberResponse{
			UserID:       u.Id,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			ProfileImage: u.ProfileImage,
			Online:       online,
			LastReadAt:   m.LastReadAt,
		})
	}
	return out, nil
}

func (s *roomService) membership(ctx context.Context, roomID, userID int64) (*entity.ChatRoomMember, error) {
	member, err := s.memberRepo.FindOne(ctx,
		specification.ByRoomID{RoomID: roomID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotMember
	}
	return member, nil
}

// systemMessage injects a room notice straight into the delivery path,
// skipping the log. Failures only cost the notice.
func (s *roomService) systemMessage(ctx context.Context, roomID int64, text string) {
	event := dto.ChatMessageEvent{
		EventID:     uuid.New(),
		RoomID:      roomID,
		SenderID:    0,
		Content:     text,
		MessageKind: string(entity.MessageSystem),
		SentAt:      time.Now().UTC(),
	}
	if err := s.consumer.Deliver(ctx, event); err != nil {
		s.logger.Warn("RoomService", "Failed to deliver system message", map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		})
	}
}
