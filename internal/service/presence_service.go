package service

import (
	"context"
	"fmt"

	"team-messenger-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const onlineUsersKey = "online:users"

// IPresenceService tracks which users currently hold a live WebSocket
// connection. The set lives in Redis so every API node sees the same view.
type IPresenceService interface {
	MarkOnline(ctx context.Context, userID int64) error
	MarkOffline(ctx context.Context, userID int64) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
	OnlineUsers(ctx context.Context) ([]int64, error)
}

type presenceService struct {
	redis  *redis.Client
	logger logger.ILogger
}

func NewPresenceService(rdb *redis.Client, log logger.ILogger) IPresenceService {
	return &presenceService{
		redis:  rdb,
		logger: log,
	}
}

func presenceMember(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func (s *presenceService) MarkOnline(ctx context.Context, userID int64) error {
	return s.redis.SAdd(ctx, onlineUsersKey, presenceMember(userID)).Err()
}

func (s *presenceService) MarkOffline(ctx context.Context, userID int64) error {
	return s.redis.SRem(ctx, onlineUsersKey, presenceMember(userID)).Err()
}

func (s *presenceService) IsOnline(ctx context.Context, userID int64) (bool, error) {
	return s.redis.SIsMember(ctx, onlineUsersKey, presenceMember(userID)).Result()
}

func (s *presenceService) OnlineUsers(ctx context.Context) ([]int64, error) {
	members, err := s.redis.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		var id int64
		if _, err := fmt.Sscanf(m, "user:%d", &id); err != nil {
			s.logger.Warn("PresenceService", "Skipping malformed presence member", map[string]interface{}{"member": m})
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
