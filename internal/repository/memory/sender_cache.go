package memory

import (
	"strconv"
	"time"

	"team-messenger-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SenderCache keeps recently resolved sender profiles so the consumer does
// not hit the primary shard for every delivered message.
type SenderCache struct {
	cache *cache.Cache
}

func NewSenderCache() *SenderCache {
	// Profiles rarely change mid-conversation; a 5 minute TTL keeps display
	// names fresh enough while absorbing bursts from active rooms.
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &SenderCache{
		cache: c,
	}
}

func (c *SenderCache) Save(user *entity.User) {
	c.cache.Set(key(user.Id), user, cache.DefaultExpiration)
}

func (c *SenderCache) Get(userID int64) (*entity.User, bool) {
	if x, found := c.cache.Get(key(userID)); found {
		return x.(*entity.User), true
	}
	return nil, false
}

func (c *SenderCache) Delete(userID int64) {
	c.cache.Delete(key(userID))
}

func key(userID int64) string {
	return "sender:" + strconv.FormatInt(userID, 10)
}
