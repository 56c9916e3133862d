package sharding

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrInvalidShardKey is returned when a directive carries a room id that
	// cannot identify a room. A write routed off a bad key would land on the
	// wrong shard, so resolution fails instead of falling back.
	ErrInvalidShardKey = errors.New("sharding: directive carries an invalid room id")

	ErrNoShards = errors.New("sharding: cluster has no shards configured")
)

// Cluster owns one gorm.DB per shard, each backed by its own connection
// pool. All partitioned reads and writes go through DB, which resolves the
// routing directive on the operation's context.
type Cluster struct {
	shards []*gorm.DB
}

func NewCluster(shards []*gorm.DB) (*Cluster, error) {
	if len(shards) == 0 {
		return nil, ErrNoShards
	}
	return &Cluster{shards: shards}, nil
}

// Count reports the number of shards. Message routing is roomID mod Count.
func (c *Cluster) Count() int {
	return len(c.shards)
}

// Primary returns the default store (shard 0), home of the non-partitioned
// tables.
func (c *Cluster) Primary() *gorm.DB {
	return c.shards[DefaultShard]
}

// Shard returns the store at an explicit index. Used by the cross-shard
// report primitive, where the caller iterates every shard itself.
func (c *Cluster) Shard(index int) (*gorm.DB, error) {
	if index < 0 || index >= len(c.shards) {
		return nil, fmt.Errorf("sharding: shard index %d out of range (have %d)", index, len(c.shards))
	}
	return c.shards[index], nil
}

// DB resolves the store for the operation on ctx. No directive means the
// default shard; a directive routes by Route. A non-positive room id on a
// directive is an error rather than a silent misroute.
func (c *Cluster) DB(ctx context.Context) (*gorm.DB, error) {
	roomID, ok := RoomFrom(ctx)
	if !ok {
		return c.shards[DefaultShard], nil
	}
	if roomID < 0 {
		return nil, ErrInvalidShardKey
	}
	return c.shards[Route(roomID, len(c.shards))], nil
}
