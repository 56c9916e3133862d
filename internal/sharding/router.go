package sharding

// DefaultShard is where every query lands when no routing directive is
// attached. It is also the primary store: rooms, members, users and
// notifications only exist there.
const DefaultShard = 0

// Route maps a room id onto one of shardCount stores. It is the single
// routing rule in the system: both the directive issuers and the cluster's
// store selection go through it, so they can never disagree.
//
// Messages for one room always land on one shard, which is why history
// reads and unread counts never fan out across stores.
func Route(roomID int64, shardCount int) int {
	if shardCount <= 0 {
		return DefaultShard
	}
	return int(roomID % int64(shardCount))
}
