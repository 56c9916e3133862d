package sharding

import "context"

// The routing directive tells the storage layer which shard one logical
// operation should hit. It lives in the operation's context.Context, never in
// package state: goroutines serving unrelated requests can share nothing, so
// a directive cannot leak onto a reused worker the way a thread-local would.

type directiveKey struct{}

// directive is the per-operation shard selector. A zero set flag means
// "explicitly cleared": resolution falls through to the default shard even if
// an outer scope attached a room.
type directive struct {
	roomID int64
	set    bool
}

// WithRoom attaches a routing directive for roomID to ctx. Storage calls made
// with the returned context are routed to roomID's shard.
func WithRoom(ctx context.Context, roomID int64) context.Context {
	return context.WithValue(ctx, directiveKey{}, directive{roomID: roomID, set: true})
}

// WithPrimary pins the operation to the primary store. Used for sender
// lookups and room metadata access from inside a message-scoped flow.
func WithPrimary(ctx context.Context) context.Context {
	return context.WithValue(ctx, directiveKey{}, directive{roomID: DefaultShard, set: true})
}

// Detach clears any directive on ctx. The returned context resolves to the
// default shard regardless of what outer scopes attached.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, directiveKey{}, directive{})
}

// RoomFrom reports the directive currently attached to ctx, if any.
func RoomFrom(ctx context.Context) (int64, bool) {
	d, ok := ctx.Value(directiveKey{}).(directive)
	if !ok || !d.set {
		return 0, false
	}
	return d.roomID, true
}

// Scoped runs fn with the directive for roomID attached for exactly fn's
// duration. The caller's ctx is never mutated, so the directive is released
// unconditionally when fn returns, error or not.
func Scoped(ctx context.Context, roomID int64, fn func(ctx context.Context) error) error {
	return fn(WithRoom(ctx, roomID))
}

// ScopedPrimary is Scoped pinned to the primary store.
func ScopedPrimary(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(WithPrimary(ctx))
}
