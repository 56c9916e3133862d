package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/sharding"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakePresence struct {
	online map[int64]bool
}

func (f *fakePresence) MarkOnline(ctx context.Context, userID int64) error  { return nil }
func (f *fakePresence) MarkOffline(ctx context.Context, userID int64) error { return nil }
func (f *fakePresence) IsOnline(ctx context.Context, userID int64) (bool, error) {
	return f.online[userID], nil
}
func (f *fakePresence) OnlineUsers(ctx context.Context) ([]int64, error) { return nil, nil }

type roomFixture struct {
	rooms    *fakeRoomRepo
	members  *fakeMemberRepo
	users    *fakeUserRepo
	messages *fakeMessageRepo
	svc      IRoomService
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	cluster, err := sharding.NewCluster([]*gorm.DB{{}, {}})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}

	f := &roomFixture{
		rooms:    &fakeRoomRepo{},
		members:  &fakeMemberRepo{},
		users:    &fakeUserRepo{users: map[int64]*entity.User{}},
		messages: &fakeMessageRepo{},
	}
	messageSvc := NewMessageService(f.messages, f.members, f.users, cluster, nopLogger{})
	consumer := newTestConsumer(f.messages, f.rooms, f.members, f.users, &fakeDelivery{}, nil)
	f.svc = NewRoomService(f.rooms, f.members, f.users, messageSvc, f.messages, &fakePresence{}, consumer, nopLogger{})
	return f
}

func (f *roomFixture) seedRoom(t *testing.T, kind entity.RoomKind, memberIDs ...int64) *entity.ChatRoom {
	t.Helper()
	room := &entity.ChatRoom{Name: "backend", Kind: kind}
	if err := f.rooms.Create(context.Background(), room); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	for _, id := range memberIDs {
		if err := f.members.Create(context.Background(), &entity.ChatRoomMember{RoomId: room.Id, UserId: id}); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
	return room
}

func TestGetRoomReturnsDetailForMembers(t *testing.T) {
	f := newRoomFixture(t)
	room := f.seedRoom(t, entity.RoomGroup, 1, 2, 3)

	res, err := f.svc.GetRoom(context.Background(), 1, room.Id)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if res.ID != room.Id || res.Name != "backend" || res.Kind != string(entity.RoomGroup) {
		t.Errorf("room detail mismatch: %+v", res)
	}
	if res.MemberCount != 3 {
		t.Errorf("MemberCount = %d, want 3", res.MemberCount)
	}
}

func TestGetRoomRejectsNonMembers(t *testing.T) {
	f := newRoomFixture(t)
	room := f.seedRoom(t, entity.RoomGroup, 1, 2)

	if _, err := f.svc.GetRoom(context.Background(), 99, room.Id); !errors.Is(err, ErrNotMember) {
		t.Errorf("GetRoom for outsider = %v, want ErrNotMember", err)
	}
}

func TestGetRoomUnknownRoom(t *testing.T) {
	f := newRoomFixture(t)

	if _, err := f.svc.GetRoom(context.Background(), 1, 404); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoom for unknown room = %v, want ErrRoomNotFound", err)
	}
}

// A room whose preview pointer was never set (its best-effort update failed)
// must still surface its newest message in the room list.
func TestListRoomsPreviewFallsBackToNewestMessage(t *testing.T) {
	f := newRoomFixture(t)
	room := f.seedRoom(t, entity.RoomGroup, 1, 2)

	older := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	f.messages.saved = []*entity.ChatMessage{
		{Id: 10, EventId: uuid.New(), RoomId: room.Id, SenderId: 2, Content: "first", SentAt: older},
		{Id: 11, EventId: uuid.New(), RoomId: room.Id, SenderId: 2, Content: "second", SentAt: newer},
	}

	summaries, err := f.svc.ListRooms(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 room, got %d", len(summaries))
	}
	preview := summaries[0].LastMessage
	if preview == nil {
		t.Fatal("expected a last message preview despite the missing pointer")
	}
	if preview.ID != 11 || preview.Content != "second" {
		t.Errorf("preview = %+v, want the newest message", preview)
	}
}

func TestListRoomsPreviewSurvivesStalePointer(t *testing.T) {
	f := newRoomFixture(t)
	room := f.seedRoom(t, entity.RoomGroup, 1, 2)

	stale := int64(999)
	room.LastMessageId = &stale

	sentAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.messages.saved = []*entity.ChatMessage{
		{Id: 10, EventId: uuid.New(), RoomId: room.Id, SenderId: 2, Content: "still here", SentAt: sentAt},
	}

	summaries, err := f.svc.ListRooms(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	preview := summaries[0].LastMessage
	if preview == nil || preview.ID != 10 {
		t.Errorf("preview = %+v, want fallback to message 10", preview)
	}
}

func TestLeaveDeletesEmptiedRoom(t *testing.T) {
	f := newRoomFixture(t)
	room := f.seedRoom(t, entity.RoomGroup, 1)

	if err := f.svc.Leave(context.Background(), 1, room.Id); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if len(f.rooms.deleted) != 1 || f.rooms.deleted[0] != room.Id {
		t.Errorf("deleted rooms = %v, want [%d]", f.rooms.deleted, room.Id)
	}
}
