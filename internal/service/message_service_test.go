package service

import (
	"context"
	"testing"
	"time"

	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/sharding"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newTestMessageService(t *testing.T, msgRepo *fakeMessageRepo, memberRepo *fakeMemberRepo, userRepo *fakeUserRepo) IMessageService {
	t.Helper()
	cluster, err := sharding.NewCluster([]*gorm.DB{{}, {}})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}
	return NewMessageService(msgRepo, memberRepo, userRepo, cluster, nopLogger{})
}

func TestHistoryIsOldestFirstWithUnreadMemberCounts(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	readMark := base.Add(time.Minute)

	msgRepo := &fakeMessageRepo{saved: []*entity.ChatMessage{
		{Id: 1, EventId: uuid.New(), RoomId: 7, SenderId: 1, Content: "first", SentAt: base},
		{Id: 2, EventId: uuid.New(), RoomId: 7, SenderId: 2, Content: "second", SentAt: base.Add(time.Minute)},
		{Id: 3, EventId: uuid.New(), RoomId: 7, SenderId: 1, Content: "third", SentAt: base.Add(2 * time.Minute)},
	}}
	memberRepo := &fakeMemberRepo{members: []*entity.ChatRoomMember{
		{Id: 1, RoomId: 7, UserId: 1, LastReadAt: &readMark},
		{Id: 2, RoomId: 7, UserId: 2, LastReadAt: &readMark},
		{Id: 3, RoomId: 7, UserId: 3},
	}}
	userRepo := &fakeUserRepo{users: map[int64]*entity.User{
		1: {Id: 1, DisplayName: "Ana"},
		2: {Id: 2, DisplayName: "Bram"},
	}}
	svc := newTestMessageService(t, msgRepo, memberRepo, userRepo)

	res, err := svc.History(context.Background(), 7, 1, 50)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if res.Total != 3 || len(res.Messages) != 3 {
		t.Fatalf("got %d messages (total %d), want 3", len(res.Messages), res.Total)
	}

	for i, want := range []string{"first", "second", "third"} {
		if res.Messages[i].Content != want {
			t.Errorf("message %d = %q, want %q (oldest first)", i, res.Messages[i].Content, want)
		}
	}
	if res.Messages[0].SenderName != "Ana" || res.Messages[1].SenderName != "Bram" {
		t.Errorf("sender names not resolved: %+v", res.Messages)
	}

	// "first": users 2 and 3 are not the sender; user 2 read past it, user 3
	// never read. "second": user 1 read exactly at its timestamp (read), user
	// 3 unread. "third": past both read marks, users 2 and 3 unread.
	wantUnread := []int64{1, 1, 2}
	for i, want := range wantUnread {
		if got := res.Messages[i].UnreadMemberCount; got != want {
			t.Errorf("message %d UnreadMemberCount = %d, want %d", i, got, want)
		}
	}
}

func TestHistoryPaginatesNewestPageFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var saved []*entity.ChatMessage
	for i := 0; i < 5; i++ {
		saved = append(saved, &entity.ChatMessage{
			Id: int64(i + 1), EventId: uuid.New(), RoomId: 7, SenderId: 1,
			Content: string(rune('a' + i)), SentAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	msgRepo := &fakeMessageRepo{saved: saved}
	svc := newTestMessageService(t, msgRepo, &fakeMemberRepo{}, &fakeUserRepo{users: map[int64]*entity.User{}})

	res, err := svc.History(context.Background(), 7, 1, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(res.Messages))
	}
	// Page one holds the two newest messages, oldest of the pair first.
	if res.Messages[0].Content != "d" || res.Messages[1].Content != "e" {
		t.Errorf("page 1 = [%s %s], want [d e]", res.Messages[0].Content, res.Messages[1].Content)
	}
}
