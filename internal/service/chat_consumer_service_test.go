package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/entity"
	"team-messenger-be/internal/repository/specification"
	"team-messenger-be/internal/sharding"
	"team-messenger-be/pkg/events"

	"github.com/google/uuid"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// fakeMessageRepo records the routing directive active during each Create.
type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	saved    []*entity.ChatMessage
	rooms    []int64
	failures int
}

func (f *fakeMessageRepo) Create(ctx context.Context, m *entity.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("store unavailable")
	}
	for _, existing := range f.saved {
		if existing.EventId == m.EventId {
			*m = *existing
			return nil
		}
	}
	f.nextID++
	m.Id = f.nextID
	m.CreatedAt = time.Now()
	cp := *m
	f.saved = append(f.saved, &cp)
	roomID, _ := sharding.RoomFrom(ctx)
	f.rooms = append(f.rooms, roomID)
	return nil
}

func (f *fakeMessageRepo) filtered(specs ...specification.Specification) []*entity.ChatMessage {
	var pagination *specification.Pagination
	desc := false
	out := make([]*entity.ChatMessage, 0, len(f.saved))

	matches := func(m *entity.ChatMessage) bool {
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				if m.Id != s.ID {
					return false
				}
			case specification.ByRoomID:
				if m.RoomId != s.RoomID {
					return false
				}
			case specification.SentAfter:
				if !m.SentAt.After(s.After) {
					return false
				}
			}
		}
		return true
	}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			desc = s.Desc
		case specification.Pagination:
			p := s
			pagination = &p
		}
	}

	for _, m := range f.saved {
		if matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	if pagination != nil {
		if pagination.Offset >= len(out) {
			return nil
		}
		out = out[pagination.Offset:]
		if pagination.Limit < len(out) {
			out = out[:pagination.Limit]
		}
	}
	return out
}

func (f *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := f.filtered(specs...)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (f *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filtered(specs...), nil
}

func (f *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.filtered(specs...))), nil
}

func (f *fakeMessageRepo) LatestByRoom(ctx context.Context, roomID int64) (*entity.ChatMessage, error) {
	return f.FindOne(ctx,
		specification.ByRoomID{RoomID: roomID},
		specification.OrderBy{Field: "sent_at", Desc: true},
	)
}

func (f *fakeMessageRepo) FindOnShard(ctx context.Context, shard int, senderID int64, start, end time.Time) ([]*entity.ChatMessage, error) {
	return nil, nil
}

type fakeRoomRepo struct {
	mu           sync.Mutex
	rooms        map[int64]*entity.ChatRoom
	lastMessages map[int64]int64
	deleted      []int64
}

func (f *fakeRoomRepo) Create(ctx context.Context, r *entity.ChatRoom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms == nil {
		f.rooms = make(map[int64]*entity.ChatRoom)
	}
	r.Id = int64(len(f.rooms) + 1)
	f.rooms[r.Id] = r
	return nil
}
func (f *fakeRoomRepo) Update(ctx context.Context, r *entity.ChatRoom) error { return nil }
func (f *fakeRoomRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeRoomRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return f.rooms[byID.ID], nil
		}
	}
	return nil, nil
}
func (f *fakeRoomRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatRoom, error) {
	return nil, nil
}
func (f *fakeRoomRepo) SetLastMessage(ctx context.Context, roomID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastMessages == nil {
		f.lastMessages = make(map[int64]int64)
	}
	f.lastMessages[roomID] = messageID
	return nil
}
func (f *fakeRoomRepo) FindDirectRoomBetween(ctx context.Context, a, b int64) (*entity.ChatRoom, error) {
	return nil, nil
}

type fakeMemberRepo struct {
	mu      sync.Mutex
	nextID  int64
	members []*entity.ChatRoomMember
}

func (f *fakeMemberRepo) Create(ctx context.Context, m *entity.ChatRoomMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.Id = f.nextID
	f.members = append(f.members, m)
	return nil
}

func (f *fakeMemberRepo) Update(ctx context.Context, m *entity.ChatRoomMember) error { return nil }

func (f *fakeMemberRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.members[:0]
	for _, m := range f.members {
		if m.Id != id {
			kept = append(kept, m)
		}
	}
	f.members = kept
	return nil
}

func (f *fakeMemberRepo) matching(specs ...specification.Specification) []*entity.ChatRoomMember {
	var out []*entity.ChatRoomMember
	for _, m := range f.members {
		keep := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByRoomID:
				if m.RoomId != s.RoomID {
					keep = false
				}
			case specification.ByUserID:
				if m.UserId != s.UserID {
					keep = false
				}
			}
		}
		if keep {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMemberRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatRoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := f.matching(specs...)
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (f *fakeMemberRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatRoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matching(specs...), nil
}

func (f *fakeMemberRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(specs...))), nil
}

type fakeUserRepo struct {
	users map[int64]*entity.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *entity.User) error { return nil }
func (f *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return f.users[byID.ID], nil
		}
	}
	return nil, nil
}
func (f *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) FindByIds(ctx context.Context, ids []int64) ([]*entity.User, error) {
	var out []*entity.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeDelivery struct {
	mu       sync.Mutex
	payloads map[int64][][]byte
}

func (f *fakeDelivery) PublishToRoom(roomID int64, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payloads == nil {
		f.payloads = make(map[int64][][]byte)
	}
	f.payloads[roomID] = append(f.payloads[roomID], payload)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func newTestConsumer(msgRepo *fakeMessageRepo, roomRepo *fakeRoomRepo, memberRepo *fakeMemberRepo, userRepo *fakeUserRepo, delivery *fakeDelivery, pub EventPublisher) *chatConsumerService {
	return NewChatConsumerService(nil, 1, msgRepo, roomRepo, memberRepo, userRepo, delivery, pub, nopLogger{}).(*chatConsumerService)
}

func TestDeliverPersistsAndFansOut(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	roomRepo := &fakeRoomRepo{}
	userRepo := &fakeUserRepo{users: map[int64]*entity.User{
		42: {Id: 42, Username: "ana", DisplayName: "Ana"},
	}}
	memberRepo := &fakeMemberRepo{members: []*entity.ChatRoomMember{
		{Id: 1, RoomId: 7, UserId: 42},
		{Id: 2, RoomId: 7, UserId: 43},
		{Id: 3, RoomId: 7, UserId: 44},
	}}
	delivery := &fakeDelivery{}
	svc := newTestConsumer(msgRepo, roomRepo, memberRepo, userRepo, delivery, nil)

	sentAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	event := dto.ChatMessageEvent{
		EventID:     uuid.New(),
		RoomID:      7,
		SenderID:    42,
		Content:     "standup in five",
		MessageKind: "TEXT",
		SentAt:      sentAt,
	}

	if err := svc.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(msgRepo.saved) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgRepo.saved))
	}
	saved := msgRepo.saved[0]
	if saved.RoomId != 7 || saved.SenderId != 42 || saved.Content != "standup in five" {
		t.Errorf("persisted message fields mismatch: %+v", saved)
	}
	if !saved.SentAt.Equal(sentAt) {
		t.Errorf("SentAt = %v, want %v", saved.SentAt, sentAt)
	}
	if msgRepo.rooms[0] != 7 {
		t.Errorf("persisted under directive for room %d, want 7", msgRepo.rooms[0])
	}
	if roomRepo.lastMessages[7] != saved.Id {
		t.Errorf("last message pointer = %d, want %d", roomRepo.lastMessages[7], saved.Id)
	}

	got := delivery.payloads[7]
	if len(got) != 1 {
		t.Fatalf("expected 1 broadcast payload, got %d", len(got))
	}
	var payload dto.ChatMessagePayload
	if err := json.Unmarshal(got[0], &payload); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if payload.SenderName != "Ana" {
		t.Errorf("SenderName = %q, want Ana", payload.SenderName)
	}
	if payload.MessageID != saved.Id || payload.RoomID != 7 {
		t.Errorf("broadcast identity mismatch: %+v", payload)
	}
	if payload.UnreadMemberCount != 2 {
		t.Errorf("UnreadMemberCount = %d, want 2 (everyone but the sender)", payload.UnreadMemberCount)
	}
}

// Members whose read mark is at or past the message's timestamp have read
// it already and must not count; the sender never counts.
func TestDeliverUnreadMemberCountHonorsReadMarks(t *testing.T) {
	sentAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	before := sentAt.Add(-time.Minute)
	after := sentAt.Add(time.Minute)

	msgRepo := &fakeMessageRepo{}
	memberRepo := &fakeMemberRepo{members: []*entity.ChatRoomMember{
		{Id: 1, RoomId: 7, UserId: 1},
		{Id: 2, RoomId: 7, UserId: 2, LastReadAt: &before},
		{Id: 3, RoomId: 7, UserId: 3, LastReadAt: &sentAt},
		{Id: 4, RoomId: 7, UserId: 4, LastReadAt: &after},
		{Id: 5, RoomId: 7, UserId: 5},
	}}
	delivery := &fakeDelivery{}
	svc := newTestConsumer(msgRepo, &fakeRoomRepo{}, memberRepo, &fakeUserRepo{users: map[int64]*entity.User{}}, delivery, nil)

	event := dto.ChatMessageEvent{
		EventID:  uuid.New(),
		RoomID:   7,
		SenderID: 1,
		Content:  "who has seen this",
		SentAt:   sentAt,
	}
	if err := svc.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	var payload dto.ChatMessagePayload
	if err := json.Unmarshal(delivery.payloads[7][0], &payload); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	// User 2 (read before) and user 5 (never read) are unread; user 3 read
	// exactly at sentAt and user 4 after, and user 1 is the sender.
	if payload.UnreadMemberCount != 2 {
		t.Errorf("UnreadMemberCount = %d, want 2", payload.UnreadMemberCount)
	}
}

func TestDeliverRetriesTransientFailures(t *testing.T) {
	msgRepo := &fakeMessageRepo{failures: 2}
	roomRepo := &fakeRoomRepo{}
	userRepo := &fakeUserRepo{users: map[int64]*entity.User{}}
	delivery := &fakeDelivery{}
	svc := newTestConsumer(msgRepo, roomRepo, &fakeMemberRepo{}, userRepo, delivery, nil)

	event := dto.ChatMessageEvent{
		EventID:  uuid.New(),
		RoomID:   3,
		SenderID: 1,
		Content:  "retry me",
		SentAt:   time.Now().UTC(),
	}

	if err := svc.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver should succeed after retries: %v", err)
	}
	if len(msgRepo.saved) != 1 {
		t.Fatalf("expected message persisted on third attempt, got %d", len(msgRepo.saved))
	}
}

func TestDeliverRedeliveryIsIdempotent(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	roomRepo := &fakeRoomRepo{}
	userRepo := &fakeUserRepo{users: map[int64]*entity.User{}}
	delivery := &fakeDelivery{}
	svc := newTestConsumer(msgRepo, roomRepo, &fakeMemberRepo{}, userRepo, delivery, nil)

	event := dto.ChatMessageEvent{
		EventID:  uuid.New(),
		RoomID:   5,
		SenderID: 1,
		Content:  "delivered twice",
		SentAt:   time.Now().UTC(),
	}

	for i := 0; i < 2; i++ {
		if err := svc.Deliver(context.Background(), event); err != nil {
			t.Fatalf("Deliver attempt %d: %v", i+1, err)
		}
	}

	if len(msgRepo.saved) != 1 {
		t.Fatalf("redelivery created %d rows, want 1", len(msgRepo.saved))
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	roomRepo := &fakeRoomRepo{}
	userRepo := &fakeUserRepo{users: map[int64]*entity.User{}}
	delivery := &fakeDelivery{}
	svc := newTestConsumer(msgRepo, roomRepo, &fakeMemberRepo{}, userRepo, delivery, nil)

	svc.handle(context.Background(), []byte("{not json"))

	if len(msgRepo.saved) != 0 {
		t.Errorf("malformed payload should persist nothing, got %d rows", len(msgRepo.saved))
	}
	if len(delivery.payloads) != 0 {
		t.Errorf("malformed payload should broadcast nothing")
	}
}

func TestDeliverPublishesMentionEvent(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	roomRepo := &fakeRoomRepo{}
	userRepo := &fakeUserRepo{users: map[int64]*entity.User{
		1: {Id: 1, DisplayName: "Bram"},
	}}
	delivery := &fakeDelivery{}
	pub := &fakePublisher{}
	svc := newTestConsumer(msgRepo, roomRepo, &fakeMemberRepo{}, userRepo, delivery, pub)

	event := dto.ChatMessageEvent{
		EventID:  uuid.New(),
		RoomID:   9,
		SenderID: 1,
		Content:  "ping @ana",
		Mentions: []int64{42},
		SentAt:   time.Now().UTC(),
	}

	if err := svc.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 mention event, got %d", len(pub.events))
	}
	mention, ok := pub.events[0].(events.ChatMentionEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", pub.events[0])
	}
	if mention.RoomID != 9 || len(mention.MentionedIDs) != 1 || mention.MentionedIDs[0] != 42 {
		t.Errorf("mention event mismatch: %+v", mention)
	}
	if mention.SenderName != "Bram" {
		t.Errorf("SenderName = %q, want Bram", mention.SenderName)
	}
}

func TestDeliverWithoutMentionsSkipsPublisher(t *testing.T) {
	msgRepo := &fakeMessageRepo{}
	pub := &fakePublisher{}
	svc := newTestConsumer(msgRepo, &fakeRoomRepo{}, &fakeMemberRepo{}, &fakeUserRepo{users: map[int64]*entity.User{}}, &fakeDelivery{}, pub)

	event := dto.ChatMessageEvent{
		EventID:  uuid.New(),
		RoomID:   2,
		SenderID: 1,
		Content:  "no mentions here",
		SentAt:   time.Now().UTC(),
	}
	if err := svc.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no mention events, got %d", len(pub.events))
	}
}

// The final failed attempt must surface its own error right away, without a
// trailing backoff sleep swallowing it into a context error.
func TestRetryFinalFailureReturnsWithoutBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wantErr := errors.New("store unavailable")
	calls := 0
	err := withRetry(ctx, 1, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("withRetry = %v, want the attempt's own error", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetryExhaustsAllAttempts(t *testing.T) {
	wantErr := errors.New("store unavailable")
	calls := 0
	err := withRetry(context.Background(), 3, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("withRetry = %v, want the attempt's own error", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}
