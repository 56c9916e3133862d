package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/pkg/chatlog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
)

func TestSendAppendsKeyedByRoom(t *testing.T) {
	log := chatlog.New("chat.message.sent", 4, watermill.NopLogger{})
	svc := NewChatProducerService(log, nopLogger{})

	received := make(chan []byte, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := log.Consume(ctx, 1, func(ctx context.Context, payload []byte) {
		received <- payload
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	event := svc.Send(context.Background(), 42, "Ana", dto.SendMessageRequest{
		RoomID:  7,
		Content: "hello",
	})

	if event.EventID == (uuid.UUID{}) {
		t.Fatal("Send should assign an event id")
	}
	if event.SenderID != 42 || event.RoomID != 7 {
		t.Errorf("event identity mismatch: %+v", event)
	}
	if event.MessageKind != "TEXT" {
		t.Errorf("MessageKind = %q, want TEXT", event.MessageKind)
	}

	select {
	case payload := <-received:
		var got dto.ChatMessageEvent
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal appended event: %v", err)
		}
		if got.EventID != event.EventID {
			t.Errorf("appended event id %s, want %s", got.EventID, event.EventID)
		}
		if got.Content != "hello" {
			t.Errorf("Content = %q, want hello", got.Content)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for appended event")
	}
}

func TestSendNeverFailsTheCaller(t *testing.T) {
	log := chatlog.New("chat.message.sent", 4, watermill.NopLogger{})
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	svc := NewChatProducerService(log, nopLogger{})

	// Appending to a closed log fails internally; Send still returns the
	// event it built.
	event := svc.Send(context.Background(), 1, "Bo", dto.SendMessageRequest{
		RoomID:  3,
		Content: "into the void",
	})
	if event.RoomID != 3 || event.Content != "into the void" {
		t.Errorf("event should be fully populated even when append fails: %+v", event)
	}
}

func TestSendNormalizesUnknownKind(t *testing.T) {
	log := chatlog.New("chat.message.sent", 4, watermill.NopLogger{})
	svc := NewChatProducerService(log, nopLogger{})

	event := svc.Send(context.Background(), 1, "Bo", dto.SendMessageRequest{
		RoomID:      1,
		Content:     "x",
		MessageKind: "CARRIER_PIGEON",
	})
	if event.MessageKind != "TEXT" {
		t.Errorf("unknown kind should fall back to TEXT, got %q", event.MessageKind)
	}
}
