package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"team-messenger-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub tracks which clients are subscribed to which rooms and fans persisted
// messages out to them. Room subscriptions are connection-scoped: a client
// joins the rooms it is viewing and leaves when it navigates away.
type Hub struct {
	// rooms maps RoomID -> subscribed clients
	rooms map[int64]map[*Client]struct{}

	// clients maps every live connection to its joined rooms
	clients map[*Client]map[int64]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out
	rdb *redis.Client

	// instanceID lets the Redis subscriber skip payloads this instance
	// already delivered locally.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]struct{}),
		clients:    make(map[*Client]map[int64]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = make(map[int64]struct{})
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if joined, ok := h.clients[client]; ok {
				for roomID := range joined {
					h.dropFromRoom(roomID, client)
				}
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": client.UserID})
			}
			h.mu.Unlock()
		}
	}
}

// Join subscribes a client to a room's message stream.
func (h *Hub) Join(client *Client, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	h.clients[client][roomID] = struct{}{}
}

// Leave removes a client from a room's message stream.
func (h *Hub) Leave(client *Client, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if joined, ok := h.clients[client]; ok {
		delete(joined, roomID)
	}
	h.dropFromRoom(roomID, client)
}

// dropFromRoom must be called with h.mu held.
func (h *Hub) dropFromRoom(roomID int64, client *Client) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// PublishToRoom delivers a payload to every local subscriber of a room and
// relays it to other instances through Redis. A subscriber whose buffer is
// full is disconnected rather than allowed to stall the room.
func (h *Hub) PublishToRoom(roomID int64, payload []byte) {
	h.deliverLocal(roomID, payload)

	if h.rdb != nil {
		wrapped, _ := json.Marshal(clusterEvent{Origin: h.instanceID, RoomID: roomID, Message: payload})
		h.rdb.Publish(context.Background(), "cluster_events", wrapped)
	}
}

func (h *Hub) deliverLocal(roomID int64, payload []byte) {
	h.mu.RLock()
	var stalled []*Client
	for client := range h.rooms[roomID] {
		select {
		case client.Send <- payload:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{
			"user_id": client.UserID,
			"room_id": roomID,
		})
		h.unregister <- client
	}
}

type clusterEvent struct {
	Origin  string          `json:"origin"`
	RoomID  int64           `json:"room_id"`
	Message json.RawMessage `json:"message"`
}

// subscribeToRedis receives room payloads published by other instances.
// Payloads originating here are skipped; local delivery already happened.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		var evt clusterEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}
		if evt.Origin == h.instanceID {
			continue
		}
		h.deliverLocal(evt.RoomID, evt.Message)
	}
}
