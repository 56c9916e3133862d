package websocket

import (
	"context"

	"team-messenger-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

// ServeWs handles websocket requests from the peer. It marks the user online
// for the lifetime of the connection.
func ServeWs(hub *Hub, producer service.IChatProducerService, presence service.IPresenceService, c *websocket.Conn, userID int64, displayName string) {
	client := &Client{
		Hub:         hub,
		Conn:        c,
		UserID:      userID,
		DisplayName: displayName,
		producer:    producer,
		Send:        make(chan []byte, 256),
	}
	client.Hub.register <- client

	if presence != nil {
		if err := presence.MarkOnline(context.Background(), userID); err != nil {
			hub.logger.Warn("Hub", "Failed to mark user online", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		defer func() {
			if err := presence.MarkOffline(context.Background(), userID); err != nil {
				hub.logger.Warn("Hub", "Failed to mark user offline", map[string]interface{}{
					"user_id": userID,
					"error":   err.Error(),
				})
			}
		}()
	}

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
