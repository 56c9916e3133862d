package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"team-messenger-be/internal/dto"
	"team-messenger-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// inboundFrame is what the browser sends us. Type selects the action; the
// remaining fields are read per type.
type inboundFrame struct {
	Type    string                 `json:"type"`
	RoomID  int64                  `json:"room_id,omitempty"`
	Message dto.SendMessageRequest `json:"message,omitempty"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	UserID      int64
	DisplayName string

	producer service.IChatProducerService

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump pumps frames from the websocket connection into the hub and the
// delivery pipeline.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error for user %d: %v", c.UserID, err)
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.Hub.logger.Warn("Hub", "Dropping malformed inbound frame", map[string]interface{}{
				"user_id": c.UserID,
				"error":   err.Error(),
			})
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame inboundFrame) {
	switch frame.Type {
	case "join":
		c.Hub.Join(c, frame.RoomID)
	case "leave":
		c.Hub.Leave(c, frame.RoomID)
	case "send":
		req := frame.Message
		if req.RoomID == 0 {
			req.RoomID = frame.RoomID
		}
		c.producer.Send(context.Background(), c.UserID, c.DisplayName, req)
	case "typing":
		payload, _ := json.Marshal(map[string]interface{}{
			"type":        "typing",
			"room_id":     frame.RoomID,
			"user_id":     c.UserID,
			"sender_name": c.DisplayName,
		})
		c.Hub.PublishToRoom(frame.RoomID, payload)
	default:
		c.Hub.logger.Warn("Hub", "Unknown inbound frame type", map[string]interface{}{
			"user_id": c.UserID,
			"type":    frame.Type,
		})
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket frame.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
