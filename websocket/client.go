package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/models"
	"safecircle/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
	actionTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte

	// room channels this connection joined; guarded by Hub.mu
	rooms map[string]bool
}

func NewClient(hub *Hub, userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     utils.GenerateUUID(),
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]bool),
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Detach(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read", zap.String("user_id", c.UserID), zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) WritePump() {
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
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

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

func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Action {
	case "ping":
		c.Hub.SendTo(c, models.EventPong, nil)
	case "join_room":
		if c.UserID != "" {
			c.handleJoinRoom(&msg)
		}
	case "chat_message":
		if c.UserID != "" {
			c.handleChatMessage(&msg)
		}
	}
}

func (c *Client) handleJoinRoom(msg *ClientMessage) {
	rooms := c.Hub.roomService()
	if rooms == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := rooms.CanJoin(ctx, msg.RoomID, c.UserID); err != nil {
		c.sendError(msg.RoomID, err)
		return
	}
	c.Hub.JoinRoom(c, msg.RoomID)
	c.Hub.SendTo(c, models.EventJoinedRoom, gin.H{"room_id": msg.RoomID})
}

func (c *Client) handleChatMessage(msg *ClientMessage) {
	rooms := c.Hub.roomService()
	if rooms == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	_, err := rooms.SendChat(ctx, msg.RoomID, c.UserID, msg.Body)
	if err == nil {
		return
	}
	if apperr.Is(err, apperr.KindConflict) {
		// only the sender learns the room is closed
		c.Hub.SendTo(c, models.EventChatMessage, &models.ChatEvent{
			RoomID:   msg.RoomID,
			UserName: models.SystemSenderName,
			Message:  apperr.Message(err),
		})
		return
	}
	c.sendError(msg.RoomID, err)
}

func (c *Client) sendError(roomID string, err error) {
	c.Hub.SendTo(c, models.EventError, gin.H{
		"room_id": roomID,
		"kind":    apperr.KindOf(err),
		"message": apperr.Message(err),
	})
}

// HandleWebSocket attaches an authenticated user connection.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := NewClient(h, claims.UserID, conn)
	h.Attach(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleDashboard attaches an unauthenticated connection to the dashboard
// topic. It never joins identity or room channels.
func (h *Hub) HandleDashboard(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := NewClient(h, "", conn)
	h.AttachDashboard(client)

	go client.WritePump()
	go client.ReadPump()
}
