package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"safecircle/metrics"
	"safecircle/models"
)

// Hub routes frames to live connections. A connection is either a user
// connection, reachable through its identity channel and any room channels
// it joined, or a dashboard connection that only receives Broadcast frames.
type Hub struct {
	clients   map[string]*Client
	userConns map[string]map[*Client]bool
	roomConns map[string]map[*Client]bool
	dashboard map[*Client]bool
	rooms     RoomService
	mu        sync.RWMutex
}

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type ClientMessage struct {
	Action string `json:"action"`
	RoomID string `json:"room_id,omitempty"`
	Body   string `json:"body,omitempty"`
}

// RoomService authorizes joins and accepts chat sends coming from clients.
type RoomService interface {
	CanJoin(ctx context.Context, roomID, userID string) error
	SendChat(ctx context.Context, roomID, senderID, body string) (*models.ChatMessage, error)
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		userConns: make(map[string]map[*Client]bool),
		roomConns: make(map[string]map[*Client]bool),
		dashboard: make(map[*Client]bool),
	}
}

func (h *Hub) SetRoomService(rs RoomService) {
	h.mu.Lock()
	h.rooms = rs
	h.mu.Unlock()
}

func (h *Hub) roomService() RoomService {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms
}

// Attach subscribes a user connection to its identity channel, so directed
// frames reach every tab the user has open.
func (h *Hub) Attach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	if h.userConns[client.UserID] == nil {
		h.userConns[client.UserID] = make(map[*Client]bool)
	}
	h.userConns[client.UserID][client] = true
	metrics.LiveConnections.WithLabelValues("user").Inc()
}

func (h *Hub) AttachDashboard(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.dashboard[client] = true
	metrics.LiveConnections.WithLabelValues("dashboard").Inc()
}

// Detach drops the connection from every channel and closes its send buffer.
// Detaching twice is harmless.
func (h *Hub) Detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)

	if h.dashboard[client] {
		delete(h.dashboard, client)
		metrics.LiveConnections.WithLabelValues("dashboard").Dec()
	} else {
		if conns := h.userConns[client.UserID]; conns != nil {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.userConns, client.UserID)
			}
		}
		metrics.LiveConnections.WithLabelValues("user").Dec()
	}

	for roomID := range client.rooms {
		if conns := h.roomConns[roomID]; conns != nil {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.roomConns, roomID)
			}
		}
	}
	close(client.Send)
}

// JoinRoom subscribes one connection to a room channel. Callers check
// membership before inviting a connection in.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.joinLocked(client, roomID)
}

// JoinUser subscribes every live connection of userID to a room channel.
func (h *Hub) JoinUser(userID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.userConns[userID] {
		h.joinLocked(client, roomID)
	}
}

func (h *Hub) joinLocked(client *Client, roomID string) {
	if h.roomConns[roomID] == nil {
		h.roomConns[roomID] = make(map[*Client]bool)
	}
	h.roomConns[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) EmitToUser(userID, event string, payload interface{}) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.userConns[userID] {
		h.trySend(client, data)
	}
}

func (h *Hub) EmitToRoom(roomID, event string, payload interface{}) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.roomConns[roomID] {
		h.trySend(client, data)
	}
}

// Broadcast goes to dashboard connections only, never to user channels.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.dashboard {
		h.trySend(client, data)
	}
}

// SendTo delivers to a single connection, e.g. a notice only the sender sees.
func (h *Hub) SendTo(client *Client, event string, payload interface{}) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, attached := h.clients[client.ID]; attached {
		h.trySend(client, data)
	}
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomConns[roomID])
}

// trySend must run under h.mu so Detach cannot close Send concurrently.
// A full buffer drops the frame rather than stalling the emitter.
func (h *Hub) trySend(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		metrics.DroppedFrames.Inc()
		zap.L().Warn("send buffer full, frame dropped",
			zap.String("conn_id", client.ID), zap.String("user_id", client.UserID))
	}
}

func encode(event string, payload interface{}) ([]byte, bool) {
	data, err := json.Marshal(&Message{Event: event, Data: payload})
	if err != nil {
		zap.L().Error("encode frame", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return data, true
}
