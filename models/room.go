package models

import "time"

const (
	RoomOpen    = "open"
	RoomClosing = "closing"
	RoomClosed  = "closed"
)

type EmergencyRoom struct {
	RoomID    string     `json:"room_id"`
	AlertID   string     `json:"alert_id"`
	VictimID  string     `json:"victim_id"`
	Closed    bool       `json:"closed"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

type RoomResponse struct {
	EmergencyRoom
	State   string   `json:"state"`
	Members []string `json:"members"`
}

type ChatMessage struct {
	ID       int64     `json:"id"`
	RoomID   string    `json:"room_id"`
	SenderID *string   `json:"user_id"` // nil for system messages
	Body     string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == nil
}
