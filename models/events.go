package models

// Outbound event names pushed over the websocket.
const (
	EventEmergencyAlert   = "emergency_alert"
	EventAlertsChanged    = "alerts_changed"
	EventChatMessage      = "emergency_chat_message"
	EventRoomClosed       = "emergency_room_closed"
	EventServiceResponded = "service_responded"
	EventJoinedRoom       = "joined_room"
	EventError            = "error"
	EventPong             = "pong"
)

const SystemSenderName = "System"

// ChatEvent is the payload of EventChatMessage. UserID is nil for system messages.
type ChatEvent struct {
	ID       int64   `json:"id,omitempty"`
	RoomID   string  `json:"room_id"`
	UserID   *string `json:"user_id"`
	UserName string  `json:"user_name"`
	Message  string  `json:"message"`
	SentAt   string  `json:"sent_at,omitempty"`
}
