package emergency

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/metrics"
	"safecircle/models"
	"safecircle/store"
)

const (
	closedRoomNotice = "This emergency chat has been closed. You cannot send messages."
	maxMessageLength = 4000
)

func chatEvent(msg *models.ChatMessage, userName string) *models.ChatEvent {
	ev := &models.ChatEvent{
		ID:       msg.ID,
		RoomID:   msg.RoomID,
		UserID:   msg.SenderID,
		UserName: userName,
		Message:  msg.Body,
	}
	if !msg.SentAt.IsZero() {
		ev.SentAt = msg.SentAt.UTC().Format(time.RFC3339Nano)
	}
	return ev
}

// SendChat appends a member's message to the room and fans it out on the
// room channel. A closed room rejects the send with a Conflict and nothing is
// stored or broadcast.
func (s *Service) SendChat(ctx context.Context, roomID, senderID, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	switch {
	case roomID == "":
		return nil, apperr.Validation("room id is required")
	case senderID == "":
		return nil, apperr.Validation("sender id is required")
	case body == "":
		return nil, apperr.Validation("message is empty")
	case utf8.RuneCountInString(body) > maxMessageLength:
		return nil, apperr.Validation("message is too long")
	}

	room, err := s.Rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, roomID, senderID); err != nil {
		return nil, err
	}
	if room.Closed {
		metrics.ChatMessages.WithLabelValues("rejected").Inc()
		return nil, apperr.Conflict(closedRoomNotice)
	}

	msg := &models.ChatMessage{
		RoomID:   roomID,
		SenderID: &senderID,
		Body:     body,
		SentAt:   s.now(),
	}
	// the room may close after the check above; the store rechecks on insert
	if err := s.store.AppendOpenRoomMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrRoomClosed) {
			metrics.ChatMessages.WithLabelValues("rejected").Inc()
			return nil, apperr.Conflict(closedRoomNotice)
		}
		metrics.ChatMessages.WithLabelValues("failed").Inc()
		return nil, storeErr(err, "room not found", "failed to save message")
	}
	metrics.ChatMessages.WithLabelValues("delivered").Inc()

	s.presence.EmitToRoom(roomID, models.EventChatMessage, chatEvent(msg, s.userName(ctx, senderID)))
	return msg, nil
}

// CanJoin reports whether userID may subscribe to the room channel. Closed
// rooms can still be joined to read the history.
func (s *Service) CanJoin(ctx context.Context, roomID, userID string) error {
	if roomID == "" {
		return apperr.Validation("room id is required")
	}
	if _, err := s.Rooms.Get(ctx, roomID); err != nil {
		return err
	}
	return s.requireMember(ctx, roomID, userID)
}

// History returns the room's messages oldest first, with sender names.
func (s *Service) History(ctx context.Context, roomID, userID string) ([]*models.ChatEvent, error) {
	if err := s.CanJoin(ctx, roomID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, roomID)
	if err != nil {
		return nil, apperr.Transient("failed to load messages", err)
	}

	events := make([]*models.ChatEvent, 0, len(msgs))
	for i := range msgs {
		name := models.SystemSenderName
		if !msgs[i].IsSystem() {
			name = s.userName(ctx, *msgs[i].SenderID)
		}
		events = append(events, chatEvent(&msgs[i], name))
	}
	return events, nil
}

// RoomState describes the room as seen by a member.
func (s *Service) RoomState(ctx context.Context, roomID, userID string) (*models.RoomResponse, error) {
	room, err := s.Rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	members, err := s.Rooms.Members(ctx, roomID)
	if err != nil {
		return nil, err
	}

	state := models.RoomOpen
	switch {
	case room.Closed:
		state = models.RoomClosed
	case s.Closer.IsPending(roomID):
		state = models.RoomClosing
	}
	return &models.RoomResponse{EmergencyRoom: *room, State: state, Members: members}, nil
}

func (s *Service) requireMember(ctx context.Context, roomID, userID string) error {
	ok, err := s.Rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		zap.L().Debug("room access denied", zap.String("room_id", roomID), zap.String("user_id", userID))
		return apperr.Forbidden("not a member of this room")
	}
	return nil
}
