package emergency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/metrics"
	"safecircle/models"
	"safecircle/store"
)

const (
	closedRoomMessage = "This emergency chat has been closed."
	closeTimeout      = 10 * time.Second
)

// RoomCloser owns one delayed close per room. Timers are tracked so they can
// be listed, cancelled and stopped on shutdown. A room left open by a
// restart is picked up again by the Sweeper.
type RoomCloser struct {
	rooms    *RoomRegistry
	messages store.MessageStore
	presence Presence
	delay    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func NewRoomCloser(rooms *RoomRegistry, messages store.MessageStore, presence Presence, delay time.Duration) *RoomCloser {
	return &RoomCloser{
		rooms:    rooms,
		messages: messages,
		presence: presence,
		delay:    delay,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

func (c *RoomCloser) Delay() time.Duration { return c.delay }

// Schedule arms the close timer for roomID. It returns false when a timer is
// already pending for the room or the closer has been stopped.
func (c *RoomCloser) Schedule(roomID string) bool {
	return c.ScheduleAnnounce(roomID, nil)
}

// ScheduleAnnounce is Schedule with a notice. announce runs only for the call
// that claimed the room, before the timer is armed, so the notice always
// precedes the closing line and concurrent callers post it once.
func (c *RoomCloser) ScheduleAnnounce(roomID string, announce func()) bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if _, pending := c.timers[roomID]; pending {
		c.mu.Unlock()
		return false
	}
	// claimed; the timer is armed once the notice is out
	c.timers[roomID] = nil
	metrics.PendingCloses.Inc()
	c.mu.Unlock()

	if announce != nil {
		announce()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timers[roomID]; !ok {
		// cancelled or stopped while announcing
		return false
	}
	c.wg.Add(1)
	c.timers[roomID] = time.AfterFunc(c.delay, func() {
		defer c.wg.Done()
		c.fire(roomID)
	})
	return true
}

// Cancel disarms a pending close. It reports whether a timer was pending.
func (c *RoomCloser) Cancel(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked(roomID)
}

func (c *RoomCloser) cancelLocked(roomID string) bool {
	t, ok := c.timers[roomID]
	if !ok {
		return false
	}
	delete(c.timers, roomID)
	if t != nil && t.Stop() {
		c.wg.Done()
	}
	metrics.PendingCloses.Dec()
	return true
}

func (c *RoomCloser) IsPending(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.timers[roomID]
	return ok
}

func (c *RoomCloser) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.timers))
	for id := range c.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop disarms every pending timer and waits for closes already running.
func (c *RoomCloser) Stop() {
	c.mu.Lock()
	c.stopped = true
	for id := range c.timers {
		c.cancelLocked(id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *RoomCloser) fire(roomID string) {
	c.mu.Lock()
	if _, ok := c.timers[roomID]; !ok {
		// cancelled after the timer had already started
		c.mu.Unlock()
		return
	}
	delete(c.timers, roomID)
	c.mu.Unlock()
	metrics.PendingCloses.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if _, err := c.CloseNow(ctx, roomID); err != nil {
		zap.L().Error("close emergency room", zap.String("room_id", roomID), zap.Error(err))
	}
}

// CloseNow closes the room immediately. The closing notice and the closure
// event go out only from the call that performed the transition, so a
// duplicate close is silent.
func (c *RoomCloser) CloseNow(ctx context.Context, roomID string) (bool, error) {
	changed, err := c.rooms.Close(ctx, roomID)
	if err != nil || !changed {
		return false, err
	}
	metrics.RoomsClosed.Inc()

	msg := &models.ChatMessage{RoomID: roomID, Body: closedRoomMessage, SentAt: c.now()}
	if err := c.messages.AppendMessage(ctx, msg); err != nil {
		// the room is closed either way; only the history line is missing
		zap.L().Warn("append closing message", zap.String("room_id", roomID), zap.Error(err))
	}

	c.presence.EmitToRoom(roomID, models.EventRoomClosed, map[string]string{"room_id": roomID})
	c.presence.EmitToRoom(roomID, models.EventChatMessage, chatEvent(msg, models.SystemSenderName))
	zap.L().Info("emergency room closed", zap.String("room_id", roomID))
	return true, nil
}

// postSystemMessage appends a system line to the room and pushes it to the
// room channel.
func postSystemMessage(ctx context.Context, messages store.MessageStore, presence Presence, roomID, body string, at time.Time) error {
	msg := &models.ChatMessage{RoomID: roomID, Body: body, SentAt: at}
	if err := messages.AppendMessage(ctx, msg); err != nil {
		return apperr.Transient("failed to save system message", err)
	}
	presence.EmitToRoom(roomID, models.EventChatMessage, chatEvent(msg, models.SystemSenderName))
	return nil
}

func safeNotice(delay time.Duration) string {
	return fmt.Sprintf("The victim has marked themselves as safe. Thank you for your assistance!\nThis room will be closed in %s.", humanDelay(delay))
}

func resolvedNotice(delay time.Duration) string {
	return fmt.Sprintf("This alert has been resolved.\nThis room will be closed in %s.", humanDelay(delay))
}

func humanDelay(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}

type MarkSafeResult struct {
	ResolvedAlerts int64    `json:"resolved_alerts"`
	Rooms          []string `json:"rooms"`
}

// MarkSafe resolves every open alert of the victim, posts the safe notice in
// each of their active rooms and schedules the rooms to close.
func (s *Service) MarkSafe(ctx context.Context, victimID string) (*MarkSafeResult, error) {
	if victimID == "" {
		return nil, apperr.Validation("victim id is required")
	}

	rooms, err := s.Rooms.ActiveRoomsForVictim(ctx, victimID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.store.ResolveAlertsForUser(ctx, victimID)
	if err != nil {
		return nil, apperr.Transient("failed to resolve alerts", err)
	}

	for _, roomID := range rooms {
		s.announceAndSchedule(ctx, roomID, safeNotice(s.Closer.Delay()))
	}

	if resolved > 0 {
		s.presence.Broadcast(models.EventAlertsChanged, nil)
	}
	zap.L().Info("victim marked safe",
		zap.String("victim_id", victimID), zap.Int64("resolved", resolved), zap.Strings("rooms", rooms))

	if rooms == nil {
		rooms = []string{}
	}
	return &MarkSafeResult{ResolvedAlerts: resolved, Rooms: rooms}, nil
}

// ResolveAlert resolves a single alert directly, e.g. from a responder
// console, and winds its room down the same way MarkSafe does.
func (s *Service) ResolveAlert(ctx context.Context, alertID string) error {
	if alertID == "" {
		return apperr.Validation("alert id is required")
	}

	changed, err := s.store.ResolveAlert(ctx, alertID)
	if err != nil {
		return storeErr(err, "alert not found", "failed to resolve alert")
	}
	if !changed {
		return nil
	}

	room, err := s.store.GetRoomByAlert(ctx, alertID)
	switch {
	case err == nil:
		if !room.Closed {
			s.announceAndSchedule(ctx, room.RoomID, resolvedNotice(s.Closer.Delay()))
		}
	case errors.Is(err, store.ErrNotFound):
		// dispatch failed before the room existed
	default:
		zap.L().Warn("load room for resolved alert", zap.String("alert_id", alertID), zap.Error(err))
	}

	s.presence.Broadcast(models.EventAlertsChanged, nil)
	return nil
}

// announceAndSchedule posts notice only when this call armed the close, so a
// room already winding down is not told twice.
func (s *Service) announceAndSchedule(ctx context.Context, roomID, notice string) bool {
	return s.Closer.ScheduleAnnounce(roomID, func() {
		if err := postSystemMessage(ctx, s.store, s.presence, roomID, notice, s.now()); err != nil {
			zap.L().Warn("post closing notice", zap.String("room_id", roomID), zap.Error(err))
		}
	})
}
