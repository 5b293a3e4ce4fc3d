package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safecircle/models"
)

func TestMemoryCloseRoomOnce(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateAlert(ctx, &models.Alert{ID: "a1", UserID: "u1"}))
	require.NoError(t, s.CreateRoom(ctx, &models.EmergencyRoom{RoomID: "r1", AlertID: "a1", VictimID: "u1"}, []string{"u1", "u2"}))

	changed, err := s.CloseRoom(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.CloseRoom(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.CloseRoom(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRoomIsOneToOneWithAlert(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateRoom(ctx, &models.EmergencyRoom{RoomID: "r1", AlertID: "a1"}, nil))
	err := s.CreateRoom(ctx, &models.EmergencyRoom{RoomID: "r2", AlertID: "a1"}, nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryMessagesOrderedBySentAtThenInsertion(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	t0 := time.Now()
	sender := "u2"

	require.NoError(t, s.AppendMessage(ctx, &models.ChatMessage{RoomID: "r1", Body: "second", SentAt: t0.Add(time.Second)}))
	require.NoError(t, s.AppendMessage(ctx, &models.ChatMessage{RoomID: "r1", Body: "first", SentAt: t0}))
	require.NoError(t, s.AppendMessage(ctx, &models.ChatMessage{RoomID: "r1", SenderID: &sender, Body: "tie", SentAt: t0}))
	require.NoError(t, s.AppendMessage(ctx, &models.ChatMessage{RoomID: "other", Body: "elsewhere", SentAt: t0}))

	msgs, err := s.ListMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "tie", msgs[1].Body)
	assert.Equal(t, "second", msgs[2].Body)
}

func TestMemoryActiveRoomsAndResolve(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateAlert(ctx, &models.Alert{ID: "a1", UserID: "u1"}))
	require.NoError(t, s.CreateAlert(ctx, &models.Alert{ID: "a2", UserID: "u1"}))
	require.NoError(t, s.CreateRoom(ctx, &models.EmergencyRoom{RoomID: "r1", AlertID: "a1", VictimID: "u1"}, []string{"u1"}))
	require.NoError(t, s.CreateRoom(ctx, &models.EmergencyRoom{RoomID: "r2", AlertID: "a2", VictimID: "u1"}, []string{"u1"}))

	rooms, err := s.ActiveRoomsForVictim(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, rooms)

	n, err := s.ResolveAlertsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rooms, err = s.ActiveRoomsForVictim(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rooms)

	open, err := s.OpenRoomsForResolvedAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, open)
}

func TestMemoryFriendRequestsAreDirectional(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateFriendRequest(ctx, &models.Friendship{ID: "f1", UserID: "u1", FriendID: "u4", Status: models.FriendPending}))
	assert.ErrorIs(t, s.CreateFriendRequest(ctx, &models.Friendship{ID: "f2", UserID: "u1", FriendID: "u4", Status: models.FriendPending}), ErrAlreadyExists)
	// the reverse direction is a separate request
	require.NoError(t, s.CreateFriendRequest(ctx, &models.Friendship{ID: "f3", UserID: "u4", FriendID: "u1", Status: models.FriendPending}))

	require.NoError(t, s.SetFriendRequestStatus(ctx, "u1", "u4", models.FriendAccepted))
	assert.ErrorIs(t, s.SetFriendRequestStatus(ctx, "u1", "u4", models.FriendAccepted), ErrNotFound)

	for _, uid := range []string{"u1", "u4"} {
		edges, err := s.ListFriendships(ctx, uid, models.FriendAccepted)
		require.NoError(t, err)
		require.Len(t, edges, 1, uid)
	}
}

func TestMemoryAppendOpenRoomMessage(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	sender := "u2"
	require.NoError(t, s.CreateRoom(ctx, &models.EmergencyRoom{RoomID: "r1", AlertID: "a1", VictimID: "u1"}, []string{"u1", "u2"}))

	require.NoError(t, s.AppendOpenRoomMessage(ctx, &models.ChatMessage{RoomID: "r1", SenderID: &sender, Body: "on my way", SentAt: time.Now()}))
	_, err := s.CloseRoom(ctx, "r1")
	require.NoError(t, err)

	err = s.AppendOpenRoomMessage(ctx, &models.ChatMessage{RoomID: "r1", SenderID: &sender, Body: "too late", SentAt: time.Now()})
	assert.ErrorIs(t, err, ErrRoomClosed)
	err = s.AppendOpenRoomMessage(ctx, &models.ChatMessage{RoomID: "missing", SenderID: &sender, Body: "hello", SentAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)

	// system lines still land after the close
	require.NoError(t, s.AppendMessage(ctx, &models.ChatMessage{RoomID: "r1", Body: "closed", SentAt: time.Now()}))

	msgs, err := s.ListMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "on my way", msgs[0].Body)
	assert.Equal(t, "closed", msgs[1].Body)
}

func TestMemoryListAlertsFilter(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.CreateAlert(ctx, &models.Alert{ID: "a1", UserID: "u1", Type: "fire", Details: "Kitchen fire"}))
	require.NoError(t, s.CreateAlert(ctx, &models.Alert{ID: "a2", UserID: "u2", Type: "medical", Details: "fell in the kitchen"}))
	require.NoError(t, s.CreateAlert(ctx, &models.Alert{ID: "a3", UserID: "u3", Type: "fire", Details: "garage"}))
	_, err := s.ResolveAlert(ctx, "a3")
	require.NoError(t, err)

	ids := func(filter AlertFilter) []string {
		alerts, err := s.ListAlerts(ctx, filter)
		require.NoError(t, err)
		var out []string
		for _, a := range alerts {
			out = append(out, a.ID)
		}
		return out
	}
	unresolved := false

	assert.Equal(t, []string{"a3", "a2", "a1"}, ids(AlertFilter{}))
	assert.Equal(t, []string{"a3", "a1"}, ids(AlertFilter{Type: "FIRE"}))
	assert.Equal(t, []string{"a1"}, ids(AlertFilter{Type: "fire", Resolved: &unresolved}))
	assert.Equal(t, []string{"a2", "a1"}, ids(AlertFilter{Search: "KITCHEN"}))
	assert.Empty(t, ids(AlertFilter{Type: "police"}))
}
