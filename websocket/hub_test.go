package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safecircle/apperr"
	"safecircle/models"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func recv(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatalf("no frame for %s", c.UserID)
		return frame{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame for %q: %s", c.UserID, data)
	default:
	}
}

func TestEmitToUserReachesEveryTab(t *testing.T) {
	hub := NewHub()
	tab1 := NewClient(hub, "u1", nil)
	tab2 := NewClient(hub, "u1", nil)
	other := NewClient(hub, "u2", nil)
	hub.Attach(tab1)
	hub.Attach(tab2)
	hub.Attach(other)

	hub.EmitToUser("u1", models.EventEmergencyAlert, map[string]string{"room_id": "r1"})

	assert.Equal(t, models.EventEmergencyAlert, recv(t, tab1).Event)
	assert.Equal(t, models.EventEmergencyAlert, recv(t, tab2).Event)
	assertSilent(t, other)

	// nobody listening is not an error
	hub.EmitToUser("offline", models.EventEmergencyAlert, nil)
}

func TestEmitToRoomOnlyJoinedConnections(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, "u1", nil)
	b := NewClient(hub, "u2", nil)
	c := NewClient(hub, "u3", nil)
	for _, cl := range []*Client{a, b, c} {
		hub.Attach(cl)
	}
	hub.JoinRoom(a, "r1")
	hub.JoinUser("u2", "r1")

	hub.EmitToRoom("r1", models.EventChatMessage, &models.ChatEvent{RoomID: "r1", Message: "hi"})

	assert.Equal(t, models.EventChatMessage, recv(t, a).Event)
	assert.Equal(t, models.EventChatMessage, recv(t, b).Event)
	assertSilent(t, c)
	assert.Equal(t, 2, hub.RoomSize("r1"))
}

func TestDashboardTopicIsSeparate(t *testing.T) {
	hub := NewHub()
	user := NewClient(hub, "u1", nil)
	dash := NewClient(hub, "", nil)
	hub.Attach(user)
	hub.AttachDashboard(dash)
	hub.JoinRoom(user, "r1")

	hub.Broadcast(models.EventAlertsChanged, nil)
	assert.Equal(t, models.EventAlertsChanged, recv(t, dash).Event)
	assertSilent(t, user)

	hub.EmitToUser("", models.EventEmergencyAlert, nil)
	hub.EmitToUser("u1", models.EventEmergencyAlert, nil)
	hub.EmitToRoom("r1", models.EventChatMessage, nil)
	assert.Equal(t, models.EventEmergencyAlert, recv(t, user).Event)
	assert.Equal(t, models.EventChatMessage, recv(t, user).Event)
	assertSilent(t, dash)
}

func TestSlowClientDoesNotBlockEmit(t *testing.T) {
	hub := NewHub()
	slow := NewClient(hub, "u1", nil)
	slow.Send = make(chan []byte, 1)
	hub.Attach(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.EmitToUser("u1", models.EventEmergencyAlert, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full buffer")
	}
	assert.Len(t, slow.Send, 1)
}

func TestDetachRemovesFromAllChannels(t *testing.T) {
	hub := NewHub()
	cl := NewClient(hub, "u1", nil)
	hub.Attach(cl)
	hub.JoinRoom(cl, "r1")
	require.True(t, hub.IsOnline("u1"))

	hub.Detach(cl)
	hub.Detach(cl)

	assert.False(t, hub.IsOnline("u1"))
	assert.Equal(t, 0, hub.RoomSize("r1"))
	_, ok := <-cl.Send
	assert.False(t, ok)

	// emits after detach must not panic on the closed channel
	hub.EmitToUser("u1", models.EventEmergencyAlert, nil)
	hub.EmitToRoom("r1", models.EventChatMessage, nil)
	hub.SendTo(cl, models.EventPong, nil)
}

type fakeRooms struct {
	members map[string]bool
	closed  bool
	sent    []string
}

func (f *fakeRooms) CanJoin(ctx context.Context, roomID, userID string) error {
	if !f.members[userID] {
		return apperr.Forbidden("not a member of this room")
	}
	return nil
}

func (f *fakeRooms) SendChat(ctx context.Context, roomID, senderID, body string) (*models.ChatMessage, error) {
	if f.closed {
		return nil, apperr.Conflict("This emergency chat has been closed. You cannot send messages.")
	}
	f.sent = append(f.sent, body)
	return &models.ChatMessage{RoomID: roomID, SenderID: &senderID, Body: body}, nil
}

func TestClientJoinRoomChecksMembership(t *testing.T) {
	hub := NewHub()
	hub.SetRoomService(&fakeRooms{members: map[string]bool{"u1": true}})
	member := NewClient(hub, "u1", nil)
	outsider := NewClient(hub, "u3", nil)
	hub.Attach(member)
	hub.Attach(outsider)

	member.handleMessage([]byte(`{"action":"join_room","room_id":"r1"}`))
	outsider.handleMessage([]byte(`{"action":"join_room","room_id":"r1"}`))

	assert.Equal(t, models.EventJoinedRoom, recv(t, member).Event)
	assert.Equal(t, models.EventError, recv(t, outsider).Event)
	assert.Equal(t, 1, hub.RoomSize("r1"))
}

func TestClosedRoomNoticeGoesOnlyToSender(t *testing.T) {
	hub := NewHub()
	rooms := &fakeRooms{members: map[string]bool{"u1": true, "u2": true}, closed: true}
	hub.SetRoomService(rooms)
	sender := NewClient(hub, "u2", nil)
	peer := NewClient(hub, "u1", nil)
	hub.Attach(sender)
	hub.Attach(peer)
	hub.JoinRoom(sender, "r1")
	hub.JoinRoom(peer, "r1")

	sender.handleMessage([]byte(`{"action":"chat_message","room_id":"r1","body":"anyone?"}`))

	f := recv(t, sender)
	require.Equal(t, models.EventChatMessage, f.Event)
	var ev models.ChatEvent
	require.NoError(t, json.Unmarshal(f.Data, &ev))
	assert.Nil(t, ev.UserID)
	assert.Equal(t, models.SystemSenderName, ev.UserName)
	assert.Contains(t, ev.Message, "closed")
	assertSilent(t, peer)
	assert.Empty(t, rooms.sent)
}

func TestDashboardClientCannotChat(t *testing.T) {
	hub := NewHub()
	rooms := &fakeRooms{members: map[string]bool{"": true}}
	hub.SetRoomService(rooms)
	dash := NewClient(hub, "", nil)
	hub.AttachDashboard(dash)

	dash.handleMessage([]byte(`{"action":"chat_message","room_id":"r1","body":"x"}`))
	dash.handleMessage([]byte(`{"action":"ping"}`))

	assert.Equal(t, models.EventPong, recv(t, dash).Event)
	assert.Empty(t, rooms.sent)
}
