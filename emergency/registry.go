package emergency

import (
	"context"
	"time"

	"safecircle/apperr"
	"safecircle/models"
	"safecircle/store"
	"safecircle/utils"
)

// RoomRegistry owns alert -> room -> members and the closed flag.
// Membership is fixed at creation.
type RoomRegistry struct {
	store store.RoomStore
	now   func() time.Time
}

func NewRoomRegistry(st store.RoomStore) *RoomRegistry {
	return &RoomRegistry{store: st, now: time.Now}
}

// CreateRoom persists a new open room for alertID with memberIDs plus the
// victim. Nothing is left behind when it fails.
func (r *RoomRegistry) CreateRoom(ctx context.Context, alertID, victimID string, memberIDs []string) (string, error) {
	room := &models.EmergencyRoom{
		RoomID:    utils.GenerateUUID(),
		AlertID:   alertID,
		VictimID:  victimID,
		CreatedAt: r.now(),
	}

	seen := map[string]bool{victimID: true}
	members := []string{victimID}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	if err := r.store.CreateRoom(ctx, room, members); err != nil {
		return "", apperr.Transient("failed to create emergency room", err)
	}
	return room.RoomID, nil
}

func (r *RoomRegistry) Get(ctx context.Context, roomID string) (*models.EmergencyRoom, error) {
	room, err := r.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, storeErr(err, "room not found", "failed to load room")
	}
	return room, nil
}

func (r *RoomRegistry) ActiveRoomsForVictim(ctx context.Context, victimID string) ([]string, error) {
	ids, err := r.store.ActiveRoomsForVictim(ctx, victimID)
	if err != nil {
		return nil, apperr.Transient("failed to load active rooms", err)
	}
	return ids, nil
}

func (r *RoomRegistry) IsClosed(ctx context.Context, roomID string) (bool, error) {
	room, err := r.Get(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.Closed, nil
}

// Close marks the room closed. It reports whether this call did the
// transition; closing a closed room is a no-op.
func (r *RoomRegistry) Close(ctx context.Context, roomID string) (bool, error) {
	changed, err := r.store.CloseRoom(ctx, roomID)
	if err != nil {
		return false, storeErr(err, "room not found", "failed to close room")
	}
	return changed, nil
}

func (r *RoomRegistry) Members(ctx context.Context, roomID string) ([]string, error) {
	ids, err := r.store.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, apperr.Transient("failed to load room members", err)
	}
	return ids, nil
}

func (r *RoomRegistry) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	ok, err := r.store.IsRoomMember(ctx, roomID, userID)
	if err != nil {
		return false, apperr.Transient("failed to check room membership", err)
	}
	return ok, nil
}
