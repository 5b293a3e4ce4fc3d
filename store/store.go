package store

import (
	"context"
	"errors"

	"safecircle/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrRoomClosed    = errors.New("room is closed")
)

// AlertFilter narrows ListAlerts. Zero values match everything.
type AlertFilter struct {
	Resolved *bool
	Type     string
	// Search matches a substring of the alert details, case-insensitively.
	Search string
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateUserLocation(ctx context.Context, id string, lat, lng float64) error
	// ListUserLocations returns every user with a known location except excludeID.
	ListUserLocations(ctx context.Context, excludeID string) ([]models.UserLocation, error)
}

type FriendStore interface {
	CreateFriendRequest(ctx context.Context, f *models.Friendship) error
	// SetFriendRequestStatus moves the pending request from -> to into status.
	SetFriendRequestStatus(ctx context.Context, fromID, toID, status string) error
	// ListFriendships returns edges touching userID in either direction with the given status.
	ListFriendships(ctx context.Context, userID, status string) ([]models.Friendship, error)
	// DeleteFriendship removes every edge between a and b.
	DeleteFriendship(ctx context.Context, a, b string) error
}

type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error)
	// ResolveAlertsForUser flips every unresolved alert of userID and reports how many changed.
	ResolveAlertsForUser(ctx context.Context, userID string) (int64, error)
	// ResolveAlert reports whether this call performed the transition.
	ResolveAlert(ctx context.Context, id string) (bool, error)
}

type RoomStore interface {
	// CreateRoom persists the room and its membership as one unit.
	CreateRoom(ctx context.Context, room *models.EmergencyRoom, memberIDs []string) error
	GetRoom(ctx context.Context, roomID string) (*models.EmergencyRoom, error)
	GetRoomByAlert(ctx context.Context, alertID string) (*models.EmergencyRoom, error)
	ActiveRoomsForVictim(ctx context.Context, victimID string) ([]string, error)
	RoomMembers(ctx context.Context, roomID string) ([]string, error)
	IsRoomMember(ctx context.Context, roomID, userID string) (bool, error)
	// CloseRoom reports whether this call performed the open -> closed transition.
	CloseRoom(ctx context.Context, roomID string) (bool, error)
	// OpenRoomsForResolvedAlerts lists rooms still open although their alert is resolved.
	OpenRoomsForResolvedAlerts(ctx context.Context) ([]string, error)
}

type MessageStore interface {
	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	// AppendOpenRoomMessage stores m only while its room is open and returns
	// ErrRoomClosed otherwise. The check and the insert are one step.
	AppendOpenRoomMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error)
}

type ServiceStore interface {
	FindService(ctx context.Context, companyName, serviceType string) (*models.Service, error)
}

type Store interface {
	UserStore
	FriendStore
	AlertStore
	RoomStore
	MessageStore
	ServiceStore
}
