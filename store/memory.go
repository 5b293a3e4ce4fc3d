package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"safecircle/models"
)

// Memory keeps every table in process memory. It backs STORE_DRIVER=memory
// and the package tests that exercise the engine end to end.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	friendships []*models.Friendship
	alerts      map[string]*models.Alert
	alertOrder  []string
	rooms       map[string]*models.EmergencyRoom
	roomOrder   []string
	members     map[string]map[string]bool
	messages    []models.ChatMessage
	services    []models.Service
	seq         int64

	// FailCreateRoom makes CreateRoom fail, to exercise partial-failure paths.
	FailCreateRoom error
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*models.User),
		alerts:  make(map[string]*models.Alert),
		rooms:   make(map[string]*models.EmergencyRoom),
		members: make(map[string]map[string]bool),
	}
}

// PutUser inserts or replaces a user row.
func (s *Memory) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *Memory) PutService(svc models.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
}

func (s *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// UpdateUserLocation creates the user on first sight; the memory driver has
// no separate profile service to register users with.
func (s *Memory) UpdateUserLocation(ctx context.Context, id string, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = &models.User{ID: id, Username: id, CreatedAt: time.Now()}
		s.users[id] = u
	}
	u.Lat, u.Lng = &lat, &lng
	return nil
}

func (s *Memory) ListUserLocations(ctx context.Context, excludeID string) ([]models.UserLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.UserLocation
	for _, u := range s.users {
		if u.ID == excludeID || u.Lat == nil || u.Lng == nil {
			continue
		}
		out = append(out, models.UserLocation{UserID: u.ID, Lat: *u.Lat, Lng: *u.Lng})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Memory) CreateFriendRequest(ctx context.Context, f *models.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.friendships {
		if e.UserID == f.UserID && e.FriendID == f.FriendID {
			return ErrAlreadyExists
		}
	}
	cp := *f
	s.friendships = append(s.friendships, &cp)
	return nil
}

func (s *Memory) SetFriendRequestStatus(ctx context.Context, fromID, toID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.friendships {
		if e.UserID == fromID && e.FriendID == toID && e.Status == models.FriendPending {
			e.Status = status
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *Memory) ListFriendships(ctx context.Context, userID, status string) ([]models.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Friendship
	for _, e := range s.friendships {
		if e.Touches(userID) && e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *Memory) DeleteFriendship(ctx context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.friendships[:0]
	removed := false
	for _, e := range s.friendships {
		if (e.UserID == a && e.FriendID == b) || (e.UserID == b && e.FriendID == a) {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.friendships = kept
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (s *Memory) CreateAlert(ctx context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *a
	s.alerts[a.ID] = &cp
	s.alertOrder = append(s.alertOrder, a.ID)
	return nil
}

func (s *Memory) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Memory) ListAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	var out []models.Alert
	for i := len(s.alertOrder) - 1; i >= 0; i-- {
		a := s.alerts[s.alertOrder[i]]
		switch {
		case filter.Resolved != nil && a.Resolved != *filter.Resolved:
			continue
		case filter.Type != "" && !strings.EqualFold(a.Type, filter.Type):
			continue
		case search != "" && !strings.Contains(strings.ToLower(a.Details), search):
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *Memory) ResolveAlertsForUser(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.alerts {
		if a.UserID == userID && !a.Resolved {
			a.Resolved = true
			n++
		}
	}
	return n, nil
}

func (s *Memory) ResolveAlert(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.Resolved {
		return false, nil
	}
	a.Resolved = true
	return true, nil
}

func (s *Memory) CreateRoom(ctx context.Context, room *models.EmergencyRoom, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateRoom != nil {
		return s.FailCreateRoom
	}
	if _, ok := s.rooms[room.RoomID]; ok {
		return ErrAlreadyExists
	}
	for _, r := range s.rooms {
		if r.AlertID == room.AlertID {
			return ErrAlreadyExists
		}
	}
	cp := *room
	s.rooms[room.RoomID] = &cp
	s.roomOrder = append(s.roomOrder, room.RoomID)
	set := make(map[string]bool, len(memberIDs))
	for _, uid := range memberIDs {
		set[uid] = true
	}
	s.members[room.RoomID] = set
	return nil
}

func (s *Memory) GetRoom(ctx context.Context, roomID string) (*models.EmergencyRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Memory) GetRoomByAlert(ctx context.Context, alertID string) (*models.EmergencyRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.AlertID == alertID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) ActiveRoomsForVictim(ctx context.Context, victimID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.roomOrder {
		r := s.rooms[id]
		a, ok := s.alerts[r.AlertID]
		if ok && a.UserID == victimID && !a.Resolved {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Memory) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for uid := range s.members[roomID] {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Memory) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[roomID][userID], nil
}

func (s *Memory) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false, ErrNotFound
	}
	if r.Closed {
		return false, nil
	}
	now := time.Now()
	r.Closed = true
	r.ClosedAt = &now
	return true, nil
}

func (s *Memory) OpenRoomsForResolvedAlerts(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.roomOrder {
		r := s.rooms[id]
		if a, ok := s.alerts[r.AlertID]; ok && a.Resolved && !r.Closed {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Memory) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(m)
	return nil
}

func (s *Memory) AppendOpenRoomMessage(ctx context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[m.RoomID]
	if !ok {
		return ErrNotFound
	}
	if r.Closed {
		return ErrRoomClosed
	}
	s.appendLocked(m)
	return nil
}

func (s *Memory) appendLocked(m *models.ChatMessage) {
	s.seq++
	m.ID = s.seq
	s.messages = append(s.messages, *m)
}

func (s *Memory) ListMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (s *Memory) FindService(ctx context.Context, companyName, serviceType string) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.services {
		if svc.CompanyName == companyName && svc.ServiceType == serviceType {
			cp := svc
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

var _ Store = (*Memory)(nil)
var _ Store = (*MySQL)(nil)
