// Package emergency is the alert distribution and emergency room lifecycle
// engine: who gets told about an alert, the room the incident gets, live
// fan-out through a Presence, and the delayed close after the victim is safe.
package emergency

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/geo"
	"safecircle/models"
	"safecircle/store"
)

const (
	DefaultCloseDelay   = 30 * time.Second
	defaultNameCacheTTL = 5 * time.Minute
)

// Presence delivers events to live connections. Every method is best effort
// and must not block on slow clients.
type Presence interface {
	EmitToUser(userID, event string, payload interface{})
	EmitToRoom(roomID, event string, payload interface{})
	JoinUser(userID, roomID string)
	Broadcast(event string, payload interface{})
}

type Options struct {
	RadiusKm     float64
	CloseDelay   time.Duration
	NameCacheTTL time.Duration
}

type Service struct {
	store    store.Store
	presence Presence
	radiusKm float64
	names    *cache.Cache
	now      func() time.Time

	Rooms  *RoomRegistry
	Closer *RoomCloser
}

func NewService(st store.Store, presence Presence, opts Options) *Service {
	if opts.RadiusKm <= 0 {
		opts.RadiusKm = geo.DefaultRadiusKm
	}
	if opts.CloseDelay <= 0 {
		opts.CloseDelay = DefaultCloseDelay
	}
	if opts.NameCacheTTL <= 0 {
		opts.NameCacheTTL = defaultNameCacheTTL
	}

	s := &Service{
		store:    st,
		presence: presence,
		radiusKm: opts.RadiusKm,
		names:    cache.New(opts.NameCacheTTL, 2*opts.NameCacheTTL),
		now:      time.Now,
	}
	s.Rooms = NewRoomRegistry(st)
	s.Closer = NewRoomCloser(s.Rooms, st, presence, opts.CloseDelay)
	return s
}

// Stop cancels pending room closes and waits for any close in flight.
func (s *Service) Stop() {
	s.Closer.Stop()
}

// userName resolves a display name through the cache. A failed lookup
// yields an empty name; it never fails the caller.
func (s *Service) userName(ctx context.Context, userID string) string {
	if v, ok := s.names.Get(userID); ok {
		return v.(string)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("lookup user name", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	name := u.DisplayName()
	s.names.Set(userID, name, cache.DefaultExpiration)
	return name
}

// storeErr maps a store failure onto the engine's error kinds.
func storeErr(err error, notFound, transient string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Transient(transient, err)
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found", "failed to load user")
	}
	return u, nil
}
