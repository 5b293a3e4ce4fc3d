package emergency

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/geo"
	"safecircle/metrics"
	"safecircle/models"
	"safecircle/utils"
)

type AlertRequest struct {
	Type     string
	Details  string
	Location geo.Point
	RaiserID string
}

type DispatchResult struct {
	AlertID       string `json:"alert_id"`
	RoomID        string `json:"room_id"`
	NotifiedCount int    `json:"notified_count"`
}

// AlertEvent is pushed to every room member's identity channel.
type AlertEvent struct {
	AlertID       string    `json:"alert_id"`
	Type          string    `json:"type"`
	Details       string    `json:"details"`
	Location      geo.Point `json:"location"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	RoomID        string    `json:"room_id"`
	NotifiedCount int       `json:"notified_count"`
}

func (req *AlertRequest) validate() error {
	if strings.TrimSpace(req.Type) == "" {
		return apperr.Validation("alert type is required")
	}
	if req.RaiserID == "" {
		return apperr.Validation("raiser id is required")
	}
	return req.Location.Validate()
}

// Submit persists the alert, resolves its audience, opens the incident room
// and pushes the alert to every member.
//
// If the room cannot be created the alert row stays committed and the caller
// gets an error; nobody is notified for that alert.
func (s *Service) Submit(ctx context.Context, req AlertRequest) (*DispatchResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	alert := &models.Alert{
		ID:        utils.GenerateUUID(),
		Type:      strings.TrimSpace(req.Type),
		Details:   req.Details,
		Lat:       req.Location.Lat,
		Lng:       req.Location.Lng,
		UserID:    req.RaiserID,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		metrics.DispatchFailures.WithLabelValues("persist_alert").Inc()
		return nil, apperr.Transient("failed to save alert", err)
	}

	log := zap.L().With(zap.String("alert_id", alert.ID), zap.String("raiser_id", alert.UserID))

	users, err := s.store.ListUserLocations(ctx, req.RaiserID)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues("snapshot").Inc()
		log.Error("load user locations", zap.Error(err))
		return nil, apperr.Transient("failed to load nearby users", err)
	}
	friends, err := s.store.ListFriendships(ctx, req.RaiserID, models.FriendAccepted)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues("snapshot").Inc()
		log.Error("load friendships", zap.Error(err))
		return nil, apperr.Transient("failed to load friends", err)
	}

	audience := ResolveAudience(req.RaiserID, req.Location, users, friends, s.radiusKm)
	members := append(audience, req.RaiserID)

	roomID, err := s.Rooms.CreateRoom(ctx, alert.ID, req.RaiserID, audience)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues("create_room").Inc()
		log.Error("create room", zap.Error(err))
		return nil, err
	}

	event := &AlertEvent{
		AlertID:       alert.ID,
		Type:          alert.Type,
		Details:       alert.Details,
		Location:      req.Location,
		UserID:        req.RaiserID,
		UserName:      s.userName(ctx, req.RaiserID),
		RoomID:        roomID,
		NotifiedCount: len(audience),
	}
	for _, uid := range members {
		s.presence.JoinUser(uid, roomID)
		s.presence.EmitToUser(uid, models.EventEmergencyAlert, event)
	}
	s.presence.Broadcast(models.EventAlertsChanged, nil)

	metrics.AlertsRaised.WithLabelValues(alert.Type).Inc()
	metrics.AlertAudience.Observe(float64(len(audience)))
	log.Info("alert dispatched", zap.String("room_id", roomID), zap.Int("notified", len(audience)))

	return &DispatchResult{AlertID: alert.ID, RoomID: roomID, NotifiedCount: len(audience)}, nil
}
