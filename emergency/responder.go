package emergency

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"safecircle/apperr"
	"safecircle/geo"
	"safecircle/models"
	"safecircle/store"
)

const (
	ServiceFire    = "fire"
	ServiceMedical = "medical"

	phoneNotAvailable = "Not available"
)

type ServiceResponse struct {
	AlertID     string `json:"alert_id"`
	RoomID      string `json:"room_id"`
	Phone       string `json:"phone"`
	ServiceType string `json:"service_type"`
	ServiceName string `json:"service_name"`
}

// RespondToAlert records that a fire or medical service is on its way and
// tells the victim how to reach it.
func (s *Service) RespondToAlert(ctx context.Context, alertID, serviceType, serviceName string) (*ServiceResponse, error) {
	serviceType = strings.ToLower(strings.TrimSpace(serviceType))
	serviceName = strings.TrimSpace(serviceName)
	if alertID == "" {
		return nil, apperr.Validation("alert id is required")
	}
	if serviceType != ServiceFire && serviceType != ServiceMedical {
		return nil, apperr.Validation("service type must be fire or medical")
	}
	if serviceName == "" {
		return nil, apperr.Validation("service name is required")
	}

	alert, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, storeErr(err, "alert not found", "failed to load alert")
	}
	room, err := s.store.GetRoomByAlert(ctx, alertID)
	if err != nil {
		return nil, storeErr(err, "emergency room not found", "failed to load room")
	}

	phone := phoneNotAvailable
	svc, err := s.store.FindService(ctx, serviceName, serviceType)
	switch {
	case err == nil && svc.Phone != "":
		phone = svc.Phone
	case err != nil && !errors.Is(err, store.ErrNotFound):
		zap.L().Warn("lookup service phone", zap.String("service", serviceName), zap.Error(err))
	}

	resp := &ServiceResponse{
		AlertID:     alert.ID,
		RoomID:      room.RoomID,
		Phone:       phone,
		ServiceType: serviceType,
		ServiceName: serviceName,
	}
	s.presence.EmitToUser(alert.UserID, models.EventServiceResponded, resp)
	zap.L().Info("service responded",
		zap.String("alert_id", alert.ID), zap.String("service", serviceName), zap.String("type", serviceType))
	return resp, nil
}

// AlertQuery is the responder console's view of the alert list. Status is
// "", "active" or "resolved"; Type matches the alert type, e.g. fire or
// medical; Search matches the details text.
type AlertQuery struct {
	Status string
	Type   string
	Search string
}

// ListAlerts returns the alerts matching q, newest first.
func (s *Service) ListAlerts(ctx context.Context, q AlertQuery) ([]models.Alert, error) {
	filter := store.AlertFilter{
		Type:   strings.TrimSpace(q.Type),
		Search: strings.TrimSpace(q.Search),
	}
	switch q.Status {
	case "", "all":
	case "active":
		v := false
		filter.Resolved = &v
	case "resolved":
		v := true
		filter.Resolved = &v
	default:
		return nil, apperr.Validation("status must be active or resolved")
	}

	alerts, err := s.store.ListAlerts(ctx, filter)
	if err != nil {
		return nil, apperr.Transient("failed to load alerts", err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

func (s *Service) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	if alertID == "" {
		return nil, apperr.Validation("alert id is required")
	}
	alert, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, storeErr(err, "alert not found", "failed to load alert")
	}
	return alert, nil
}

// UpdateLocation stores the user's last known position, which later alerts
// use for proximity.
func (s *Service) UpdateLocation(ctx context.Context, userID string, at geo.Point) error {
	if userID == "" {
		return apperr.Validation("user id is required")
	}
	if err := at.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateUserLocation(ctx, userID, at.Lat, at.Lng); err != nil {
		return storeErr(err, "user not found", "failed to update location")
	}
	return nil
}
