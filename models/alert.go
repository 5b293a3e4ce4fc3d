package models

import "time"

type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Details   string    `json:"details"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UserID    string    `json:"user_id"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// Service is a responder organisation (fire brigade, ambulance) that can
// acknowledge an alert.
type Service struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	ServiceType string `json:"service_type"` // fire, medical
	Phone       string `json:"phone"`
}
