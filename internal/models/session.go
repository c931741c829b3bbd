package models

import "time"

// Session is a read-only view of the client session.
type Session struct {
	IsAuthenticated  bool       `json:"is_authenticated"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
	NextRefreshAt    *time.Time `json:"next_refresh_at,omitempty"`
	RefreshInFlight  bool       `json:"refresh_in_flight"`
}
