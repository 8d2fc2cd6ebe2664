package models

import (
	"fmt"
	"time"
)

// Session represents an authenticated visitor of one application area
type Session struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Application string    `json:"application"`
	Area        string    `json:"area"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks if the session fields are valid
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}

	if s.Username == "" {
		return fmt.Errorf("username is required")
	}

	if s.Application == "" || s.Area == "" {
		return fmt.Errorf("application and area are required")
	}

	if s.ExpiresAt.IsZero() {
		return fmt.Errorf("expires_at is required")
	}

	if s.IsExpired(time.Now()) {
		return fmt.Errorf("expires_at must be a future timestamp")
	}

	return nil
}

// IsExpired reports whether the session is no longer valid at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
