package models

import "time"

// LoginOutcome is the stored form of an authentication result
type LoginOutcome string

const (
	LoginOutcomeAuthenticated LoginOutcome = "authenticated"
	LoginOutcomeUnknownUser   LoginOutcome = "unknown_user"
	LoginOutcomeWrongPassword LoginOutcome = "wrong_password"
	LoginOutcomeError         LoginOutcome = "error"
	LoginOutcomeLogout        LoginOutcome = "logout"
)

// LoginEvent is one row of the authentication audit trail
type LoginEvent struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Application string       `json:"application"`
	Area        string       `json:"area"`
	Outcome     LoginOutcome `json:"outcome"`
	RemoteAddr  string       `json:"remote_addr"`
	CreatedAt   time.Time    `json:"created_at"`
}
