package auth

import (
	"context"
	"net/http"

	"github.com/shindakun/areagate/internal/models"
)

// Outcome is the result of a credential check. A verifier returns exactly one
// of the three outcomes or a non-nil error; an error is never an outcome.
type Outcome int

const (
	Authenticated Outcome = iota + 1
	UnknownUser
	WrongPassword
)

// String returns the outcome name used in logs and metrics
func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case UnknownUser:
		return "unknown_user"
	case WrongPassword:
		return "wrong_password"
	default:
		return "invalid"
	}
}

// LoginOutcome converts the outcome to its stored form
func (o Outcome) LoginOutcome() models.LoginOutcome {
	switch o {
	case Authenticated:
		return models.LoginOutcomeAuthenticated
	case UnknownUser:
		return models.LoginOutcomeUnknownUser
	case WrongPassword:
		return models.LoginOutcomeWrongPassword
	default:
		return models.LoginOutcomeError
	}
}

// Verifier checks a username/password pair against a credential store
type Verifier interface {
	Verify(ctx context.Context, creds models.Credentials) (Outcome, error)
}

// LoginService verifies credentials and, on success, starts a session
type LoginService interface {
	Login(w http.ResponseWriter, r *http.Request, creds models.Credentials) (Outcome, error)
}

// LogoutService invalidates the current session
type LogoutService interface {
	Logout(w http.ResponseWriter, r *http.Request) error
}
