package auth

import (
	"fmt"
	"net/http"

	"github.com/shindakun/areagate/internal/models"
)

// Service implements LoginService and LogoutService on top of a Verifier
// and a SessionManager
type Service struct {
	verifier Verifier
	sessions *SessionManager
}

// NewService wires a verifier to the session manager
func NewService(verifier Verifier, sessions *SessionManager) *Service {
	return &Service{
		verifier: verifier,
		sessions: sessions,
	}
}

// Login verifies creds and starts a session when they are valid.
// Unknown user and wrong password are outcomes, not errors.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, creds models.Credentials) (Outcome, error) {
	outcome, err := s.verifier.Verify(r.Context(), creds)
	if err != nil {
		return 0, fmt.Errorf("failed to verify credentials: %w", err)
	}

	switch outcome {
	case Authenticated:
		if _, err := s.sessions.SaveSession(w, r, creds.Username); err != nil {
			return 0, err
		}
		return Authenticated, nil
	case UnknownUser, WrongPassword:
		return outcome, nil
	default:
		return 0, fmt.Errorf("verifier returned invalid outcome %d", int(outcome))
	}
}

// Logout invalidates the current session
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) error {
	return s.sessions.ClearSession(w, r)
}
