package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/shindakun/areagate/internal/models"
	"github.com/shindakun/areagate/internal/storage"
)

const (
	sessionName      = "areagate-session"
	sessionKeyID     = "session_id"
	sessionKeyUser   = "username"
	sessionKeyAreaID = "area"
)

// ErrNoSession is returned when the request carries no usable session
var ErrNoSession = errors.New("no session")

type contextKey string

const sessionContextKey contextKey = "session"

// SessionManager keeps the session id in a signed cookie and the session
// itself in the database, so deleting the row invalidates replayed cookies.
type SessionManager struct {
	store       *sessions.CookieStore
	db          *sql.DB
	maxAge      time.Duration
	application string
	area        string
	now         func() time.Time
}

// InitSessions creates a session manager for one application area.
// maxAge is the cookie and database lifetime in seconds.
func InitSessions(secret string, maxAge int, secure bool, sameSite http.SameSite, db *sql.DB, application, area string) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true, // Prevent JavaScript access
		Secure:   secure,
		SameSite: sameSite,
	}

	return &SessionManager{
		store:       store,
		db:          db,
		maxAge:      time.Duration(maxAge) * time.Second,
		application: application,
		area:        area,
		now:         time.Now,
	}
}

// SaveSession starts a new session for username. A fresh id is issued on
// every login so an id planted before authentication is never promoted.
func (sm *SessionManager) SaveSession(w http.ResponseWriter, r *http.Request, username string) (*models.Session, error) {
	now := sm.now()
	session := &models.Session{
		ID:          uuid.New().String(),
		Username:    username,
		Application: sm.application,
		Area:        sm.area,
		ExpiresAt:   now.Add(sm.maxAge),
		CreatedAt:   now,
	}

	if err := storage.CreateSession(sm.db, session); err != nil {
		return nil, err
	}

	// A cookie that fails to decode (rotated secret, tampering) still yields
	// a usable empty session, which is overwritten below
	cookieSession, _ := sm.store.Get(r, sessionName)
	cookieSession.Values[sessionKeyID] = session.ID
	cookieSession.Values[sessionKeyUser] = session.Username
	cookieSession.Values[sessionKeyAreaID] = session.Application + "/" + session.Area

	if err := cookieSession.Save(r, w); err != nil {
		return nil, fmt.Errorf("failed to save cookie session: %w", err)
	}

	return session, nil
}

// GetSession retrieves session data from cookie and database
func (sm *SessionManager) GetSession(r *http.Request) (*models.Session, error) {
	cookieSession, err := sm.store.Get(r, sessionName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	id, ok := cookieSession.Values[sessionKeyID].(string)
	if !ok || id == "" {
		return nil, ErrNoSession
	}

	session, err := storage.GetSession(sm.db, id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	// A session for another area of the same application does not count
	if session.Application != sm.application || session.Area != sm.area {
		return nil, ErrNoSession
	}

	if session.IsExpired(sm.now()) {
		if err := storage.DeleteSession(sm.db, session.ID); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}

	return session, nil
}

// ClearSession removes the session from database and cookie (logout).
// Clearing when no session exists is not an error.
func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	cookieSession, _ := sm.store.Get(r, sessionName)

	if id, ok := cookieSession.Values[sessionKeyID].(string); ok && id != "" {
		if err := storage.DeleteSession(sm.db, id); err != nil {
			return err
		}
	}

	for k := range cookieSession.Values {
		delete(cookieSession.Values, k)
	}
	cookieSession.Options.MaxAge = -1
	if err := cookieSession.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear cookie session: %w", err)
	}

	return nil
}

// PurgeExpired drops expired rows from the session table
func (sm *SessionManager) PurgeExpired() (int64, error) {
	return storage.DeleteExpiredSessions(sm.db, sm.now())
}

// GetSessionFromContext retrieves session from request context
func GetSessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*models.Session)
	return session, ok
}

// SetSessionInContext stores session in request context
func SetSessionInContext(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
