// Package flash keeps one-shot user messages in a signed cookie.
package flash

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/shindakun/areagate/internal/models"
)

const cookieName = "areagate-flash"

// Store reads and writes flash messages
type Store struct {
	store *sessions.CookieStore
}

// NewStore creates a flash store signed with secret. The cookie lives until
// the browser closes or the messages are read, whichever comes first.
func NewStore(secret string, secure bool, sameSite http.SameSite) *Store {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
	return &Store{store: store}
}

// Add appends a message to the list shown on the next rendered page
func (s *Store) Add(w http.ResponseWriter, r *http.Request, category, text string) error {
	// An undecodable cookie is replaced by a fresh one
	session, _ := s.store.Get(r, cookieName)
	session.AddFlash(models.FlashMessage{Category: category, Text: text})
	return session.Save(r, w)
}

// Pop returns every pending message and clears the list
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) ([]models.FlashMessage, error) {
	if _, err := r.Cookie(cookieName); err != nil {
		return nil, nil
	}

	session, err := s.store.Get(r, cookieName)
	var messages []models.FlashMessage
	if err == nil {
		for _, f := range session.Flashes() {
			if msg, ok := f.(models.FlashMessage); ok {
				messages = append(messages, msg)
			}
		}
	}

	if len(session.Values) == 0 {
		session.Options.MaxAge = -1
	}
	if err := session.Save(r, w); err != nil {
		return nil, err
	}

	return messages, nil
}
