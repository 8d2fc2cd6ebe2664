package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shindakun/areagate/internal/auth"
	"github.com/shindakun/areagate/internal/metrics"
	"github.com/shindakun/areagate/internal/models"
	"github.com/shindakun/areagate/internal/storage"
)

// action handles one step of the login subject. Returning an error makes the
// dispatcher answer with an error page; an action that returns nil has
// already written its response.
type action func(w http.ResponseWriter, r *http.Request, rc *RequestContext) error

// Logging dispatches /{subject}/{action} to the in, authenticate and out actions
func (h *Handlers) Logging(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	act, ok := h.actions[name]
	if !ok {
		h.NotFound(w, r)
		return
	}

	rc, err := h.newRequestContext(r, name)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := act(w, r, rc); err != nil {
		h.fail(w, r, err)
	}
}

// newRequestContext negotiates the language and loads the subject's translations
func (h *Handlers) newRequestContext(r *http.Request, actionName string) (*RequestContext, error) {
	language := h.locales.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	subject := h.cfg.Auth.Subject

	translations, err := h.locales.Load(language, subject)
	if err != nil {
		return nil, err
	}

	return &RequestContext{
		Language:     language,
		Application:  h.cfg.Auth.Application,
		Area:         h.cfg.Auth.Area,
		Subject:      subject,
		Action:       actionName,
		Translations: translations,
	}, nil
}

// in displays the login form
func (h *Handlers) in(w http.ResponseWriter, r *http.Request, rc *RequestContext) error {
	if err := h.locales.AddTo(rc.Translations, rc.Language, "form"); err != nil {
		return err
	}

	messages, err := h.flashes.Pop(w, r)
	if err != nil {
		return fmt.Errorf("failed to read flash messages: %w", err)
	}
	rc.Messages = messages

	data := TemplateData{
		Title:        rc.Title(),
		Language:     rc.Language,
		Messages:     rc.Messages,
		Translations: rc.Translations,
		Action:       h.actionURL("authenticate", rc.Language),
	}

	return h.renderTemplate(w, r, http.StatusOK, "login", data)
}

// authenticate checks the posted credentials
func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request, rc *RequestContext) error {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return &statusError{status: http.StatusMethodNotAllowed, err: errors.New("authenticate requires POST")}
	}

	if err := r.ParseForm(); err != nil {
		return &statusError{status: http.StatusBadRequest, err: fmt.Errorf("failed to parse form: %w", err)}
	}

	creds := models.Credentials{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}.Sanitized()

	start := time.Now()
	outcome, err := h.login.Login(w, r, creds)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveLogin(string(models.LoginOutcomeError), elapsed)
		h.recordEvent(r, rc, creds.Username, models.LoginOutcomeError)
		return fmt.Errorf("failed to authenticate %q: %w", creds.Username, err)
	}

	metrics.ObserveLogin(outcome.String(), elapsed)
	h.recordEvent(r, rc, creds.Username, outcome.LoginOutcome())
	h.logger.Info("authenticate",
		zap.String("username", creds.Username),
		zap.Stringer("outcome", outcome),
		zap.String("remote_addr", r.RemoteAddr),
		zap.Duration("elapsed", elapsed),
	)

	switch outcome {
	case auth.Authenticated:
		target := h.target.Consume(w, r, h.cfg.Auth.DefaultPage)
		http.Redirect(w, r, target, http.StatusSeeOther)
		return nil
	case auth.UnknownUser:
		return h.rejectLogin(w, r, rc, "wrong_username")
	case auth.WrongPassword:
		return h.rejectLogin(w, r, rc, "wrong_password")
	default:
		return fmt.Errorf("unexpected login outcome %d", int(outcome))
	}
}

// rejectLogin stores the translated failure message and sends the visitor back
func (h *Handlers) rejectLogin(w http.ResponseWriter, r *http.Request, rc *RequestContext, key string) error {
	if err := h.flashes.Add(w, r, models.FlashDanger, rc.Translate(key)); err != nil {
		return fmt.Errorf("failed to store flash message: %w", err)
	}
	http.Redirect(w, r, h.loginURL(rc.Language), http.StatusSeeOther)
	return nil
}

// out ends the session
func (h *Handlers) out(w http.ResponseWriter, r *http.Request, rc *RequestContext) error {
	username := ""
	if session, err := h.sessions.GetSession(r); err == nil {
		username = session.Username
	}

	if err := h.logout.Logout(w, r); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	metrics.ObserveLogout()
	if username != "" {
		h.recordEvent(r, rc, username, models.LoginOutcomeLogout)
	}
	h.logger.Info("logout", zap.String("username", username), zap.String("remote_addr", r.RemoteAddr))

	http.Redirect(w, r, h.loginURL(rc.Language), http.StatusSeeOther)
	return nil
}

// recordEvent writes the audit trail. A failing audit write is logged but
// does not change the outcome the visitor sees.
func (h *Handlers) recordEvent(r *http.Request, rc *RequestContext, username string, outcome models.LoginOutcome) {
	event := &models.LoginEvent{
		Username:    username,
		Application: rc.Application,
		Area:        rc.Area,
		Outcome:     outcome,
		RemoteAddr:  r.RemoteAddr,
	}
	if err := storage.RecordLoginEvent(h.db, event); err != nil {
		h.logger.Warn("failed to record login event", zap.String("outcome", string(outcome)), zap.Error(err))
	}
}

// loginURL is the configured login page, keeping a non-default language
func (h *Handlers) loginURL(language string) string {
	return withLanguage(h.cfg.Auth.LoginPage, language, h.cfg.Locales.DefaultLanguage)
}

// actionURL is the route of one of the subject's actions
func (h *Handlers) actionURL(name, language string) string {
	return withLanguage("/"+h.cfg.Auth.Subject+"/"+name, language, h.cfg.Locales.DefaultLanguage)
}

func withLanguage(path, language, fallback string) string {
	if language == "" || language == fallback {
		return path
	}
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set("lang", language)
	u.RawQuery = q.Encode()
	return u.String()
}
