package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/shindakun/areagate/internal/auth"
	"github.com/shindakun/areagate/internal/config"
	"github.com/shindakun/areagate/internal/flash"
	"github.com/shindakun/areagate/internal/i18n"
	"github.com/shindakun/areagate/internal/models"
	"github.com/shindakun/areagate/internal/storage"
)

// Deps lists the collaborators of the HTTP handlers
type Deps struct {
	Config    *config.Config
	DB        *sql.DB
	Sessions  *auth.SessionManager
	Login     auth.LoginService
	Logout    auth.LogoutService
	Target    *auth.TargetCookie
	Flashes   *flash.Store
	Locales   *i18n.Loader
	Templates fs.FS
	Logger    *zap.Logger
	Version   string
}

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	cfg       *config.Config
	db        *sql.DB
	sessions  *auth.SessionManager
	login     auth.LoginService
	logout    auth.LogoutService
	target    *auth.TargetCookie
	flashes   *flash.Store
	locales   *i18n.Loader
	templates fs.FS
	logger    *zap.Logger
	version   string
	csrfField string
	actions   map[string]action
}

// New creates a new Handlers instance
func New(d Deps) *Handlers {
	h := &Handlers{
		cfg:       d.Config,
		db:        d.DB,
		sessions:  d.Sessions,
		login:     d.Login,
		logout:    d.Logout,
		target:    d.Target,
		flashes:   d.Flashes,
		locales:   d.Locales,
		templates: d.Templates,
		logger:    d.Logger,
		version:   d.Version,
		csrfField: d.Config.Server.Security.CSRFFieldName,
	}
	h.actions = map[string]action{
		"in":           h.in,
		"authenticate": h.authenticate,
		"out":          h.out,
	}
	return h
}

// Home renders the default landing page of the area (protected route)
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.GetSessionFromContext(r.Context())
	if !ok || session == nil {
		http.Redirect(w, r, h.cfg.Auth.LoginPage, http.StatusSeeOther)
		return
	}

	language := h.locales.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	translations, err := h.locales.Load(language, "home")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	messages, err := h.flashes.Pop(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := TemplateData{
		Title:        translations.Get("home", "title"),
		Language:     language,
		Messages:     messages,
		Translations: translations,
		Session:      session,
		LogoutURL:    h.actionURL("out", language),
	}

	if err := h.renderTemplate(w, r, http.StatusOK, "home", data); err != nil {
		h.fail(w, r, err)
	}
}

// Events returns the recent login events of the current user as JSON
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.GetSessionFromContext(r.Context())
	if !ok || session == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	events, err := storage.ListLoginEvents(h.db, session.Username, limit)
	if err != nil {
		h.logger.Error("failed to list login events", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.LoginEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(events)
}

// Health reports whether the database is reachable
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// NotFound renders the 404 error page
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "")
}

// RenderError is the error page hook used by the recovery middleware
func (h *Handlers) RenderError(w http.ResponseWriter, r *http.Request, status int) {
	h.renderError(w, r, status, "")
}

// statusError carries an HTTP status for failures that are the client's fault
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string {
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

// fail logs err and answers with its status, 500 unless err says otherwise
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var se *statusError
	if errors.As(err, &se) {
		status = se.status
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		h.logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	h.renderError(w, r, status, "")
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	if detail == "" {
		detail = http.StatusText(status)
	}

	data := TemplateData{
		Title:    http.StatusText(status),
		Language: h.cfg.Locales.DefaultLanguage,
		Status:   status,
		Error:    detail,
	}

	if err := h.renderTemplate(w, r, status, "error", data); err != nil {
		h.logger.Error("failed to render error page", zap.Int("status", status), zap.Error(err))
		http.Error(w, http.StatusText(status), status)
	}
}
