package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/csrf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shindakun/areagate/internal/auth"
	"github.com/shindakun/areagate/internal/config"
	"github.com/shindakun/areagate/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func setupSessions(t *testing.T) *auth.SessionManager {
	sm, _ := setupSessionsWithDB(t)
	return sm
}

func setupSessionsWithDB(t *testing.T) (*auth.SessionManager, *sql.DB) {
	t.Helper()
	db, err := storage.InitDB(filepath.Join(t.TempDir(), "mw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return auth.InitSessions(testSecret, 3600, false, http.SameSiteLaxMode, db, "shop", "admin"), db
}

func TestRequireAuthRemembersTarget(t *testing.T) {
	sm := setupSessions(t)
	target := auth.NewTargetCookie([]byte(testSecret), 600, false, http.SameSiteLaxMode)
	handler := RequireAuth(sm, target, "/logging/in", zap.NewNop())(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?year=2024", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/logging/in", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/logging/in", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	got, ok := target.Peek(req)
	require.True(t, ok)
	assert.Equal(t, "/reports?year=2024", got)
}

func TestRequireAuthSkipsTargetForPost(t *testing.T) {
	sm := setupSessions(t)
	target := auth.NewTargetCookie([]byte(testSecret), 600, false, http.SameSiteLaxMode)
	handler := RequireAuth(sm, target, "/logging/in", zap.NewNop())(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRequireAuthHTMX(t *testing.T) {
	sm := setupSessions(t)
	target := auth.NewTargetCookie([]byte(testSecret), 600, false, http.SameSiteLaxMode)
	handler := RequireAuth(sm, target, "/logging/in", zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/logging/in", rec.Header().Get("HX-Redirect"))
}

func TestRequireAuthPassesSession(t *testing.T) {
	sm := setupSessions(t)
	target := auth.NewTargetCookie([]byte(testSecret), 600, false, http.SameSiteLaxMode)

	login := httptest.NewRecorder()
	_, err := sm.SaveSession(login, httptest.NewRequest(http.MethodPost, "/", nil), "vuk")
	require.NoError(t, err)

	var user string
	handler := RequireAuth(sm, target, "/logging/in", zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := auth.GetSessionFromContext(r.Context()); ok {
			user = session.Username
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vuk", user)
}

func TestRequireAuthStoreFailure(t *testing.T) {
	sm, db := setupSessionsWithDB(t)
	target := auth.NewTargetCookie([]byte(testSecret), 600, false, http.SameSiteLaxMode)
	core, logs := observer.New(zap.ErrorLevel)
	handler := RequireAuth(sm, target, "/logging/in", zap.New(core))(okHandler)

	login := httptest.NewRecorder()
	_, err := sm.SaveSession(login, httptest.NewRequest(http.MethodPost, "/", nil), "vuk")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Equal(t, 1, logs.FilterMessage("failed to load session").Len())
}

func TestCSRFRejectsPostWithoutToken(t *testing.T) {
	handler := CSRFProtection([]byte(testSecret), false, "csrf_token")(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logging/authenticate", strings.NewReader("username=a")))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFIssuesToken(t *testing.T) {
	var token string
	handler := CSRFProtection([]byte(testSecret), false, "csrf_token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = csrf.Token(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logging/in", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, token)
}

func TestCSRFFailureHandlerHTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	CSRFFailureHandler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "alert-danger")
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://login.example.com"
	cfg.Server.Security.Headers = config.SecurityHeadersConfig{
		XFrameOptions:           "DENY",
		XContentTypeOptions:     "nosniff",
		ReferrerPolicy:          "same-origin",
		StrictTransportSecurity: "max-age=31536000",
	}

	rec := httptest.NewRecorder()
	SecurityHeaders(cfg)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "same-origin", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "max-age=31536000", rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeadersNoHSTSOverHTTP(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.Security.Headers.StrictTransportSecurity = "max-age=31536000"

	rec := httptest.NewRecorder()
	SecurityHeaders(cfg)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestThrottleLimitsPosts(t *testing.T) {
	handler := Throttle(auth.NewThrottle(2, time.Minute, 0), zap.NewNop())(okHandler)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/logging/authenticate", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, post().Code)
	assert.Equal(t, http.StatusOK, post().Code)

	rec := post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// GETs are never throttled
	get := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/logging/in", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	handler.ServeHTTP(get, req)
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestMaxBytesMiddleware(t *testing.T) {
	handler := MaxBytesMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=abcdefghijklmnop"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestErrorHandlerRecovers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	var rendered int
	render := func(w http.ResponseWriter, r *http.Request, status int) {
		rendered = status
		w.WriteHeader(status)
	}

	handler := ErrorHandler(zap.New(core), render)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, rendered)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["panic"])
}

func TestLoggingMiddleware(t *testing.T) {
	sm := setupSessions(t)
	core, logs := observer.New(zap.InfoLevel)

	handler := LoggingMiddleware(zap.New(core), sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("tea"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kettle", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/kettle", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "-", fields["user"])
	assert.EqualValues(t, 3, fields["bytes"])
}
