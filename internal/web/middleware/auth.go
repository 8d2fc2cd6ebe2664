package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shindakun/areagate/internal/auth"
)

// RequireAuth is a middleware that requires authentication.
// Without a valid session the requested URL is remembered in the single-use
// target cookie and the visitor is redirected to loginPage. Session store
// failures answer 500.
func RequireAuth(sessionManager *auth.SessionManager, target *auth.TargetCookie, loginPage string, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessionManager.GetSession(r)
			if err != nil && !errors.Is(err, auth.ErrNoSession) {
				// A failing session store is not the same as being logged out
				logger.Error("failed to load session", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err != nil || session == nil {
				// Only navigations are worth coming back to
				if r.Method == http.MethodGet || r.Method == http.MethodHead {
					if err := target.Remember(w, r.URL.RequestURI()); err != nil {
						logger.Warn("failed to remember requested url", zap.Error(err))
					}
				}

				// For HTMX requests, use HX-Redirect header for client-side redirect
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", loginPage)
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, loginPage, http.StatusSeeOther)
				return
			}

			// Session is valid, add to context and continue
			ctx := auth.SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
