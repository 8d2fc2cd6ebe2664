package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFProtection creates a CSRF protection middleware using gorilla/csrf.
// When secure is false the site is served over plain HTTP and requests are
// marked as such, otherwise gorilla/csrf would demand an HTTPS Referer.
func CSRFProtection(secret []byte, secure bool, fieldName string) func(http.Handler) http.Handler {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.FieldName(fieldName),
		csrf.RequestHeader("X-CSRF-Token"), // For HTMX requests
		csrf.ErrorHandler(http.HandlerFunc(CSRFFailureHandler)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFFailureHandler provides HTMX-aware error handling for CSRF failures
func CSRFFailureHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<div class="alert alert-danger" role="alert">
			<strong>Security Error:</strong> Your session has expired or the security token is invalid.
			Please reload the page and try again.
		</div>`))
		return
	}

	http.Error(w, "CSRF token validation failed. Please reload the page and try again.", http.StatusForbidden)
}
