package middleware

import (
	"net/http"

	"github.com/shindakun/areagate/internal/config"
)

// SecurityHeaders creates middleware that adds HTTP security headers to all responses
func SecurityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := cfg.Server.Security.Headers
			h := w.Header()

			if headers.XFrameOptions != "" {
				h.Set("X-Frame-Options", headers.XFrameOptions)
			}
			if headers.XContentTypeOptions != "" {
				h.Set("X-Content-Type-Options", headers.XContentTypeOptions)
			}
			if headers.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", headers.ReferrerPolicy)
			}
			if headers.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", headers.ContentSecurityPolicy)
			}

			// HSTS only makes sense when the public URL is HTTPS
			if cfg.IsHTTPS() && headers.StrictTransportSecurity != "" {
				h.Set("Strict-Transport-Security", headers.StrictTransportSecurity)
			}

			// Login pages and their redirects carry per-visitor state
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
