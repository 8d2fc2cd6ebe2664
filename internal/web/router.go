// Package web assembles the HTTP router of the login area.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shindakun/areagate/internal/auth"
	"github.com/shindakun/areagate/internal/config"
	"github.com/shindakun/areagate/internal/metrics"
	"github.com/shindakun/areagate/internal/web/handlers"
	webmiddleware "github.com/shindakun/areagate/internal/web/middleware"
)

// RouterDeps are the collaborators the router mounts
type RouterDeps struct {
	Config   *config.Config
	Handlers *handlers.Handlers
	Sessions *auth.SessionManager
	Target   *auth.TargetCookie
	Throttle *auth.Throttle
	Logger   *zap.Logger

	// TracerProvider receives a span per request. Nil uses the global
	// provider, which does nothing until one is installed.
	TracerProvider trace.TracerProvider
}

// NewRouter wires the middleware chain and routes
func NewRouter(d RouterDeps) http.Handler {
	cfg := d.Config
	h := d.Handlers

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(webmiddleware.LoggingMiddleware(d.Logger, d.Sessions))
	r.Use(webmiddleware.ErrorHandler(d.Logger, h.RenderError))
	r.Use(webmiddleware.SecurityHeaders(cfg))
	r.Use(webmiddleware.MaxBytesMiddleware(cfg.Server.Security.MaxRequestBytes))
	if cfg.Server.Security.CSRFEnabled {
		// gorilla/csrf requires a 32 byte key
		r.Use(webmiddleware.CSRFProtection([]byte(cfg.Session.Secret)[:32], cfg.CookieSecure(), cfg.Server.Security.CSRFFieldName))
	}

	// Operational endpoints
	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	// Login subject: /logging/in, /logging/authenticate, /logging/out
	r.Route("/"+cfg.Auth.Subject, func(r chi.Router) {
		r.Use(webmiddleware.Throttle(d.Throttle, d.Logger))
		r.HandleFunc("/{action}", h.Logging)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(webmiddleware.RequireAuth(d.Sessions, d.Target, cfg.Auth.LoginPage, d.Logger))
		r.Get("/", h.Home)
		r.Get("/account/events", h.Events)
	})

	// 404 handler (must be last)
	r.NotFound(h.NotFound)

	opts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if d.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(d.TracerProvider))
	}
	return otelhttp.NewHandler(r, "areagate", opts...)
}
