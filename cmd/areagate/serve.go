package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shindakun/areagate/internal/auth"
	"github.com/shindakun/areagate/internal/config"
	"github.com/shindakun/areagate/internal/flash"
	"github.com/shindakun/areagate/internal/i18n"
	"github.com/shindakun/areagate/internal/storage"
	"github.com/shindakun/areagate/internal/version"
	"github.com/shindakun/areagate/internal/web"
	"github.com/shindakun/areagate/internal/web/handlers"
	"github.com/shindakun/areagate/internal/web/templates"
)

// How long a remembered target survives a detour through the login form
const targetMaxAge = 15 * 60

// Namespaces every configured language must provide
var requiredLocales = []string{"form", "home"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the login server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting areagate",
		zap.String("version", version.GetVersion()),
		zap.String("application", cfg.Auth.Application),
		zap.String("area", cfg.Auth.Area),
	)

	// Locales are checked up front so a broken deployment fails to start
	// instead of failing on the first visitor
	locales := i18n.NewLoader(cfg.Locales.Dir, cfg.Locales.Languages, cfg.Locales.DefaultLanguage)
	for _, lang := range locales.Languages() {
		if _, err := locales.Load(lang, append([]string{cfg.Auth.Subject}, requiredLocales...)...); err != nil {
			logger.Fatal("locale resources incomplete", zap.String("language", lang), zap.Error(err))
		}
	}

	credentials, err := auth.CredentialsPath(cfg.Auth.CredentialsRoot, cfg.Auth.Application, cfg.Auth.Area)
	if err != nil {
		logger.Fatal("invalid credentials location", zap.Error(err))
	}
	if _, err := os.Stat(credentials); err != nil {
		// Not fatal: the file is read per attempt and may be provisioned later
		logger.Warn("credentials file not readable", zap.String("path", credentials), zap.Error(err))
	}

	logger.Info("initializing database", zap.String("path", cfg.Database.Path))
	db, err := storage.InitDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	secure := cfg.CookieSecure()
	sessionManager := auth.InitSessions(cfg.Session.Secret, cfg.Session.MaxAge, secure, cfg.SameSite(), db, cfg.Auth.Application, cfg.Auth.Area)
	service := auth.NewService(auth.NewHtpasswdVerifier(credentials), sessionManager)
	target := auth.NewTargetCookie([]byte(cfg.Session.Secret), targetMaxAge, secure, cfg.SameSite())
	throttle := auth.NewThrottle(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration, cfg.RateLimit.Burst)
	logger.Info("login throttle configured", zap.Stringer("throttle", throttle))

	h := handlers.New(handlers.Deps{
		Config:    cfg,
		DB:        db,
		Sessions:  sessionManager,
		Login:     service,
		Logout:    service,
		Target:    target,
		Flashes:   flash.NewStore(cfg.Session.Secret, secure, cfg.SameSite()),
		Locales:   locales,
		Templates: templates.FS,
		Logger:    logger,
		Version:   version.GetVersion(),
	})

	router := web.NewRouter(web.RouterDeps{
		Config:   cfg,
		Handlers: h,
		Sessions: sessionManager,
		Target:   target,
		Throttle: throttle,
		Logger:   logger,
	})

	// HTTP server configuration
	srv := &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, sessionManager, time.Duration(cfg.Session.MaxAge)*time.Second/4, logger)

	// Start server in goroutine
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.GetAddr()), zap.String("base_url", cfg.GetBaseURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("server exited")
	return nil
}

// purgeSessions removes expired session rows until ctx is cancelled
func purgeSessions(ctx context.Context, sm *auth.SessionManager, every time.Duration, logger *zap.Logger) {
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sm.PurgeExpired()
			if err != nil {
				logger.Warn("failed to purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
