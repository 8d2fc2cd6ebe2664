package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Locales   LocalesConfig   `yaml:"locales"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int            `yaml:"port"`
	Host            string         `yaml:"host"`
	BaseURL         string         `yaml:"base_url"` // Optional: public URL, decides Secure cookies and HSTS
	ReadTimeout     time.Duration  `yaml:"read_timeout"`
	WriteTimeout    time.Duration  `yaml:"write_timeout"`
	IdleTimeout     time.Duration  `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	Security        SecurityConfig `yaml:"security"`
}

// SecurityConfig contains security-related settings
type SecurityConfig struct {
	CSRFEnabled     bool                  `yaml:"csrf_enabled"`
	CSRFFieldName   string                `yaml:"csrf_field_name"`
	MaxRequestBytes int64                 `yaml:"max_request_bytes"`
	Headers         SecurityHeadersConfig `yaml:"headers"`
}

// SecurityHeadersConfig contains HTTP security header settings
type SecurityHeadersConfig struct {
	XFrameOptions           string `yaml:"x_frame_options"`
	XContentTypeOptions     string `yaml:"x_content_type_options"`
	ReferrerPolicy          string `yaml:"referrer_policy"`
	ContentSecurityPolicy   string `yaml:"content_security_policy"`
	StrictTransportSecurity string `yaml:"strict_transport_security"`
}

// SessionConfig contains cookie session settings
type SessionConfig struct {
	Secret         string `yaml:"secret"`
	MaxAge         int    `yaml:"max_age"`         // seconds
	CookieSecure   string `yaml:"cookie_secure"`   // "auto", "true", "false"
	CookieSameSite string `yaml:"cookie_samesite"` // "strict", "lax", "none"
}

// AuthConfig describes the guarded area and where its credentials live
type AuthConfig struct {
	Application     string `yaml:"application"`
	Area            string `yaml:"area"`
	Subject         string `yaml:"subject"`
	CredentialsRoot string `yaml:"credentials_root"`
	LoginPage       string `yaml:"login_page"`
	DefaultPage     string `yaml:"default_page"`
}

// LocalesConfig points at the translation resources
type LocalesConfig struct {
	Dir             string   `yaml:"dir"`
	DefaultLanguage string   `yaml:"default_language"`
	Languages       []string `yaml:"languages"`
}

// DatabaseConfig contains SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RateLimitConfig limits login attempts per client
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window_duration"`
	Burst             int           `yaml:"burst"`
}

// LogConfig selects the zap logger flavour
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads configuration from the specified file path.
// A .env file next to the working directory is loaded first so that
// ${VAR} references in the YAML can be resolved from it.
func Load(path string) (*Config, error) {
	// Missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if set
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills in optional settings left empty in the file
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.Security.CSRFFieldName == "" {
		c.Server.Security.CSRFFieldName = "csrf_token"
	}
	if c.Server.Security.MaxRequestBytes == 0 {
		c.Server.Security.MaxRequestBytes = 64 * 1024
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = 12 * 60 * 60
	}
	if c.Session.CookieSecure == "" {
		c.Session.CookieSecure = "auto"
	}
	if c.Session.CookieSameSite == "" {
		c.Session.CookieSameSite = "lax"
	}
	if c.Auth.Subject == "" {
		c.Auth.Subject = "logging"
	}
	if c.Auth.CredentialsRoot == "" {
		c.Auth.CredentialsRoot = "private"
	}
	if c.Auth.LoginPage == "" {
		c.Auth.LoginPage = "/" + c.Auth.Subject + "/in"
	}
	if c.Auth.DefaultPage == "" {
		c.Auth.DefaultPage = "/"
	}
	if c.Locales.Dir == "" {
		c.Locales.Dir = filepath.Join(c.Auth.CredentialsRoot, "global", "locales")
	}
	if c.Locales.DefaultLanguage == "" {
		c.Locales.DefaultLanguage = "en"
	}
	if len(c.Locales.Languages) == 0 {
		c.Locales.Languages = []string{c.Locales.DefaultLanguage}
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/areagate.db"
	}
	if c.RateLimit.RequestsPerWindow == 0 {
		c.RateLimit.RequestsPerWindow = 10
	}
	if c.RateLimit.WindowDuration == 0 {
		c.RateLimit.WindowDuration = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required configuration fields are set
func (c *Config) Validate() error {
	// Session validation
	if c.Session.Secret == "" || strings.Contains(c.Session.Secret, "${") {
		return errors.New("session.secret is required (set SESSION_SECRET environment variable)")
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("session.secret must be at least 32 characters")
	}
	switch c.Session.CookieSecure {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("session.cookie_secure must be auto, true or false, got %q", c.Session.CookieSecure)
	}
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("session.cookie_samesite must be strict, lax or none, got %q", c.Session.CookieSameSite)
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}

	// Auth validation
	if c.Auth.Application == "" {
		return errors.New("auth.application is required")
	}
	if c.Auth.Area == "" {
		return errors.New("auth.area is required")
	}
	if !isLocalPath(c.Auth.LoginPage) {
		return errors.New("auth.login_page must be an absolute path on this site")
	}
	if !isLocalPath(c.Auth.DefaultPage) {
		return errors.New("auth.default_page must be an absolute path on this site")
	}

	// Locale validation
	if !c.SupportsLanguage(c.Locales.DefaultLanguage) {
		return fmt.Errorf("locales.default_language %q is not listed in locales.languages", c.Locales.DefaultLanguage)
	}

	// Rate limit validation
	if c.RateLimit.RequestsPerWindow < 1 {
		return errors.New("rate_limit.requests_per_window must be at least 1")
	}

	return nil
}

// GetAddr returns the full server address (host:port)
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetBaseURL returns the public base URL.
// Uses base_url if set, otherwise constructs from host:port
func (c *Config) GetBaseURL() string {
	if c.Server.BaseURL != "" {
		return c.Server.BaseURL
	}
	return fmt.Sprintf("http://%s", c.GetAddr())
}

// IsHTTPS returns true if the base URL uses HTTPS
func (c *Config) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(c.GetBaseURL()), "https://")
}

// CookieSecure resolves the "auto" setting against the base URL
func (c *Config) CookieSecure() bool {
	switch c.Session.CookieSecure {
	case "true":
		return true
	case "false":
		return false
	default:
		return c.IsHTTPS()
	}
}

// SameSite converts the configured SameSite mode
func (c *Config) SameSite() http.SameSite {
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SupportsLanguage reports whether lang is one of the configured languages
func (c *Config) SupportsLanguage(lang string) bool {
	for _, l := range c.Locales.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}
