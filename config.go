package sitecms

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

// SiteConfig holds all configuration for a sitecms site. Every field can be
// set from the environment; see LoadConfig.
type SiteConfig struct {
	Name        string `env:"SITE_NAME"`        // Site name (default "Site")
	URL         string `env:"SITE_URL"`         // Canonical URL (default "http://localhost:3000")
	Description string `env:"SITE_DESCRIPTION"` // Meta description

	Addr         string `env:"ADDR"`          // Listen address (default ":3000")
	DatabasePath string `env:"DATABASE_PATH"` // SQLite path (default "data/site.db")
	SchemaPath   string `env:"SCHEMA_PATH"`   // Resource schemas; empty uses the built-in set

	AdminPassword string `env:"ADMIN_PASSWORD"`       // Required: admin login password
	SessionSecret string `env:"ADMIN_SESSION_SECRET"` // Required: session encryption secret
	CookieSecure  bool   `env:"COOKIE_SECURE"`        // Set true for HTTPS

	// APIToken guards write calls on /api/. When empty the API is read-only.
	APIToken string `env:"API_TOKEN"`

	CacheTTL time.Duration `env:"CACHE_TTL"` // Published page cache TTL (default 5min)
	RedisURL string        `env:"REDIS_URL"` // Use Redis for the page cache when set

	AutosaveDelay time.Duration `env:"AUTOSAVE_DELAY"` // Editor debounce (default 800ms)
	EditorIdle    time.Duration `env:"EDITOR_IDLE"`    // Close idle editor sessions after (default 2h)
	Strict        bool          `env:"STRICT"`         // Panic on editor invariant violations
}

// LoadConfig reads a .env file if one exists and then the environment.
// Missing values are left zero and filled in by New.
func LoadConfig(files ...string) (SiteConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return SiteConfig{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Site"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.AutosaveDelay == 0 {
		c.AutosaveDelay = editor.DefaultDelay
	}
	if c.EditorIdle == 0 {
		c.EditorIdle = 2 * time.Hour
	}
}

// Validate reports missing required settings.
func (c SiteConfig) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("sitecms: AdminPassword is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("sitecms: SessionSecret is required")
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithRegistry replaces the resource schemas.
func WithRegistry(r *content.Registry) Option {
	return func(a *App) {
		a.Registry = r
	}
}

// WithCache replaces the published page cache.
func WithCache(c PageCache) Option {
	return func(a *App) {
		a.Cache = c
	}
}

// WithClock replaces the clock editor sessions autosave on.
func WithClock(c editor.Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}
