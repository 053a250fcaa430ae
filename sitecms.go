// Package sitecms serves a bilingual (Mongolian/English) marketing site whose
// pages are content documents edited in place. It wires the content model,
// the editor engine and the REST mapper into an Echo server with a SQLite
// store, an admin editor, a JSON API and the public pages.
//
// Sites provide their own templ components via ViewFuncs (DefaultViews
// covers every page) and their resource schemas via SiteConfig.SchemaPath.
package sitecms

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
	"github.com/eringen/sitecms/views"
)

// App is the central sitecms application. It wires together the store,
// cache, editor workspaces, handlers, middleware, and templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    PageCache
	Registry *content.Registry
	Views    ViewFuncs

	loginLimiter *LoginLimiter
	workspaces   *workspaces
	customRoutes []func(*App)
	staticDir    string
	clock        editor.Clock
	closers      []func() error
	initialized  bool
}

// New creates a new App with the given configuration and view functions.
// Missing views fall back to DefaultViews.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	views.fill()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
		clock:     editor.SystemClock,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store, loads schemas, connects the cache and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("sitecms: init store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}

	if a.Registry == nil {
		var (
			reg *content.Registry
			err error
		)
		if a.Config.SchemaPath != "" {
			reg, err = content.LoadSchemas(a.Config.SchemaPath)
		} else {
			reg, err = DefaultRegistry()
		}
		if err != nil {
			return fmt.Errorf("sitecms: load schemas: %w", err)
		}
		a.Registry = reg
	}

	if a.Cache == nil {
		if a.Config.RedisURL != "" {
			rc, err := NewRedisCache(ctx, a.Config.RedisURL, a.Store, a.Config.CacheTTL)
			if err != nil {
				return fmt.Errorf("sitecms: init cache: %w", err)
			}
			a.Cache = rc
			a.closers = append(a.closers, rc.Close)
		} else {
			a.Cache = NewMemoryCache(a.Store, a.Config.CacheTTL)
		}
	}

	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.closers = append(a.closers, func() error { a.loginLimiter.Stop(); return nil })

	a.workspaces = newWorkspaces(a.openController, a.Config.EditorIdle)
	a.closers = append(a.closers, func() error { a.workspaces.stop(); return nil })
	go a.workspaces.sweepEvery(a.Config.EditorIdle / 4)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the app and runs the server until it is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded admin assets, served under /public/ ahead of the user's
	// static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/editor.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/admin.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	// User's static assets
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/:resource/", a.handlePage)
	e.GET("/:resource/:id/", a.handlePage)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)
	e.GET("/admin/open/", a.handleAdminOpen, requireAdmin)
	e.GET("/admin/unload/", a.handleAdminUnload, requireAdmin)

	ed := e.Group("/admin/edit/:resource/:id", requireAdmin, a.withWorkspace)
	ed.GET("/", a.handleEditor)
	ed.GET("/state/", a.handleEditorState)
	ed.POST("/patch/", a.handleEditorPatch)
	ed.POST("/blocks/", a.handleEditorAddBlock)
	ed.DELETE("/blocks/:block/", a.handleEditorRemoveBlock)
	ed.POST("/lists/:list/", a.handleEditorAddItem)
	ed.DELETE("/lists/:list/:item/", a.handleEditorRemoveItem)
	ed.DELETE("/items/:collection/:item/", a.handleEditorDeleteItem)
	ed.POST("/toggle/", a.handleEditorToggle)
	ed.POST("/reset/", a.handleEditorReset)
	ed.POST("/save/", a.handleEditorSave)
	ed.POST("/publish/", a.handleEditorPublish)
	ed.POST("/ui/", a.handleEditorUI)
	ed.POST("/close/", a.handleEditorClose)

	// REST API, the server side of restadapter
	api := e.Group("/api", a.apiAuth)
	api.GET("/:resource/:id/", a.handleAPIGet)
	api.PUT("/:resource/:id/", a.handleAPISave, a.requireToken)
	api.POST("/:resource/:id/publish/", a.handleAPIPublish, a.requireToken)
	api.DELETE("/:resource/:id/:collection/:item/", a.handleAPIDeleteItem, a.requireToken)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) schema(resource string) (*content.Schema, bool) {
	return a.Registry.Get(resource)
}

func (a *App) siteInfo() views.SiteInfo {
	return views.SiteInfo{Name: a.Config.Name, URL: a.Config.URL, Description: a.Config.Description}
}
