package sitecms

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/sitecms/editor"
)

// workspace is one admin's open editor on one document.
type workspace struct {
	sid      string
	resource string
	id       string
	ctrl     *editor.Controller

	mu       sync.Mutex
	ui       editor.UIState
	lastUsed time.Time
}

// UI returns a copy of the workspace UI state.
func (w *workspace) UI() editor.UIState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ui
}

func (w *workspace) updateUI(fn func(*editor.UIState)) editor.UIState {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.ui)
	return w.ui
}

func (w *workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

type openFunc func(ctx context.Context, sid, resource, id string) (*editor.Controller, error)

// workspaces keeps one Controller per admin session and document so
// autosave timers survive between requests.
type workspaces struct {
	open   openFunc
	idle   time.Duration
	now    func() time.Time
	guards *editor.GuardRegistry

	mu    sync.Mutex
	items map[string]*workspace

	done     chan struct{}
	stopOnce sync.Once
}

func newWorkspaces(open openFunc, idle time.Duration) *workspaces {
	return &workspaces{
		open:   open,
		idle:   idle,
		now:    time.Now,
		guards: editor.NewGuardRegistry(),
		items:  make(map[string]*workspace),
		done:   make(chan struct{}),
	}
}

func workspaceKey(sid, resource, id string) string {
	return sid + "|" + cacheKey(resource, id)
}

// get returns the workspace for sid on resource/id, opening it on first use.
func (ws *workspaces) get(ctx context.Context, sid, resource, id string) (*workspace, error) {
	key := workspaceKey(sid, resource, id)
	ws.mu.Lock()
	w, ok := ws.items[key]
	ws.mu.Unlock()
	if ok {
		w.touch(ws.now())
		return w, nil
	}

	ctrl, err := ws.open(ctx, sid, resource, id)
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if existing, ok := ws.items[key]; ok {
		// lost a race with a concurrent request for the same document
		ctrl.Close()
		existing.touch(ws.now())
		return existing, nil
	}
	w = &workspace{
		sid:      sid,
		resource: resource,
		id:       id,
		ctrl:     ctrl,
		ui:       editor.NewUIState(),
		lastUsed: ws.now(),
	}
	ws.items[key] = w
	return w, nil
}

// close stops the workspace for sid on resource/id if one is open.
func (ws *workspaces) close(sid, resource, id string) {
	key := workspaceKey(sid, resource, id)
	ws.mu.Lock()
	w, ok := ws.items[key]
	delete(ws.items, key)
	ws.mu.Unlock()
	if ok {
		w.ctrl.Close()
	}
}

// closeSession stops every workspace owned by sid.
func (ws *workspaces) closeSession(sid string) {
	ws.mu.Lock()
	var closing []*workspace
	for key, w := range ws.items {
		if w.sid == sid {
			closing = append(closing, w)
			delete(ws.items, key)
		}
	}
	ws.mu.Unlock()
	for _, w := range closing {
		w.ctrl.Close()
	}
}

// sweep closes workspaces idle for longer than the idle limit. Workspaces
// with unsaved changes stay open.
func (ws *workspaces) sweep() int {
	cutoff := ws.now().Add(-ws.idle)
	ws.mu.Lock()
	var closing []*workspace
	for key, w := range ws.items {
		if w.idleSince().Before(cutoff) && !w.ctrl.Session().Dirty() {
			closing = append(closing, w)
			delete(ws.items, key)
		}
	}
	ws.mu.Unlock()
	for _, w := range closing {
		w.ctrl.Close()
	}
	return len(closing)
}

func (ws *workspaces) sweepEvery(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ws.sweep()
		case <-ws.done:
			return
		}
	}
}

// unsaved reports whether any workspace of sid holds unsaved changes.
func (ws *workspaces) unsaved(sid string) bool {
	return ws.guards.ShouldWarn(sid)
}

func (ws *workspaces) len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

// stop ends the sweeper and closes every workspace.
func (ws *workspaces) stop() {
	ws.stopOnce.Do(func() { close(ws.done) })
	ws.mu.Lock()
	all := ws.items
	ws.items = make(map[string]*workspace)
	ws.mu.Unlock()
	for _, w := range all {
		w.ctrl.Close()
	}
}

// openController starts an editor.Controller on resource/id for the admin
// session sid, persisting straight to the local store.
func (a *App) openController(ctx context.Context, sid, resource, id string) (*editor.Controller, error) {
	schema, ok := a.schema(resource)
	if !ok {
		return nil, ErrNotFound
	}
	logger := a.Echo.Logger
	cfg := editor.Config{
		Delay:    a.Config.AutosaveDelay,
		Clock:    a.clock,
		Guard:    a.workspaces.guards,
		GuardKey: sid,
		Logger:   logger,
		Strict:   a.Config.Strict,
		OnError: func(err error) {
			logger.Warnf("editor %s/%s: %v", resource, id, err)
		},
	}
	return editor.Open(ctx, NewStoreAdapter(a.Store, resource, a.Cache), schema, id, cfg)
}
