package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eringen/sitecms/content"
)

// State is the autosave state machine position.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSaving
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSaving:
		return "saving"
	}
	return "idle"
}

// DefaultDelay is the debounce delay between the last edit and an autosave.
const DefaultDelay = 800 * time.Millisecond

// Config configures a Controller.
type Config struct {
	Delay       time.Duration // debounce delay, default 800ms
	SaveTimeout time.Duration // per-call timeout for autosaves, default 30s
	Clock       Clock
	Guard       UnloadGuard
	GuardKey    string
	Logger      Logger
	Strict      bool

	// OnError receives every persistence failure, including autosave
	// failures that have no caller to return to.
	OnError func(error)
}

func (c *Config) setDefaults() {
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = 30 * time.Second
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	c.Logger = loggerOr(c.Logger)
}

// View is everything an editor screen renders from.
type View struct {
	Document  content.Document `json:"document"`
	Dirty     bool             `json:"dirty"`
	State     string           `json:"state"`
	Errors    content.Errors   `json:"errors"`
	LastError string           `json:"lastError,omitempty"`
}

// Controller drives one Session: it debounces autosaves while the document is
// a draft, runs validation before manual saves and publishing, and keeps an
// unload guard registered while open.
type Controller struct {
	adapter Adapter
	session *Session
	cfg     Config

	mu       sync.Mutex
	state    State
	timer    Timer
	timerGen uint64
	errs     content.Errors
	lastErr  error
	closed   bool

	unsubscribe func()
	unregister  func()
}

// Open fetches document id through adapter and starts a controller over it.
// A document the store has never seen starts from the schema defaults.
func Open(ctx context.Context, adapter Adapter, schema *content.Schema, id string, cfg Config) (*Controller, error) {
	doc, err := fetch(ctx, adapter, schema, id)
	if err != nil {
		return nil, err
	}
	session := NewSession(schema, doc, Options{Logger: cfg.Logger, Strict: cfg.Strict})
	return NewController(adapter, session, cfg), nil
}

func fetch(ctx context.Context, adapter Adapter, schema *content.Schema, id string) (content.Document, error) {
	doc, err := adapter.Fetch(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return schema.NewDocument(id), nil
	case err != nil:
		return content.Document{}, persistenceError("fetch", id, "", err)
	}
	return schema.Hydrate(doc), nil
}

// NewController attaches autosave and the unload guard to session.
func NewController(adapter Adapter, session *Session, cfg Config) *Controller {
	cfg.setDefaults()
	c := &Controller{
		adapter: adapter,
		session: session,
		cfg:     cfg,
	}
	c.unsubscribe = session.OnChange(c.onChange)
	if cfg.Guard != nil {
		c.unregister = cfg.Guard.Register(cfg.GuardKey, session.Dirty)
	}
	return c
}

// Session returns the underlying edit session.
func (c *Controller) Session() *Session {
	return c.session
}

// State returns the autosave state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the current render props.
func (c *Controller) View() View {
	c.mu.Lock()
	v := View{
		State:  c.state.String(),
		Errors: append(content.Errors(nil), c.errs...),
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()
	v.Document = c.session.Document()
	v.Dirty = c.session.Dirty()
	return v
}

// LastError returns the most recent persistence failure, cleared by the next
// successful save.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) onChange(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !ch.Dirty || ch.Published {
		if c.state == StatePending {
			c.cancelLocked()
		}
		return
	}
	if c.state == StateSaving {
		// picked up when the in-flight save completes
		return
	}
	c.armLocked()
}

func (c *Controller) armLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.state = StatePending
	c.timer = c.cfg.Clock.AfterFunc(c.cfg.Delay, func() { c.fire(gen) })
}

func (c *Controller) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	if c.state == StatePending {
		c.state = StateIdle
	}
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen || c.state != StatePending {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	doc, ticket := c.session.beginSave()
	if doc.Published() || !c.session.Dirty() {
		c.state = StateIdle
		c.mu.Unlock()
		return
	}
	c.state = StateSaving
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SaveTimeout)
	saved, err := c.adapter.Save(ctx, doc, ModeAuto)
	cancel()

	if err != nil {
		err = persistenceError("save", doc.ID, ModeAuto, err)
		c.cfg.Logger.Warnf("editor: autosave failed: %v", err)
		c.mu.Lock()
		c.state = StateIdle
		c.lastErr = err
		c.mu.Unlock()
		c.report(err)
		return
	}

	applied := c.session.markSavedAt(ticket, doc)
	if applied {
		c.cfg.Logger.Infof("editor: autosaved %s/%s v%d", doc.Resource, doc.ID, saved.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.lastErr = nil
	if c.closed {
		return
	}
	if c.session.Dirty() && !c.session.Document().Published() {
		c.armLocked()
	}
}

// Save validates the working document and saves it on the user's behalf.
// Violations are returned as data and nothing is written.
func (c *Controller) Save(ctx context.Context) (content.Errors, error) {
	doc, ticket, errs := c.prepareManual()
	if !errs.OK() {
		return errs, nil
	}
	if _, err := c.adapter.Save(ctx, doc, ModeManual); err != nil {
		return nil, c.failManual(persistenceError("save", doc.ID, ModeManual, err))
	}
	c.session.markSavedAt(ticket, doc)
	c.succeedManual()
	return nil, nil
}

// Publish validates the document, saves it and publishes it. Status flips to
// published and dirty clears only when both calls succeed; on failure the
// document keeps its previous status and every edit.
func (c *Controller) Publish(ctx context.Context) (content.Errors, error) {
	doc, ticket, errs := c.prepareManual()
	if !errs.OK() {
		return errs, nil
	}
	if _, err := c.adapter.Save(ctx, doc, ModeManual); err != nil {
		return nil, c.failManual(persistenceError("save", doc.ID, ModeManual, err))
	}
	if err := c.adapter.Publish(ctx, doc.ID); err != nil {
		return nil, c.failManual(persistenceError("publish", doc.ID, "", err))
	}
	c.session.markPublishedAt(ticket, doc)
	c.succeedManual()
	c.cfg.Logger.Infof("editor: published %s/%s", doc.Resource, doc.ID)
	return nil, nil
}

// prepareManual cancels any pending autosave, since a manual save writes the
// latest state anyway, and runs the validation gate. An autosave already in
// flight is superseded: its result is dropped if it lands after this one.
func (c *Controller) prepareManual() (content.Document, saveTicket, content.Errors) {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()

	doc, ticket := c.session.beginSave()
	errs := content.Validate(c.session.Schema(), doc)

	c.mu.Lock()
	c.errs = errs
	c.mu.Unlock()
	return doc, ticket, errs
}

func (c *Controller) failManual(err error) error {
	c.cfg.Logger.Errorf("editor: %v", err)
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.report(err)
	return err
}

func (c *Controller) succeedManual() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Controller) report(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}

// DeleteItem deletes a block or list item in the store and, once that
// succeeds, drops it from the session without marking the document dirty.
func (c *Controller) DeleteItem(ctx context.Context, ref CollectionRef, itemID string) error {
	epoch := c.session.Epoch()
	if ref.DocumentID == "" {
		ref.DocumentID = c.session.Document().ID
	}
	if err := c.adapter.DeleteItem(ctx, ref, itemID); err != nil {
		return c.failManual(persistenceError("delete "+ref.Collection, ref.DocumentID, "", err))
	}
	c.session.forgetItem(epoch, ref, itemID)
	return nil
}

// Navigate switches the session to another document. A save still in flight
// for the previous document completes but its result is ignored.
func (c *Controller) Navigate(ctx context.Context, id string) error {
	doc, err := fetch(ctx, c.adapter, c.session.Schema(), id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cancelLocked()
	c.errs = nil
	c.lastErr = nil
	c.mu.Unlock()
	c.session.Load(doc)
	return nil
}

// Close stops autosave and removes the unload guard. A save already in flight
// is left to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelLocked()
	c.mu.Unlock()
	c.unsubscribe()
	if c.unregister != nil {
		c.unregister()
	}
}
