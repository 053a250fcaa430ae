package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/sitecms/content"
)

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.fn()
	}
}

type saveCall struct {
	doc  content.Document
	mode SaveMode
	at   time.Time
}

// memAdapter is an in-memory Adapter with failure injection.
type memAdapter struct {
	mu         sync.Mutex
	clock      *fakeClock
	docs       map[string]content.Document
	saves      []saveCall
	publishes  []string
	deletes    []string
	saveErr    error
	publishErr error
	deleteErr  error
	onSave     func(content.Document)
}

func newMemAdapter(clock *fakeClock) *memAdapter {
	return &memAdapter{clock: clock, docs: make(map[string]content.Document)}
}

func (m *memAdapter) Fetch(_ context.Context, id string) (content.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return content.Document{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *memAdapter) Save(_ context.Context, doc content.Document, mode SaveMode) (SavedDocument, error) {
	m.mu.Lock()
	hook := m.onSave
	m.onSave = nil
	m.mu.Unlock()
	if hook != nil {
		hook(doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, saveCall{doc: doc.Clone(), mode: mode, at: m.clock.Now()})
	if m.saveErr != nil {
		return SavedDocument{}, m.saveErr
	}
	m.docs[doc.ID] = doc.Clone()
	return SavedDocument{ID: doc.ID, Version: int64(len(m.saves))}, nil
}

func (m *memAdapter) Publish(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes = append(m.publishes, id)
	if m.publishErr != nil {
		return m.publishErr
	}
	doc := m.docs[id]
	doc.Status = content.StatusPublished
	m.docs[id] = doc
	return nil
}

func (m *memAdapter) DeleteItem(_ context.Context, ref CollectionRef, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, ref.Collection+"/"+itemID)
	return m.deleteErr
}

func (m *memAdapter) saveCalls() []saveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]saveCall(nil), m.saves...)
}

func testSchema() *content.Schema {
	return &content.Schema{
		Name:   "fence",
		Mapper: content.MapperFlat,
		Fields: []content.FieldSpec{
			{Name: "title", Required: true, Styled: true},
			{Name: "subtitle", Styled: true},
		},
		Placements: []content.PlacementSpec{
			{Name: "hero"},
			{Name: "details"},
		},
		Lists: []content.ListSpec{
			{Name: "materials", Localized: true, RequiredNonEmpty: true},
		},
	}
}

// publishableDoc passes validation.
func publishableDoc(s *content.Schema, id string) content.Document {
	doc := s.NewDocument(id)
	title := doc.Fields["title"]
	title.Value = content.NewText("Хашаа", "Fence")
	doc.Fields["title"] = title
	doc.Lists["materials"] = []content.ListItem{{ID: "m1", Value: content.NewText("Төмөр", "Steel")}}
	return doc
}

func titlePatch(mn string) content.Patch {
	return content.Patch{Fields: map[string]content.FieldPatch{
		"title": {Value: &content.TextPatch{Primary: &mn}},
	}}
}

func newTestController(t *testing.T, doc content.Document) (*Controller, *memAdapter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	adapter := newMemAdapter(clock)
	session := NewSession(testSchema(), doc, Options{})
	c := NewController(adapter, session, Config{Clock: clock})
	t.Cleanup(c.Close)
	return c, adapter, clock
}

func TestSessionNoopApplyKeepsClean(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	session := NewSession(s, doc, Options{})

	for i := 0; i < 3; i++ {
		require.NoError(t, session.Apply(titlePatch("Хашаа")))
	}
	require.NoError(t, session.Apply(content.Patch{}))
	assert.False(t, session.Dirty())
}

func TestSessionDirtyUntilSaved(t *testing.T) {
	s := testSchema()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{})

	require.NoError(t, session.Apply(titlePatch("Шинэ")))
	assert.True(t, session.Dirty())
	require.NoError(t, session.Apply(titlePatch("Шинэ")))
	assert.True(t, session.Dirty())

	session.MarkSaved(session.Document())
	assert.False(t, session.Dirty())
	assert.Equal(t, "Шинэ", session.Saved().Fields["title"].Value.Primary)
}

func TestSessionAddRemoveBlockRoundTrip(t *testing.T) {
	s := testSchema()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{})
	before := session.Document()

	id, err := session.AddBlock(content.KindParagraph, "details")
	require.NoError(t, err)
	assert.True(t, session.Dirty())

	session.RemoveBlock(id)
	session.RemoveBlock(id)
	assert.True(t, before.Equal(session.Document()))
	assert.False(t, session.Dirty())
}

func TestSessionInvalidPlacement(t *testing.T) {
	s := testSchema()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{})
	before := session.Document()

	_, err := session.AddBlock(content.KindTitle, "sidebar")
	require.Error(t, err)
	assert.ErrorIs(t, err, content.ErrInvalidPlacement)
	assert.True(t, before.Equal(session.Document()))
	assert.False(t, session.Dirty())
}

func TestSessionStrictPanics(t *testing.T) {
	s := testSchema()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{Strict: true})
	assert.Panics(t, func() {
		_, _ = session.AddBlock(content.KindTitle, "sidebar")
	})
}

func TestSessionResetTwice(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	session := NewSession(s, doc, Options{})
	require.NoError(t, session.Apply(titlePatch("changed")))

	session.Reset()
	assert.False(t, session.Dirty())
	assert.True(t, doc.Equal(session.Document()))

	assert.NotPanics(t, session.Reset)
	assert.False(t, session.Dirty())
}

func TestSessionToggleVisibilityPreservesText(t *testing.T) {
	s := testSchema()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{})

	require.NoError(t, session.ToggleVisibility("fields.title.style.visible"))
	doc := session.Document()
	assert.False(t, doc.Fields["title"].Style.Visible)
	assert.Equal(t, "Fence", doc.Fields["title"].Value.Secondary)

	require.NoError(t, session.ToggleVisibility("fields.title.style.visible"))
	assert.False(t, session.Dirty())
}

func TestSessionObservers(t *testing.T) {
	s := testSchema()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{})
	var got []Change
	stop := session.OnChange(func(ch Change) { got = append(got, ch) })

	require.NoError(t, session.Apply(titlePatch("a")))
	require.NoError(t, session.Apply(titlePatch("a")))
	stop()
	require.NoError(t, session.Apply(titlePatch("b")))

	require.Len(t, got, 1)
	assert.Equal(t, "apply", got[0].Op)
	assert.True(t, got[0].Dirty)
}

func TestAutosaveCoalescesBurst(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))
	start := clock.Now()

	for i, v := range []string{"a", "ab", "abc", "abcd"} {
		if i > 0 {
			clock.Advance(100 * time.Millisecond)
		}
		require.NoError(t, c.Session().Apply(titlePatch(v)))
		assert.Equal(t, StatePending, c.State())
	}

	clock.Advance(799 * time.Millisecond)
	assert.Empty(t, adapter.saveCalls())

	clock.Advance(time.Millisecond)
	saves := adapter.saveCalls()
	require.Len(t, saves, 1)
	assert.Equal(t, ModeAuto, saves[0].mode)
	assert.GreaterOrEqual(t, saves[0].at.Sub(start), 1100*time.Millisecond)
	assert.Equal(t, "abcd", saves[0].doc.Fields["title"].Value.Primary)

	assert.False(t, c.Session().Dirty())
	assert.Equal(t, StateIdle, c.State())

	clock.Advance(10 * time.Second)
	assert.Len(t, adapter.saveCalls(), 1)
}

func TestAutosaveKeepsEditsMadeDuringSave(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))

	require.NoError(t, c.Session().Apply(titlePatch("first")))
	adapter.onSave = func(content.Document) {
		assert.Equal(t, StateSaving, c.State())
		require.NoError(t, c.Session().Apply(titlePatch("second")))
	}
	clock.Advance(DefaultDelay)

	require.Len(t, adapter.saveCalls(), 1)
	assert.Equal(t, "first", adapter.saveCalls()[0].doc.Fields["title"].Value.Primary)
	assert.True(t, c.Session().Dirty())
	assert.Equal(t, StatePending, c.State())

	clock.Advance(DefaultDelay)
	saves := adapter.saveCalls()
	require.Len(t, saves, 2)
	assert.Equal(t, "second", saves[1].doc.Fields["title"].Value.Primary)
	assert.False(t, c.Session().Dirty())
}

func TestAutosaveFailureKeepsDirty(t *testing.T) {
	s := testSchema()
	clock := newFakeClock()
	adapter := newMemAdapter(clock)
	adapter.saveErr = errors.New("503 service unavailable")
	doc := publishableDoc(s, "doc-1")
	session := NewSession(s, doc, Options{})

	var reported []error
	c := NewController(adapter, session, Config{Clock: clock, OnError: func(err error) { reported = append(reported, err) }})
	defer c.Close()

	require.NoError(t, session.Apply(titlePatch("lost?")))
	clock.Advance(DefaultDelay)

	assert.True(t, session.Dirty())
	assert.True(t, doc.Equal(session.Saved()))
	assert.Equal(t, "lost?", session.Document().Fields["title"].Value.Primary)
	assert.Equal(t, StateIdle, c.State())
	require.Len(t, reported, 1)
	var pe *PersistenceError
	require.ErrorAs(t, reported[0], &pe)
	assert.Equal(t, ModeAuto, pe.Mode)
	assert.Error(t, c.LastError())

	// not rescheduled on its own
	clock.Advance(time.Minute)
	assert.Len(t, adapter.saveCalls(), 1)

	// the next edit starts a new cycle
	adapter.saveErr = nil
	require.NoError(t, session.Apply(titlePatch("retry")))
	clock.Advance(DefaultDelay)
	assert.Len(t, adapter.saveCalls(), 2)
	assert.False(t, session.Dirty())
	assert.NoError(t, c.LastError())
}

func TestAutosaveSkipsPublishedDocuments(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	doc.Status = content.StatusPublished
	c, adapter, clock := newTestController(t, doc)

	require.NoError(t, c.Session().Apply(titlePatch("edited after publish")))
	assert.True(t, c.Session().Dirty())
	assert.Equal(t, StateIdle, c.State())
	clock.Advance(time.Minute)
	assert.Empty(t, adapter.saveCalls())
}

func TestResetCancelsPendingAutosave(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))

	require.NoError(t, c.Session().Apply(titlePatch("oops")))
	c.Session().Reset()
	assert.Equal(t, StateIdle, c.State())
	clock.Advance(time.Minute)
	assert.Empty(t, adapter.saveCalls())
}

func TestPublishBlockedByValidation(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	doc.Lists["materials"] = []content.ListItem{}
	c, adapter, _ := newTestController(t, doc)

	errs, err := c.Publish(context.Background())
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, content.ValidationError{Code: content.EmptyRequiredCollection, Collection: "materials"}, errs[0])
	assert.Empty(t, adapter.saveCalls())
	assert.Empty(t, adapter.publishes)
	assert.Equal(t, content.StatusDraft, c.Session().Document().Status)
	assert.Equal(t, errs, c.View().Errors)
}

func TestPublishRequiredFieldThenFix(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	doc.Fields["title"] = content.Field{Style: doc.Fields["title"].Style}
	c, adapter, _ := newTestController(t, doc)

	errs, err := c.Publish(context.Background())
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, content.MissingRequiredField, errs[0].Code)
	assert.Empty(t, adapter.publishes)

	en := "Fence"
	require.NoError(t, c.Session().Apply(content.Patch{Fields: map[string]content.FieldPatch{
		"title": {Value: &content.TextPatch{Secondary: &en}},
	}}))
	errs, err = c.Publish(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"doc-1"}, adapter.publishes)
}

func TestPublishSuccess(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))
	require.NoError(t, c.Session().Apply(titlePatch("Шинэ хашаа")))
	assert.Equal(t, StatePending, c.State())

	errs, err := c.Publish(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	saves := adapter.saveCalls()
	require.Len(t, saves, 1)
	assert.Equal(t, ModeManual, saves[0].mode)
	assert.Equal(t, []string{"doc-1"}, adapter.publishes)
	assert.Equal(t, content.StatusPublished, c.Session().Document().Status)
	assert.False(t, c.Session().Dirty())

	// the pending autosave was superseded
	clock.Advance(time.Minute)
	assert.Len(t, adapter.saveCalls(), 1)
}

func TestPublishFailureLeavesDraft(t *testing.T) {
	s := testSchema()
	c, adapter, _ := newTestController(t, publishableDoc(s, "doc-1"))
	adapter.publishErr = errors.New("boom")
	require.NoError(t, c.Session().Apply(titlePatch("draft edit")))

	errs, err := c.Publish(context.Background())
	assert.Empty(t, errs)
	require.Error(t, err)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "publish", pe.Op)

	doc := c.Session().Document()
	assert.Equal(t, content.StatusDraft, doc.Status)
	assert.Equal(t, "draft edit", doc.Fields["title"].Value.Primary)
	assert.True(t, c.Session().Dirty())
	assert.NotEmpty(t, c.View().LastError)
}

func TestManualSaveValidatesAndClearsDirty(t *testing.T) {
	s := testSchema()
	c, adapter, _ := newTestController(t, publishableDoc(s, "doc-1"))
	blank := ""
	require.NoError(t, c.Session().Apply(content.Patch{Fields: map[string]content.FieldPatch{
		"title": {Value: &content.TextPatch{Primary: &blank, Secondary: &blank}},
	}}))

	errs, err := c.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, errs.OK())
	assert.Empty(t, adapter.saveCalls())

	require.NoError(t, c.Session().Apply(titlePatch("ok")))
	errs, err = c.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, errs.OK())
	require.Len(t, adapter.saveCalls(), 1)
	assert.Equal(t, ModeManual, adapter.saveCalls()[0].mode)
	assert.False(t, c.Session().Dirty())
}

func TestManualSaveFailureKeepsSnapshot(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	c, adapter, _ := newTestController(t, doc)
	adapter.saveErr = errors.New("network down")
	require.NoError(t, c.Session().Apply(titlePatch("x")))

	_, err := c.Save(context.Background())
	require.Error(t, err)
	assert.True(t, c.Session().Dirty())
	assert.True(t, doc.Equal(c.Session().Saved()))
}

func TestStaleSaveIgnoredAfterNavigate(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))
	adapter.docs["doc-2"] = publishableDoc(s, "doc-2")

	require.NoError(t, c.Session().Apply(titlePatch("for doc-1")))
	adapter.onSave = func(content.Document) {
		require.NoError(t, c.Navigate(context.Background(), "doc-2"))
	}
	clock.Advance(DefaultDelay)

	require.Len(t, adapter.saveCalls(), 1)
	doc := c.Session().Document()
	assert.Equal(t, "doc-2", doc.ID)
	assert.Equal(t, "doc-2", c.Session().Saved().ID)
	assert.False(t, c.Session().Dirty())
	assert.Equal(t, StateIdle, c.State())
}

func TestPublishDuringAutosaveWins(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))

	require.NoError(t, c.Session().Apply(titlePatch("autosaved")))
	adapter.onSave = func(content.Document) {
		errs, err := c.Publish(context.Background())
		require.NoError(t, err)
		require.True(t, errs.OK())
	}
	clock.Advance(DefaultDelay)

	saves := adapter.saveCalls()
	require.Len(t, saves, 2)
	assert.Equal(t, ModeManual, saves[0].mode)
	assert.Equal(t, ModeAuto, saves[1].mode)

	// the autosave returned last but started first
	assert.False(t, c.Session().Dirty())
	assert.Equal(t, content.StatusPublished, c.Session().Saved().Status)
	assert.Equal(t, content.StatusPublished, c.Session().Document().Status)
	assert.Equal(t, StateIdle, c.State())

	clock.Advance(time.Minute)
	assert.Len(t, adapter.saveCalls(), 2)
}

func TestManualSaveDuringAutosaveWins(t *testing.T) {
	s := testSchema()
	c, adapter, clock := newTestController(t, publishableDoc(s, "doc-1"))

	require.NoError(t, c.Session().Apply(titlePatch("first")))
	adapter.onSave = func(content.Document) {
		require.NoError(t, c.Session().Apply(titlePatch("second")))
		errs, err := c.Save(context.Background())
		require.NoError(t, err)
		require.True(t, errs.OK())
	}
	clock.Advance(DefaultDelay)

	assert.False(t, c.Session().Dirty())
	assert.Equal(t, "second", c.Session().Saved().Fields["title"].Value.Primary)
	clock.Advance(time.Minute)
	assert.Len(t, adapter.saveCalls(), 2)
}

func TestOpenStartsFromDefaultsWhenMissing(t *testing.T) {
	s := testSchema()
	clock := newFakeClock()
	adapter := newMemAdapter(clock)

	c, err := Open(context.Background(), adapter, s, "new-doc", Config{Clock: clock})
	require.NoError(t, err)
	defer c.Close()
	doc := c.Session().Document()
	assert.Equal(t, "new-doc", doc.ID)
	assert.Equal(t, content.StatusDraft, doc.Status)
	assert.NotNil(t, doc.Fields["title"].Style)
	assert.False(t, c.Session().Dirty())
}

func TestOpenWrapsFetchErrors(t *testing.T) {
	s := testSchema()
	_, err := Open(context.Background(), failingFetch{}, s, "x", Config{})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fetch", pe.Op)
}

type failingFetch struct{ Adapter }

func (failingFetch) Fetch(context.Context, string) (content.Document, error) {
	return content.Document{}, errors.New("timeout")
}

func TestDeleteItemDoesNotDirty(t *testing.T) {
	s := testSchema()
	doc := publishableDoc(s, "doc-1")
	doc.Blocks = []content.Block{{ID: "b1", Kind: content.KindNote, Placement: "details", Style: content.DefaultStyle(), Visible: true}}
	c, adapter, _ := newTestController(t, doc)

	require.NoError(t, c.DeleteItem(context.Background(), CollectionRef{Collection: CollectionBlocks}, "b1"))
	_, ok := c.Session().Document().Block("b1")
	assert.False(t, ok)
	assert.False(t, c.Session().Dirty())
	assert.Equal(t, []string{"blocks/b1"}, adapter.deletes)

	adapter.deleteErr = errors.New("gone")
	err := c.DeleteItem(context.Background(), CollectionRef{Collection: "materials"}, "m1")
	require.Error(t, err)
	assert.Len(t, c.Session().Document().Lists["materials"], 1)
}

func TestUnloadGuardLifecycle(t *testing.T) {
	s := testSchema()
	guard := NewGuardRegistry()
	clock := newFakeClock()
	session := NewSession(s, publishableDoc(s, "doc-1"), Options{})
	c := NewController(newMemAdapter(clock), session, Config{Clock: clock, Guard: guard, GuardKey: "admin"})

	assert.Equal(t, 1, guard.Len())
	assert.False(t, guard.ShouldWarn("admin"))
	require.NoError(t, session.Apply(titlePatch("unsaved")))
	assert.True(t, guard.ShouldWarn("admin"))
	assert.False(t, guard.ShouldWarn("someone-else"))

	c.Close()
	c.Close()
	assert.Equal(t, 0, guard.Len())
	assert.False(t, guard.ShouldWarn("admin"))

	// closed controllers no longer autosave
	require.NoError(t, session.Apply(titlePatch("after close")))
	clock.Advance(time.Minute)
	assert.Equal(t, StateIdle, c.State())
}

func TestUIState(t *testing.T) {
	ui := NewUIState()
	v := content.NewText("Сайн уу", "")
	assert.Equal(t, "Сайн уу", ui.Text(v))

	ui.ToggleLocale()
	assert.Equal(t, content.LocaleEN, ui.Locale)
	assert.Equal(t, "Сайн уу", ui.Text(v))

	ui.SetLocale("fr")
	assert.Equal(t, content.LocaleEN, ui.Locale)

	ui.OpenModal("image")
	assert.True(t, ui.ModalOpen("image"))
	assert.False(t, ui.ModalOpen("map"))
	ui.CloseModal()
	assert.False(t, ui.ModalOpen("image"))
}
