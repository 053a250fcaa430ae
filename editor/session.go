package editor

import (
	"sync"

	"github.com/eringen/sitecms/content"
)

// Change describes a committed mutation. Observers receive it after the
// session lock is released.
type Change struct {
	Op        string
	Epoch     uint64
	Dirty     bool
	Published bool
}

// Options configures a Session.
type Options struct {
	Logger Logger
	// Strict makes invariant violations panic instead of returning an
	// error. Meant for development builds.
	Strict bool
}

// Session is the in-memory mutation buffer over one document. The working
// copy is dirty exactly when it differs from the last saved snapshot.
// All methods are safe for concurrent use and never block on I/O.
type Session struct {
	mu        sync.Mutex
	schema    *content.Schema
	working   content.Document
	saved     content.Document
	dirty     bool
	epoch     uint64
	saveSeq   uint64 // last save started
	savedSeq  uint64 // last save result applied
	observers map[int]func(Change)
	nextObs   int

	log    Logger
	strict bool
}

// NewSession starts a clean session over doc.
func NewSession(schema *content.Schema, doc content.Document, opts Options) *Session {
	return &Session{
		schema:    schema,
		working:   doc.Clone(),
		saved:     doc.Clone(),
		observers: make(map[int]func(Change)),
		log:       loggerOr(opts.Logger),
		strict:    opts.Strict,
	}
}

// Schema returns the schema the session edits against.
func (s *Session) Schema() *content.Schema {
	return s.schema
}

// Document returns a copy of the working document.
func (s *Session) Document() content.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// Saved returns a copy of the last saved snapshot.
func (s *Session) Saved() content.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved.Clone()
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Epoch identifies the document currently loaded. It changes on Load.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// saveTicket ties a save result to the document and the order it was
// started in.
type saveTicket struct {
	epoch uint64
	seq   uint64
}

// beginSave snapshots the working document for a save about to start.
func (s *Session) beginSave() (content.Document, saveTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveSeq++
	return s.working.Clone(), saveTicket{epoch: s.epoch, seq: s.saveSeq}
}

// currentLocked reports whether a save result for t may still be applied:
// the same document is loaded and no later save has landed first.
func (s *Session) currentLocked(t saveTicket, id string) bool {
	return s.epoch == t.epoch && s.working.ID == id && t.seq > s.savedSeq
}

// OnChange registers fn to be called after every committed mutation and
// returns a function that removes it.
func (s *Session) OnChange(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Apply merges p into the working document. A patch that leaves the document
// unchanged does not touch the dirty flag.
func (s *Session) Apply(p content.Patch) error {
	return s.mutate("apply", func(doc content.Document) (content.Document, error) {
		return content.ApplyPatch(s.schema, doc, p)
	})
}

// AddBlock appends an empty block to placement and returns its id so the UI
// can focus it.
func (s *Session) AddBlock(kind content.BlockKind, placement string) (string, error) {
	var id string
	err := s.mutate("add block", func(doc content.Document) (content.Document, error) {
		out, newID, err := content.AddBlock(s.schema, doc, kind, placement)
		id = newID
		return out, err
	})
	return id, err
}

// RemoveBlock deletes a block. Removing an unknown id is a no-op so repeated
// clicks are harmless.
func (s *Session) RemoveBlock(id string) {
	_ = s.mutate("remove block", func(doc content.Document) (content.Document, error) {
		return content.RemoveBlock(doc, id), nil
	})
}

// AddListItem appends an empty item to list and returns its id.
func (s *Session) AddListItem(list string) (string, error) {
	var id string
	err := s.mutate("add list item", func(doc content.Document) (content.Document, error) {
		out, newID, err := content.AddListItem(s.schema, doc, list)
		id = newID
		return out, err
	})
	return id, err
}

// RemoveListItem deletes an item from list. Unknown ids are ignored.
func (s *Session) RemoveListItem(list, id string) {
	_ = s.mutate("remove list item", func(doc content.Document) (content.Document, error) {
		return content.RemoveListItem(doc, list, id), nil
	})
}

// ToggleVisibility flips the boolean at path (see content.ToggleVisibility).
func (s *Session) ToggleVisibility(path string) error {
	return s.mutate("toggle", func(doc content.Document) (content.Document, error) {
		return content.ToggleVisibility(doc, path)
	})
}

// Reset discards working changes and restores the last saved snapshot.
func (s *Session) Reset() {
	s.mu.Lock()
	changed := !s.working.Equal(s.saved)
	s.working = s.saved.Clone()
	s.dirty = false
	ch := s.changeLocked("reset")
	s.mu.Unlock()
	if changed {
		s.notify(ch)
	}
}

// MarkSaved records snapshot as what the store now holds. Dirty is cleared
// unless the working copy has moved on since snapshot was taken.
func (s *Session) MarkSaved(snapshot content.Document) {
	s.mu.Lock()
	ch := s.markSavedLocked(snapshot)
	s.mu.Unlock()
	s.notify(ch)
}

// markSavedAt applies a save result only if the session still holds the
// document the save was started for and no newer save has been applied.
func (s *Session) markSavedAt(t saveTicket, snapshot content.Document) bool {
	s.mu.Lock()
	if !s.currentLocked(t, snapshot.ID) {
		s.mu.Unlock()
		return false
	}
	s.savedSeq = t.seq
	ch := s.markSavedLocked(snapshot)
	s.mu.Unlock()
	s.notify(ch)
	return true
}

func (s *Session) markSavedLocked(snapshot content.Document) Change {
	s.saved = snapshot.Clone()
	s.dirty = !s.working.Equal(s.saved)
	return s.changeLocked("saved")
}

// markPublishedAt flips both copies to published after a successful publish
// of snapshot.
func (s *Session) markPublishedAt(t saveTicket, snapshot content.Document) bool {
	s.mu.Lock()
	if !s.currentLocked(t, snapshot.ID) {
		s.mu.Unlock()
		return false
	}
	s.savedSeq = t.seq
	snapshot.Status = content.StatusPublished
	s.working.Status = content.StatusPublished
	ch := s.markSavedLocked(snapshot)
	s.mu.Unlock()
	s.notify(ch)
	return true
}

// forgetItem removes an item the store already deleted from both the working
// copy and the snapshot, so the deletion does not show up as a change.
func (s *Session) forgetItem(epoch uint64, ref CollectionRef, itemID string) {
	remove := func(doc content.Document) content.Document {
		if ref.Collection == CollectionBlocks {
			return content.RemoveBlock(doc, itemID)
		}
		return content.RemoveListItem(doc, ref.Collection, itemID)
	}
	s.mu.Lock()
	if s.epoch != epoch || s.working.ID != ref.DocumentID {
		s.mu.Unlock()
		return
	}
	s.working = remove(s.working)
	s.saved = remove(s.saved)
	s.dirty = !s.working.Equal(s.saved)
	ch := s.changeLocked("delete item")
	s.mu.Unlock()
	s.notify(ch)
}

// Load replaces the session's document, for example when the admin navigates
// to another page. Results of saves started before Load are discarded.
func (s *Session) Load(doc content.Document) {
	s.mu.Lock()
	s.epoch++
	s.working = doc.Clone()
	s.saved = doc.Clone()
	s.dirty = false
	ch := s.changeLocked("load")
	s.mu.Unlock()
	s.notify(ch)
}

func (s *Session) mutate(op string, fn func(content.Document) (content.Document, error)) error {
	s.mu.Lock()
	next, err := fn(s.working)
	if err != nil {
		s.mu.Unlock()
		return s.fail(err)
	}
	if next.Equal(s.working) {
		s.mu.Unlock()
		return nil
	}
	s.working = next
	s.dirty = !s.working.Equal(s.saved)
	ch := s.changeLocked(op)
	s.mu.Unlock()
	s.notify(ch)
	return nil
}

func (s *Session) fail(err error) error {
	s.log.Errorf("editor: %v", err)
	if s.strict && content.IsInvariantViolation(err) {
		panic(err)
	}
	return err
}

func (s *Session) changeLocked(op string) Change {
	return Change{
		Op:        op,
		Epoch:     s.epoch,
		Dirty:     s.dirty,
		Published: s.working.Published(),
	}
}

func (s *Session) notify(ch Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}
