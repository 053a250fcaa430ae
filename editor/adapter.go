// Package editor holds the editing engine shared by every admin screen: an
// EditSession that buffers mutations over one content document and tracks
// whether it differs from what was last saved, and a Controller that
// debounces autosaves, gates manual saves and publishing on validation, and
// guards against leaving with unsaved changes.
//
// The engine does not talk to storage itself. Callers supply an Adapter.
// Adapter authors must make Save and Publish idempotent from the caller's
// point of view: autosave and a manual save can race, so the same payload may
// arrive twice and must not produce double side effects. The engine assumes
// this and does not deduplicate calls.
package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eringen/sitecms/content"
)

// ErrNotFound is returned by Adapter.Fetch when the document does not exist.
var ErrNotFound = errors.New("document not found")

// SaveMode tells the adapter whether a save was triggered by the debounce
// timer or by the user.
type SaveMode string

const (
	ModeAuto   SaveMode = "auto"
	ModeManual SaveMode = "manual"
)

// CollectionBlocks addresses a document's block sequence in a CollectionRef.
// Any other collection name is a list name.
const CollectionBlocks = "blocks"

// CollectionRef addresses a sub-item collection of a document.
type CollectionRef struct {
	DocumentID string
	Collection string
}

// SavedDocument is what the store reports back after a save.
type SavedDocument struct {
	ID      string    `json:"id"`
	Version int64     `json:"version"`
	SavedAt time.Time `json:"savedAt"`
}

// Adapter is the persistence boundary the engine depends on.
type Adapter interface {
	Fetch(ctx context.Context, id string) (content.Document, error)
	Save(ctx context.Context, doc content.Document, mode SaveMode) (SavedDocument, error)
	Publish(ctx context.Context, id string) error
	DeleteItem(ctx context.Context, ref CollectionRef, itemID string) error
}

// PersistenceError wraps an adapter failure. It is the only error kind meant
// to reach the user as a message.
type PersistenceError struct {
	Op         string
	DocumentID string
	Mode       SaveMode
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Mode != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.DocumentID, e.Mode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op, id string, mode SaveMode, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, DocumentID: id, Mode: mode, Err: err}
}
