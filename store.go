package sitecms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = editor.ErrNotFound

// Store wraps a SQLite database holding every content document.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DocumentInfo is a row of the admin document list.
type DocumentInfo struct {
	Resource  string
	ID        string
	Status    content.Status
	Version   int64
	UpdatedAt time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the public site read while an editor saves; busy_timeout makes
	// concurrent writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    resource TEXT NOT NULL,
    id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    body TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    updated_at TEXT NOT NULL,
    published_at TEXT,
    PRIMARY KEY (resource, id)
);
CREATE INDEX IF NOT EXISTS documents_status ON documents (status);
`)
	return err
}

type row struct {
	status    string
	body      string
	version   int64
	updatedAt string
}

func (s *Store) get(ctx context.Context, q queryer, resource, id string) (row, error) {
	var r row
	err := q.QueryRowContext(ctx,
		`SELECT status, body, version, updated_at FROM documents WHERE resource = ? AND id = ?`,
		resource, id).Scan(&r.status, &r.body, &r.version, &r.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return row{}, ErrNotFound
	}
	return r, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r row) document(resource, id string) (content.Document, error) {
	var doc content.Document
	if err := json.Unmarshal([]byte(r.body), &doc); err != nil {
		return content.Document{}, fmt.Errorf("decode %s/%s: %w", resource, id, err)
	}
	doc.ID = id
	doc.Resource = resource
	doc.Status = content.Status(r.status)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, r.updatedAt)
	return doc, nil
}

// GetDocument returns a document regardless of status (for the editor).
func (s *Store) GetDocument(ctx context.Context, resource, id string) (content.Document, error) {
	r, err := s.get(ctx, s.db, resource, id)
	if err != nil {
		return content.Document{}, err
	}
	return r.document(resource, id)
}

// GetPublished returns a published document. Drafts are reported as missing.
func (s *Store) GetPublished(ctx context.Context, resource, id string) (content.Document, error) {
	doc, err := s.GetDocument(ctx, resource, id)
	if err != nil {
		return content.Document{}, err
	}
	if !doc.Published() {
		return content.Document{}, ErrNotFound
	}
	return doc, nil
}

// encodeBody serializes the parts of doc that live in the body column.
func encodeBody(doc content.Document) (string, error) {
	doc.Status = ""
	doc.UpdatedAt = time.Time{}
	b, err := json.Marshal(doc)
	return string(b), err
}

// sameBody reports whether doc carries the content already stored in r.
func sameBody(r row, doc content.Document) bool {
	if r.body == "" {
		return false
	}
	stored, err := r.document(doc.Resource, doc.ID)
	if err != nil {
		return false
	}
	doc.Status = stored.Status
	return stored.Equal(doc)
}

// SaveDocument stores doc as the new full content of its row. Saving a body
// identical to the stored one changes nothing, so repeated saves are safe.
// The stored status is kept; only PublishDocument changes it.
func (s *Store) SaveDocument(ctx context.Context, doc content.Document) (editor.SavedDocument, error) {
	if doc.Resource == "" || doc.ID == "" {
		return editor.SavedDocument{}, fmt.Errorf("save: resource and id are required")
	}
	body, err := encodeBody(doc)
	if err != nil {
		return editor.SavedDocument{}, fmt.Errorf("encode %s/%s: %w", doc.Resource, doc.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return editor.SavedDocument{}, err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	saved := editor.SavedDocument{ID: doc.ID, SavedAt: now}

	cur, err := s.get(ctx, tx, doc.Resource, doc.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		saved.Version = 1
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (resource, id, status, body, version, updated_at) VALUES (?, ?, ?, ?, 1, ?)`,
			doc.Resource, doc.ID, string(content.StatusDraft), body, now.Format(time.RFC3339Nano))
	case err != nil:
		return editor.SavedDocument{}, err
	case sameBody(cur, doc):
		saved.Version = cur.version
		saved.SavedAt, _ = time.Parse(time.RFC3339Nano, cur.updatedAt)
		return saved, nil
	default:
		saved.Version = cur.version + 1
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET body = ?, version = ?, updated_at = ? WHERE resource = ? AND id = ?`,
			body, saved.Version, now.Format(time.RFC3339Nano), doc.Resource, doc.ID)
	}
	if err != nil {
		return editor.SavedDocument{}, err
	}
	return saved, tx.Commit()
}

// PublishDocument marks a stored document published. Publishing an already
// published document is a no-op.
func (s *Store) PublishDocument(ctx context.Context, resource, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, published_at = COALESCE(published_at, ?) WHERE resource = ? AND id = ?`,
		string(content.StatusPublished), s.now().UTC().Format(time.RFC3339Nano), resource, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes one block or list item from a stored document. Deleting
// an item that is already gone succeeds without a new version.
func (s *Store) DeleteItem(ctx context.Context, resource, id, collection, itemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cur, err := s.get(ctx, tx, resource, id)
	if err != nil {
		return err
	}
	doc, err := cur.document(resource, id)
	if err != nil {
		return err
	}
	before := doc
	if collection == editor.CollectionBlocks {
		doc = content.RemoveBlock(doc, itemID)
	} else {
		doc = content.RemoveListItem(doc, collection, itemID)
	}
	if doc.Equal(before) {
		return nil
	}
	body, err := encodeBody(doc)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, version = version + 1, updated_at = ? WHERE resource = ? AND id = ?`,
		body, s.now().UTC().Format(time.RFC3339Nano), resource, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDocuments returns every document of resource, newest first. An empty
// resource lists all of them.
func (s *Store) ListDocuments(ctx context.Context, resource string) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT resource, id, status, version, updated_at FROM documents
WHERE ? = '' OR resource = ?
ORDER BY updated_at DESC, resource, id`, resource, resource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		var status, updated string
		if err := rows.Scan(&info.Resource, &info.ID, &status, &info.Version, &updated); err != nil {
			return nil, err
		}
		info.Status = content.Status(status)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// ListPublished returns every published document ordered by resource and id.
func (s *Store) ListPublished(ctx context.Context) ([]content.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT resource, id, status, body, version, updated_at FROM documents
WHERE status = ?
ORDER BY resource, id`, string(content.StatusPublished))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []content.Document
	for rows.Next() {
		var resource, id string
		var r row
		if err := rows.Scan(&resource, &id, &r.status, &r.body, &r.version, &r.updatedAt); err != nil {
			return nil, err
		}
		doc, err := r.document(resource, id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
