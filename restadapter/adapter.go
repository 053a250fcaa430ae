// Package restadapter implements editor.Adapter over the site's REST API:
//
//	GET    /{resource}/{id}/                        fetch
//	PUT    /{resource}/{id}/?mode=auto|manual        full replace
//	POST   /{resource}/{id}/publish/                 publish
//	DELETE /{resource}/{id}/{collection}/{item}/     delete a block or list item
//
// Bodies use the mapper the resource's schema declares. Requests are not
// retried; a failed save surfaces to the editor, which keeps its changes.
package restadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
	"github.com/eringen/sitecms/mapper"
)

// DefaultTimeout bounds every request unless WithClient or WithTimeout says
// otherwise.
const DefaultTimeout = 15 * time.Second

const maxResponseSize = 10 << 20

// Adapter talks to one resource of a REST backend.
type Adapter struct {
	base    string
	schema  *content.Schema
	mapper  mapper.Mapper
	client  *http.Client
	headers map[string]string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.client.Timeout = d }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHeader sends an extra header with every request.
func WithHeader(key, value string) Option {
	return func(a *Adapter) { a.headers[key] = value }
}

// New returns an adapter for schema's resource under baseURL.
func New(baseURL string, schema *content.Schema, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("restadapter: base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("restadapter: %w", err)
	}
	m, err := mapper.ForSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("restadapter: %w", err)
	}
	a := &Adapter{
		base:    strings.TrimRight(baseURL, "/"),
		schema:  schema,
		mapper:  m,
		client:  &http.Client{Timeout: DefaultTimeout},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

var _ editor.Adapter = (*Adapter)(nil)

func (a *Adapter) documentURL(id string, rest ...string) string {
	parts := append([]string{a.base, url.PathEscape(a.schema.Name), url.PathEscape(id)}, rest...)
	return strings.Join(parts, "/") + "/"
}

// Fetch loads document id. A 404 matches editor.ErrNotFound.
func (a *Adapter) Fetch(ctx context.Context, id string) (content.Document, error) {
	u := a.documentURL(id)
	body, err := a.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return content.Document{}, err
	}
	doc, err := mapper.Unmarshal(a.schema, body)
	if err != nil {
		return content.Document{}, &DecodeError{URL: u, Err: err}
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

type saveResponse struct {
	ID      string    `json:"id"`
	Version int64     `json:"version"`
	SavedAt time.Time `json:"saved_at"`
}

// Save replaces the stored document with doc.
func (a *Adapter) Save(ctx context.Context, doc content.Document, mode editor.SaveMode) (editor.SavedDocument, error) {
	payload, err := json.Marshal(a.mapper.Encode(a.schema, doc))
	if err != nil {
		return editor.SavedDocument{}, fmt.Errorf("encode %s: %w", doc.ID, err)
	}
	u := a.documentURL(doc.ID) + "?mode=" + url.QueryEscape(string(mode))
	body, err := a.do(ctx, http.MethodPut, u, payload)
	if err != nil {
		return editor.SavedDocument{}, err
	}

	saved := editor.SavedDocument{ID: doc.ID}
	if len(bytes.TrimSpace(body)) == 0 {
		return saved, nil
	}
	var resp saveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return editor.SavedDocument{}, &DecodeError{URL: u, Err: err}
	}
	if resp.ID != "" {
		saved.ID = resp.ID
	}
	saved.Version = resp.Version
	saved.SavedAt = resp.SavedAt
	return saved, nil
}

// Publish publishes the stored version of document id.
func (a *Adapter) Publish(ctx context.Context, id string) error {
	_, err := a.do(ctx, http.MethodPost, a.documentURL(id, "publish"), nil)
	return err
}

// DeleteItem deletes one block or list item.
func (a *Adapter) DeleteItem(ctx context.Context, ref editor.CollectionRef, itemID string) error {
	u := a.documentURL(ref.DocumentID, url.PathEscape(ref.Collection), url.PathEscape(itemID))
	_, err := a.do(ctx, http.MethodDelete, u, nil)
	return err
}

func (a *Adapter) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &HTTPError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return b, nil
}
