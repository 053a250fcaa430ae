package restadapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

func testSchema() *content.Schema {
	return &content.Schema{
		Name:       "fence",
		Mapper:     content.MapperFlat,
		Fields:     []content.FieldSpec{{Name: "title", Required: true, Styled: true}},
		Placements: []content.PlacementSpec{{Name: "details"}},
		Lists:      []content.ListSpec{{Name: "materials", Localized: true, RequiredNonEmpty: true}},
	}
}

type request struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// backend records requests and answers from fixed responses keyed by
// "METHOD path".
type backend struct {
	mu        sync.Mutex
	requests  []request
	responses map[string]func(w http.ResponseWriter)
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{responses: make(map[string]func(http.ResponseWriter))}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.requests = append(b.requests, request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Auth:   r.Header.Get("Authorization"),
		})
		respond, ok := b.responses[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) on(key string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[key] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (b *backend) recorded() []request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]request(nil), b.requests...)
}

func TestNewValidation(t *testing.T) {
	_, err := New("", testSchema())
	assert.Error(t, err)

	s := testSchema()
	s.Mapper = "xml"
	_, err = New("http://localhost", s)
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /fence/f1/", http.StatusOK, `{"id":"f1","status":"published","title_mn":"Хашаа","title_en":"Fence",
		"materials":[{"id":"m1","label_mn":"Төмөр","label_en":"Steel"}]}`)

	a, err := New(srv.URL+"/", testSchema(), WithToken("secret"))
	require.NoError(t, err)
	doc, err := a.Fetch(context.Background(), "f1")
	require.NoError(t, err)

	assert.Equal(t, "f1", doc.ID)
	assert.Equal(t, "fence", doc.Resource)
	assert.True(t, doc.Published())
	assert.Equal(t, "Fence", doc.Fields["title"].Value.Secondary)
	require.Len(t, doc.Lists["materials"], 1)
	assert.Equal(t, "Steel", doc.Lists["materials"][0].Value.Secondary)
	assert.Equal(t, "Bearer secret", b.recorded()[0].Auth)
}

func TestFetchNotFound(t *testing.T) {
	_, srv := newBackend(t)
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	_, err = a.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, editor.ErrNotFound)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "Document not found.", UserMessage(err))
}

func TestFetchBadBody(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /fence/f1/", http.StatusOK, `{"title_mn": 42}`)
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	_, err = a.Fetch(context.Background(), "f1")
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestSave(t *testing.T) {
	b, srv := newBackend(t)
	b.on("PUT /fence/f1/", http.StatusOK, `{"id":"f1","version":4,"saved_at":"2024-05-01T12:00:00Z"}`)
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	doc := testSchema().NewDocument("f1")
	doc.Fields["title"] = content.Field{Value: content.NewText("Хашаа", "Fence"), Style: doc.Fields["title"].Style}
	saved, err := a.Save(context.Background(), doc, editor.ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, int64(4), saved.Version)
	assert.Equal(t, 2024, saved.SavedAt.Year())

	reqs := b.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "mode=auto", reqs[0].Query)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	assert.Equal(t, "Хашаа", body["title_mn"])
	assert.Equal(t, "draft", body["status"])
}

func TestSaveEmptyResponse(t *testing.T) {
	b, srv := newBackend(t)
	b.on("PUT /fence/f1/", http.StatusNoContent, "")
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	saved, err := a.Save(context.Background(), testSchema().NewDocument("f1"), editor.ModeManual)
	require.NoError(t, err)
	assert.Equal(t, "f1", saved.ID)
	assert.Equal(t, "mode=manual", b.recorded()[0].Query)
}

func TestSaveServerError(t *testing.T) {
	b, srv := newBackend(t)
	b.on("PUT /fence/f1/", http.StatusServiceUnavailable, "maintenance")
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	_, err = a.Save(context.Background(), testSchema().NewDocument("f1"), editor.ModeAuto)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.True(t, httpErr.Temporary())
	assert.Equal(t, "maintenance", httpErr.Body)
	assert.NotErrorIs(t, err, editor.ErrNotFound)
	assert.Equal(t, "Server error. Please try again later.", UserMessage(err))
	assert.Len(t, b.recorded(), 1, "requests must not be retried")
}

func TestPublishAndDelete(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST /fence/f1/publish/", http.StatusOK, `{}`)
	b.on("DELETE /fence/f1/materials/m1/", http.StatusNoContent, "")
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	require.NoError(t, a.Publish(context.Background(), "f1"))
	require.NoError(t, a.DeleteItem(context.Background(), editor.CollectionRef{DocumentID: "f1", Collection: "materials"}, "m1"))

	reqs := b.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, http.MethodDelete, reqs[1].Method)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	a, err := New(srv.URL, testSchema(), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = a.Fetch(context.Background(), "slow")
	require.Error(t, err)
	assert.Equal(t, "Request timed out. Please try again.", UserMessage(err))
}

func TestControllerPublishesOverREST(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET /fence/f1/", http.StatusOK, `{"id":"f1","title_mn":"Хашаа","title_en":"Fence"}`)
	b.on("PUT /fence/f1/", http.StatusOK, `{"id":"f1","version":1}`)
	b.on("POST /fence/f1/publish/", http.StatusOK, `{}`)
	a, err := New(srv.URL, testSchema())
	require.NoError(t, err)

	c, err := editor.Open(context.Background(), a, testSchema(), "f1", editor.Config{})
	require.NoError(t, err)
	defer c.Close()

	errs, err := c.Publish(context.Background())
	require.NoError(t, err)
	require.True(t, errs.Has(content.EmptyRequiredCollection))
	assert.Len(t, b.recorded(), 1, "only the fetch reached the backend")

	_, err = c.Session().AddListItem("materials")
	require.NoError(t, err)
	doc := c.Session().Document()
	mn, en := "Төмөр", "Steel"
	require.NoError(t, c.Session().Apply(content.Patch{Lists: map[string][]content.ItemPatch{
		"materials": {{Index: 0, Value: &content.TextPatch{Primary: &mn, Secondary: &en}}},
	}}))
	require.Len(t, doc.Lists["materials"], 1)

	errs, err = c.Publish(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.True(t, c.Session().Document().Published())

	var methods []string
	for _, r := range b.recorded() {
		methods = append(methods, r.Method+" "+strings.TrimSuffix(r.Path, "/"))
	}
	assert.Equal(t, []string{"GET /fence/f1", "PUT /fence/f1", "POST /fence/f1/publish"}, methods)
}
