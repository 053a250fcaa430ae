package sitecms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eringen/sitecms/editor"
)

const (
	testPassword = "correct horse"
	testToken    = "api-token"
)

// manualClock hands out timers that only fire when the test says so.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(_ time.Duration, fn func()) editor.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// fireAll runs every pending timer and reports how many ran.
func (c *manualClock) fireAll() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.timers = nil
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	cfg := SiteConfig{
		Name:          "Test Site",
		URL:           "https://example.mn",
		Description:   "A test site",
		DatabasePath:  filepath.Join(t.TempDir(), "site.db"),
		AdminPassword: testPassword,
		SessionSecret: "0123456789abcdef0123456789abcdef",
		APIToken:      testToken,
		AutosaveDelay: time.Hour,
	}
	app := New(cfg, ViewFuncs{}, opts...)
	app.Echo.Logger.SetOutput(io.Discard)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { app.Close() })
	return app
}

// serve sends one request straight to the app.
func serve(app *App, method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

// browser is a cookie-keeping client against a running app, for flows that
// need the admin session and CSRF token.
type browser struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, app *App) *browser {
	t.Helper()
	srv := httptest.NewServer(app.Echo)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, server: srv, client: &http.Client{Jar: jar}}
}

func (b *browser) csrf() string {
	b.t.Helper()
	u, _ := url.Parse(b.server.URL)
	for _, ck := range b.client.Jar.Cookies(u) {
		if ck.Name == "_csrf" {
			return ck.Value
		}
	}
	resp := b.get("/admin/")
	resp.Body.Close()
	for _, ck := range b.client.Jar.Cookies(u) {
		if ck.Name == "_csrf" {
			return ck.Value
		}
	}
	b.t.Fatal("no csrf cookie")
	return ""
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	resp, err := b.client.Get(b.server.URL + path)
	require.NoError(b.t, err)
	return resp
}

func (b *browser) postForm(path string, form url.Values) *http.Response {
	b.t.Helper()
	form.Set("_csrf", b.csrf())
	resp, err := b.client.PostForm(b.server.URL+path, form)
	require.NoError(b.t, err)
	return resp
}

func (b *browser) login(password string) *http.Response {
	b.t.Helper()
	return b.postForm("/admin/login/", url.Values{"password": {password}})
}

// call sends a JSON request the way the editor script does and decodes the
// editor response.
func (b *browser) call(method, path string, payload any) (int, editorResponse) {
	b.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(b.t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.server.URL+path, body)
	require.NoError(b.t, err)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-CSRF-Token", b.csrf())
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	var out editorResponse
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(b.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
