package sitecms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/sitecms/content"
)

const fenceEditor = "/admin/edit/fence/main"

func strp(s string) *string { return &s }

func titlePatch(mn, en string) content.Patch {
	return content.Patch{Fields: map[string]content.FieldPatch{
		"title": {Value: &content.TextPatch{Primary: strp(mn), Secondary: strp(en)}},
	}}
}

func TestAdminLogin(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)

	resp := b.login("wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Wrong password.")

	resp = b.login(testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `action="/admin/open/"`)
	assert.Contains(t, body, `<option value="fence">`)
}

func TestAdminLoginRateLimited(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	for i := 0; i < 5; i++ {
		readBody(t, b.login("wrong"))
	}
	resp := b.login(testPassword)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

func TestEditorRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)

	code, resp := b.call(http.MethodGet, fenceEditor+"/state/", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Empty(t, resp.View.Document.ID)

	page := b.get(fenceEditor + "/")
	defer page.Body.Close()
	assert.Equal(t, "/admin/", page.Request.URL.Path, "html requests are sent to the login page")
}

func TestEditorUnknownResource(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	code, _ := b.call(http.MethodGet, "/admin/edit/nope/main/state/", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = b.call(http.MethodGet, "/admin/edit/fence/Not_A_Slug/state/", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEditorPublishFlow(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))
	ctx := context.Background()

	code, resp := b.call(http.MethodGet, fenceEditor+"/state/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "main", resp.View.Document.ID)
	assert.Equal(t, content.StatusDraft, resp.View.Document.Status)
	assert.False(t, resp.View.Dirty)
	assert.Equal(t, content.LocaleMN, resp.UI.Locale)

	// nothing required is filled in yet
	code, resp = b.call(http.MethodPost, fenceEditor+"/publish/", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.True(t, resp.View.Errors.Has(content.MissingRequiredField))
	assert.True(t, resp.View.Errors.Has(content.EmptyRequiredCollection))
	_, err := app.Store.GetDocument(ctx, "fence", "main")
	assert.ErrorIs(t, err, ErrNotFound, "a blocked publish writes nothing")

	code, resp = b.call(http.MethodPost, fenceEditor+"/patch/", titlePatch("Хашаа", "Fence"))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.View.Dirty)
	assert.Equal(t, "pending", resp.View.State)

	code, resp = b.call(http.MethodPost, fenceEditor+"/lists/materials/", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.ID)
	code, _ = b.call(http.MethodPost, fenceEditor+"/patch/", content.Patch{
		Lists: map[string][]content.ItemPatch{
			"materials": {{Index: 0, Value: &content.TextPatch{Primary: strp("Мод"), Secondary: strp("Wood")}}},
		},
	})
	require.Equal(t, http.StatusOK, code)

	code, resp = b.call(http.MethodPost, fenceEditor+"/blocks/", map[string]string{"kind": "paragraph", "placement": "details"})
	require.Equal(t, http.StatusOK, code)
	blockID := resp.ID
	require.NotEmpty(t, blockID)
	code, _ = b.call(http.MethodPost, fenceEditor+"/patch/", content.Patch{
		Blocks: []content.BlockPatch{{ID: blockID, Text: &content.TextPatch{Primary: strp("**Бат бөх**"), Secondary: strp("**Sturdy**")}}},
	})
	require.Equal(t, http.StatusOK, code)

	code, resp = b.call(http.MethodPost, fenceEditor+"/publish/", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, content.StatusPublished, resp.View.Document.Status)
	assert.False(t, resp.View.Dirty)
	assert.Equal(t, "idle", resp.View.State)

	stored, err := app.Store.GetPublished(ctx, "fence", "main")
	require.NoError(t, err)
	assert.Equal(t, "Fence", stored.Fields["title"].Value.Secondary)

	page := b.get("/fence/?lang=en")
	require.Equal(t, http.StatusOK, page.StatusCode)
	body := readBody(t, page)
	assert.Contains(t, body, "Fence")
	assert.Contains(t, body, "<strong>Sturdy</strong>")
	assert.Contains(t, body, "Wood")
}

func TestEditorAutosave(t *testing.T) {
	clock := &manualClock{}
	app := newTestApp(t, WithClock(clock))
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	code, _ := b.call(http.MethodPost, fenceEditor+"/patch/", titlePatch("Хашаа", ""))
	require.Equal(t, http.StatusOK, code)
	code, _ = b.call(http.MethodPost, fenceEditor+"/patch/", titlePatch("Хашаа", "Fence"))
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 1, clock.fireAll(), "edits coalesce into one pending save")

	stored, err := app.Store.GetDocument(context.Background(), "fence", "main")
	require.NoError(t, err, "autosave skips validation and writes the draft")
	assert.Equal(t, content.StatusDraft, stored.Status)
	assert.Equal(t, "Fence", stored.Fields["title"].Value.Secondary)

	_, resp := b.call(http.MethodGet, fenceEditor+"/state/", nil)
	assert.False(t, resp.View.Dirty)
	assert.Equal(t, "idle", resp.View.State)
}

func TestEditorUnloadProbeAndReset(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	warn := func() bool {
		resp := b.get("/admin/unload/")
		defer resp.Body.Close()
		var out map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out["warn"]
	}

	b.call(http.MethodGet, fenceEditor+"/state/", nil)
	assert.False(t, warn())

	b.call(http.MethodPost, fenceEditor+"/patch/", titlePatch("Хашаа", "Fence"))
	assert.True(t, warn())

	code, resp := b.call(http.MethodPost, fenceEditor+"/reset/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.View.Dirty)
	assert.Empty(t, resp.View.Document.Fields["title"].Value.Primary)
	assert.False(t, warn())
}

func TestEditorInvalidMutations(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	code, resp := b.call(http.MethodPost, fenceEditor+"/blocks/", map[string]string{"kind": "paragraph", "placement": "sidebar"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, resp.Error)
	assert.False(t, resp.View.Dirty)

	code, _ = b.call(http.MethodPost, fenceEditor+"/toggle/", map[string]string{"path": "fields.nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = b.call(http.MethodPost, fenceEditor+"/lists/nope/", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEditorToggleAndRemoveBlock(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	_, resp := b.call(http.MethodPost, fenceEditor+"/blocks/", map[string]string{"kind": "note", "placement": "footer"})
	id := resp.ID
	require.NotEmpty(t, id)

	code, resp := b.call(http.MethodPost, fenceEditor+"/toggle/", map[string]string{"path": "blocks." + id + ".visible"})
	require.Equal(t, http.StatusOK, code)
	blk, ok := resp.View.Document.Block(id)
	require.True(t, ok)
	assert.False(t, blk.Visible)

	code, resp = b.call(http.MethodDelete, fenceEditor+"/blocks/"+id+"/", nil)
	require.Equal(t, http.StatusOK, code)
	_, ok = resp.View.Document.Block(id)
	assert.False(t, ok)
}

func TestEditorDeleteItemPersists(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	_, err := app.Store.SaveDocument(ctx, fenceDoc(t, "main"))
	require.NoError(t, err)

	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	code, resp := b.call(http.MethodDelete, fenceEditor+"/items/materials/m1/", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.False(t, resp.View.Dirty, "a persisted delete does not dirty the session")
	assert.Len(t, resp.View.Document.Lists["materials"], 1)

	stored, err := app.Store.GetDocument(ctx, "fence", "main")
	require.NoError(t, err)
	require.Len(t, stored.Lists["materials"], 1)
	assert.Equal(t, "m2", stored.Lists["materials"][0].ID)
}

func TestEditorUIState(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	code, resp := b.call(http.MethodPost, fenceEditor+"/ui/", map[string]any{"toggle": true, "modal": "style"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, content.LocaleEN, resp.UI.Locale)
	assert.Equal(t, "style", resp.UI.Modal)

	_, resp = b.call(http.MethodPost, fenceEditor+"/ui/", map[string]any{"locale": "mn-MN", "close_modal": true})
	assert.Equal(t, content.LocaleMN, resp.UI.Locale)
	assert.Empty(t, resp.UI.Modal)

	// other documents keep their own UI state
	_, resp = b.call(http.MethodGet, "/admin/edit/about/main/state/", nil)
	assert.Equal(t, content.LocaleMN, resp.UI.Locale)
}

func TestEditorFormPosts(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	page := b.get(fenceEditor + "/")
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, readBody(t, page), `data-base="/admin/edit/fence/main"`)

	resp := b.postForm(fenceEditor+"/save/", url.Values{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "title is required")

	resp = b.postForm(fenceEditor+"/ui/?toggle=1", url.Values{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fenceEditor+"/", resp.Request.URL.Path)
	assert.Contains(t, readBody(t, resp), `data-locale="en"`)
}

func TestEditorRejectsBadCSRF(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	req, err := http.NewRequest(http.MethodPost, b.server.URL+fenceEditor+"/reset/", nil)
	require.NoError(t, err)
	req.Header.Set("X-CSRF-Token", "bogus")
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminOpenAndLogout(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	resp := b.get("/admin/open/?resource=about&id=Our+Story")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/admin/edit/about/our-story/", resp.Request.URL.Path)
	resp.Body.Close()

	resp = b.get("/admin/open/?resource=nope")
	assert.Equal(t, "/admin/", resp.Request.URL.Path)
	assert.Contains(t, readBody(t, resp), "Unknown resource.")

	assert.Equal(t, 1, app.workspaces.len())
	resp = b.postForm("/admin/logout/", url.Values{})
	resp.Body.Close()
	assert.Equal(t, 0, app.workspaces.len())

	code, _ := b.call(http.MethodGet, fenceEditor+"/state/", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestEditorCloseWorkspace(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	readBody(t, b.login(testPassword))

	b.call(http.MethodPost, fenceEditor+"/patch/", titlePatch("Хашаа", "Fence"))
	assert.Equal(t, 1, app.workspaces.len())

	code, _ := b.call(http.MethodPost, fenceEditor+"/close/", nil)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, 0, app.workspaces.len())
	assert.Zero(t, app.workspaces.guards.Len(), "guards are released on close")
}

func TestWorkspaceSweep(t *testing.T) {
	app := newTestApp(t)
	ws := app.workspaces
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ws.now = func() time.Time { return now }
	ctx := context.Background()

	clean, err := ws.get(ctx, "sid-1", "fence", "main")
	require.NoError(t, err)
	dirty, err := ws.get(ctx, "sid-1", "about", "main")
	require.NoError(t, err)
	require.NoError(t, dirty.ctrl.Session().Apply(titlePatch("Тухай", "About")))

	same, err := ws.get(ctx, "sid-1", "fence", "main")
	require.NoError(t, err)
	assert.Same(t, clean, same)

	now = now.Add(app.Config.EditorIdle + time.Minute)
	assert.Equal(t, 1, ws.sweep())
	assert.Equal(t, 1, ws.len())
	assert.True(t, ws.unsaved("sid-1"))

	ws.closeSession("sid-1")
	assert.Equal(t, 0, ws.len())
	assert.False(t, ws.unsaved("sid-1"))
}
