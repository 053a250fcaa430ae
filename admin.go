package sitecms

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
	"github.com/eringen/sitecms/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if sid := AdminSessionID(c); sid != "" {
		a.workspaces.closeSession(sid)
	}
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleAdminOpen turns the dashboard's open form into an editor URL.
func (a *App) handleAdminOpen(c echo.Context) error {
	resource := c.QueryParam("resource")
	if _, ok := a.schema(resource); !ok {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape("Unknown resource."))
	}
	id := Slugify(c.QueryParam("id"))
	if id == "" {
		id = DefaultDocumentID
	}
	return c.Redirect(http.StatusSeeOther, editorPath(resource, id)+"/")
}

// handleAdminUnload answers the editor script's beforeunload probe.
func (a *App) handleAdminUnload(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"warn": a.workspaces.unsaved(AdminSessionID(c))})
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	docs, err := a.Store.ListDocuments(c.Request().Context(), "")
	if err != nil {
		return err
	}
	rows := make([]views.DocumentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, views.DocumentRow{
			Resource:  d.Resource,
			ID:        d.ID,
			Status:    d.Status,
			Version:   d.Version,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return Render(c, a.Views.AdminDashboard(views.Dashboard{
		Site:      a.siteInfo(),
		Resources: a.Registry.Names(),
		Documents: rows,
		Message:   msg,
		CSRFToken: CsrfToken(c),
	}))
}

func editorPath(resource, id string) string {
	return "/admin/edit/" + url.PathEscape(resource) + "/" + url.PathEscape(id)
}

const workspaceKeyCtx = "workspace"

// withWorkspace resolves :resource/:id into the caller's open workspace.
func (a *App) withWorkspace(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		resource, id := c.Param("resource"), c.Param("id")
		if _, ok := a.schema(resource); !ok || !validID(id) {
			return echo.ErrNotFound
		}
		w, err := a.workspaces.get(c.Request().Context(), AdminSessionID(c), resource, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return echo.ErrNotFound
			}
			return err
		}
		c.Set(workspaceKeyCtx, w)
		return next(c)
	}
}

func currentWorkspace(c echo.Context) *workspace {
	w, _ := c.Get(workspaceKeyCtx).(*workspace)
	return w
}

// editorResponse is what the JSON editor endpoints return.
type editorResponse struct {
	View  editor.View    `json:"view"`
	UI    editor.UIState `json:"ui"`
	ID    string         `json:"id,omitempty"`
	Error string         `json:"error,omitempty"`
}

// respond answers an editor action: JSON for the script, a redirect back to
// the editor for plain forms.
func (a *App) respond(c echo.Context, w *workspace, code int, resp editorResponse) error {
	if !wantsJSON(c) {
		if code >= 400 {
			return a.renderEditor(c, w, code)
		}
		return c.Redirect(http.StatusSeeOther, editorPath(w.resource, w.id)+"/")
	}
	resp.View = w.ctrl.View()
	resp.UI = w.UI()
	return c.JSON(code, resp)
}

func (a *App) renderEditor(c echo.Context, w *workspace, code int) error {
	schema, _ := a.schema(w.resource)
	return RenderStatus(c, code, a.Views.AdminEditor(views.Editor{
		Site:      a.siteInfo(),
		Schema:    schema,
		View:      w.ctrl.View(),
		UI:        w.UI(),
		BasePath:  editorPath(w.resource, w.id),
		CSRFToken: CsrfToken(c),
	}))
}

// mutation maps a session error to a response. Invariant violations are
// the caller's fault; anything else is ours.
func (a *App) mutation(c echo.Context, w *workspace, id string, err error) error {
	switch {
	case err == nil:
		return a.respond(c, w, http.StatusOK, editorResponse{ID: id})
	case content.IsInvariantViolation(err):
		return a.respond(c, w, http.StatusBadRequest, editorResponse{Error: err.Error()})
	}
	return err
}

func (a *App) handleEditor(c echo.Context) error {
	return a.renderEditor(c, currentWorkspace(c), http.StatusOK)
}

func (a *App) handleEditorState(c echo.Context) error {
	w := currentWorkspace(c)
	return c.JSON(http.StatusOK, editorResponse{View: w.ctrl.View(), UI: w.UI()})
}

func (a *App) handleEditorPatch(c echo.Context) error {
	w := currentWorkspace(c)
	var p content.Patch
	if err := c.Bind(&p); err != nil {
		return a.respond(c, w, http.StatusBadRequest, editorResponse{Error: "invalid patch"})
	}
	return a.mutation(c, w, "", w.ctrl.Session().Apply(p))
}

type addBlockRequest struct {
	Kind      content.BlockKind `json:"kind" form:"kind"`
	Placement string            `json:"placement" form:"placement"`
}

func (a *App) handleEditorAddBlock(c echo.Context) error {
	w := currentWorkspace(c)
	var req addBlockRequest
	if err := c.Bind(&req); err != nil {
		return a.respond(c, w, http.StatusBadRequest, editorResponse{Error: "invalid block"})
	}
	id, err := w.ctrl.Session().AddBlock(req.Kind, req.Placement)
	return a.mutation(c, w, id, err)
}

func (a *App) handleEditorRemoveBlock(c echo.Context) error {
	w := currentWorkspace(c)
	w.ctrl.Session().RemoveBlock(c.Param("block"))
	return a.respond(c, w, http.StatusOK, editorResponse{})
}

func (a *App) handleEditorAddItem(c echo.Context) error {
	w := currentWorkspace(c)
	id, err := w.ctrl.Session().AddListItem(c.Param("list"))
	return a.mutation(c, w, id, err)
}

func (a *App) handleEditorRemoveItem(c echo.Context) error {
	w := currentWorkspace(c)
	w.ctrl.Session().RemoveListItem(c.Param("list"), c.Param("item"))
	return a.respond(c, w, http.StatusOK, editorResponse{})
}

// handleEditorDeleteItem deletes a block or list item from the store right
// away, outside the save cycle.
func (a *App) handleEditorDeleteItem(c echo.Context) error {
	w := currentWorkspace(c)
	ref := editor.CollectionRef{DocumentID: w.id, Collection: c.Param("collection")}
	if err := w.ctrl.DeleteItem(c.Request().Context(), ref, c.Param("item")); err != nil {
		return a.respond(c, w, http.StatusBadGateway, editorResponse{Error: saveMessage(err)})
	}
	return a.respond(c, w, http.StatusOK, editorResponse{})
}

func (a *App) handleEditorToggle(c echo.Context) error {
	w := currentWorkspace(c)
	var req struct {
		Path string `json:"path" form:"path"`
	}
	if err := c.Bind(&req); err != nil {
		return a.respond(c, w, http.StatusBadRequest, editorResponse{Error: "invalid path"})
	}
	return a.mutation(c, w, "", w.ctrl.Session().ToggleVisibility(req.Path))
}

func (a *App) handleEditorReset(c echo.Context) error {
	w := currentWorkspace(c)
	w.ctrl.Session().Reset()
	return a.respond(c, w, http.StatusOK, editorResponse{})
}

func (a *App) handleEditorSave(c echo.Context) error {
	w := currentWorkspace(c)
	errs, err := w.ctrl.Save(c.Request().Context())
	return a.gateResult(c, w, errs, err)
}

func (a *App) handleEditorPublish(c echo.Context) error {
	w := currentWorkspace(c)
	errs, err := w.ctrl.Publish(c.Request().Context())
	return a.gateResult(c, w, errs, err)
}

// gateResult answers a manual save or publish: 422 when validation
// blocked it, 502 when the store failed.
func (a *App) gateResult(c echo.Context, w *workspace, errs content.Errors, err error) error {
	switch {
	case !errs.OK():
		return a.respond(c, w, http.StatusUnprocessableEntity, editorResponse{Error: "fix the highlighted fields"})
	case err != nil:
		return a.respond(c, w, http.StatusBadGateway, editorResponse{Error: saveMessage(err)})
	}
	return a.respond(c, w, http.StatusOK, editorResponse{})
}

func saveMessage(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "The document no longer exists."
	}
	return "Saving failed. Your changes are kept; try again."
}

type uiRequest struct {
	Toggle     bool   `json:"toggle" form:"toggle"`
	Locale     string `json:"locale" form:"locale"`
	Modal      string `json:"modal" form:"modal"`
	CloseModal bool   `json:"close_modal" form:"close_modal"`
}

func (a *App) handleEditorUI(c echo.Context) error {
	w := currentWorkspace(c)
	var req uiRequest
	if err := c.Bind(&req); err != nil {
		return a.respond(c, w, http.StatusBadRequest, editorResponse{Error: "invalid ui state"})
	}
	// the binder ignores the query string on POST
	if c.QueryParam("toggle") != "" {
		req.Toggle = true
	}
	w.updateUI(func(ui *editor.UIState) {
		if req.Toggle {
			ui.ToggleLocale()
		}
		if l, ok := content.ParseLocale(req.Locale); ok {
			ui.SetLocale(l)
		}
		if req.CloseModal {
			ui.CloseModal()
		}
		if m := strings.TrimSpace(req.Modal); m != "" {
			ui.OpenModal(m)
		}
	})
	return a.respond(c, w, http.StatusOK, editorResponse{})
}

func (a *App) handleEditorClose(c echo.Context) error {
	w := currentWorkspace(c)
	a.workspaces.close(w.sid, w.resource, w.id)
	if wantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}
