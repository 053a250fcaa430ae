package sitecms

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
	"github.com/eringen/sitecms/mapper"
)

const maxAPIBody = 10 << 20

type apiError struct {
	Error  string         `json:"error"`
	Errors content.Errors `json:"errors,omitempty"`
}

type apiSaved struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	SavedAt string `json:"saved_at"`
}

// apiSchema resolves :resource and checks :id.
func (a *App) apiSchema(c echo.Context) (*content.Schema, string, error) {
	s, ok := a.schema(c.Param("resource"))
	id := c.Param("id")
	if !ok || !validID(id) {
		return nil, "", c.JSON(http.StatusNotFound, apiError{Error: "not found"})
	}
	return s, id, nil
}

// handleAPIGet returns a document in its resource's payload shape. Without
// a token only published documents are visible.
func (a *App) handleAPIGet(c echo.Context) error {
	s, id, err := a.apiSchema(c)
	if s == nil {
		return err
	}
	ctx := c.Request().Context()
	var doc content.Document
	if apiAuthorized(c) {
		doc, err = a.Store.GetDocument(ctx, s.Name, id)
	} else {
		doc, err = a.Cache.Get(ctx, s.Name, id)
	}
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, apiError{Error: "not found"})
	}
	if err != nil {
		return err
	}
	body, err := mapper.Marshal(s, s.Hydrate(doc))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, body)
}

// handleAPISave replaces the stored content of a document.
func (a *App) handleAPISave(c echo.Context) error {
	s, id, err := a.apiSchema(c)
	if s == nil {
		return err
	}
	mode := editor.SaveMode(c.QueryParam("mode"))
	switch mode {
	case "":
		mode = editor.ModeManual
	case editor.ModeAuto, editor.ModeManual:
	default:
		return c.JSON(http.StatusBadRequest, apiError{Error: "mode must be auto or manual"})
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxAPIBody))
	if err != nil {
		return c.JSON(http.StatusRequestEntityTooLarge, apiError{Error: "body too large"})
	}
	doc, err := mapper.Unmarshal(s, data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiError{Error: err.Error()})
	}
	if doc.ID != "" && doc.ID != id {
		return c.JSON(http.StatusBadRequest, apiError{Error: "id does not match the url"})
	}
	doc.ID = id

	saved, err := NewStoreAdapter(a.Store, s.Name, a.Cache).Save(c.Request().Context(), doc, mode)
	if err != nil {
		return err
	}
	c.Logger().Infof("api: saved %s/%s v%d (%s)", s.Name, id, saved.Version, mode)
	return c.JSON(http.StatusOK, apiSaved{
		ID:      saved.ID,
		Version: saved.Version,
		SavedAt: saved.SavedAt.UTC().Format(time.RFC3339),
	})
}

// handleAPIPublish publishes the stored document. The server runs the same
// validation as the editor so a client cannot skip it.
func (a *App) handleAPIPublish(c echo.Context) error {
	s, id, err := a.apiSchema(c)
	if s == nil {
		return err
	}
	ctx := c.Request().Context()
	doc, err := a.Store.GetDocument(ctx, s.Name, id)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, apiError{Error: "not found"})
	}
	if err != nil {
		return err
	}
	if errs := content.Validate(s, s.Hydrate(doc)); !errs.OK() {
		return c.JSON(http.StatusUnprocessableEntity, apiError{Error: "validation failed", Errors: errs})
	}
	if err := NewStoreAdapter(a.Store, s.Name, a.Cache).Publish(ctx, id); err != nil {
		return err
	}
	c.Logger().Infof("api: published %s/%s", s.Name, id)
	return c.NoContent(http.StatusNoContent)
}

// handleAPIDeleteItem deletes one block or list item.
func (a *App) handleAPIDeleteItem(c echo.Context) error {
	s, id, err := a.apiSchema(c)
	if s == nil {
		return err
	}
	collection := c.Param("collection")
	if collection != editor.CollectionBlocks {
		if _, ok := s.List(collection); !ok {
			return c.JSON(http.StatusNotFound, apiError{Error: "unknown collection"})
		}
	}
	ref := editor.CollectionRef{DocumentID: id, Collection: collection}
	err = NewStoreAdapter(a.Store, s.Name, a.Cache).DeleteItem(c.Request().Context(), ref, c.Param("item"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, apiError{Error: "not found"})
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
