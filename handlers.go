package sitecms

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/views"
)

const (
	localeCookie   = "lang"
	footerResource = "footer"
)

// requestLocale picks the page language: the lang query parameter (which
// is remembered in a cookie), then the cookie, then Accept-Language.
func requestLocale(c echo.Context, secure bool) content.Locale {
	if q := c.QueryParam("lang"); q != "" {
		if l, ok := content.ParseLocale(q); ok {
			c.SetCookie(&http.Cookie{
				Name:     localeCookie,
				Value:    string(l),
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			return l
		}
	}
	if ck, err := c.Cookie(localeCookie); err == nil {
		if l, ok := content.ParseLocale(ck.Value); ok {
			return l
		}
	}
	return content.MatchLocale(c.Request().Header.Get("Accept-Language"))
}

func (a *App) handleHome(c echo.Context) error {
	l := requestLocale(c, a.Config.CookieSecure)
	docs, err := a.Cache.List(c.Request().Context())
	if err != nil {
		return err
	}
	var links []views.Link
	for _, doc := range docs {
		if doc.Resource == footerResource {
			continue
		}
		s, ok := a.schema(doc.Resource)
		if !ok {
			continue
		}
		links = append(links, views.Link{
			Title: documentTitle(s, doc, l),
			URL:   LocalizedURL("/", doc.Resource, doc.ID, l),
		})
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Title < links[j].Title })
	return Render(c, a.Views.Home(views.Home{
		Site:   a.siteInfo(),
		Locale: l,
		Pages:  links,
		Meta: views.PageMeta{
			Title:       a.Config.Name,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL),
			OGType:      "website",
		},
	}))
}

// handlePage renders /{resource}/ and /{resource}/{id}/.
func (a *App) handlePage(c echo.Context) error {
	l := requestLocale(c, a.Config.CookieSecure)
	resource, id := c.Param("resource"), c.Param("id")
	if id == "" {
		id = DefaultDocumentID
	}
	s, ok := a.schema(resource)
	if !ok || !validID(id) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(l))
	}
	ctx := c.Request().Context()
	doc, err := a.Cache.Get(ctx, resource, id)
	if errors.Is(err, ErrNotFound) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(l))
	}
	if err != nil {
		return err
	}
	doc = s.Hydrate(doc)

	page := views.Page{
		Site:     a.siteInfo(),
		Locale:   l,
		Schema:   s,
		Document: doc,
		Meta: views.PageMeta{
			Title:       documentTitle(s, doc, l),
			Description: documentDescription(doc, l),
			URL:         DocumentURL(a.Config.URL, resource, id),
			OGType:      "article",
			Alternates:  alternates(a.Config.URL, resource, id),
		},
	}
	if resource != footerResource {
		if fs, ok := a.schema(footerResource); ok {
			if footer, err := a.Cache.Get(ctx, footerResource, DefaultDocumentID); err == nil {
				footer = fs.Hydrate(footer)
				page.Footer = &footer
				page.FooterSchema = fs
			}
		}
	}
	return Render(c, a.Views.Page(page))
}

func (a *App) handleSitemap(c echo.Context) error {
	docs, err := a.Cache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, docs)
}

func (a *App) handleFeed(c echo.Context) error {
	docs, err := a.Cache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, requestLocale(c, a.Config.CookieSecure), docs)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound && !wantsJSON(c) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(requestLocale(c, a.Config.CookieSecure)))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		if wantsJSON(c) {
			_ = c.JSON(code, map[string]string{"error": http.StatusText(code)})
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
