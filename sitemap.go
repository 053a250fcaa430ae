package sitecms

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	XHTML   string       `xml:"xmlns:xhtml,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string           `xml:"loc"`
	LastMod    string           `xml:"lastmod,omitempty"`
	Alternates []sitemapAltLink `xml:"xhtml:link"`
}

type sitemapAltLink struct {
	Rel      string `xml:"rel,attr"`
	HrefLang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// sitemapURLs lists the home page and every published document once per
// locale, each entry pointing at its translation.
func (a *App) sitemapURLs(docs []content.Document) []sitemapURL {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
	}
	for _, doc := range docs {
		if _, ok := a.schema(doc.Resource); !ok || doc.Resource == footerResource {
			continue
		}
		lastMod := ""
		if !doc.UpdatedAt.IsZero() {
			lastMod = doc.UpdatedAt.UTC().Format("2006-01-02")
		}
		var alts []sitemapAltLink
		for _, alt := range alternates(base, doc.Resource, doc.ID) {
			alts = append(alts, sitemapAltLink{Rel: "alternate", HrefLang: string(alt.Locale), Href: alt.URL})
		}
		for _, alt := range alts {
			urls = append(urls, sitemapURL{
				Loc:        alt.Href,
				LastMod:    lastMod,
				Alternates: alts,
			})
		}
	}
	return urls
}

func (a *App) renderSitemap(c echo.Context, docs []content.Document) error {
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		XHTML: "http://www.w3.org/1999/xhtml",
		URLs:  a.sitemapURLs(docs),
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
