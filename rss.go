package sitecms

import (
	"encoding/xml"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/content"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

const feedSize = 20

// renderRSS lists the most recently updated published pages in locale l.
func (a *App) renderRSS(c echo.Context, l content.Locale, docs []content.Document) error {
	base := a.Config.URL
	recent := make([]content.Document, 0, len(docs))
	for _, d := range docs {
		if d.Resource != footerResource {
			recent = append(recent, d)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].UpdatedAt.After(recent[j].UpdatedAt) })
	if len(recent) > feedSize {
		recent = recent[:feedSize]
	}

	items := make([]rssItem, 0, len(recent))
	for _, d := range recent {
		s, ok := a.schema(d.Resource)
		if !ok {
			continue
		}
		pubDate := ""
		if !d.UpdatedAt.IsZero() {
			pubDate = d.UpdatedAt.UTC().Format(time.RFC1123Z)
		}
		link := LocalizedURL(base, d.Resource, d.ID, l)
		items = append(items, rssItem{
			Title:       documentTitle(s, d, l),
			Link:        link,
			Description: documentDescription(d, l),
			PubDate:     pubDate,
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: a.Config.Description,
			Language:    string(l),
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
