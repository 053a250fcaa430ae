package views

import (
	"time"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

// SiteInfo holds site-wide settings every template receives so nothing is
// hardcoded.
type SiteInfo struct {
	Name        string
	URL         string
	Description string
}

// Alternate is a link to the same page in another language.
type Alternate struct {
	Locale content.Locale
	URL    string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Alternates  []Alternate
}

// Page is one published document rendered for a visitor.
type Page struct {
	Site     SiteInfo
	Meta     PageMeta
	Locale   content.Locale
	Schema   *content.Schema
	Document content.Document
	// Footer is the published footer document, if there is one.
	Footer *content.Document
	// FooterSchema describes Footer.
	FooterSchema *content.Schema
}

// Text resolves v for the page locale.
func (p Page) Text(v content.Text) string {
	return content.Resolve(v, p.Locale)
}

// Link is an entry on the home page.
type Link struct {
	Title string
	URL   string
}

// Home lists the published pages.
type Home struct {
	Site   SiteInfo
	Meta   PageMeta
	Locale content.Locale
	Pages  []Link
}

// DocumentRow is one line of the admin dashboard.
type DocumentRow struct {
	Resource  string
	ID        string
	Status    content.Status
	Version   int64
	UpdatedAt time.Time
}

// Dashboard is the admin landing page.
type Dashboard struct {
	Site      SiteInfo
	Resources []string
	Documents []DocumentRow
	Message   string
	CSRFToken string
}

// Editor is the admin editing screen for one document.
type Editor struct {
	Site      SiteInfo
	Schema    *content.Schema
	View      editor.View
	UI        editor.UIState
	BasePath  string // e.g. /admin/edit/fence/main
	CSRFToken string
}
