package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

var labels = map[content.Locale]map[string]string{
	content.LocaleMN: {
		"notfound":  "Хуудас олдсонгүй",
		"home":      "Нүүр",
		"error":     "Алдаа гарлаа. Дахин оролдоно уу.",
		"published": "Нийтлэгдсэн хуудсууд",
	},
	content.LocaleEN: {
		"notfound":  "Page not found",
		"home":      "Home",
		"error":     "Something went wrong. Please try again.",
		"published": "Pages",
	},
}

func label(l content.Locale, key string) string {
	if m, ok := labels[l]; ok {
		return m[key]
	}
	return labels[content.LocaleMN][key]
}

// pageTitle is the <title> text: the page title, then the site name.
func pageTitle(site SiteInfo, meta PageMeta) string {
	if meta.Title == "" || meta.Title == site.Name {
		return site.Name
	}
	return meta.Title + " | " + site.Name
}

// fieldText resolves a field for l. Hidden and unknown fields are empty.
func fieldText(doc content.Document, name string, l content.Locale) string {
	f, ok := doc.Fields[name]
	if !ok || !f.Visible() {
		return ""
	}
	return content.Resolve(f.Value, l)
}

func blockClass(b content.Block) string {
	return "block block-" + string(b.Kind)
}

func adminBlockClass(b content.Block) string {
	if !b.Visible {
		return "block hidden"
	}
	return "block"
}

func fieldHeading(spec content.FieldSpec) string {
	if spec.Required {
		return spec.Name + " *"
	}
	return spec.Name
}

func editPath(row DocumentRow) string {
	return "/admin/edit/" + PathEscape(row.Resource) + "/" + PathEscape(row.ID) + "/"
}

func updatedAt(row DocumentRow) string {
	if row.UpdatedAt.IsZero() {
		return ""
	}
	return row.UpdatedAt.Format("2006-01-02 15:04")
}

func editorStatus(v editor.View) string {
	status := string(v.Document.Status)
	if v.Dirty {
		status += ", unsaved changes"
	}
	return status + " (" + v.State + ")"
}

func localeButton(l content.Locale) string {
	return "Language: " + strings.ToUpper(string(l))
}

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PathEscape escapes one URL path segment.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// StyleAttr renders a style token as an inline style with both breakpoints:
// the mobile size inline and the desktop size as a custom property the site
// stylesheet picks up in its media query.
func StyleAttr(st *content.StyleToken) string {
	if st == nil {
		return ""
	}
	return st.CSS(false) + "--desktop-font-size:" + trimFloat(st.FontSize.Desktop) + "px;"
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// VisibleBlocks returns the visible blocks of placement in display order.
func VisibleBlocks(doc content.Document, placement string) []content.Block {
	var out []content.Block
	for _, b := range doc.SortedBlocks(placement) {
		if b.Visible && b.Style.Visible {
			out = append(out, b)
		}
	}
	return out
}

// LiveItems returns the list items not marked for deletion.
func LiveItems(doc content.Document, list string) []content.ListItem {
	var out []content.ListItem
	for _, it := range doc.Lists[list] {
		if !it.Deleting {
			out = append(out, it)
		}
	}
	return out
}

// LangClass returns CSS classes for a language switcher link.
func LangClass(active bool) string {
	base := "inline-flex items-center rounded px-2 py-1 text-xs font-semibold uppercase tracking-wide"
	if active {
		base += " bg-ink text-white"
	}
	return base
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using site values.
func WebsiteJsonLD(site SiteInfo) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      buildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WebPageJsonLD produces a Schema.org WebPage JSON-LD block for a page.
func WebPageJsonLD(p Page) string {
	data := map[string]interface{}{
		"@context":   "https://schema.org",
		"@type":      "WebPage",
		"name":       p.Meta.Title,
		"url":        p.Meta.URL,
		"inLanguage": string(p.Locale),
		"isPartOf": map[string]string{
			"@type": "WebSite",
			"name":  p.Site.Name,
			"url":   buildURL(p.Site.URL),
		},
	}
	if p.Meta.Description != "" {
		data["description"] = p.Meta.Description
	}
	if !p.Document.UpdatedAt.IsZero() {
		data["dateModified"] = p.Document.UpdatedAt.UTC().Format("2006-01-02")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
