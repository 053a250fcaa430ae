package sitecms

import (
	"net/url"
	"path"
	"strings"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/views"
)

// DefaultDocumentID is the document served at /{resource}/.
const DefaultDocumentID = "main"

// Slugify converts a title to a URL-safe slug. Document ids typed into the
// admin are normalized with it.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// validID reports whether id is already in slug form.
func validID(id string) bool {
	return id != "" && Slugify(id) == id
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
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

// DocumentURL is the public URL of a document. The default document of a
// resource lives at the resource root.
func DocumentURL(base, resource, id string) string {
	if id == DefaultDocumentID {
		return BuildURL(base, resource)
	}
	return BuildURL(base, resource, id)
}

// LocalizedURL is DocumentURL with the language selected.
func LocalizedURL(base, resource, id string, l content.Locale) string {
	return DocumentURL(base, resource, id) + "?lang=" + url.QueryEscape(string(l))
}

// alternates lists the document in every locale.
func alternates(base, resource, id string) []views.Alternate {
	out := make([]views.Alternate, 0, len(content.Locales()))
	for _, l := range content.Locales() {
		out = append(out, views.Alternate{Locale: l, URL: LocalizedURL(base, resource, id, l)})
	}
	return out
}

// documentTitle picks the heading to show for doc: its title field, then its
// first title block, then the resource name.
func documentTitle(s *content.Schema, doc content.Document, l content.Locale) string {
	if f, ok := doc.Fields["title"]; ok {
		if t := content.Resolve(f.Value, l); t != "" {
			return t
		}
	}
	if s != nil {
		for _, p := range s.Placements {
			for _, b := range doc.SortedBlocks(p.Name) {
				if b.Kind == content.KindTitle {
					if t := content.Resolve(b.Text, l); t != "" {
						return t
					}
				}
			}
		}
	}
	return doc.Resource
}

// documentDescription is the first non-empty field among the usual summary
// fields.
func documentDescription(doc content.Document, l content.Locale) string {
	for _, name := range []string{"description", "intro", "summary", "subtitle"} {
		if f, ok := doc.Fields[name]; ok {
			if t := content.Resolve(f.Value, l); t != "" {
				return t
			}
		}
	}
	return ""
}
