package sitecms

import (
	"testing"

	"github.com/eringen/sitecms/content"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Our Story  ", "our-story"},
		{"fence", "fence"},
		{"Q&A -- 2024!", "q-a-2024"},
		{"Хашаа", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"main", "our-story", "v2"} {
		if !validID(id) {
			t.Errorf("validID(%q) = false, want true", id)
		}
	}
	for _, id := range []string{"", "Main", "our story", "a/b", "-x"} {
		if validID(id) {
			t.Errorf("validID(%q) = true, want false", id)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.mn", nil, "https://example.mn"},
		{"https://example.mn", []string{"fence"}, "https://example.mn/fence/"},
		{"https://example.mn/site/", []string{"fence", "garden"}, "https://example.mn/site/fence/garden/"},
		{"/", []string{"about"}, "/about/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestDocumentURL(t *testing.T) {
	if got := DocumentURL("https://example.mn", "fence", DefaultDocumentID); got != "https://example.mn/fence/" {
		t.Errorf("default document URL = %q", got)
	}
	if got := DocumentURL("https://example.mn", "fence", "garden"); got != "https://example.mn/fence/garden/" {
		t.Errorf("named document URL = %q", got)
	}
	if got := LocalizedURL("https://example.mn", "fence", "main", content.LocaleEN); got != "https://example.mn/fence/?lang=en" {
		t.Errorf("LocalizedURL = %q", got)
	}
}

func TestAlternates(t *testing.T) {
	alts := alternates("https://example.mn", "about", "main")
	if len(alts) != 2 {
		t.Fatalf("alternates count = %d, want 2", len(alts))
	}
	if alts[0].Locale != content.LocaleMN || alts[1].Locale != content.LocaleEN {
		t.Errorf("alternates order = %v, %v", alts[0].Locale, alts[1].Locale)
	}
}

func TestDocumentTitle(t *testing.T) {
	s := testSchema(t, "fence")
	doc := fenceDoc(t, "main")
	if got := documentTitle(s, doc, content.LocaleEN); got != "Fence" {
		t.Errorf("documentTitle(en) = %q, want Fence", got)
	}
	doc.Fields["title"] = withText(doc.Fields["title"], "Хашаа", "")
	if got := documentTitle(s, doc, content.LocaleEN); got != "Хашаа" {
		t.Errorf("documentTitle falls back to the other locale, got %q", got)
	}
	if got := documentTitle(s, s.NewDocument("x"), content.LocaleEN); got != "fence" {
		t.Errorf("documentTitle of an empty document = %q, want the resource name", got)
	}
}
