package mapper

import "github.com/eringen/sitecms/content"

// Default language ids used by backends that store translations as rows.
const (
	DefaultPrimaryID   = 1
	DefaultSecondaryID = 2
)

// Translations lays every localized value out as a translation list keyed by
// numeric language id:
//
//	{"title": {"translations": [{"language_id": 1, "label": "Хашаа"},
//	                            {"language_id": 2, "label": "Fence"}]}}
//
// The zero value uses DefaultPrimaryID and DefaultSecondaryID. Translations
// for unknown language ids are ignored.
type Translations struct {
	PrimaryID   int
	SecondaryID int
}

func (t Translations) Encode(s *content.Schema, doc content.Document) map[string]any {
	return encodeWith(t.codec(), s, doc)
}

func (t Translations) Decode(s *content.Schema, payload map[string]any) (content.Document, error) {
	return decodeWith(t.codec(), s, payload)
}

func (t Translations) codec() translationText {
	c := translationText{primary: t.PrimaryID, secondary: t.SecondaryID}
	if c.primary == 0 {
		c.primary = DefaultPrimaryID
	}
	if c.secondary == 0 {
		c.secondary = DefaultSecondaryID
	}
	return c
}

type translationText struct {
	primary, secondary int
}

func (c translationText) putText(out map[string]any, key string, v content.Text) {
	out[key] = map[string]any{
		"translations": []any{
			map[string]any{"language_id": c.primary, "label": v.Primary},
			map[string]any{"language_id": c.secondary, "label": v.Secondary},
		},
	}
}

func (c translationText) getText(r *reader, m map[string]any, key string) content.Text {
	var v content.Text
	for _, tr := range r.objects(r.obj(m, key), "translations") {
		switch int(r.num(tr, "language_id")) {
		case c.primary:
			v.Primary = r.str(tr, "label")
		case c.secondary:
			v.Secondary = r.str(tr, "label")
		}
	}
	return v
}
