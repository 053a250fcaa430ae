// Package mapper converts content documents to and from the wire shapes the
// REST backends speak. Every backend resource declares its mapper in the
// schema registry; the editor itself only ever sees content.Document.
package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eringen/sitecms/content"
)

// ErrMalformed is returned when a payload does not have the expected shape.
var ErrMalformed = errors.New("malformed payload")

// Mapper encodes a document into a JSON-ready payload and back.
type Mapper interface {
	Encode(s *content.Schema, doc content.Document) map[string]any
	Decode(s *content.Schema, payload map[string]any) (content.Document, error)
}

// For returns the mapper named by a schema.
func For(name string) (Mapper, error) {
	switch name {
	case "", content.MapperFlat:
		return Flat{}, nil
	case content.MapperTranslations:
		return Translations{}, nil
	}
	return nil, fmt.Errorf("unknown mapper %q", name)
}

// ForSchema returns the mapper declared by s.
func ForSchema(s *content.Schema) (Mapper, error) {
	return For(s.Mapper)
}

// Marshal encodes doc with the schema's mapper into JSON.
func Marshal(s *content.Schema, doc content.Document) ([]byte, error) {
	m, err := ForSchema(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m.Encode(s, doc))
}

// Unmarshal decodes a JSON payload with the schema's mapper.
func Unmarshal(s *content.Schema, data []byte) (content.Document, error) {
	m, err := ForSchema(s)
	if err != nil {
		return content.Document{}, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return content.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m.Decode(s, payload)
}

// encodeHeader writes the keys every mapper shares.
func encodeHeader(doc content.Document) map[string]any {
	out := map[string]any{
		"id":     doc.ID,
		"status": string(doc.Status),
	}
	if !doc.UpdatedAt.IsZero() {
		out["updated_at"] = doc.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func encodeStyle(st content.StyleToken) map[string]any {
	var out map[string]any
	b, _ := json.Marshal(st)
	_ = json.Unmarshal(b, &out)
	return out
}

// normalize turns a payload built in memory into the shape json.Unmarshal
// would have produced, so decoders only handle one set of types.
func normalize(payload map[string]any) (map[string]any, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// reader pulls typed values out of a decoded payload and remembers the first
// shape error.
type reader struct {
	err error
}

func (r *reader) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s must be %s", ErrMalformed, key, want)
	}
}

func (r *reader) str(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "a string")
	}
	return s
}

func (r *reader) num(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		r.fail(key, "a number")
	}
	return f
}

func (r *reader) boolean(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, "a boolean")
		return def
	}
	return b
}

func (r *reader) obj(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	o, ok := v.(map[string]any)
	if !ok {
		r.fail(key, "an object")
	}
	return o
}

func (r *reader) objects(m map[string]any, key string) []map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		r.fail(key, "an array")
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		o, ok := e.(map[string]any)
		if !ok {
			r.fail(key, "an array of objects")
			return nil
		}
		out = append(out, o)
	}
	return out
}

func (r *reader) style(m map[string]any, key string) *content.StyleToken {
	o := r.obj(m, key)
	if o == nil {
		return nil
	}
	b, _ := json.Marshal(o)
	st := content.DefaultStyle()
	if err := json.Unmarshal(b, &st); err != nil {
		r.fail(key, "a style object")
		return nil
	}
	return &st
}

func (r *reader) header(s *content.Schema, m map[string]any) content.Document {
	doc := content.Document{
		ID:       r.str(m, "id"),
		Resource: s.Name,
		Status:   content.Status(r.str(m, "status")),
		Fields:   make(map[string]content.Field),
		Lists:    make(map[string][]content.ListItem),
	}
	if ts := r.str(m, "updated_at"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			r.fail("updated_at", "an RFC 3339 timestamp")
		}
		doc.UpdatedAt = t
	}
	switch doc.Status {
	case "", content.StatusDraft, content.StatusPublished:
	default:
		r.fail("status", "draft or published")
	}
	return doc
}

// textCodec is the part that differs between mappers: how one localized
// value is laid out under a key.
type textCodec interface {
	putText(out map[string]any, key string, v content.Text)
	getText(r *reader, m map[string]any, key string) content.Text
}

func encodeWith(tc textCodec, s *content.Schema, doc content.Document) map[string]any {
	out := encodeHeader(doc)
	for _, spec := range s.Fields {
		f := doc.Fields[spec.Name]
		tc.putText(out, spec.Name, f.Value)
		if f.Style != nil {
			out[spec.Name+"_style"] = encodeStyle(*f.Style)
		}
	}

	blocks := make([]any, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		e := map[string]any{
			"id":        b.ID,
			"kind":      string(b.Kind),
			"placement": b.Placement,
			"order":     b.Order,
			"visible":   b.Visible,
			"style":     encodeStyle(b.Style),
		}
		tc.putText(e, "text", b.Text)
		blocks = append(blocks, e)
	}
	out["blocks"] = blocks

	for _, spec := range s.Lists {
		items := make([]any, 0, len(doc.Lists[spec.Name]))
		for _, it := range doc.Lists[spec.Name] {
			e := map[string]any{"id": it.ID}
			if spec.Localized {
				tc.putText(e, "label", it.Value)
			} else {
				e["label"] = it.Value.Primary
			}
			for _, extra := range spec.Extras {
				tc.putText(e, extra, it.Extra[extra])
			}
			if it.Deleting {
				e["deleting"] = true
			}
			items = append(items, e)
		}
		out[spec.Name] = items
	}
	return out
}

func decodeWith(tc textCodec, s *content.Schema, payload map[string]any) (content.Document, error) {
	m, err := normalize(payload)
	if err != nil {
		return content.Document{}, err
	}
	r := &reader{}
	doc := r.header(s, m)

	for _, spec := range s.Fields {
		f := content.Field{Value: tc.getText(r, m, spec.Name)}
		if spec.Styled {
			f.Style = r.style(m, spec.Name+"_style")
		}
		doc.Fields[spec.Name] = f
	}

	for _, e := range r.objects(m, "blocks") {
		b := content.Block{
			ID:        r.str(e, "id"),
			Kind:      content.BlockKind(r.str(e, "kind")),
			Text:      tc.getText(r, e, "text"),
			Placement: r.str(e, "placement"),
			Order:     int(r.num(e, "order")),
			Visible:   r.boolean(e, "visible", true),
			Style:     content.DefaultStyle(),
		}
		if st := r.style(e, "style"); st != nil {
			b.Style = *st
		}
		doc.Blocks = append(doc.Blocks, b)
	}

	for _, spec := range s.Lists {
		for _, e := range r.objects(m, spec.Name) {
			it := content.ListItem{
				ID:       r.str(e, "id"),
				Deleting: r.boolean(e, "deleting", false),
			}
			if spec.Localized {
				it.Value = tc.getText(r, e, "label")
			} else {
				it.Value = content.Text{Primary: r.str(e, "label")}
			}
			for _, extra := range spec.Extras {
				if it.Extra == nil {
					it.Extra = make(map[string]content.Text, len(spec.Extras))
				}
				it.Extra[extra] = tc.getText(r, e, extra)
			}
			doc.Lists[spec.Name] = append(doc.Lists[spec.Name], it)
		}
	}

	if r.err != nil {
		return content.Document{}, r.err
	}
	return s.Hydrate(doc), nil
}
