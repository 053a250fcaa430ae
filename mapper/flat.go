package mapper

import "github.com/eringen/sitecms/content"

// Flat lays every localized value out as a pair of suffixed keys:
//
//	{"title_mn": "Хашаа", "title_en": "Fence", "title_style": {...}}
//
// Blocks carry text_mn/text_en and list items label_mn/label_en plus one
// pair per declared extra.
type Flat struct{}

func (Flat) Encode(s *content.Schema, doc content.Document) map[string]any {
	return encodeWith(flatText{}, s, doc)
}

func (Flat) Decode(s *content.Schema, payload map[string]any) (content.Document, error) {
	return decodeWith(flatText{}, s, payload)
}

type flatText struct{}

func (flatText) putText(out map[string]any, key string, v content.Text) {
	out[key+"_"+string(content.LocaleMN)] = v.Primary
	out[key+"_"+string(content.LocaleEN)] = v.Secondary
}

func (flatText) getText(r *reader, m map[string]any, key string) content.Text {
	return content.Text{
		Primary:   r.str(m, key+"_"+string(content.LocaleMN)),
		Secondary: r.str(m, key+"_"+string(content.LocaleEN)),
	}
}
