package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/sitecms/content"
)

func testSchema(mapperName string) *content.Schema {
	return &content.Schema{
		Name:   "fence",
		Mapper: mapperName,
		Fields: []content.FieldSpec{
			{Name: "title", Required: true, Styled: true},
			{Name: "accent_color"},
		},
		Placements: []content.PlacementSpec{{Name: "hero"}, {Name: "details"}},
		Lists: []content.ListSpec{
			{Name: "materials", Localized: true, RequiredNonEmpty: true},
			{Name: "sizes", Localized: true, Extras: []string{"price"}},
			{Name: "tags"},
		},
	}
}

func sampleDoc(s *content.Schema) content.Document {
	doc := s.NewDocument("fence-1")
	title := doc.Fields["title"]
	title.Value = content.NewText("Хашаа", "Fence")
	title.Style.Color = "#ff0000"
	title.Style.FontSize = content.FontSize{Mobile: 20, Desktop: 32}
	doc.Fields["title"] = title
	doc.Fields["accent_color"] = content.Field{Value: content.NewText("#00ff00", "")}
	align := content.Align("center")
	doc.Blocks = []content.Block{
		{ID: "b1", Kind: content.KindParagraph, Text: content.NewText("Бат бөх", "Sturdy"), Style: content.DefaultStyle(), Placement: "details", Order: 2, Visible: true},
		{ID: "b2", Kind: content.KindNote, Text: content.NewText("Тэмдэглэл", ""), Placement: "details", Order: -1, Visible: false,
			Style: content.StyleToken{Color: "#333333", FontSize: content.FontSize{Mobile: 12, Desktop: 14}, FontWeight: content.DefaultStyle().FontWeight, Align: &align, Visible: true}},
	}
	doc.Lists["materials"] = []content.ListItem{
		{ID: "m1", Value: content.NewText("Төмөр", "Steel")},
		{ID: "m2", Value: content.NewText("Мод", "Wood"), Deleting: true},
	}
	doc.Lists["sizes"] = []content.ListItem{
		{ID: "s1", Value: content.NewText("Жижиг", "Small"), Extra: map[string]content.Text{"price": content.NewText("10₮", "$3")}},
	}
	doc.Lists["tags"] = []content.ListItem{{ID: "t1", Value: content.Text{Primary: "outdoor"}}}
	doc.UpdatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return doc
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{content.MapperFlat, content.MapperTranslations} {
		t.Run(name, func(t *testing.T) {
			s := testSchema(name)
			doc := sampleDoc(s)

			data, err := Marshal(s, doc)
			require.NoError(t, err)
			got, err := Unmarshal(s, data)
			require.NoError(t, err)

			assert.True(t, doc.Equal(got), "round trip changed the document")
			assert.True(t, doc.UpdatedAt.Equal(got.UpdatedAt))

			// in-memory payloads decode the same as JSON ones
			m, _ := For(name)
			direct, err := m.Decode(s, m.Encode(s, doc))
			require.NoError(t, err)
			assert.True(t, doc.Equal(direct))
		})
	}
}

func TestFlatShape(t *testing.T) {
	s := testSchema(content.MapperFlat)
	payload := Flat{}.Encode(s, sampleDoc(s))

	assert.Equal(t, "Хашаа", payload["title_mn"])
	assert.Equal(t, "Fence", payload["title_en"])
	assert.Contains(t, payload, "title_style")
	assert.NotContains(t, payload, "accent_color_style")
	assert.Equal(t, "draft", payload["status"])
	assert.Equal(t, "2024-05-01T12:00:00Z", payload["updated_at"])

	blocks := payload["blocks"].([]any)
	require.Len(t, blocks, 2)
	b := blocks[0].(map[string]any)
	assert.Equal(t, "Sturdy", b["text_en"])

	sizes := payload["sizes"].([]any)
	item := sizes[0].(map[string]any)
	assert.Equal(t, "Small", item["label_en"])
	assert.Equal(t, "10₮", item["price_mn"])

	tags := payload["tags"].([]any)
	assert.Equal(t, "outdoor", tags[0].(map[string]any)["label"])
}

func TestTranslationsShape(t *testing.T) {
	s := testSchema(content.MapperTranslations)
	data, err := Marshal(s, sampleDoc(s))
	require.NoError(t, err)

	var raw struct {
		Title struct {
			Translations []struct {
				LanguageID int    `json:"language_id"`
				Label      string `json:"label"`
			} `json:"translations"`
		} `json:"title"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Title.Translations, 2)
	assert.Equal(t, 1, raw.Title.Translations[0].LanguageID)
	assert.Equal(t, "Хашаа", raw.Title.Translations[0].Label)
	assert.Equal(t, 2, raw.Title.Translations[1].LanguageID)
	assert.Equal(t, "Fence", raw.Title.Translations[1].Label)
}

func TestTranslationsCustomIDs(t *testing.T) {
	s := testSchema(content.MapperTranslations)
	m := Translations{PrimaryID: 7, SecondaryID: 9}
	payload := map[string]any{
		"id": "x",
		"title": map[string]any{"translations": []any{
			map[string]any{"language_id": 9, "label": "Fence"},
			map[string]any{"language_id": 7, "label": "Хашаа"},
			map[string]any{"language_id": 3, "label": "Zaun"},
		}},
	}
	doc, err := m.Decode(s, payload)
	require.NoError(t, err)
	assert.Equal(t, content.NewText("Хашаа", "Fence"), doc.Fields["title"].Value)
}

func TestDecodeFillsDefaults(t *testing.T) {
	s := testSchema(content.MapperFlat)
	doc, err := Unmarshal(s, []byte(`{"id":"fence-2","title_mn":"Хашаа"}`))
	require.NoError(t, err)

	assert.Equal(t, "fence", doc.Resource)
	assert.Equal(t, content.StatusDraft, doc.Status)
	require.NotNil(t, doc.Fields["title"].Style)
	assert.Equal(t, content.DefaultStyle(), *doc.Fields["title"].Style)
	assert.Equal(t, "", doc.Fields["title"].Value.Secondary)
	assert.Empty(t, doc.Blocks)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	s := testSchema(content.MapperFlat)
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"title not string", `{"title_mn": 3}`},
		{"blocks not array", `{"blocks": {}}`},
		{"block not object", `{"blocks": [1]}`},
		{"bad status", `{"status": "archived"}`},
		{"bad timestamp", `{"updated_at": "yesterday"}`},
		{"bad style", `{"title_style": {"fontSize": "big"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(s, []byte(tt.payload))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFor(t *testing.T) {
	m, err := For("")
	require.NoError(t, err)
	assert.IsType(t, Flat{}, m)

	m, err = For(content.MapperTranslations)
	require.NoError(t, err)
	assert.IsType(t, Translations{}, m)

	_, err = For("xml")
	assert.Error(t, err)
}
