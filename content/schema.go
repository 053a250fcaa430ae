package content

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Mapper names understood by the serialization layer.
const (
	MapperFlat         = "flat"
	MapperTranslations = "translations"
)

// FieldSpec declares a scalar localized field.
type FieldSpec struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Styled   bool   `yaml:"styled"`
	Default  Text   `yaml:"default"`
}

// PlacementSpec declares a block placement. RequiredNonEmpty placements must
// hold at least one block before publishing.
type PlacementSpec struct {
	Name             string `yaml:"name"`
	RequiredNonEmpty bool   `yaml:"required_nonempty"`
}

// ListSpec declares a localized list. Items of a Localized list must be
// filled in both locales, including every declared extra.
type ListSpec struct {
	Name             string   `yaml:"name"`
	Localized        bool     `yaml:"localized"`
	RequiredNonEmpty bool     `yaml:"required_nonempty"`
	Extras           []string `yaml:"extras"`
}

// BlockSpec is a block every new document of the resource starts with.
type BlockSpec struct {
	Kind      BlockKind `yaml:"kind"`
	Placement string    `yaml:"placement"`
	Text      Text      `yaml:"text"`
}

// Schema describes one resource type: which fields, placements and lists its
// documents carry and how they serialize.
type Schema struct {
	Name          string          `yaml:"name"`
	Mapper        string          `yaml:"mapper"`
	Fields        []FieldSpec     `yaml:"fields"`
	Placements    []PlacementSpec `yaml:"placements"`
	Lists         []ListSpec      `yaml:"lists"`
	FontSize      *Bounds         `yaml:"font_size"`
	DefaultBlocks []BlockSpec     `yaml:"default_blocks"`
}

// FontBounds returns the declared font size range or the default one.
func (s *Schema) FontBounds() Bounds {
	if s.FontSize == nil {
		return DefaultFontBounds
	}
	return *s.FontSize
}

// Field returns the spec for name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Placement returns the spec for name.
func (s *Schema) Placement(name string) (PlacementSpec, bool) {
	for _, p := range s.Placements {
		if p.Name == name {
			return p, true
		}
	}
	return PlacementSpec{}, false
}

// List returns the spec for name.
func (s *Schema) List(name string) (ListSpec, bool) {
	for _, l := range s.Lists {
		if l.Name == name {
			return l, true
		}
	}
	return ListSpec{}, false
}

// NewDocument returns the document an editor starts from when nothing has
// been saved yet.
func (s *Schema) NewDocument(id string) Document {
	doc := Document{
		ID:       id,
		Resource: s.Name,
		Status:   StatusDraft,
		Fields:   make(map[string]Field, len(s.Fields)),
		Lists:    make(map[string][]ListItem, len(s.Lists)),
	}
	for _, f := range s.Fields {
		field := Field{Value: f.Default}
		if f.Styled {
			st := DefaultStyle()
			field.Style = &st
		}
		doc.Fields[f.Name] = field
	}
	for _, b := range s.DefaultBlocks {
		doc.Blocks = append(doc.Blocks, Block{
			ID:        uuid.NewString(),
			Kind:      b.Kind,
			Text:      b.Text,
			Style:     DefaultStyle(),
			Placement: b.Placement,
			Order:     doc.NextOrder(b.Placement),
			Visible:   true,
		})
	}
	return doc
}

// Hydrate fills in fields a stored document lacks, for example after a field
// was added to the schema. Existing values are kept.
func (s *Schema) Hydrate(doc Document) Document {
	out := doc.Clone()
	if out.Resource == "" {
		out.Resource = s.Name
	}
	if out.Status == "" {
		out.Status = StatusDraft
	}
	for _, f := range s.Fields {
		field, ok := out.Fields[f.Name]
		if !ok {
			field.Value = f.Default
		}
		if f.Styled && field.Style == nil {
			st := DefaultStyle()
			field.Style = &st
		}
		out.Fields[f.Name] = field
	}
	return out
}

// Validate checks the schema definition itself.
func (s *Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("schema: name is required")
	}
	switch s.Mapper {
	case MapperFlat, MapperTranslations:
	default:
		return fmt.Errorf("schema %s: unknown mapper %q", s.Name, s.Mapper)
	}
	seen := make(map[string]struct{})
	unique := func(kind, name string) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("schema %s: %s with empty name", s.Name, kind)
		}
		key := kind + ":" + name
		if _, ok := seen[key]; ok {
			return fmt.Errorf("schema %s: duplicate %s %q", s.Name, kind, name)
		}
		seen[key] = struct{}{}
		return nil
	}
	for _, f := range s.Fields {
		if err := unique("field", f.Name); err != nil {
			return err
		}
	}
	for _, p := range s.Placements {
		if err := unique("placement", p.Name); err != nil {
			return err
		}
	}
	for _, l := range s.Lists {
		if err := unique("list", l.Name); err != nil {
			return err
		}
		if _, ok := s.Field(l.Name); ok {
			return fmt.Errorf("schema %s: list %q shadows a field", s.Name, l.Name)
		}
		for _, extra := range l.Extras {
			switch extra {
			case "", "id", "label", "deleting":
				return fmt.Errorf("schema %s: list %q has reserved extra %q", s.Name, l.Name, extra)
			}
		}
	}
	for _, f := range s.Fields {
		switch f.Name {
		case "id", "status", "updated_at", "blocks":
			return fmt.Errorf("schema %s: field name %q is reserved", s.Name, f.Name)
		}
	}
	for _, b := range s.DefaultBlocks {
		if !b.Kind.Valid() {
			return fmt.Errorf("schema %s: default block has unknown kind %q", s.Name, b.Kind)
		}
		if _, ok := s.Placement(b.Placement); !ok {
			return fmt.Errorf("schema %s: default block uses undeclared placement %q", s.Name, b.Placement)
		}
	}
	if b := s.FontBounds(); b.Min > b.Max {
		return fmt.Errorf("schema %s: font_size min %g exceeds max %g", s.Name, b.Min, b.Max)
	}
	return nil
}

// Registry holds the schemas of every resource a site serves.
type Registry struct {
	schemas map[string]*Schema
}

type registryFile struct {
	Resources []*Schema `yaml:"resources"`
}

// ParseSchemas decodes a YAML schema file and validates every entry.
func ParseSchemas(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schemas: %w", err)
	}
	r := &Registry{schemas: make(map[string]*Schema, len(f.Resources))}
	for i, s := range f.Resources {
		if s == nil {
			return nil, fmt.Errorf("parse schemas: resource %d is empty", i)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.schemas[s.Name]; dup {
			return nil, fmt.Errorf("parse schemas: duplicate resource %q", s.Name)
		}
		r.schemas[s.Name] = s
	}
	return r, nil
}

// LoadSchemas reads and parses the schema file at path.
func LoadSchemas(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	return ParseSchemas(data)
}

// Get returns the schema for resource.
func (r *Registry) Get(resource string) (*Schema, bool) {
	s, ok := r.schemas[resource]
	return s, ok
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
