package content

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TextPatch replaces either side of a localized value.
type TextPatch struct {
	Primary   *string `json:"mn,omitempty"`
	Secondary *string `json:"en,omitempty"`
}

func (p *TextPatch) applyTo(v Text) Text {
	if p == nil {
		return v
	}
	if p.Primary != nil {
		v.Primary = *p.Primary
	}
	if p.Secondary != nil {
		v.Secondary = *p.Secondary
	}
	return v
}

// FieldPatch changes a scalar field.
type FieldPatch struct {
	Value *TextPatch  `json:"value,omitempty"`
	Style *StylePatch `json:"style,omitempty"`
}

// BlockPatch changes the block with ID.
type BlockPatch struct {
	ID        string      `json:"id"`
	Kind      *BlockKind  `json:"kind,omitempty"`
	Text      *TextPatch  `json:"text,omitempty"`
	Style     *StylePatch `json:"style,omitempty"`
	Placement *string     `json:"placement,omitempty"`
	Order     *int        `json:"order,omitempty"`
	Visible   *bool       `json:"visible,omitempty"`
}

// ItemPatch changes the list item at Index.
type ItemPatch struct {
	Index    int                  `json:"index"`
	Value    *TextPatch           `json:"value,omitempty"`
	Extra    map[string]TextPatch `json:"extra,omitempty"`
	Deleting *bool                `json:"deleting,omitempty"`
}

// Patch is a partial document. Fields merge at the map level, blocks are
// addressed by id and list items by index; anything left nil is unchanged.
type Patch struct {
	Fields map[string]FieldPatch  `json:"fields,omitempty"`
	Blocks []BlockPatch           `json:"blocks,omitempty"`
	Lists  map[string][]ItemPatch `json:"lists,omitempty"`
}

// Empty reports whether p addresses nothing.
func (p Patch) Empty() bool {
	return len(p.Fields) == 0 && len(p.Blocks) == 0 && len(p.Lists) == 0
}

// ApplyPatch returns doc with p merged in. Every target must be declared by
// the schema and present in the document; otherwise an InvariantViolation is
// returned and doc is not modified.
func ApplyPatch(s *Schema, doc Document, p Patch) (Document, error) {
	out := doc.Clone()
	for name, fp := range p.Fields {
		spec, ok := s.Field(name)
		if !ok {
			return doc, violation("patch field", name, ErrUnknownField)
		}
		f := out.Fields[name]
		f.Value = fp.Value.applyTo(f.Value)
		if fp.Style != nil {
			st := DefaultStyle()
			if f.Style != nil {
				st = *f.Style
			} else if !spec.Styled {
				return doc, violation("patch field style", name, ErrUnknownField)
			}
			st = fp.Style.applyTo(st)
			f.Style = &st
		}
		out.Fields[name] = f
	}
	for _, bp := range p.Blocks {
		i := out.blockIndex(bp.ID)
		if i < 0 {
			return doc, violation("patch block", bp.ID, ErrUnknownBlock)
		}
		b := out.Blocks[i]
		if bp.Kind != nil {
			if !bp.Kind.Valid() {
				return doc, violation("patch block kind", string(*bp.Kind), ErrInvalidKind)
			}
			b.Kind = *bp.Kind
		}
		b.Text = bp.Text.applyTo(b.Text)
		if bp.Style != nil {
			b.Style = bp.Style.applyTo(b.Style)
		}
		if bp.Placement != nil {
			if _, ok := s.Placement(*bp.Placement); !ok {
				return doc, violation("patch block placement", *bp.Placement, ErrInvalidPlacement)
			}
			b.Placement = *bp.Placement
		}
		if bp.Order != nil {
			b.Order = *bp.Order
		}
		if bp.Visible != nil {
			b.Visible = *bp.Visible
		}
		out.Blocks[i] = b
	}
	for name, patches := range p.Lists {
		if _, ok := s.List(name); !ok {
			return doc, violation("patch list", name, ErrUnknownList)
		}
		items := out.Lists[name]
		for _, ip := range patches {
			if ip.Index < 0 || ip.Index >= len(items) {
				return doc, violation("patch list item", name+"."+strconv.Itoa(ip.Index), ErrItemOutOfRange)
			}
			it := items[ip.Index]
			it.Value = ip.Value.applyTo(it.Value)
			if len(ip.Extra) > 0 && it.Extra == nil {
				it.Extra = make(map[string]Text, len(ip.Extra))
			}
			for k, tp := range ip.Extra {
				it.Extra[k] = tp.applyTo(it.Extra[k])
			}
			if ip.Deleting != nil {
				it.Deleting = *ip.Deleting
			}
			items[ip.Index] = it
		}
		out.Lists[name] = items
	}
	return out, nil
}

// AddBlock appends an empty visible block to placement and returns its id.
func AddBlock(s *Schema, doc Document, kind BlockKind, placement string) (Document, string, error) {
	if _, ok := s.Placement(placement); !ok {
		return doc, "", violation("add block", placement, ErrInvalidPlacement)
	}
	if !kind.Valid() {
		return doc, "", violation("add block", string(kind), ErrInvalidKind)
	}
	out := doc.Clone()
	id := uuid.NewString()
	out.Blocks = append(out.Blocks, Block{
		ID:        id,
		Kind:      kind,
		Style:     DefaultStyle(),
		Placement: placement,
		Order:     doc.NextOrder(placement),
		Visible:   true,
	})
	return out, id, nil
}

// RemoveBlock drops the block with id. Unknown ids are ignored.
func RemoveBlock(doc Document, id string) Document {
	i := doc.blockIndex(id)
	if i < 0 {
		return doc
	}
	out := doc.Clone()
	out.Blocks = append(out.Blocks[:i], out.Blocks[i+1:]...)
	return out
}

// AddListItem appends an empty item to list and returns its id.
func AddListItem(s *Schema, doc Document, list string) (Document, string, error) {
	spec, ok := s.List(list)
	if !ok {
		return doc, "", violation("add list item", list, ErrUnknownList)
	}
	out := doc.Clone()
	item := ListItem{ID: uuid.NewString()}
	if len(spec.Extras) > 0 {
		item.Extra = make(map[string]Text, len(spec.Extras))
		for _, e := range spec.Extras {
			item.Extra[e] = Text{}
		}
	}
	out.Lists[list] = append(out.Lists[list], item)
	return out, item.ID, nil
}

// RemoveListItem drops the item with id from list. Unknown ids are ignored.
func RemoveListItem(doc Document, list, id string) Document {
	items := doc.Lists[list]
	for i, it := range items {
		if it.ID == id {
			out := doc.Clone()
			cp := out.Lists[list]
			out.Lists[list] = append(cp[:i], cp[i+1:]...)
			return out
		}
	}
	return doc
}

// ToggleVisibility flips the boolean leaf at path. Supported paths:
//
//	fields.<name>.style.visible
//	blocks.<id>.visible
//	blocks.<id>.style.visible
//	lists.<name>.<index>.deleting
func ToggleVisibility(doc Document, path string) (Document, error) {
	parts := strings.Split(path, ".")
	out := doc.Clone()
	switch {
	case len(parts) == 4 && parts[0] == "fields" && parts[2] == "style" && parts[3] == "visible":
		f, ok := out.Fields[parts[1]]
		if !ok || f.Style == nil {
			return doc, violation("toggle", path, ErrInvalidPath)
		}
		f.Style.Visible = !f.Style.Visible
		out.Fields[parts[1]] = f
	case len(parts) == 3 && parts[0] == "blocks" && parts[2] == "visible":
		i := out.blockIndex(parts[1])
		if i < 0 {
			return doc, violation("toggle", path, ErrUnknownBlock)
		}
		out.Blocks[i].Visible = !out.Blocks[i].Visible
	case len(parts) == 4 && parts[0] == "blocks" && parts[2] == "style" && parts[3] == "visible":
		i := out.blockIndex(parts[1])
		if i < 0 {
			return doc, violation("toggle", path, ErrUnknownBlock)
		}
		out.Blocks[i].Style.Visible = !out.Blocks[i].Style.Visible
	case len(parts) == 4 && parts[0] == "lists" && parts[3] == "deleting":
		items, ok := out.Lists[parts[1]]
		if !ok {
			return doc, violation("toggle", path, ErrUnknownList)
		}
		idx, err := strconv.Atoi(parts[2])
		if err != nil || idx < 0 || idx >= len(items) {
			return doc, violation("toggle", path, ErrItemOutOfRange)
		}
		items[idx].Deleting = !items[idx].Deleting
	default:
		return doc, violation("toggle", path, ErrInvalidPath)
	}
	return out, nil
}
