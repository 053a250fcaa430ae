package content

import (
	"reflect"
	"sort"
	"time"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// BlockKind is the role a block plays on the page.
type BlockKind string

const (
	KindTitle     BlockKind = "title"
	KindSubtitle  BlockKind = "subtitle"
	KindParagraph BlockKind = "paragraph"
	KindNote      BlockKind = "note"
	KindListItem  BlockKind = "listItem"
)

// Valid reports whether k is a known block kind.
func (k BlockKind) Valid() bool {
	switch k {
	case KindTitle, KindSubtitle, KindParagraph, KindNote, KindListItem:
		return true
	}
	return false
}

// Block is an orderable, independently visible unit of localized content.
// Order is a sort key inside Placement; gaps and duplicates are allowed.
type Block struct {
	ID        string     `json:"id"`
	Kind      BlockKind  `json:"kind"`
	Text      Text       `json:"text"`
	Style     StyleToken `json:"style"`
	Placement string     `json:"placement"`
	Order     int        `json:"order"`
	Visible   bool       `json:"visible"`
}

// Field is a scalar localized value with an optional style.
type Field struct {
	Value Text        `json:"value"`
	Style *StyleToken `json:"style,omitempty"`
}

// Visible reports whether the field should be rendered. Unstyled fields are
// always visible.
func (f Field) Visible() bool {
	return f.Style == nil || f.Style.Visible
}

// ListItem is one entry of a localized list. Extra holds additional
// localized attributes for richer items such as timeline events.
type ListItem struct {
	ID       string          `json:"id"`
	Value    Text            `json:"value"`
	Extra    map[string]Text `json:"extra,omitempty"`
	Deleting bool            `json:"deleting,omitempty"`
}

// Document is the editable aggregate behind one page or section.
type Document struct {
	ID        string                `json:"id"`
	Resource  string                `json:"resource"`
	Status    Status                `json:"status"`
	Fields    map[string]Field      `json:"fields"`
	Blocks    []Block               `json:"blocks"`
	Lists     map[string][]ListItem `json:"lists"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Published reports whether the document has been published.
func (d Document) Published() bool {
	return d.Status == StatusPublished
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.Fields = make(map[string]Field, len(d.Fields))
	for name, f := range d.Fields {
		if f.Style != nil {
			s := f.Style.Clone()
			f.Style = &s
		}
		out.Fields[name] = f
	}
	out.Blocks = make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		b.Style = b.Style.Clone()
		out.Blocks[i] = b
	}
	out.Lists = make(map[string][]ListItem, len(d.Lists))
	for name, items := range d.Lists {
		cp := make([]ListItem, len(items))
		for i, it := range items {
			cp[i] = it.clone()
		}
		out.Lists[name] = cp
	}
	return out
}

func (it ListItem) clone() ListItem {
	if it.Extra == nil {
		return it
	}
	extra := make(map[string]Text, len(it.Extra))
	for k, v := range it.Extra {
		extra[k] = v
	}
	it.Extra = extra
	return it
}

// Equal reports whether d and other have the same content. Nil and empty
// collections compare equal; UpdatedAt is ignored.
func (d Document) Equal(other Document) bool {
	a, b := d.normalized(), other.normalized()
	return reflect.DeepEqual(a, b)
}

func (d Document) normalized() Document {
	n := d.Clone()
	n.UpdatedAt = time.Time{}
	if len(n.Blocks) == 0 {
		n.Blocks = nil
	}
	for name, items := range n.Lists {
		if len(items) == 0 {
			delete(n.Lists, name)
			continue
		}
		for i := range items {
			if len(items[i].Extra) == 0 {
				items[i].Extra = nil
			}
		}
	}
	return n
}

// Block returns the block with id.
func (d Document) Block(id string) (Block, bool) {
	if i := d.blockIndex(id); i >= 0 {
		return d.Blocks[i], true
	}
	return Block{}, false
}

func (d Document) blockIndex(id string) int {
	for i, b := range d.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// SortedBlocks returns the blocks of placement ordered by Order, keeping
// insertion order for ties.
func (d Document) SortedBlocks(placement string) []Block {
	var out []Block
	for _, b := range d.Blocks {
		if b.Placement == placement {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// NextOrder returns the order a block appended to placement should get.
func (d Document) NextOrder(placement string) int {
	next, found := 0, false
	for _, b := range d.Blocks {
		if b.Placement != placement {
			continue
		}
		if !found || b.Order+1 > next {
			next, found = b.Order+1, true
		}
	}
	return next
}
