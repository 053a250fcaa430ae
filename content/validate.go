package content

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Code identifies a validation rule.
type Code string

const (
	MissingRequiredField    Code = "missing_required_field"
	IncompleteLocalization  Code = "incomplete_localization"
	NonFiniteNumber         Code = "non_finite_number"
	EmptyRequiredCollection Code = "empty_required_collection"
	InvalidColor            Code = "invalid_color"
)

// ValidationError is one user-fixable problem found in a document.
type ValidationError struct {
	Code  Code   `json:"code"`
	Field string `json:"field,omitempty"`
	List  string `json:"list,omitempty"`
	Index int    `json:"index,omitempty"`
	// Collection is the placement or list name for EmptyRequiredCollection.
	Collection string `json:"collection,omitempty"`
	Path       string `json:"path,omitempty"`
}

// MarshalJSON always writes the index of list errors, including item 0.
func (e ValidationError) MarshalJSON() ([]byte, error) {
	type plain ValidationError
	out := struct {
		plain
		Index *int `json:"index,omitempty"`
	}{plain: plain(e)}
	if e.List != "" {
		i := e.Index
		out.Index = &i
	}
	return json.Marshal(out)
}

func (e ValidationError) String() string {
	switch e.Code {
	case MissingRequiredField:
		return fmt.Sprintf("%s is required", e.Field)
	case IncompleteLocalization:
		return fmt.Sprintf("%s item %d must be filled in both languages", e.List, e.Index+1)
	case NonFiniteNumber:
		return fmt.Sprintf("%s must be a number", e.Path)
	case EmptyRequiredCollection:
		return fmt.Sprintf("%s needs at least one entry", e.Collection)
	case InvalidColor:
		return fmt.Sprintf("%s is not a valid hex color", e.Path)
	}
	return string(e.Code)
}

// Errors is the full list of violations for a document.
type Errors []ValidationError

// OK reports whether no violation was found.
func (e Errors) OK() bool {
	return len(e) == 0
}

// Has reports whether a violation with code exists.
func (e Errors) Has(code Code) bool {
	for _, v := range e {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Messages renders every violation for display.
func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.String()
	}
	return out
}

func (e Errors) String() string {
	return strings.Join(e.Messages(), "; ")
}

// Validate runs every publishing rule against doc and returns all
// violations. It never stops at the first one.
func Validate(s *Schema, doc Document) Errors {
	var errs Errors

	for _, spec := range s.Fields {
		if spec.Required && Empty(doc.Fields[spec.Name].Value) {
			errs = append(errs, ValidationError{Code: MissingRequiredField, Field: spec.Name})
		}
	}

	for _, spec := range s.Lists {
		if !spec.Localized {
			continue
		}
		for i, it := range doc.Lists[spec.Name] {
			if it.Deleting {
				continue
			}
			if !itemComplete(spec, it) {
				errs = append(errs, ValidationError{Code: IncompleteLocalization, List: spec.Name, Index: i})
			}
		}
	}

	for _, name := range sortedFieldNames(doc) {
		if st := doc.Fields[name].Style; st != nil {
			errs = append(errs, styleErrors("fields."+name+".style", *st)...)
		}
	}
	for _, b := range doc.Blocks {
		errs = append(errs, styleErrors("blocks."+b.ID+".style", b.Style)...)
	}

	for _, spec := range s.Placements {
		if spec.RequiredNonEmpty && len(doc.SortedBlocks(spec.Name)) == 0 {
			errs = append(errs, ValidationError{Code: EmptyRequiredCollection, Collection: spec.Name})
		}
	}
	for _, spec := range s.Lists {
		if spec.RequiredNonEmpty && liveItems(doc.Lists[spec.Name]) == 0 {
			errs = append(errs, ValidationError{Code: EmptyRequiredCollection, Collection: spec.Name})
		}
	}

	return errs
}

func itemComplete(spec ListSpec, it ListItem) bool {
	if !Complete(it.Value) {
		return false
	}
	for _, extra := range spec.Extras {
		if !Complete(it.Extra[extra]) {
			return false
		}
	}
	return true
}

func liveItems(items []ListItem) int {
	n := 0
	for _, it := range items {
		if !it.Deleting {
			n++
		}
	}
	return n
}

func styleErrors(path string, st StyleToken) Errors {
	var errs Errors
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, ValidationError{Code: NonFiniteNumber, Path: path + "." + name})
		}
	}
	check("fontSize.mobile", st.FontSize.Mobile)
	check("fontSize.desktop", st.FontSize.Desktop)
	if st.LetterSpacing != nil {
		check("letterSpacing", *st.LetterSpacing)
	}
	if st.Color != "" && !ValidColor(st.Color) {
		errs = append(errs, ValidationError{Code: InvalidColor, Path: path + ".color"})
	}
	return errs
}

func sortedFieldNames(doc Document) []string {
	names := make([]string, 0, len(doc.Fields))
	for name := range doc.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
