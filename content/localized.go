package content

import "strings"

// Localized pairs a value across both locales. Primary is Mongolian,
// Secondary is English.
type Localized[T any] struct {
	Primary   T `json:"mn" yaml:"mn"`
	Secondary T `json:"en" yaml:"en"`
}

// Text is a localized string, the most common field value.
type Text = Localized[string]

// NewText builds a Text from its two sides.
func NewText(mn, en string) Text {
	return Text{Primary: mn, Secondary: en}
}

// Get returns the value stored for locale.
func (v Localized[T]) Get(l Locale) T {
	if l == LocaleEN {
		return v.Secondary
	}
	return v.Primary
}

// With returns a copy of v with the value for locale replaced.
func (v Localized[T]) With(l Locale, val T) Localized[T] {
	if l == LocaleEN {
		v.Secondary = val
	} else {
		v.Primary = val
	}
	return v
}

// Resolve returns the text for the active locale, falling back to the other
// locale when the active side is blank. It returns "" only when both sides
// are blank.
func Resolve(v Text, active Locale) string {
	return ResolveFunc(v, active, blank)
}

// ResolveFunc is Resolve for arbitrary value types; isEmpty decides which
// values count as missing.
func ResolveFunc[T any](v Localized[T], active Locale, isEmpty func(T) bool) T {
	if val := v.Get(active); !isEmpty(val) {
		return val
	}
	if val := v.Get(active.Other()); !isEmpty(val) {
		return val
	}
	var zero T
	return zero
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Empty reports whether both locales are blank.
func Empty(v Text) bool {
	return blank(v.Primary) && blank(v.Secondary)
}

// Complete reports whether both locales are filled in.
func Complete(v Text) bool {
	return !blank(v.Primary) && !blank(v.Secondary)
}
