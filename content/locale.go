// Package content defines the bilingual content document model shared by the
// admin editor and the public site: localized values, style tokens, ordered
// blocks, localized lists, resource schemas and the validation rules that gate
// publishing.
package content

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is one of the two languages a site is written in.
type Locale string

const (
	LocaleMN Locale = "mn" // primary
	LocaleEN Locale = "en" // secondary
)

var (
	supportedTags = []language.Tag{language.Mongolian, language.English}
	matcher       = language.NewMatcher(supportedTags)
)

// Locales returns the supported locales, primary first.
func Locales() []Locale {
	return []Locale{LocaleMN, LocaleEN}
}

// Other returns the opposite locale.
func (l Locale) Other() Locale {
	if l == LocaleEN {
		return LocaleMN
	}
	return LocaleEN
}

// Valid reports whether l is one of the supported locales.
func (l Locale) Valid() bool {
	return l == LocaleMN || l == LocaleEN
}

func (l Locale) String() string {
	return string(l)
}

// ParseLocale maps a BCP 47 tag ("mn", "mn-MN", "en-GB") to a supported
// locale. The bool is false when s does not name either language.
func ParseLocale(s string) (Locale, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LocaleMN, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return LocaleMN, false
	}
	base, _ := tag.Base()
	switch base.String() {
	case "mn":
		return LocaleMN, true
	case "en":
		return LocaleEN, true
	}
	return LocaleMN, false
}

// MatchLocale picks the best supported locale for an Accept-Language header.
// It falls back to the primary locale.
func MatchLocale(acceptLanguage string) Locale {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return LocaleMN
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return LocaleMN
	}
	if idx == 1 {
		return LocaleEN
	}
	return LocaleMN
}
