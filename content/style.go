package content

import (
	"fmt"
	"math"
	"regexp"
)

// FontWeight is one of the weights the editors offer.
type FontWeight string

const (
	WeightNormal    FontWeight = "normal"
	WeightMedium    FontWeight = "medium"
	WeightSemibold  FontWeight = "semibold"
	WeightBold      FontWeight = "bold"
	WeightExtrabold FontWeight = "extrabold"
)

// Valid reports whether w is a known weight.
func (w FontWeight) Valid() bool {
	switch w {
	case WeightNormal, WeightMedium, WeightSemibold, WeightBold, WeightExtrabold:
		return true
	}
	return false
}

// CSS returns the numeric CSS font-weight.
func (w FontWeight) CSS() int {
	switch w {
	case WeightMedium:
		return 500
	case WeightSemibold:
		return 600
	case WeightBold:
		return 700
	case WeightExtrabold:
		return 800
	}
	return 400
}

// Align is the horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// FontSize holds a pixel size per breakpoint. Mobile is usually not larger
// than Desktop but nothing enforces it.
type FontSize struct {
	Mobile  float64 `json:"mobile" yaml:"mobile"`
	Desktop float64 `json:"desktop" yaml:"desktop"`
}

// StyleToken is the set of presentation attributes attachable to any text
// field. Align and LetterSpacing are optional.
type StyleToken struct {
	Color         string     `json:"color" yaml:"color"`
	FontSize      FontSize   `json:"fontSize" yaml:"fontSize"`
	FontWeight    FontWeight `json:"fontWeight" yaml:"fontWeight"`
	FontFamily    string     `json:"fontFamily" yaml:"fontFamily"`
	Align         *Align     `json:"align,omitempty" yaml:"align,omitempty"`
	LetterSpacing *float64   `json:"letterSpacing,omitempty" yaml:"letterSpacing,omitempty"`
	Visible       bool       `json:"visible" yaml:"visible"`
}

// DefaultStyle is the token new fields and blocks start with.
func DefaultStyle() StyleToken {
	return StyleToken{
		Color:      "#111111",
		FontSize:   FontSize{Mobile: 16, Desktop: 16},
		FontWeight: WeightNormal,
		Visible:    true,
	}
}

// Clone returns a copy that shares no pointers with s.
func (s StyleToken) Clone() StyleToken {
	if s.Align != nil {
		a := *s.Align
		s.Align = &a
	}
	if s.LetterSpacing != nil {
		ls := *s.LetterSpacing
		s.LetterSpacing = &ls
	}
	return s
}

// CSS renders the token as an inline style declaration for the given
// breakpoint.
func (s StyleToken) CSS(desktop bool) string {
	size := s.FontSize.Mobile
	if desktop {
		size = s.FontSize.Desktop
	}
	css := fmt.Sprintf("color:%s;font-size:%gpx;font-weight:%d;", s.Color, size, s.FontWeight.CSS())
	if s.FontFamily != "" {
		css += fmt.Sprintf("font-family:%s;", s.FontFamily)
	}
	if s.Align != nil {
		css += fmt.Sprintf("text-align:%s;", *s.Align)
	}
	if s.LetterSpacing != nil {
		css += fmt.Sprintf("letter-spacing:%gpx;", *s.LetterSpacing)
	}
	return css
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidColor reports whether c is a #rgb or #rrggbb color.
func ValidColor(c string) bool {
	return hexColor.MatchString(c)
}

// Bounds is an inclusive numeric range declared by a schema for font sizes.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultFontBounds is the range the editors accept for font sizes.
var DefaultFontBounds = Bounds{Min: 8, Max: 72}

// Clamp limits v to the bounds. Non-finite values are returned unchanged so
// the validation gate can report them.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// StylePatch changes selected StyleToken attributes; nil members are left
// alone.
type StylePatch struct {
	Color         *string     `json:"color,omitempty"`
	FontSize      *FontSize   `json:"fontSize,omitempty"`
	FontWeight    *FontWeight `json:"fontWeight,omitempty"`
	FontFamily    *string     `json:"fontFamily,omitempty"`
	Align         *Align      `json:"align,omitempty"`
	LetterSpacing *float64    `json:"letterSpacing,omitempty"`
	Visible       *bool       `json:"visible,omitempty"`
}

func (p StylePatch) applyTo(s StyleToken) StyleToken {
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.FontWeight != nil {
		s.FontWeight = *p.FontWeight
	}
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.Align != nil {
		a := *p.Align
		s.Align = &a
	}
	if p.LetterSpacing != nil {
		ls := *p.LetterSpacing
		s.LetterSpacing = &ls
	}
	if p.Visible != nil {
		s.Visible = *p.Visible
	}
	return s
}
