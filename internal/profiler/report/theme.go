package report

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"

	"github.com/coral-mesh/skprof/internal/profiler/detect"
)

// Style names a part of the report that a Theme may decorate.
type Style int

const (
	StyleRule Style = iota
	StyleTitle
	StyleSection
	StyleFast
	StyleWarm
	StyleHot
	StyleCritical
	StyleHigh
	StyleMedium
	StyleLow
	StyleSuggestion
	StyleFile
)

func tierStyle(t Tier) Style {
	switch t {
	case TierHot:
		return StyleHot
	case TierWarm:
		return StyleWarm
	default:
		return StyleFast
	}
}

func severityStyle(s detect.Severity) Style {
	switch s {
	case detect.SeverityCritical:
		return StyleCritical
	case detect.SeverityHigh:
		return StyleHigh
	case detect.SeverityMedium:
		return StyleMedium
	default:
		return StyleLow
	}
}

// Theme decorates report fragments.
type Theme interface {
	Paint(style Style, text string) string
}

// PlainTheme leaves text untouched.
type PlainTheme struct{}

// Paint implements Theme.
func (PlainTheme) Paint(_ Style, text string) string {
	return text
}

// MarkerTheme embeds "§x" style markers, each closed by "§r", for front-ends
// that map them to their own colours.
type MarkerTheme struct{}

var markerCodes = map[Style]string{
	StyleRule:       "6",
	StyleTitle:      "e",
	StyleSection:    "b",
	StyleFast:       "a",
	StyleWarm:       "e",
	StyleHot:        "c",
	StyleCritical:   "4",
	StyleHigh:       "c",
	StyleMedium:     "e",
	StyleLow:        "f",
	StyleSuggestion: "a",
	StyleFile:       "e",
}

// Paint implements Theme.
func (MarkerTheme) Paint(style Style, text string) string {
	code, ok := markerCodes[style]
	if !ok || text == "" {
		return text
	}
	return "§" + code + text + "§r"
}

var markerPattern = regexp.MustCompile(`(?i)§[0-9a-fk-or]`)

// StripMarkers removes MarkerTheme markers.
func StripMarkers(s string) string {
	return markerPattern.ReplaceAllString(s, "")
}

// ANSITheme styles text for terminals with lipgloss.
type ANSITheme struct {
	styles map[Style]lipgloss.Style
}

// NewANSITheme creates the terminal theme.
func NewANSITheme() *ANSITheme {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return &ANSITheme{
		styles: map[Style]lipgloss.Style{
			StyleRule:       fg("214"),
			StyleTitle:      fg("11").Bold(true),
			StyleSection:    fg("14").Bold(true),
			StyleFast:       fg("10"),
			StyleWarm:       fg("11"),
			StyleHot:        fg("9"),
			StyleCritical:   fg("124").Bold(true),
			StyleHigh:       fg("9"),
			StyleMedium:     fg("11"),
			StyleLow:        fg("15"),
			StyleSuggestion: fg("10"),
			StyleFile:       fg("11"),
		},
	}
}

// Paint implements Theme.
func (t *ANSITheme) Paint(style Style, text string) string {
	s, ok := t.styles[style]
	if !ok {
		return text
	}
	return s.Render(text)
}
