package helpers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/coral-mesh/skprof/internal/profiler/report"
)

// Themes are the accepted --theme values.
var Themes = []string{"auto", "plain", "ansi", "markers"}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ColorEnabled reports whether colored output should be written to w.
// NO_COLOR disables it.
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return IsTerminal(w)
}

// ResolveTheme maps a theme name to a report theme. "auto" (or empty)
// picks ANSI colors when w is a color-capable terminal and plain text
// otherwise.
func ResolveTheme(name string, w io.Writer) (report.Theme, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		if ColorEnabled(w) {
			return report.NewANSITheme(), nil
		}
		return report.PlainTheme{}, nil
	case "plain":
		return report.PlainTheme{}, nil
	case "ansi":
		return report.NewANSITheme(), nil
	case "markers":
		return report.MarkerTheme{}, nil
	default:
		return nil, fmt.Errorf("unknown theme %q, must be one of: %s", name, strings.Join(Themes, ", "))
	}
}

// TerminalWidth returns the width of w when it is a terminal, or fallback.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
