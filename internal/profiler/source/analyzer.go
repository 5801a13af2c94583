package source

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

var (
	eventPattern    = regexp.MustCompile(`(?i)^\s*on\s+(.+?)\s*:`)
	functionPattern = regexp.MustCompile(`(?i)^\s*function\s+(\w+)\s*\(`)
	commandPattern  = regexp.MustCompile(`(?i)^\s*command\s+/?(\w+)`)
	loopPattern     = regexp.MustCompile(`(?i)(?:^|\s)loop\s`)
	waitPattern     = regexp.MustCompile(`(?i)\bwait\s+(\d+)\s*(tick|second|minute)s?\b`)
	variablePattern = regexp.MustCompile(`\{[^}]+\}`)
)

// Warning describes a file or line the analyzer skipped.
type Warning struct {
	Path string `json:"path"`
	// Line is 0 when the whole file was skipped.
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", w.Path, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// Analyzer turns script text into a Set.
type Analyzer struct {
	logger zerolog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "source_analyzer").Logger(),
	}
}

// Analyze builds a new Set from files. The returned set replaces any previous
// one; nothing is merged. Files that cannot be analyzed are skipped and
// reported as warnings.
func (a *Analyzer) Analyze(files []File) (*Set, []Warning) {
	set := NewSet()
	var warnings []Warning

	warn := func(w Warning) {
		warnings = append(warnings, w)
		a.logger.Warn().Str("path", w.Path).Int("line", w.Line).Msg(w.Message)
	}

	for _, f := range files {
		if strings.TrimSpace(f.Path) == "" {
			warn(Warning{Message: "script has an empty path"})
			continue
		}
		if _, dup := set.Get(f.Path); dup {
			warn(Warning{Path: f.Path, Message: "duplicate script path in batch"})
			continue
		}
		if n := invalidUTF8Line(f.Lines); n > 0 {
			warn(Warning{Path: f.Path, Line: n, Message: "script is not valid UTF-8"})
			continue
		}

		sc, lineWarnings := analyzeFile(f)
		for _, w := range lineWarnings {
			warn(w)
		}
		set.add(sc)
	}

	a.logger.Debug().Int("scripts", set.Len()).Int("warnings", len(warnings)).Msg("Scripts analyzed")
	return set, warnings
}

func invalidUTF8Line(lines []string) int {
	for i, l := range lines {
		if !utf8.ValidString(l) {
			return i + 1
		}
	}
	return 0
}

func analyzeFile(f File) (*Script, []Warning) {
	sc := &Script{
		Path:  f.Path,
		Name:  filepath.Base(f.Path),
		lines: slices.Clone(f.Lines),
	}
	var warnings []Warning

	for i, line := range sc.lines {
		n := i + 1

		if m := eventPattern.FindStringSubmatch(line); m != nil {
			sc.addLabel(n, "Event: "+strings.TrimSpace(m[1]))
			sc.Events++
		}
		if m := functionPattern.FindStringSubmatch(line); m != nil {
			sc.addLabel(n, "Function: "+m[1])
			sc.Functions++
		}
		if m := commandPattern.FindStringSubmatch(line); m != nil {
			sc.addLabel(n, "Command: "+m[1])
			sc.Commands++
		}
		if loopPattern.MatchString(line) {
			sc.addLabel(n, "Loop")
			sc.Loops++
			sc.LoopLines = append(sc.LoopLines, n)
		}
		if m := waitPattern.FindStringSubmatch(line); m != nil {
			amount, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				warnings = append(warnings, Warning{
					Path:    f.Path,
					Line:    n,
					Message: fmt.Sprintf("wait amount %q out of range", m[1]),
				})
			} else {
				sc.addLabel(n, fmt.Sprintf("Wait: %d %s", amount, m[2]))
				sc.Waits = append(sc.Waits, Wait{Line: n, Amount: amount, Unit: m[2]})
			}
		}

		sc.Variables += len(variablePattern.FindAllStringIndex(line, -1))
	}

	return sc, warnings
}
