// Package source extracts structural facts from script files.
//
// Analysis is line oriented: each line is matched independently against a
// small set of case-insensitive patterns. It is not a parser.
package source

import (
	"slices"
)

// File is one script handed to the analyzer.
type File struct {
	// Path identifies the script. Loaders supply absolute paths.
	Path  string
	Lines []string
}

// Wait is a wait statement found in a script. Unit is kept as written.
type Wait struct {
	Line   int    `json:"line"`
	Amount int64  `json:"amount"`
	Unit   string `json:"unit"`
}

// Script holds the structural facts of one analyzed file.
type Script struct {
	Path string `json:"path"`
	Name string `json:"name"`

	Events    int `json:"events"`
	Functions int `json:"functions"`
	Commands  int `json:"commands"`
	Loops     int `json:"loops"`
	Variables int `json:"variables"`

	// LoopLines lists the 1-based lines carrying a loop, ascending.
	LoopLines []int `json:"loop_lines"`
	// Waits lists wait statements in line order.
	Waits []Wait `json:"waits"`

	lines  []string
	labels map[int][]string
}

// LineCount returns the number of lines in the script.
func (s *Script) LineCount() int {
	return len(s.lines)
}

// Lines returns a copy of the script lines.
func (s *Script) Lines() []string {
	return slices.Clone(s.lines)
}

// Line returns the content of a 1-based line, or "" when out of range.
func (s *Script) Line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}

// Labels returns the structural labels of a 1-based line in detection order.
// A line without labels returns nil.
func (s *Script) Labels(n int) []string {
	return slices.Clone(s.labels[n])
}

// LabeledLines returns every labeled line number, ascending.
func (s *Script) LabeledLines() []int {
	lines := make([]int, 0, len(s.labels))
	for n := range s.labels {
		lines = append(lines, n)
	}
	slices.Sort(lines)
	return lines
}

func (s *Script) addLabel(n int, label string) {
	if s.labels == nil {
		s.labels = make(map[int][]string)
	}
	s.labels[n] = append(s.labels[n], label)
}

// Set is the result of one analysis pass, keyed by path.
// A Set is never modified after Analyze returns it.
type Set struct {
	byPath map[string]*Script
	paths  []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{byPath: map[string]*Script{}}
}

// Len returns the number of scripts. A nil set is empty.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Get returns the script analyzed from path.
func (s *Set) Get(path string) (*Script, bool) {
	if s == nil {
		return nil, false
	}
	sc, ok := s.byPath[path]
	return sc, ok
}

// Paths returns every script path in ascending order.
func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.paths)
}

// Scripts returns every script ordered by path.
func (s *Set) Scripts() []*Script {
	if s == nil {
		return nil
	}
	out := make([]*Script, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, s.byPath[p])
	}
	return out
}

func (s *Set) add(sc *Script) {
	s.byPath[sc.Path] = sc
	i, _ := slices.BinarySearch(s.paths, sc.Path)
	s.paths = slices.Insert(s.paths, i, sc.Path)
}
