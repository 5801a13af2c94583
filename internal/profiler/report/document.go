// Package report renders profiling results.
//
// Build assembles a Document from a snapshot and its issues. The Document is
// plain data: it can be encoded as JSON, rendered as text through a Theme or
// rendered as Markdown.
package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/coral-mesh/skprof/internal/constants"
	"github.com/coral-mesh/skprof/internal/profiler/detect"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

// NoDataMessage is the whole report when nothing was recorded.
const NoDataMessage = "No profiling data available. Start profiling first!"

// Title is the report heading.
const Title = "SCRIPT PROFILER REPORT"

// Input is everything a report is built from.
type Input struct {
	Snapshot tracker.Snapshot
	Issues   []detect.Issue
	Scripts  *source.Set
	Duration time.Duration
	Load     float64
	Detailed bool
}

// Options control report content.
type Options struct {
	// TopN is the number of slowest operations listed.
	TopN int
	// MaxIssues caps the listed issues.
	MaxIssues int
	// IncludeSuggestions adds the remediation hint to each issue.
	IncludeSuggestions bool
	// BreakdownLines is the number of lines per file in the detailed breakdown.
	BreakdownLines int
}

// DefaultOptions returns the built-in report options.
func DefaultOptions() Options {
	return Options{
		TopN:               constants.DefaultTopSlowest,
		MaxIssues:          constants.DefaultMaxReportedIssues,
		IncludeSuggestions: true,
		BreakdownLines:     constants.DefaultBreakdownLines,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.MaxIssues <= 0 {
		o.MaxIssues = d.MaxIssues
	}
	if o.BreakdownLines <= 0 {
		o.BreakdownLines = d.BreakdownLines
	}
	return o
}

// Tier buckets an average duration for highlighting.
type Tier string

const (
	TierFast Tier = "fast"
	TierWarm Tier = "warm"
	TierHot  Tier = "hot"
)

func tierOf(avgMs float64) Tier {
	switch {
	case avgMs > 100:
		return TierHot
	case avgMs > 50:
		return TierWarm
	default:
		return TierFast
	}
}

// Summary is the report overview.
type Summary struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Load            float64 `json:"load"`
	Scripts         int     `json:"scripts"`
	Tracked         int     `json:"tracked"`
	Executions      int64   `json:"executions"`
	TotalMs         float64 `json:"total_ms"`
}

// Operation is one entry of the slowest operations list.
type Operation struct {
	Rank  int     `json:"rank"`
	Path  string  `json:"path"`
	File  string  `json:"file"`
	Line  int     `json:"line"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
	Count int64   `json:"count"`
	Tier  Tier    `json:"tier"`
}

// Finding is one listed issue.
type Finding struct {
	Severity    detect.Severity `json:"severity"`
	Kind        detect.Kind     `json:"kind"`
	Title       string          `json:"title"`
	Path        string          `json:"path"`
	File        string          `json:"file"`
	Line        int             `json:"line"`
	Description string          `json:"description"`
	Suggestion  string          `json:"suggestion,omitempty"`
}

// LineCost is one line of a file breakdown.
type LineCost struct {
	Line  int     `json:"line"`
	AvgMs float64 `json:"avg_ms"`
	Count int64   `json:"count"`
}

// FileBreakdown groups the records of one file.
type FileBreakdown struct {
	Path string `json:"path"`
	File string `json:"file"`
	// Analyzed is false when no script facts exist for the file.
	Analyzed  bool       `json:"analyzed"`
	Events    int        `json:"events"`
	Functions int        `json:"functions"`
	Commands  int        `json:"commands"`
	Lines     []LineCost `json:"lines"`
}

// Document is a built report.
type Document struct {
	Empty           bool            `json:"empty"`
	Summary         Summary         `json:"summary"`
	Slowest         []Operation     `json:"slowest"`
	Issues          []Finding       `json:"issues"`
	MoreIssues      int             `json:"more_issues"`
	Breakdown       []FileBreakdown `json:"breakdown,omitempty"`
	Recommendations []string        `json:"recommendations"`
	Tips            []string        `json:"tips"`
}

var kindRecommendations = []struct {
	kind detect.Kind
	text string
}{
	{detect.KindSlowEvent, "Optimize slow event handlers to improve responsiveness"},
	{detect.KindInefficientLoop, "Review loops for unnecessary iterations or complex operations"},
	{detect.KindExcessiveVariables, "Consider reducing variable operations or using more efficient data structures"},
	{detect.KindHighFrequency, "Make hot code paths cheaper or run them less often"},
	{detect.KindLongWait, "Check that long waits are really needed"},
	{detect.KindLoadImpact, "Profile again on an idle host to separate script cost from host load"},
}

var generalTips = []string{
	"Use 'report detailed' for line-by-line analysis",
	"Consider async operations for I/O-heavy tasks",
	"Cache frequently accessed data when possible",
}

// Build assembles the report. It is deterministic for identical inputs.
func Build(in Input, opts Options) Document {
	if in.Snapshot.Empty() {
		return Document{Empty: true}
	}
	opts = opts.withDefaults()

	records := in.Snapshot.Records()
	doc := Document{
		Summary: Summary{
			DurationSeconds: in.Duration.Seconds(),
			Load:            in.Load,
			Scripts:         in.Scripts.Len(),
			Tracked:         len(records),
			Executions:      in.Snapshot.TotalExecutions(),
			TotalMs:         float64(in.Snapshot.TotalNanos()) / 1e6,
		},
		Slowest: slowest(records, opts.TopN),
	}

	for i, issue := range in.Issues {
		if i >= opts.MaxIssues {
			doc.MoreIssues = len(in.Issues) - opts.MaxIssues
			break
		}
		f := Finding{
			Severity:    issue.Severity,
			Kind:        issue.Kind,
			Title:       issue.Kind.DisplayName(),
			Path:        issue.File,
			File:        shortName(issue.File),
			Line:        issue.Line,
			Description: issue.Description,
		}
		if opts.IncludeSuggestions {
			f.Suggestion = issue.Suggestion
		}
		doc.Issues = append(doc.Issues, f)
	}

	if in.Detailed {
		doc.Breakdown = breakdown(records, in.Scripts, opts.BreakdownLines)
	}

	for _, r := range kindRecommendations {
		if slices.ContainsFunc(in.Issues, func(i detect.Issue) bool { return i.Kind == r.kind }) {
			doc.Recommendations = append(doc.Recommendations, r.text)
		}
	}
	doc.Tips = slices.Clone(generalTips)

	return doc
}

// byAvgDesc orders by average duration, descending. Used with a stable sort
// so ties keep snapshot order.
func byAvgDesc(a, b tracker.Stats) int {
	return cmp.Compare(b.AvgMillis(), a.AvgMillis())
}

func slowest(records []tracker.Stats, n int) []Operation {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, byAvgDesc)
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	ops := make([]Operation, 0, len(sorted))
	for i, r := range sorted {
		avg := r.AvgMillis()
		ops = append(ops, Operation{
			Rank:  i + 1,
			Path:  r.File,
			File:  shortName(r.File),
			Line:  r.Line,
			Kind:  string(r.Kind),
			Name:  r.Name,
			AvgMs: avg,
			MaxMs: r.MaxMillis(),
			Count: r.Count,
			Tier:  tierOf(avg),
		})
	}
	return ops
}

// breakdown groups records by file in path order. records are key ordered,
// so each file forms one contiguous run.
func breakdown(records []tracker.Stats, scripts *source.Set, perFile int) []FileBreakdown {
	var out []FileBreakdown

	for start := 0; start < len(records); {
		end := start
		for end < len(records) && records[end].File == records[start].File {
			end++
		}
		group := slices.Clone(records[start:end])
		slices.SortStableFunc(group, byAvgDesc)
		if len(group) > perFile {
			group = group[:perFile]
		}

		path := records[start].File
		fb := FileBreakdown{Path: path, File: shortName(path)}
		if sc, ok := scripts.Get(path); ok {
			fb.Analyzed = true
			fb.Events = sc.Events
			fb.Functions = sc.Functions
			fb.Commands = sc.Commands
		}
		for _, r := range group {
			fb.Lines = append(fb.Lines, LineCost{Line: r.Line, AvgMs: r.AvgMillis(), Count: r.Count})
		}
		out = append(out, fb)
		start = end
	}
	return out
}

// shortName returns the last element of a slash or backslash separated path.
func shortName(path string) string {
	if path == "" {
		return "unknown"
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
