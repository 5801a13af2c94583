package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders the document as Markdown.
func (d Document) Markdown() string {
	if d.Empty {
		return NoDataMessage + "\n"
	}

	var b strings.Builder
	p := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	p("# Script Profiler Report")
	p("")
	p("## Summary")
	p("")
	p("| Metric | Value |")
	p("|---|---|")
	p("| Duration | %.2f seconds |", d.Summary.DurationSeconds)
	p("| Current Load | %.2f |", d.Summary.Load)
	p("| Scripts Analyzed | %d |", d.Summary.Scripts)
	p("| Total Events/Functions Tracked | %d |", d.Summary.Tracked)
	p("| Total Executions | %d |", d.Summary.Executions)
	p("| Total Execution Time | %.2fms |", d.Summary.TotalMs)
	p("")

	p("## Top Slowest Operations")
	p("")
	p("| # | Location | Element | Avg (ms) | Max (ms) | Count |")
	p("|---|---|---|---|---|---|")
	for _, op := range d.Slowest {
		p("| %d | `%s:%d` | %s | %.2f | %.2f | %d |", op.Rank, op.File, op.Line, escapeCell(op.Name), op.AvgMs, op.MaxMs, op.Count)
	}
	p("")

	if len(d.Issues) > 0 {
		p("## Performance Issues Detected")
		p("")
		for _, f := range d.Issues {
			p("### [%s] %s", f.Severity.Label(), f.Title)
			p("")
			p("- **Location:** `%s:%d`", f.File, f.Line)
			p("- **Issue:** %s", f.Description)
			if f.Suggestion != "" {
				p("- **Suggestion:** %s", f.Suggestion)
			}
			p("")
		}
		if d.MoreIssues > 0 {
			p("_... and %d more issue(s)_", d.MoreIssues)
			p("")
		}
	}

	if len(d.Breakdown) > 0 {
		p("## Detailed Breakdown by Script")
		p("")
		for _, fb := range d.Breakdown {
			p("### %s", fb.File)
			p("")
			if fb.Analyzed {
				p("Events: %d | Functions: %d | Commands: %d", fb.Events, fb.Functions, fb.Commands)
				p("")
			}
			p("| Line | Avg (ms) | Executions |")
			p("|---|---|---|")
			for _, lc := range fb.Lines {
				p("| %d | %.2f | %d |", lc.Line, lc.AvgMs, lc.Count)
			}
			p("")
		}
	}

	p("## General Recommendations")
	p("")
	for _, r := range d.Recommendations {
		p("- %s", r)
	}
	for _, tip := range d.Tips {
		p("- %s", tip)
	}

	return b.String()
}

// escapeCell makes an element name safe for a table cell. Names come from
// script text, which may embed § color codes.
func escapeCell(s string) string {
	return strings.ReplaceAll(StripMarkers(s), "|", `\|`)
}

// Pretty renders the Markdown form for a terminal with glamour.
// noColor selects the "notty" style.
func (d Document) Pretty(width int, noColor bool) (string, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if noColor {
		opts = append(opts, glamour.WithStylePath("notty"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(d.Markdown())
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
