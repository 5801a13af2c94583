package report

import (
	"fmt"
	"strings"
)

const ruleWidth = 60

// Render builds and renders a report as text in one call.
func Render(in Input, opts Options, theme Theme) string {
	return Build(in, opts).Text(theme)
}

// Text renders the document as text. A nil theme means PlainTheme.
func (d Document) Text(theme Theme) string {
	if d.Empty {
		return NoDataMessage
	}
	if theme == nil {
		theme = PlainTheme{}
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	section := func(title string) {
		b.WriteByte('\n')
		line("%s", theme.Paint(StyleSection, title))
	}

	rule := strings.Repeat("═", ruleWidth)
	line("%s", theme.Paint(StyleRule, rule))
	line("  %s", theme.Paint(StyleTitle, Title))
	line("%s", theme.Paint(StyleRule, rule))

	s := d.Summary
	section("Summary:")
	line("  Duration: %.2f seconds", s.DurationSeconds)
	line("  Current Load: %.2f", s.Load)
	line("  Scripts Analyzed: %d", s.Scripts)
	line("  Total Events/Functions Tracked: %d", s.Tracked)
	line("  Total Executions: %d", s.Executions)
	line("  Total Execution Time: %.2fms", s.TotalMs)

	section("Top Slowest Operations:")
	if len(d.Slowest) == 0 {
		line("  No execution data available.")
	}
	for _, op := range d.Slowest {
		style := tierStyle(op.Tier)
		line("  %s", theme.Paint(style, fmt.Sprintf("%d. %s:%d - %s", op.Rank, op.File, op.Line, op.Name)))
		line("     %s", theme.Paint(style, fmt.Sprintf("Avg: %.2fms | Max: %.2fms | Count: %d", op.AvgMs, op.MaxMs, op.Count)))
	}

	if len(d.Issues) > 0 {
		section("Performance Issues Detected:")
		for _, f := range d.Issues {
			b.WriteByte('\n')
			line("  %s", theme.Paint(severityStyle(f.Severity), fmt.Sprintf("[%s] %s", f.Severity.Label(), f.Title)))
			line("  Location: %s:%d", f.File, f.Line)
			line("  Issue: %s", f.Description)
			if f.Suggestion != "" {
				line("  %s", theme.Paint(StyleSuggestion, "Suggestion: "+f.Suggestion))
			}
		}
		if d.MoreIssues > 0 {
			b.WriteByte('\n')
			line("  ... and %d more issue(s)", d.MoreIssues)
		}
	}

	if len(d.Breakdown) > 0 {
		section("Detailed Breakdown by Script:")
		for _, fb := range d.Breakdown {
			b.WriteByte('\n')
			line("  %s", theme.Paint(StyleFile, fb.File+":"))
			if fb.Analyzed {
				line("    Events: %d | Functions: %d | Commands: %d", fb.Events, fb.Functions, fb.Commands)
			}
			for _, lc := range fb.Lines {
				line("    Line %d: %.2fms avg (%d executions)", lc.Line, lc.AvgMs, lc.Count)
			}
		}
	}

	section("General Recommendations:")
	for _, r := range d.Recommendations {
		line("  • %s", r)
	}
	for _, tip := range d.Tips {
		line("  • %s", tip)
	}

	return b.String()
}
