// Package detect turns execution metrics and script facts into issues.
package detect

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/constants"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

// Thresholds parameterise the detection rules.
type Thresholds struct {
	// SlowMs is the average duration reported as slow (high).
	SlowMs float64
	// VerySlowMs is the maximum duration reported as very slow (critical).
	VerySlowMs float64
	// LoopIterations is the execution count above which a profiled loop is reported.
	LoopIterations int64
	// WaitTicks is the wait length above which a wait statement is reported.
	WaitTicks int64
	// VariableAccesses is the per-file access count above which a file is reported.
	VariableAccesses int
	// HighFrequencyCount is the execution count above which an element is hot.
	HighFrequencyCount int64
	// HighFrequencyTotalMs escalates a hot element from medium to high.
	HighFrequencyTotalMs float64
	// LoadCeiling is the load above which load impact is reported. Zero disables the rule.
	LoadCeiling float64
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowMs:               constants.DefaultSlowExecutionMs,
		VerySlowMs:           constants.DefaultVerySlowExecutionMs,
		LoopIterations:       constants.DefaultLoopIterations,
		WaitTicks:            constants.DefaultLongWaitTicks,
		VariableAccesses:     constants.DefaultExcessiveVariables,
		HighFrequencyCount:   constants.DefaultHighFrequencyCount,
		HighFrequencyTotalMs: constants.DefaultHighFrequencyTotalMs,
		LoadCeiling:          constants.DefaultLoadCeiling,
	}
}

// ticksPerUnit converts wait units to ticks.
var ticksPerUnit = map[string]int64{
	"tick":   1,
	"second": 20,
	"minute": 1200,
}

// WaitTicks converts a wait to ticks. Unknown units report false. Results
// that overflow saturate at math.MaxInt64.
func WaitTicks(amount int64, unit string) (int64, bool) {
	ratio, ok := ticksPerUnit[strings.TrimSuffix(strings.ToLower(unit), "s")]
	if !ok {
		return 0, false
	}
	if amount > math.MaxInt64/ratio {
		return math.MaxInt64, true
	}
	return amount * ratio, true
}

// Option adjusts a single Detect call.
type Option func(*options)

type options struct {
	load    float64
	hasLoad bool
}

// WithLoad supplies the current host load, enabling the load impact rule.
func WithLoad(load float64) Option {
	return func(o *options) {
		o.load = load
		o.hasLoad = true
	}
}

// Detector evaluates the detection rules. It holds no state between calls.
type Detector struct {
	logger zerolog.Logger
}

// NewDetector creates a detector.
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{
		logger: logger.With().Str("component", "detector").Logger(),
	}
}

// Detect runs every rule and returns the issues ordered from critical to low.
// Issues of equal severity keep the order in which rules found them.
func (d *Detector) Detect(snap tracker.Snapshot, scripts *source.Set, th Thresholds, opts ...Option) []Issue {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var issues []Issue
	records := snap.Records()

	for i := range records {
		r := &records[i]
		if issue, ok := slowExecution(r, th); ok {
			issues = append(issues, issue)
		}
		if issue, ok := highFrequency(r, th); ok {
			issues = append(issues, issue)
		}
	}

	for _, sc := range scripts.Scripts() {
		issues = append(issues, scriptIssues(sc, snap, th)...)
	}

	if o.hasLoad {
		if issue, ok := loadImpact(records, o.load, th); ok {
			issues = append(issues, issue)
		}
	}

	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Compare(b.Severity, a.Severity)
	})

	d.logger.Info().
		Int("records", len(records)).
		Int("scripts", scripts.Len()).
		Int("issues", len(issues)).
		Msg("Analysis complete")

	return issues
}

func slowExecution(r *tracker.Stats, th Thresholds) (Issue, bool) {
	avg, maxMs := r.AvgMillis(), r.MaxMillis()

	switch {
	case maxMs >= th.VerySlowMs:
		return Issue{
			Kind:        KindSlowEvent,
			Severity:    SeverityCritical,
			File:        r.File,
			Line:        r.Line,
			Description: fmt.Sprintf("Very slow execution detected: %.2fms average, %.2fms max", avg, maxMs),
			Suggestion:  "Consider optimizing this code block. Break down complex operations, reduce database queries, or use async operations.",
			Record:      r,
		}, true
	case avg >= th.SlowMs:
		return Issue{
			Kind:        KindSlowEvent,
			Severity:    SeverityHigh,
			File:        r.File,
			Line:        r.Line,
			Description: fmt.Sprintf("Slow execution detected: %.2fms average", avg),
			Suggestion:  "Review this code for potential optimizations. Consider caching results or reducing complexity.",
			Record:      r,
		}, true
	}
	return Issue{}, false
}

func highFrequency(r *tracker.Stats, th Thresholds) (Issue, bool) {
	if r.Count <= th.HighFrequencyCount {
		return Issue{}, false
	}

	total := r.TotalMillis()
	sev := SeverityMedium
	if total > th.HighFrequencyTotalMs {
		sev = SeverityHigh
	}
	return Issue{
		Kind:        KindHighFrequency,
		Severity:    sev,
		File:        r.File,
		Line:        r.Line,
		Description: fmt.Sprintf("High execution frequency: %d times (%.2fms total)", r.Count, total),
		Suggestion:  "This code executes very frequently. Even small optimizations can have significant impact.",
		Record:      r,
	}, true
}

// scriptIssues evaluates the loop, wait and variable rules for one script.
// Loop and wait findings are emitted in line order.
func scriptIssues(sc *source.Script, snap tracker.Snapshot, th Thresholds) []Issue {
	var issues []Issue

	loops, waits := sc.LoopLines, sc.Waits
	for len(loops) > 0 || len(waits) > 0 {
		if len(waits) == 0 || (len(loops) > 0 && loops[0] <= waits[0].Line) {
			if issue, ok := inefficientLoop(sc.Path, loops[0], snap, th); ok {
				issues = append(issues, issue)
			}
			loops = loops[1:]
			continue
		}
		if issue, ok := longWait(sc.Path, waits[0], th); ok {
			issues = append(issues, issue)
		}
		waits = waits[1:]
	}

	if sc.Variables > th.VariableAccesses {
		issues = append(issues, Issue{
			Kind:        KindExcessiveVariables,
			Severity:    SeverityMedium,
			File:        sc.Path,
			Line:        1,
			Description: fmt.Sprintf("Excessive variable access: %d occurrences", sc.Variables),
			Suggestion:  "High variable usage can impact performance. Consider reducing variable operations or using local variables.",
		})
	}
	return issues
}

func inefficientLoop(path string, line int, snap tracker.Snapshot, th Thresholds) (Issue, bool) {
	r, ok := snap.At(path, line)
	if !ok || r.Count <= th.LoopIterations {
		return Issue{}, false
	}
	return Issue{
		Kind:        KindInefficientLoop,
		Severity:    SeverityMedium,
		File:        path,
		Line:        line,
		Description: "Loop with high iteration count detected",
		Suggestion:  "Consider using list operations, filtering, or limiting the loop size. Review if all iterations are necessary.",
		Record:      &r,
	}, true
}

func longWait(path string, w source.Wait, th Thresholds) (Issue, bool) {
	ticks, ok := WaitTicks(w.Amount, w.Unit)
	if !ok || ticks <= th.WaitTicks {
		return Issue{}, false
	}
	return Issue{
		Kind:        KindLongWait,
		Severity:    SeverityLow,
		File:        path,
		Line:        w.Line,
		Description: fmt.Sprintf("Long wait statement: %d %s", w.Amount, strings.ToLower(w.Unit)),
		Suggestion:  "Consider if this wait is necessary. Long waits can tie up script execution threads.",
	}, true
}

// loadImpact blames the record with the largest total time, first in key
// order on ties.
func loadImpact(records []tracker.Stats, load float64, th Thresholds) (Issue, bool) {
	if th.LoadCeiling <= 0 || load <= th.LoadCeiling || len(records) == 0 {
		return Issue{}, false
	}

	heaviest := &records[0]
	for i := range records[1:] {
		if records[i+1].TotalNanos > heaviest.TotalNanos {
			heaviest = &records[i+1]
		}
	}
	return Issue{
		Kind:     KindLoadImpact,
		Severity: SeverityHigh,
		File:     heaviest.File,
		Line:     heaviest.Line,
		Description: fmt.Sprintf("Host load %.1f exceeds %.1f; heaviest element took %.2fms in total",
			load, th.LoadCeiling, heaviest.TotalMillis()),
		Suggestion: "Spread this work over time or reduce how often it runs while the host is busy.",
		Record:     heaviest,
	}, true
}
