// Package export converts profiling snapshots to external formats.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

// Sample value indexes in profiles built by Profile.
const (
	ValueCount = iota
	ValueTotal
)

// KindLabel is the sample label carrying the element kind.
const KindLabel = "kind"

// Profile builds a pprof profile with one sample per record. Each sample has
// a single-frame stack pointing at the record's file and line, the execution
// count and the total time in nanoseconds.
func Profile(snap tracker.Snapshot, duration time.Duration) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "executions", Unit: "count"},
			{Type: "time", Unit: "nanoseconds"},
		},
		DefaultSampleType: "time",
		PeriodType:        &profile.ValueType{Type: "time", Unit: "nanoseconds"},
		Period:            1,
		DurationNanos:     duration.Nanoseconds(),
	}
	if !snap.TakenAt().IsZero() {
		p.TimeNanos = snap.TakenAt().UnixNano()
	}

	type fnKey struct{ name, file string }
	functions := make(map[fnKey]*profile.Function)

	for _, r := range snap.Records() {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("%s@%d", r.Kind, r.Line)
		}

		fk := fnKey{name: name, file: r.File}
		fn, ok := functions[fk]
		if !ok {
			fn = &profile.Function{
				ID:         uint64(len(p.Function) + 1),
				Name:       name,
				SystemName: name,
				Filename:   r.File,
				StartLine:  int64(r.Line),
			}
			functions[fk] = fn
			p.Function = append(p.Function, fn)
		}

		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn, Line: int64(r.Line)}},
		}
		p.Location = append(p.Location, loc)

		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{r.Count, r.TotalNanos},
			Label:    map[string][]string{KindLabel: {string(r.Kind)}},
		})
	}
	return p
}

// WritePprof writes the snapshot as a gzipped pprof profile.
func WritePprof(w io.Writer, snap tracker.Snapshot, duration time.Duration) error {
	p := Profile(snap, duration)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("failed to build profile: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
