// Package trace reads recorded spans from JSON lines and replays them into a
// tracker.
//
// One span per line:
//
//	{"file":"/srv/scripts/a.sk","line":3,"kind":"event","name":"on join","duration_ns":1200000}
//
// duration_ms may replace duration_ns, and "occurrence":true records an
// execution without timing. Blank lines and lines starting with # are
// ignored.
package trace

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

const maxLineSize = 1 << 20

// Span is one recorded execution.
type Span struct {
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Kind       string   `json:"kind,omitempty"`
	Name       string   `json:"name,omitempty"`
	DurationNs *int64   `json:"duration_ns,omitempty"`
	DurationMs *float64 `json:"duration_ms,omitempty"`
	Occurrence bool     `json:"occurrence,omitempty"`
}

// Key returns the tracker key of the span. An empty kind means event.
func (s Span) Key() tracker.Key {
	kind := tracker.ElementKind(s.Kind)
	if kind == "" {
		kind = tracker.KindEvent
	}
	return tracker.NewKey(s.File, s.Line, kind)
}

// Duration returns the span duration in nanoseconds.
func (s Span) Duration() int64 {
	switch {
	case s.DurationNs != nil:
		return *s.DurationNs
	case s.DurationMs != nil:
		return int64(math.Round(*s.DurationMs * float64(time.Millisecond)))
	default:
		return 0
	}
}

func (s Span) validate() error {
	if s.File == "" {
		return errors.New("missing file")
	}
	if s.Line < 1 {
		return fmt.Errorf("invalid line %d", s.Line)
	}
	if s.DurationNs != nil && s.DurationMs != nil {
		return errors.New("both duration_ns and duration_ms set")
	}
	if s.DurationMs != nil && (math.IsNaN(*s.DurationMs) || math.IsInf(*s.DurationMs, 0) ||
		math.Abs(*s.DurationMs) > float64(math.MaxInt64/int64(time.Millisecond))) {
		return fmt.Errorf("duration_ms %v out of range", *s.DurationMs)
	}
	if !s.Occurrence && s.DurationNs == nil && s.DurationMs == nil {
		return errors.New("missing duration")
	}
	return nil
}

// LineError reports a malformed trace line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Reader decodes spans one line at a time.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next span. It returns io.EOF at the end of input and a
// *LineError for a malformed line, after which reading may continue.
func (r *Reader) Next() (Span, error) {
	for r.sc.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		var s Span
		if err := json.Unmarshal(raw, &s); err != nil {
			return Span{}, &LineError{Line: r.line, Err: err}
		}
		if err := s.validate(); err != nil {
			return Span{}, &LineError{Line: r.line, Err: err}
		}
		return s, nil
	}
	if err := r.sc.Err(); err != nil {
		return Span{}, fmt.Errorf("failed to read trace: %w", err)
	}
	return Span{}, io.EOF
}

// Stats summarises a replay.
type Stats struct {
	Spans       int `json:"spans"`
	Occurrences int `json:"occurrences"`
	Skipped     int `json:"skipped"`
}

// Replay feeds every span of r into tr. Malformed lines are logged and
// skipped. The tracker drops spans when no session is active, so callers
// start one first.
func Replay(ctx context.Context, tr *tracker.Tracker, r io.Reader, logger zerolog.Logger) (Stats, error) {
	logger = logger.With().Str("component", "trace_replay").Logger()

	var st Stats
	rd := NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		s, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var lineErr *LineError
		if errors.As(err, &lineErr) {
			logger.Warn().Int("line", lineErr.Line).Err(lineErr.Err).Msg("Skipping malformed trace line")
			st.Skipped++
			continue
		}
		if err != nil {
			return st, err
		}

		name := s.Name
		if name == "" {
			name = string(s.Key().Kind)
		}
		if s.Occurrence {
			tr.RecordOccurrence(s.Key(), name)
			st.Occurrences++
			continue
		}
		tr.RecordSpan(s.Key(), name, s.Duration())
		st.Spans++
	}

	logger.Info().
		Int("spans", st.Spans).
		Int("occurrences", st.Occurrences).
		Int("skipped", st.Skipped).
		Msg("Trace replayed")
	return st, nil
}

// Write encodes spans as JSON lines.
func Write(w io.Writer, spans []Span) error {
	enc := json.NewEncoder(w)
	for _, s := range spans {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode span: %w", err)
		}
	}
	return nil
}

// Dump writes snap as a trace that replays into the same records: per key
// the same count, total, min and max. Individual durations are not kept by
// the tracker, so the spans in between are evenly spread. It returns the
// number of lines written.
func Dump(w io.Writer, snap tracker.Snapshot) (int, error) {
	n := 0
	for _, r := range snap.Records() {
		spans := recordSpans(r)
		if err := Write(w, spans); err != nil {
			return n, err
		}
		n += len(spans)
	}
	return n, nil
}

func recordSpans(r tracker.Stats) []Span {
	base := Span{File: r.File, Line: r.Line, Kind: string(r.Kind), Name: r.Name}
	timed := func(ns int64) Span {
		s := base
		s.DurationNs = &ns
		return s
	}
	occurrence := func() Span {
		s := base
		s.Occurrence = true
		return s
	}

	spans := make([]Span, 0, r.Count)
	if !r.HasTiming() {
		for range r.Count {
			spans = append(spans, occurrence())
		}
		return spans
	}

	spans = append(spans, timed(r.MaxNanos))
	rest := r.Count - 1
	remaining := r.TotalNanos - r.MaxNanos

	// Use as many timed spans as the remaining time allows at the minimum
	// duration; the slots left over were occurrences.
	minNs := max(r.MinNanos, 1)
	var j int64
	if remaining > 0 && rest > 0 {
		j = min(rest, max(remaining/minNs, 1))
	}
	switch {
	case j == 1:
		spans = append(spans, timed(remaining))
	case j > 1:
		spans = append(spans, timed(minNs))
		left := remaining - minNs
		each, extra := left/(j-1), left%(j-1)
		for i := range j - 1 {
			d := each
			if i < extra {
				d++
			}
			spans = append(spans, timed(d))
		}
	}
	for range rest - j {
		spans = append(spans, occurrence())
	}
	return spans
}
