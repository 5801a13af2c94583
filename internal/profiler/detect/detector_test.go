package detect

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

const ms = int64(time.Millisecond)

func stats(file string, line int, kind tracker.ElementKind, count int64, durations ...int64) tracker.Stats {
	s := tracker.Stats{Key: tracker.NewKey(file, line, kind), Name: "el", Count: count}
	for _, d := range durations {
		s.TotalNanos += d
		s.MaxNanos = max(s.MaxNanos, d)
		if s.MinNanos == 0 || d < s.MinNanos {
			s.MinNanos = d
		}
	}
	return s
}

func snapshot(records ...tracker.Stats) tracker.Snapshot {
	return tracker.NewSnapshot(time.Time{}, records)
}

func scripts(t *testing.T, files ...source.File) *source.Set {
	t.Helper()
	set, warnings := source.NewAnalyzer(zerolog.Nop()).Analyze(files)
	require.Empty(t, warnings)
	return set
}

func detect(snap tracker.Snapshot, set *source.Set, th Thresholds, opts ...Option) []Issue {
	return NewDetector(zerolog.Nop()).Detect(snap, set, th, opts...)
}

func kindsAndSeverities(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Kind.String()+"/"+i.Severity.String())
	}
	return out
}

func TestDetect_SlowExecution(t *testing.T) {
	th := Thresholds{SlowMs: 50, VerySlowMs: 200, HighFrequencyCount: 1000, HighFrequencyTotalMs: 1000}

	tests := []struct {
		name   string
		record tracker.Stats
		want   []string
	}{
		{"avg and max 60ms is high only", stats("a.sk", 1, tracker.KindEvent, 1, 60*ms), []string{"slow-event/high"}},
		{"max at very slow threshold", stats("a.sk", 1, tracker.KindEvent, 2, 200*ms, 0), []string{"slow-event/critical"}},
		{"max wins over avg", stats("a.sk", 1, tracker.KindEvent, 1, 300*ms), []string{"slow-event/critical"}},
		{"fast", stats("a.sk", 1, tracker.KindEvent, 10, 10*ms, 10*ms), nil},
		{"avg exactly slow", stats("a.sk", 1, tracker.KindEvent, 1, 50*ms), []string{"slow-event/high"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := detect(snapshot(tt.record), nil, th)
			if tt.want == nil {
				assert.Empty(t, issues)
				return
			}
			assert.Equal(t, tt.want, kindsAndSeverities(issues))
		})
	}
}

func TestDetect_SlowExecutionText(t *testing.T) {
	issues := detect(snapshot(stats("/s/a.sk", 4, tracker.KindEvent, 2, 100*ms, 300*ms)), nil, DefaultThresholds())
	require.Len(t, issues, 1)
	assert.Equal(t, "Very slow execution detected: 200.00ms average, 300.00ms max", issues[0].Description)
	assert.Equal(t, "/s/a.sk:4", issues[0].Location())
	require.NotNil(t, issues[0].Record)
	assert.Equal(t, int64(2), issues[0].Record.Count)
}

func TestDetect_HighFrequency(t *testing.T) {
	th := DefaultThresholds()

	t.Run("medium below total", func(t *testing.T) {
		r := stats("a.sk", 1, tracker.KindEvent, 1001, 500*ms)
		issues := detect(snapshot(r), nil, th)
		assert.Equal(t, []string{"high-frequency/medium"}, kindsAndSeverities(issues))
		assert.Equal(t, "High execution frequency: 1001 times (500.00ms total)", issues[0].Description)
	})

	t.Run("high above total", func(t *testing.T) {
		r := stats("a.sk", 1, tracker.KindEvent, 1001, 1001*ms)
		issues := detect(snapshot(r), nil, th)
		assert.Equal(t, []string{"high-frequency/high"}, kindsAndSeverities(issues))
	})

	t.Run("count must exceed", func(t *testing.T) {
		r := stats("a.sk", 1, tracker.KindEvent, 1000, 5000*ms)
		assert.Empty(t, detect(snapshot(r), nil, th))
	})

	t.Run("injected threshold", func(t *testing.T) {
		custom := th
		custom.HighFrequencyCount = 5
		r := stats("a.sk", 1, tracker.KindEvent, 6, ms)
		assert.Equal(t, []string{"high-frequency/medium"}, kindsAndSeverities(detect(snapshot(r), nil, custom)))
	})
}

func TestDetect_InefficientLoop(t *testing.T) {
	set := scripts(t, source.File{Path: "/s/a.sk", Lines: []string{
		"on join:",
		"\tloop all players:",
		"\t\tsend \"x\"",
		"\tloop 5 times:",
	}})
	th := DefaultThresholds()
	th.HighFrequencyCount = math.MaxInt64

	snap := snapshot(
		stats("/s/a.sk", 2, tracker.KindLoop, 1001, ms),
		stats("/s/a.sk", 4, tracker.KindLoop, 1000, ms),
		stats("/s/b.sk", 2, tracker.KindLoop, 5000, ms),
	)
	issues := detect(snap, set, th)
	require.Equal(t, []string{"inefficient-loop/medium"}, kindsAndSeverities(issues))
	assert.Equal(t, 2, issues[0].Line)
	assert.Equal(t, "Loop with high iteration count detected", issues[0].Description)
	assert.Equal(t, int64(1001), issues[0].Record.Count)
}

func TestDetect_LoopNeedsExactPath(t *testing.T) {
	set := scripts(t, source.File{Path: "/s/a.sk", Lines: []string{"loop 5 times:"}})
	snap := snapshot(stats("a.sk", 1, tracker.KindLoop, 5000, ms))

	th := DefaultThresholds()
	th.HighFrequencyCount = math.MaxInt64
	assert.Empty(t, detect(snap, set, th))
}

func TestDetect_LongWait(t *testing.T) {
	set := scripts(t, source.File{Path: "/s/w.sk", Lines: []string{
		"wait 2 minutes",
		"wait 50 ticks",
		"wait 6 seconds",
		"wait 5 seconds",
	}})
	th := DefaultThresholds()
	th.WaitTicks = 100

	issues := detect(snapshot(), set, th)
	require.Equal(t, []string{"long-wait/low", "long-wait/low"}, kindsAndSeverities(issues))
	assert.Equal(t, 1, issues[0].Line)
	assert.Equal(t, "Long wait statement: 2 minute", issues[0].Description)
	assert.Equal(t, 3, issues[1].Line)
	assert.Nil(t, issues[0].Record)
}

func TestWaitTicks(t *testing.T) {
	tests := []struct {
		amount int64
		unit   string
		want   int64
		ok     bool
	}{
		{2, "minute", 2400, true},
		{50, "tick", 50, true},
		{3, "SECOND", 60, true},
		{3, "seconds", 60, true},
		{1, "hour", 0, false},
		{math.MaxInt64 / 2, "minute", math.MaxInt64, true},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			got, ok := WaitTicks(tt.amount, tt.unit)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_ExcessiveVariables(t *testing.T) {
	th := DefaultThresholds()
	th.VariableAccesses = 2

	set := scripts(t,
		source.File{Path: "/s/a.sk", Lines: []string{"", "set {a} to {b}", "add {c} to {d}"}},
		source.File{Path: "/s/b.sk", Lines: []string{"set {a} to {b}"}},
	)
	issues := detect(snapshot(), set, th)
	require.Equal(t, []string{"excessive-variables/medium"}, kindsAndSeverities(issues))
	assert.Equal(t, "/s/a.sk", issues[0].File)
	assert.Equal(t, 1, issues[0].Line, "file level finding at line 1")
	assert.Equal(t, "Excessive variable access: 4 occurrences", issues[0].Description)
}

func TestDetect_LoadImpact(t *testing.T) {
	th := DefaultThresholds()
	snap := snapshot(
		stats("/s/a.sk", 1, tracker.KindEvent, 1, 5*ms),
		stats("/s/b.sk", 1, tracker.KindEvent, 1, 9*ms),
		stats("/s/c.sk", 1, tracker.KindEvent, 1, 9*ms),
	)

	assert.Empty(t, detect(snap, nil, th), "no load supplied")
	assert.Empty(t, detect(snap, nil, th, WithLoad(th.LoadCeiling)))
	assert.Empty(t, detect(snapshot(), nil, th, WithLoad(99)))

	disabled := th
	disabled.LoadCeiling = 0
	assert.Empty(t, detect(snap, nil, disabled, WithLoad(99)))

	issues := detect(snap, nil, th, WithLoad(97.5))
	require.Equal(t, []string{"load-impact/high"}, kindsAndSeverities(issues))
	assert.Equal(t, "/s/b.sk", issues[0].File, "first heaviest record in key order")
}

func TestDetect_OrderingAndDeterminism(t *testing.T) {
	set := scripts(t, source.File{Path: "/s/a.sk", Lines: []string{
		"on join:",
		"\tloop all players:",
		"\twait 10 seconds",
		"\tset {x} to {y}",
	}})
	th := DefaultThresholds()
	th.VariableAccesses = 1

	snap := snapshot(
		stats("/s/a.sk", 1, tracker.KindEvent, 2, 60*ms, 60*ms),
		stats("/s/a.sk", 2, tracker.KindLoop, 1500, 250*ms, 10*ms),
		stats("/s/b.sk", 9, tracker.KindFunction, 1, 70*ms),
	)

	first := detect(snap, set, th)
	assert.Equal(t, []string{
		"slow-event/critical",
		"slow-event/high",
		"slow-event/high",
		"high-frequency/medium",
		"inefficient-loop/medium",
		"excessive-variables/medium",
		"long-wait/low",
	}, kindsAndSeverities(first))

	// critical first, then highs in discovery order: a.sk:1, b.sk:9
	assert.Equal(t, 2, first[0].Line)
	assert.Equal(t, 1, first[1].Line)
	assert.Equal(t, 9, first[2].Line)

	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Severity, first[i].Severity)
	}

	want, err := json.Marshal(first)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := json.Marshal(detect(snap, set, th))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestDetect_Empty(t *testing.T) {
	assert.Empty(t, detect(snapshot(), nil, DefaultThresholds()))
}
