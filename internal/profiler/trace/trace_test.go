package trace

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

const sample = `# recorded on test server
{"file":"/s/a.sk","line":3,"kind":"event","name":"on join","duration_ns":2000000}

{"file":"/s/a.sk","line":3,"kind":"EVENT","name":"on join","duration_ms":4}
{"file":"/s/a.sk","line":7,"kind":"loop","occurrence":true}
{"file":"/s/b.sk","line":1,"duration_ms":1.5}
not json
{"file":"","line":1,"duration_ns":1}
{"file":"/s/a.sk","line":0,"duration_ns":1}
{"file":"/s/a.sk","line":2}
{"file":"/s/a.sk","line":2,"duration_ns":1,"duration_ms":1}
`

func findRecord(s tracker.Snapshot, k tracker.Key) (tracker.Stats, bool) {
	for _, r := range s.Records() {
		if r.Key == k {
			return r, true
		}
	}
	return tracker.Stats{}, false
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(sample))

	s, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, tracker.NewKey("/s/a.sk", 3, tracker.KindEvent), s.Key())
	assert.Equal(t, int64(2_000_000), s.Duration())

	s, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000), s.Duration())

	s, err = r.Next()
	require.NoError(t, err)
	assert.True(t, s.Occurrence)

	s, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, tracker.KindEvent, s.Key().Kind, "kind defaults to event")
	assert.Equal(t, int64(1_500_000), s.Duration())

	var badLines []int
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var le *LineError
		require.ErrorAs(t, err, &le)
		badLines = append(badLines, le.Line)
	}
	assert.Equal(t, []int{7, 8, 9, 10, 11}, badLines)
}

func TestReplay(t *testing.T) {
	tr := tracker.New()
	tr.Start()

	st, err := Replay(context.Background(), tr, strings.NewReader(sample), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Spans: 3, Occurrences: 1, Skipped: 5}, st)

	snap := tr.Snapshot()
	join, ok := findRecord(snap, tracker.NewKey("/s/a.sk", 3, tracker.KindEvent))
	require.True(t, ok)
	assert.Equal(t, int64(2), join.Count)
	assert.InDelta(t, 3.0, join.AvgMillis(), 1e-9)

	loop, ok := findRecord(snap, tracker.NewKey("/s/a.sk", 7, tracker.KindLoop))
	require.True(t, ok)
	assert.Equal(t, "loop", loop.Name)
	assert.Equal(t, int64(1), loop.Count)
	assert.Zero(t, loop.TotalNanos)
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, tracker.New(), strings.NewReader(sample), zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	ns := int64(5 * time.Millisecond)
	spans := []Span{
		{File: "/s/a.sk", Line: 1, Kind: "event", Name: "on join", DurationNs: &ns},
		{File: "/s/a.sk", Line: 2, Kind: "loop", Occurrence: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, spans))
	assert.Equal(t,
		`{"file":"/s/a.sk","line":1,"kind":"event","name":"on join","duration_ns":5000000}`+"\n"+
			`{"file":"/s/a.sk","line":2,"kind":"loop","occurrence":true}`+"\n",
		buf.String())

	r := NewReader(&buf)
	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, ns, first.Duration())
}

func TestDump_ReplaysToSameRecords(t *testing.T) {
	const ms = int64(time.Millisecond)
	tr := tracker.New()
	tr.Start()

	loop := tracker.NewKey("/s/a.sk", 2, tracker.KindLoop)
	for _, d := range []int64{10 * ms, 10 * ms, 2 * ms} {
		tr.RecordSpan(loop, "loop", d)
	}
	tr.RecordOccurrence(loop, "loop")

	event := tracker.NewKey("/s/a.sk", 1, tracker.KindEvent)
	for _, d := range []int64{3 * ms, 4 * ms, 5 * ms, 6*ms + 1, 7 * ms} {
		tr.RecordSpan(event, "on join", d)
	}

	cmd := tracker.NewKey("/s/b.sk", 4, tracker.KindCommand)
	tr.RecordOccurrence(cmd, "spawn")
	tr.RecordOccurrence(cmd, "spawn")

	single := tracker.NewKey("/s/b.sk", 9, tracker.KindFunction)
	tr.RecordSpan(single, "greet", 5*ms)
	tr.Stop()

	var buf bytes.Buffer
	n, err := Dump(&buf, tr.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	replayed := tracker.New()
	replayed.Start()
	st, err := Replay(context.Background(), replayed, &buf, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Spans: 10, Occurrences: 2}, st)

	assert.Equal(t, tr.Snapshot().Records(), replayed.Snapshot().Records())
}

func TestDump_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := Dump(&buf, tracker.NewSnapshot(time.Time{}, nil))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.String())
}
