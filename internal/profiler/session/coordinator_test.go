package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/skprof/internal/profiler/detect"
	"github.com/coral-mesh/skprof/internal/profiler/load"
	"github.com/coral-mesh/skprof/internal/profiler/report"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

type staticScripts []source.File

func (s staticScripts) Load(context.Context) ([]source.File, []source.Warning, error) {
	return s, nil, nil
}

type failingScripts struct{}

func (failingScripts) Load(context.Context) ([]source.File, []source.Warning, error) {
	return nil, nil, errors.New("disk on fire")
}

func TestCoordinator_Lifecycle(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	assert.False(t, c.Stop(), "stop without session")

	started, err := c.Start(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	id := c.SessionID()
	assert.NotEmpty(t, id)

	started, err = c.Start(ctx)
	require.NoError(t, err)
	assert.False(t, started, "already active")
	assert.Equal(t, id, c.SessionID())

	assert.False(t, c.Reset(), "reset refused while active")
	assert.True(t, c.Stop())
	assert.False(t, c.Stop())
	assert.True(t, c.Reset())
	assert.Empty(t, c.SessionID())

	started, err = c.Start(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.NotEqual(t, id, c.SessionID())
}

func TestCoordinator_StartCancelledContext(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started, err := c.Start(ctx)
	assert.False(t, started)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Active())
}

func TestCoordinator_ScriptLoadFailureStillStarts(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop(), WithScriptSource(failingScripts{}))

	started, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, started)
	assert.Zero(t, c.Scripts().Len())
}

func TestCoordinator_NoData(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	res := c.Report(true)
	assert.Equal(t, report.NoDataMessage, res.Text)
	assert.True(t, res.Document.Empty)
	assert.Empty(t, res.Issues)

	_, _ = c.Start(context.Background())
	assert.Equal(t, report.NoDataMessage, c.Report(false).Text)
}

func TestCoordinator_StartClearsPreviousSession(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	key := tracker.NewKey("/a.sk", 1, tracker.KindEvent)

	_, _ = c.Start(context.Background())
	c.Tracker().RecordSpan(key, "x", 1)
	c.Stop()
	require.Equal(t, 1, c.Status().Records)

	_, _ = c.Start(context.Background())
	assert.Zero(t, c.Status().Records)
}

func TestCoordinator_AutoStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDuration = 20 * time.Millisecond
	c := New(cfg, zerolog.Nop())

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !c.Active() }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, c.Stop())
}

func TestCoordinator_AutoStopIgnoresLaterSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDuration = 30 * time.Millisecond
	c := New(cfg, zerolog.Nop())

	_, _ = c.Start(context.Background())
	c.Stop()

	c.cfg.MaxDuration = 0
	_, _ = c.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	assert.True(t, c.Active())
}

func TestCoordinator_StatusAndLoad(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop(),
		WithLoadSource(load.Static(17.5)),
		WithScriptSource(staticScripts{{Path: "/a.sk", Lines: []string{"on join:"}}}),
	)
	_, _ = c.Start(context.Background())
	c.Tracker().RecordSpan(tracker.NewKey("/a.sk", 1, tracker.KindEvent), "on join", int64(time.Millisecond))

	st := c.Status()
	assert.True(t, st.Active)
	assert.Equal(t, 17.5, st.Load)
	assert.Equal(t, 1, st.ScriptsLoaded)
	assert.Equal(t, 1, st.Records)

	res := c.Report(false)
	assert.Equal(t, 17.5, res.Load)
	assert.Contains(t, res.Text, "Current Load: 17.50")
}

func TestCoordinator_DefaultLoadWhenSamplingFails(t *testing.T) {
	sampler := load.NewSampler(load.DefaultConfig(), func(context.Context) (float64, error) {
		return 0, errors.New("no procfs")
	}, zerolog.Nop())
	_, _ = sampler.Sample(context.Background())

	c := New(DefaultConfig(), zerolog.Nop(), WithLoadSource(sampler))
	_, _ = c.Start(context.Background())
	c.Tracker().RecordSpan(tracker.NewKey("/a.sk", 1, tracker.KindEvent), "x", 1)

	res := c.Report(false)
	assert.Equal(t, 0.0, res.Load)
	assert.Contains(t, res.Text, "Current Load: 0.00")
}

func TestCoordinator_LoadAware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoadAware = true
	c := New(cfg, zerolog.Nop(), WithLoadSource(load.Static(99)))
	_, _ = c.Start(context.Background())
	c.Tracker().RecordSpan(tracker.NewKey("/a.sk", 1, tracker.KindEvent), "x", int64(time.Millisecond))

	issues := c.Analyze()
	require.Len(t, issues, 1)
	assert.Equal(t, detect.KindLoadImpact, issues[0].Kind)
	assert.Equal(t, issues, c.Issues())
}

func TestCoordinator_SetScripts(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	warnings := c.SetScripts([]source.File{{Path: "/a.sk"}, {Path: "/a.sk"}})
	assert.Len(t, warnings, 1)
	assert.Equal(t, 1, c.Scripts().Len())
	assert.Equal(t, warnings, c.Warnings())
}

type skippingScripts struct{}

func (skippingScripts) Load(context.Context) ([]source.File, []source.Warning, error) {
	return []source.File{
			{Path: "/a.sk", Lines: []string{"on join:"}},
			{Path: "/a.sk", Lines: []string{"on quit:"}},
		},
		[]source.Warning{{Path: "/big.sk", Message: "file too large"}},
		nil
}

func TestCoordinator_StartKeepsWarnings(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop(), WithScriptSource(skippingScripts{}))

	started, err := c.Start(context.Background())
	require.NoError(t, err)
	require.True(t, started)

	warnings := c.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "/big.sk", warnings[0].Path)
	assert.Equal(t, "/a.sk", warnings[1].Path)
	assert.Equal(t, "duplicate script path in batch", warnings[1].Message)

	c.Stop()
	require.True(t, c.Reset())
	assert.Empty(t, c.Warnings())
}

func TestCoordinator_EndToEnd(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "arena.sk")
	require.NoError(t, os.WriteFile(script, []byte(
		"on player join:\n"+
			"\tloop {arena::players::*}: set {_hp} to {stats::%loop-value%}\n"+
			"\twait 150 seconds\n"), 0o600))

	loader := source.NewLoader(source.LoaderConfig{}, zerolog.Nop())
	c := New(DefaultConfig(), zerolog.Nop(), WithScriptSource(source.Dir{Loader: loader, Root: root}))

	started, err := c.Start(context.Background())
	require.NoError(t, err)
	require.True(t, started)

	sc, ok := c.Scripts().Get(script)
	require.True(t, ok)
	require.Equal(t, []int{2}, sc.LoopLines)
	require.Equal(t, 3, sc.Variables)

	tr := c.Tracker()
	key := tracker.NewKey(script, 2, tracker.KindLoop)
	for i := 0; i < 1199; i++ {
		tr.RecordDuration(key, "loop", 10*time.Millisecond)
	}
	tr.RecordDuration(key, "loop", 250*time.Millisecond)
	require.True(t, c.Stop())

	res := c.Report(true)
	require.Len(t, res.Issues, 4)

	type found struct {
		kind detect.Kind
		sev  detect.Severity
		line int
	}
	var got []found
	for _, i := range res.Issues {
		got = append(got, found{i.Kind, i.Severity, i.Line})
	}
	assert.Equal(t, []found{
		{detect.KindSlowEvent, detect.SeverityCritical, 2},
		{detect.KindHighFrequency, detect.SeverityHigh, 2},
		{detect.KindInefficientLoop, detect.SeverityMedium, 2},
		{detect.KindLongWait, detect.SeverityLow, 3},
	}, got)

	assert.Equal(t, "High execution frequency: 1200 times (12240.00ms total)", res.Issues[1].Description)
	assert.Equal(t, "Very slow execution detected: 10.20ms average, 250.00ms max", res.Issues[0].Description)
	assert.Equal(t, int64(1200), res.Issues[2].Record.Count)

	assert.Contains(t, res.Text, "  1. arena.sk:2 - loop\n     Avg: 10.20ms | Max: 250.00ms | Count: 1200\n")
	assert.Contains(t, res.Text, "Detailed Breakdown by Script:")
	assert.Contains(t, res.Text, "  • Review loops for unnecessary iterations or complex operations\n")
	assert.Equal(t, 4, c.Status().Issues)
}
