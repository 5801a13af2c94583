// Package session sequences a profiling session: start, track, stop,
// analyze and report.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/constants"
	"github.com/coral-mesh/skprof/internal/profiler/detect"
	"github.com/coral-mesh/skprof/internal/profiler/report"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

// ScriptSource supplies the scripts analyzed when a session starts, with a
// warning for every file it had to skip.
type ScriptSource interface {
	Load(ctx context.Context) ([]source.File, []source.Warning, error)
}

// LoadSource supplies the current host load.
type LoadSource interface {
	Current() float64
}

type defaultLoad struct{}

func (defaultLoad) Current() float64 { return constants.DefaultLoad }

// Config configures a Coordinator.
type Config struct {
	Thresholds detect.Thresholds
	Report     report.Options
	// Theme renders Result.Text. Nil means report.PlainTheme.
	Theme report.Theme
	// MaxDuration stops a session automatically. Zero disables it.
	MaxDuration time.Duration
	// LoadAware feeds the current load to the detector.
	LoadAware bool
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds: detect.DefaultThresholds(),
		Report:     report.DefaultOptions(),
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTracker replaces the tracker, mainly to inject a clock in tests.
func WithTracker(t *tracker.Tracker) Option {
	return func(c *Coordinator) {
		c.tracker = t
	}
}

// WithScriptSource sets where scripts are loaded from on Start.
func WithScriptSource(s ScriptSource) Option {
	return func(c *Coordinator) {
		c.scriptSource = s
	}
}

// WithLoadSource sets the host load source.
func WithLoadSource(l LoadSource) Option {
	return func(c *Coordinator) {
		c.loadSource = l
	}
}

// Result is the outcome of Report.
type Result struct {
	SessionID   string
	GeneratedAt time.Time
	Duration    time.Duration
	Load        float64
	Text        string
	Document    report.Document
	Snapshot    tracker.Snapshot
	Issues      []detect.Issue
	Scripts     *source.Set
}

// Status is a summary of the coordinator state.
type Status struct {
	Active        bool          `json:"active"`
	SessionID     string        `json:"session_id,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Load          float64       `json:"load"`
	ScriptsLoaded int           `json:"scripts_loaded"`
	Records       int           `json:"records"`
	Issues        int           `json:"issues"`
}

// Coordinator owns one profiling session at a time. All lifecycle and
// analysis calls are serialised; recording goes straight to Tracker().
type Coordinator struct {
	cfg    Config
	logger zerolog.Logger

	tracker      *tracker.Tracker
	analyzer     *source.Analyzer
	detector     *detect.Detector
	scriptSource ScriptSource
	loadSource   LoadSource

	mu        sync.Mutex
	scripts   *source.Set
	warnings  []source.Warning
	issues    []detect.Issue
	sessionID string
	autoStop  *time.Timer
}

// New creates a coordinator with no active session.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Coordinator {
	if cfg.Theme == nil {
		cfg.Theme = report.PlainTheme{}
	}
	c := &Coordinator{
		cfg:      cfg,
		logger:   logger.With().Str("component", "session").Logger(),
		analyzer: source.NewAnalyzer(logger),
		detector: detect.NewDetector(logger),
		scripts:  source.NewSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracker == nil {
		c.tracker = tracker.New(tracker.WithLogger(logger))
	}
	if c.loadSource == nil {
		c.loadSource = defaultLoad{}
	}
	return c
}

// Tracker returns the recording entry point.
func (c *Coordinator) Tracker() *tracker.Tracker {
	return c.tracker
}

// Active reports whether a session is running.
func (c *Coordinator) Active() bool {
	return c.tracker.Active()
}

// Start begins a new session. It returns false when one is already running.
// Scripts are reloaded from the script source; a load failure is logged and
// the session starts without script facts. An error is returned only when
// ctx is already done.
func (c *Coordinator) Start(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tracker.Active() {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.logger.Info().Msg("Starting profiling session")

	var (
		files    []source.File
		warnings []source.Warning
	)
	if c.scriptSource != nil {
		loaded, skipped, err := c.scriptSource.Load(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to load scripts, starting without script analysis")
		} else {
			files, warnings = loaded, skipped
		}
	}
	set, analyzeWarnings := c.analyzer.Analyze(files)
	c.scripts = set
	c.warnings = append(warnings, analyzeWarnings...)
	c.issues = nil
	if len(c.warnings) > 0 {
		c.logger.Warn().Int("warnings", len(c.warnings)).Msg("Some scripts were skipped")
	}

	c.tracker.Reset()
	c.tracker.Start()
	id := uuid.NewString()
	c.sessionID = id

	if c.cfg.MaxDuration > 0 {
		c.autoStop = time.AfterFunc(c.cfg.MaxDuration, func() {
			c.stopSession(id, "max duration reached")
		})
	}

	c.logger.Info().
		Str("session_id", id).
		Int("scripts", c.scripts.Len()).
		Dur("max_duration", c.cfg.MaxDuration).
		Msg("Profiling session started")
	return true, nil
}

// Stop ends the running session. It returns false when none is running.
func (c *Coordinator) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked("stopped")
}

func (c *Coordinator) stopSession(id, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != id {
		return
	}
	c.stopLocked(reason)
}

func (c *Coordinator) stopLocked(reason string) bool {
	if !c.tracker.Stop() {
		return false
	}
	if c.autoStop != nil {
		c.autoStop.Stop()
		c.autoStop = nil
	}
	c.logger.Info().
		Str("session_id", c.sessionID).
		Str("reason", reason).
		Dur("duration", c.tracker.SessionDuration()).
		Msg("Profiling session stopped")
	return true
}

// Analyze runs the detector over the current snapshot and keeps the result.
func (c *Coordinator) Analyze() []detect.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.analyzeLocked(c.tracker.Snapshot()))
}

func (c *Coordinator) analyzeLocked(snap tracker.Snapshot) []detect.Issue {
	var opts []detect.Option
	if c.cfg.LoadAware {
		opts = append(opts, detect.WithLoad(c.loadSource.Current()))
	}
	c.issues = c.detector.Detect(snap, c.scripts, c.cfg.Thresholds, opts...)
	return c.issues
}

// Report analyzes the current snapshot and renders it. Without any recorded
// data the text is report.NoDataMessage and no analysis runs.
func (c *Coordinator) Report(detailed bool) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.tracker.Snapshot()
	res := Result{
		SessionID:   c.sessionID,
		GeneratedAt: snap.TakenAt(),
		Duration:    c.tracker.SessionDuration(),
		Load:        c.loadSource.Current(),
		Snapshot:    snap,
		Scripts:     c.scripts,
	}
	if snap.Empty() {
		res.Document = report.Document{Empty: true}
		res.Text = report.NoDataMessage
		return res
	}

	res.Issues = slices.Clone(c.analyzeLocked(snap))
	res.Document = report.Build(report.Input{
		Snapshot: snap,
		Issues:   res.Issues,
		Scripts:  c.scripts,
		Duration: res.Duration,
		Load:     res.Load,
		Detailed: detailed,
	}, c.cfg.Report)
	res.Text = res.Document.Text(c.cfg.Theme)

	c.logger.Debug().
		Int("records", snap.Len()).
		Int("issues", len(res.Issues)).
		Bool("detailed", detailed).
		Msg("Report generated")
	return res
}

// Reset clears recorded data, issues and scripts. It is refused while a
// session is running.
func (c *Coordinator) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tracker.Reset() {
		return false
	}
	c.issues = nil
	c.scripts = source.NewSet()
	c.warnings = nil
	c.sessionID = ""
	c.logger.Info().Msg("Profiling data reset")
	return true
}

// SetScripts replaces the script facts with an analysis of files.
func (c *Coordinator) SetScripts(files []source.File) []source.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, warnings := c.analyzer.Analyze(files)
	c.scripts = set
	c.warnings = warnings
	return slices.Clone(warnings)
}

// Warnings returns the problems found loading and analyzing the current
// scripts.
func (c *Coordinator) Warnings() []source.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.warnings)
}

// Scripts returns the current script facts.
func (c *Coordinator) Scripts() *source.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scripts
}

// Issues returns the result of the last analysis.
func (c *Coordinator) Issues() []detect.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.issues)
}

// SessionID returns the id of the current or last session.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Status summarises the coordinator state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Active:        c.tracker.Active(),
		SessionID:     c.sessionID,
		StartedAt:     c.tracker.StartedAt(),
		Duration:      c.tracker.SessionDuration(),
		Load:          c.loadSource.Current(),
		ScriptsLoaded: c.scripts.Len(),
		Records:       c.tracker.Len(),
		Issues:        len(c.issues),
	}
}
