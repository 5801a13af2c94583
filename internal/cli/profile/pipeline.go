// Package profile implements the profiling commands: offline analysis,
// trace replay and the interactive session shell.
package profile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/cli/helpers"
	"github.com/coral-mesh/skprof/internal/config"
	"github.com/coral-mesh/skprof/internal/errors"
	"github.com/coral-mesh/skprof/internal/profiler/detect"
	"github.com/coral-mesh/skprof/internal/profiler/export"
	"github.com/coral-mesh/skprof/internal/profiler/load"
	"github.com/coral-mesh/skprof/internal/profiler/report"
	"github.com/coral-mesh/skprof/internal/profiler/session"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/store"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
	"github.com/coral-mesh/skprof/internal/profiler/trace"
)

// scriptDir returns the directory argument or the configured default.
func scriptDir(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Scripts.Dir
}

// newSampler returns a load sampler when load awareness is enabled.
func newSampler(cfg *config.Config, logger zerolog.Logger) (*load.Sampler, error) {
	if !cfg.Profiling.LoadAware {
		return nil, nil
	}
	gauge, err := load.GaugeFor(cfg.Profiling.LoadSource)
	if err != nil {
		return nil, err
	}
	return load.NewSampler(cfg.Profiling.Sampler(), gauge, logger), nil
}

// newCoordinator wires a coordinator to the configured scripts and load.
func newCoordinator(cfg *config.Config, theme report.Theme, dir string, sampler *load.Sampler, logger zerolog.Logger) *session.Coordinator {
	opts := []session.Option{
		session.WithScriptSource(source.Dir{
			Loader: source.NewLoader(cfg.Scripts.Loader(), logger),
			Root:   dir,
		}),
	}
	if sampler != nil {
		opts = append(opts, session.WithLoadSource(sampler))
	}

	return session.New(session.Config{
		Thresholds:  cfg.Thresholds.Detect(),
		Report:      cfg.Reporting.Options(),
		Theme:       theme,
		MaxDuration: cfg.Profiling.MaxDuration,
		LoadAware:   cfg.Profiling.LoadAware,
	}, logger, opts...)
}

// reportJSON is the machine-readable form of a report.
type reportJSON struct {
	SessionID   string          `json:"session_id,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	DurationMs  int64           `json:"duration_ms"`
	Load        float64         `json:"load"`
	Scripts     int             `json:"scripts"`
	Records     []tracker.Stats `json:"records"`
	Issues      []detect.Issue  `json:"issues"`
	Replay      *trace.Stats    `json:"replay,omitempty"`
}

// render writes res in the requested report format.
func render(w io.Writer, res session.Result, format string, width int, replay *trace.Stats) error {
	switch helpers.OutputFormat(format) {
	case helpers.FormatText:
		_, err := fmt.Fprintln(w, res.Text)
		return err

	case helpers.FormatMarkdown:
		_, err := io.WriteString(w, res.Document.Markdown())
		return err

	case helpers.FormatPretty:
		out, err := res.Document.Pretty(helpers.TerminalWidth(w, width), !helpers.ColorEnabled(w))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err

	case helpers.FormatJSON:
		doc := reportJSON{
			SessionID:   res.SessionID,
			GeneratedAt: res.GeneratedAt,
			DurationMs:  res.Duration.Milliseconds(),
			Load:        res.Load,
			Scripts:     res.Scripts.Len(),
			Records:     res.Snapshot.Records(),
			Issues:      res.Issues,
			Replay:      replay,
		}
		if doc.Issues == nil {
			doc.Issues = []detect.Issue{}
		}
		return (&helpers.JSONFormatter{}).Format(doc, w)

	default:
		return helpers.ValidateFormat(format, helpers.ReportFormats)
	}
}

// save stores res in the session history.
func save(ctx context.Context, cfg *config.Config, res session.Result, logger zerolog.Logger) (string, error) {
	st, err := store.Open(ctx, cfg.Storage.Store(), logger)
	if err != nil {
		return "", fmt.Errorf("failed to open session store: %w", err)
	}
	defer errors.DeferClose(logger, st, "failed to close session store")
	return st.Save(ctx, res)
}

// writeProfile exports res to a pprof file.
func writeProfile(path string, res session.Result, logger zerolog.Logger) error {
	f, err := os.Create(path) // #nosec G304 -- output path chosen by the user.
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	if err := export.WritePprof(f, res.Snapshot, res.Duration); err != nil {
		errors.DeferClose(logger, f, "failed to close profile file")
		return err
	}
	return f.Close()
}

// resolveFormat validates the --format flag, falling back to the configured format.
func resolveFormat(flag string, cfg *config.Config) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		format = strings.ToLower(cfg.Reporting.Format)
	}
	if err := helpers.ValidateFormat(format, helpers.ReportFormats); err != nil {
		return "", err
	}
	return format, nil
}

// resolveTheme picks the --theme flag or the configured theme.
func resolveTheme(flag string, cfg *config.Config, w io.Writer) (report.Theme, error) {
	name := flag
	if name == "" {
		name = cfg.Reporting.Theme
	}
	return helpers.ResolveTheme(name, w)
}
