package profile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/config"
	"github.com/coral-mesh/skprof/internal/errors"
	"github.com/coral-mesh/skprof/internal/profiler/report"
	"github.com/coral-mesh/skprof/internal/profiler/session"
	"github.com/coral-mesh/skprof/internal/profiler/trace"
)

var consoleHelp = []struct{ usage, text string }{
	{"start", "Start profiling"},
	{"stop", "Stop profiling"},
	{"report [detailed]", "Generate report"},
	{"reset", "Reset profiling data"},
	{"status", "Show profiler status"},
	{"replay <file>", "Record the spans of a trace file into the running session"},
	{"save", "Save the current report to the session history"},
	{"pprof <file>", "Write the current data as a pprof profile"},
	{"dump <file>", "Write the current data as a replayable trace"},
	{"help", "Show this help"},
	{"exit", "Leave the shell"},
}

// Console executes shell commands against one coordinator.
type Console struct {
	coord  *session.Coordinator
	cfg    *config.Config
	theme  report.Theme
	out    io.Writer
	logger zerolog.Logger
}

// NewConsole creates a console writing to out.
func NewConsole(coord *session.Coordinator, cfg *config.Config, theme report.Theme, out io.Writer, logger zerolog.Logger) *Console {
	if theme == nil {
		theme = report.PlainTheme{}
	}
	return &Console{coord: coord, cfg: cfg, theme: theme, out: out, logger: logger}
}

func (c *Console) say(style report.Style, format string, args ...any) {
	fmt.Fprintln(c.out, c.theme.Paint(style, fmt.Sprintf(format, args...)))
}

// Exec runs one command line. It returns true when the shell should exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "start":
		c.start(ctx)
	case "stop":
		c.stop()
	case "report":
		c.report(ctx, len(args) > 0 && strings.EqualFold(args[0], "detailed"))
	case "reset":
		c.reset()
	case "status":
		c.status()
	case "replay":
		c.replay(ctx, args)
	case "save":
		c.save(ctx)
	case "pprof":
		c.pprof(args)
	case "dump":
		c.dump(args)
	case "help", "?":
		c.help()
	case "exit", "quit":
		return true
	default:
		c.say(report.StyleHigh, "Unknown command. Type 'help' for help.")
	}
	return false
}

func (c *Console) start(ctx context.Context) {
	started, err := c.coord.Start(ctx)
	switch {
	case err != nil:
		c.say(report.StyleHigh, "Failed to start profiling: %v", err)
	case !started:
		c.say(report.StyleMedium, "Profiler is already running!")
	default:
		c.say(report.StyleFast, "Profiling started! Use 'report' to view results.")
		c.say(report.StyleRule, "Scripts loaded: %d", c.coord.Scripts().Len())
		for _, w := range c.coord.Warnings() {
			c.say(report.StyleMedium, "Skipped %s", w.String())
		}
	}
}

func (c *Console) stop() {
	if !c.coord.Stop() {
		c.say(report.StyleMedium, "Profiler is not running!")
		return
	}
	c.say(report.StyleFast, "Profiling stopped! Use 'report' to view results.")
}

func (c *Console) report(ctx context.Context, detailed bool) {
	c.say(report.StyleRule, "Generating performance report...")
	res := c.coord.Report(detailed)
	fmt.Fprintln(c.out, res.Text)

	if c.cfg.Storage.AutoSave && !res.Snapshot.Empty() {
		c.persist(ctx, res)
	}
}

func (c *Console) reset() {
	if !c.coord.Reset() {
		c.say(report.StyleMedium, "Stop profiling before resetting!")
		return
	}
	c.say(report.StyleFast, "Profiling data reset!")
}

func (c *Console) status() {
	st := c.coord.Status()

	c.say(report.StyleTitle, "=== Profiler Status ===")
	state := c.theme.Paint(report.StyleHot, "STOPPED")
	if st.Active {
		state = c.theme.Paint(report.StyleFast, "RUNNING")
	}
	fmt.Fprintf(c.out, "Status: %s\n", state)
	fmt.Fprintf(c.out, "Current Load: %.2f\n", st.Load)
	fmt.Fprintf(c.out, "Scripts Loaded: %d\n", st.ScriptsLoaded)
	fmt.Fprintf(c.out, "Records: %d\n", st.Records)
	if st.SessionID != "" {
		fmt.Fprintf(c.out, "Session: %s (%.2f seconds)\n", st.SessionID, st.Duration.Seconds())
	}

	if st.Active {
		c.say(report.StyleRule, "Use 'stop' to stop profiling")
	} else {
		c.say(report.StyleRule, "Use 'start' to begin profiling")
	}
}

func (c *Console) replay(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.say(report.StyleMedium, "Usage: replay <file>")
		return
	}
	if !c.coord.Active() {
		c.say(report.StyleMedium, "Profiler is not running! Use 'start' first.")
		return
	}

	f, err := os.Open(args[0]) // #nosec G304 -- trace path typed by the user.
	if err != nil {
		c.say(report.StyleHigh, "Failed to open trace: %v", err)
		return
	}
	defer errors.DeferClose(c.logger, f, "failed to close trace")

	st, err := trace.Replay(ctx, c.coord.Tracker(), f, c.logger)
	if err != nil {
		c.say(report.StyleHigh, "Replay failed: %v", err)
		return
	}
	c.say(report.StyleFast, "Replayed %d spans (%d occurrences, %d skipped)", st.Spans, st.Occurrences, st.Skipped)
}

func (c *Console) save(ctx context.Context) {
	res := c.coord.Report(false)
	if res.Snapshot.Empty() {
		c.say(report.StyleMedium, report.NoDataMessage)
		return
	}
	c.persist(ctx, res)
}

func (c *Console) persist(ctx context.Context, res session.Result) {
	id, err := save(ctx, c.cfg, res, c.logger)
	if err != nil {
		c.say(report.StyleHigh, "Failed to save session: %v", err)
		return
	}
	c.say(report.StyleFast, "Session saved: %s", id)
}

func (c *Console) pprof(args []string) {
	if len(args) != 1 {
		c.say(report.StyleMedium, "Usage: pprof <file>")
		return
	}
	res := c.coord.Report(false)
	if res.Snapshot.Empty() {
		c.say(report.StyleMedium, report.NoDataMessage)
		return
	}
	if err := writeProfile(args[0], res, c.logger); err != nil {
		c.say(report.StyleHigh, "Failed to write profile: %v", err)
		return
	}
	c.say(report.StyleFast, "Profile written to %s", args[0])
}

func (c *Console) dump(args []string) {
	if len(args) != 1 {
		c.say(report.StyleMedium, "Usage: dump <file>")
		return
	}
	snap := c.coord.Tracker().Snapshot()
	if snap.Empty() {
		c.say(report.StyleMedium, report.NoDataMessage)
		return
	}

	f, err := os.Create(args[0]) // #nosec G304 -- output path typed by the user.
	if err != nil {
		c.say(report.StyleHigh, "Failed to create trace: %v", err)
		return
	}
	n, err := trace.Dump(f, snap)
	if err == nil {
		err = f.Close()
	} else {
		errors.DeferClose(c.logger, f, "failed to close trace")
	}
	if err != nil {
		c.say(report.StyleHigh, "Failed to write trace: %v", err)
		return
	}
	c.say(report.StyleFast, "Dumped %d spans to %s", n, args[0])
}

func (c *Console) help() {
	c.say(report.StyleTitle, "=== skprof Commands ===")
	for _, h := range consoleHelp {
		fmt.Fprintf(c.out, "%s - %s\n", c.theme.Paint(report.StyleFile, h.usage), h.text)
	}
}
