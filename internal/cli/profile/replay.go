package profile

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/skprof/internal/cli/helpers"
	"github.com/coral-mesh/skprof/internal/errors"
	"github.com/coral-mesh/skprof/internal/profiler/trace"
)

type replayOptions struct {
	tracePath string
	detailed  bool
	format    string
	theme     string
	save      bool
	pprof     string
}

// NewReplayCmd creates the trace replay command.
func NewReplayCmd() *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay [dir] --trace FILE",
		Short: "Profile a recorded span trace",
		Long: `Runs a full profiling session over a recorded trace: the scripts below
dir (default: scripts.dir) are analyzed, every span of the trace is
recorded, and the bottleneck report is printed.

A trace is a JSON-lines file with one span per line:

  {"file":"/srv/scripts/join.sk","line":12,"kind":"event","name":"on join","duration_ms":3.2}
  {"file":"/srv/scripts/join.sk","line":14,"kind":"loop","duration_ns":120000}
  {"file":"/srv/scripts/join.sk","line":20,"kind":"command","occurrence":true}

Span files must match the analyzed script paths, which are absolute.
Malformed lines are skipped with a warning. Use '-' to read stdin.

Examples:
  skprof replay ./scripts --trace spans.jsonl
  skprof replay ./scripts --trace spans.jsonl --detailed -o pretty
  skprof replay ./scripts --trace spans.jsonl --save --pprof skript.pb.gz`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tracePath, "trace", "t", "", "Span trace file (JSON lines, '-' for stdin)")
	cmd.Flags().BoolVarP(&opts.detailed, "detailed", "d", false, "Include the per-script breakdown")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the session to the history database")
	cmd.Flags().StringVar(&opts.pprof, "pprof", "", "Also write a pprof profile to this file")
	helpers.AddFormatFlag(cmd, &opts.format, "", helpers.ReportFormats)
	helpers.AddThemeFlag(cmd, &opts.theme)
	errors.Must(cmd.MarkFlagRequired("trace"), "failed to mark --trace required")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string, opts *replayOptions) error {
	env, err := helpers.Setup(cmd)
	if err != nil {
		return err
	}
	cfg, logger := env.Config, env.Logger
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	format, err := resolveFormat(opts.format, cfg)
	if err != nil {
		return err
	}
	theme, err := resolveTheme(opts.theme, cfg, out)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if opts.tracePath != "-" {
		f, err := os.Open(opts.tracePath) // #nosec G304 -- trace path chosen by the user.
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer errors.DeferClose(logger, f, "failed to close trace")
		in = f
	}

	sampler, err := newSampler(cfg, logger)
	if err != nil {
		return err
	}
	coord := newCoordinator(cfg, theme, scriptDir(cfg, args), sampler, logger)

	if _, err := coord.Start(ctx); err != nil {
		return err
	}
	stats, err := trace.Replay(ctx, coord.Tracker(), in, logger)
	coord.Stop()
	if err != nil {
		return fmt.Errorf("failed to replay trace: %w", err)
	}

	if sampler != nil {
		if _, err := sampler.Sample(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to sample host load")
		}
	}

	res := coord.Report(opts.detailed)
	if err := render(out, res, format, cfg.Reporting.Width, &stats); err != nil {
		return err
	}

	if opts.pprof != "" {
		if err := writeProfile(opts.pprof, res, logger); err != nil {
			return err
		}
		logger.Info().Str("path", opts.pprof).Msg("Profile written")
	}

	if opts.save || cfg.Storage.AutoSave {
		id, err := save(ctx, cfg, res, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Session saved: %s\n", id)
	}
	return nil
}
