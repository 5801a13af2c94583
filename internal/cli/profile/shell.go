package profile

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/skprof/internal/cli/helpers"
)

const shellPrompt = "skprof> "

// NewShellCmd creates the interactive profiling shell.
func NewShellCmd() *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "shell [dir]",
		Short: "Open an interactive profiling console",
		Long: `Opens a console driving one profiling session over the scripts below
dir (default: scripts.dir).

Commands:
  start              - Start profiling (reloads the scripts)
  stop               - Stop profiling
  report [detailed]  - Generate report
  reset              - Reset profiling data (refused while running)
  status             - Show profiler status
  replay <file>      - Record a span trace into the running session
  save               - Save the current report to the session history
  pprof <file>       - Write the current data as a pprof profile
  help               - Show help
  exit               - Exit shell (or Ctrl+D)

With profiling.load_aware set, host load is sampled in the background
and fed to the bottleneck detector.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			th, err := resolveTheme(theme, env.Config, out)
			if err != nil {
				return err
			}
			sampler, err := newSampler(env.Config, env.Logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if sampler != nil {
				go func() {
					if err := sampler.Start(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
						env.Logger.Warn().Err(err).Msg("Load sampler stopped")
					}
				}()
			}

			coord := newCoordinator(env.Config, th, scriptDir(env.Config, args), sampler, env.Logger)
			console := NewConsole(coord, env.Config, th, out, env.Logger)
			defer coord.Stop()

			return runShell(ctx, console, env.Loader.HistoryPath(), cmd.InOrStdin(), out)
		},
	}

	helpers.AddThemeFlag(cmd, &theme)
	return cmd
}

func runShell(ctx context.Context, console *Console, historyFile string, in io.Reader, out io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(historyFile), 0o700); err != nil {
		historyFile = ""
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           io.NopCloser(in),
		Stdout:          out,
		AutoComplete:    shellCompleter(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintln(out, "skprof interactive shell. Type 'help' for commands, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if stderrors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		if console.Exec(ctx, strings.TrimSpace(line)) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("start"),
		readline.PcItem("stop"),
		readline.PcItem("report", readline.PcItem("detailed")),
		readline.PcItem("reset"),
		readline.PcItem("status"),
		readline.PcItem("replay"),
		readline.PcItem("save"),
		readline.PcItem("pprof"),
		readline.PcItem("dump"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}
