// Package cli assembles the skprof command tree.
package cli

import (
	"github.com/spf13/cobra"

	configcmd "github.com/coral-mesh/skprof/internal/cli/config"
	"github.com/coral-mesh/skprof/internal/cli/helpers"
	"github.com/coral-mesh/skprof/internal/cli/history"
	"github.com/coral-mesh/skprof/internal/cli/profile"
	"github.com/coral-mesh/skprof/pkg/version"
)

// NewRootCmd builds the skprof command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skprof",
		Short: "skprof - script execution profiler",
		Long: `Find the slow parts of your scripts.

skprof aggregates timing spans recorded by a script engine, combines them
with a static scan of the script sources and reports bottlenecks: slow
events, hot elements, inefficient loops, long waits and excessive variable
access.

Workflows:
- analyze: static scan of a script directory, no runtime data needed
- replay:  full report from a recorded span trace
- shell:   interactive session (start, stop, report, reset, status)
- history: browse sessions saved in the local database`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String(helpers.FlagConfig, "", "Config file (default ~/.skprof/config.yaml)")
	root.PersistentFlags().String(helpers.FlagLogLevel, "", "Log level (trace, debug, info, warn, error, disabled)")
	root.PersistentFlags().BoolP(helpers.FlagVerbose, "v", false, "Verbose output (debug logging)")

	root.AddCommand(profile.NewAnalyzeCmd())
	root.AddCommand(profile.NewReplayCmd())
	root.AddCommand(profile.NewShellCmd())
	root.AddCommand(history.NewHistoryCmd())
	root.AddCommand(configcmd.NewConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("skprof version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
