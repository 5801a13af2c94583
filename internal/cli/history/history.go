// Package history implements the 'skprof history' commands over the saved
// session database.
package history

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/skprof/internal/cli/helpers"
	"github.com/coral-mesh/skprof/internal/errors"
	"github.com/coral-mesh/skprof/internal/profiler/store"
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved profiling sessions",
		Long: `Browse profiling sessions saved with 'skprof replay --save', the shell
'save' command, or storage.auto_save.

Sessions live in a DuckDB database (storage.path, default
~/.skprof/sessions.duckdb).`,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	return cmd
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	env, err := helpers.Setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := store.Open(ctx, env.Config.Storage.Store(), env.Logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer errors.DeferClose(env.Logger, st, "failed to close session store")

	return fn(ctx, st)
}

func newListCmd() *cobra.Command {
	var (
		format    string
		limit     int
		timeFlags helpers.TimeFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Example: `  skprof history list
  skprof history list --since 24h
  skprof history list --from 2026-05-01 --to now -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			window, err := timeFlags.Parse(time.Now())
			if err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				sessions, err := st.List(ctx, store.ListOptions{Limit: limit, From: window.Start, To: window.End})
				if err != nil {
					return err
				}
				return writeSessions(cmd.OutOrStdout(), helpers.OutputFormat(format), sessions)
			})
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListFormats)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions (0 for all)")
	timeFlags.AddFlags(cmd.Flags())
	return cmd
}

func writeSessions(w io.Writer, format helpers.OutputFormat, sessions []store.Session) error {
	if len(sessions) == 0 && format == helpers.FormatTable {
		_, err := fmt.Fprintln(w, "No saved sessions.")
		return err
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	formatter, err := helpers.NewFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(sessions, w)
}

func newShowCmd() *cobra.Command {
	var (
		format  string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a saved session report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported format %q, must be one of: text, json", format)
			}

			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				saved, err := st.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return writeSaved(cmd.OutOrStdout(), format, saved, metrics)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVarP(&metrics, "metrics", "m", false, "Also list the raw metric records")
	return cmd
}

type metricRow struct {
	File  string  `header:"FILE"`
	Line  int     `header:"LINE"`
	Kind  string  `header:"KIND"`
	Name  string  `header:"NAME"`
	Count int64   `header:"COUNT"`
	Avg   float64 `header:"AVG_MS"`
	Max   float64 `header:"MAX_MS"`
	Total float64 `header:"TOTAL_MS"`
}

func writeSaved(w io.Writer, format string, saved *store.Saved, metrics bool) error {
	if format == "json" {
		return (&helpers.JSONFormatter{}).Format(saved, w)
	}

	s := saved.Session
	fmt.Fprintf(w, "Session %s\n", s.ID)
	fmt.Fprintf(w, "Generated: %s  Duration: %.2fs  Load: %.2f  Issues: %d\n\n",
		s.GeneratedAt.Local().Format(time.RFC3339), float64(s.DurationMs)/1000, s.Load, s.Issues)
	fmt.Fprintln(w, s.Report)

	if !metrics || len(saved.Metrics) == 0 {
		return nil
	}

	rows := make([]metricRow, 0, len(saved.Metrics))
	for _, m := range saved.Metrics {
		row := metricRow{
			File:  m.File,
			Line:  m.Line,
			Kind:  m.Kind,
			Name:  m.Name,
			Count: m.Count,
			Max:   float64(m.MaxNs) / 1e6,
			Total: float64(m.TotalNs) / 1e6,
		}
		if m.Count > 0 {
			row.Avg = row.Total / float64(m.Count)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(w)
	return (&helpers.TableFormatter{}).Format(rows, w)
}
