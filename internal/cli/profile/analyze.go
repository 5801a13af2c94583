package profile

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/skprof/internal/cli/helpers"
	"github.com/coral-mesh/skprof/internal/profiler/detect"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/tracker"
)

// scriptRow is one line of the analyze table.
type scriptRow struct {
	Name      string `header:"SCRIPT" json:"name"`
	Path      string `header:"-" json:"path"`
	Lines     int    `header:"LINES" json:"lines"`
	Events    int    `header:"EVENTS" json:"events"`
	Functions int    `header:"FUNCTIONS" json:"functions"`
	Commands  int    `header:"COMMANDS" json:"commands"`
	Loops     int    `header:"LOOPS" json:"loops"`
	Waits     int    `header:"WAITS" json:"waits"`
	Variables int    `header:"VARIABLES" json:"variables"`

	Structure []lineLabels `header:"-" json:"structure"`
}

// lineLabels lists the structural elements found on one script line.
type lineLabels struct {
	Line   int      `json:"line"`
	Labels []string `json:"labels"`
}

type analyzeJSON struct {
	Root     string           `json:"root"`
	Scripts  []scriptRow      `json:"scripts"`
	Issues   []detect.Issue   `json:"issues"`
	Warnings []source.Warning `json:"warnings"`
}

// NewAnalyzeCmd creates the static analysis command.
func NewAnalyzeCmd() *cobra.Command {
	var (
		format    string
		structure bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Analyze scripts without profiling",
		Long: `Scans every script below dir (default: scripts.dir) and reports the
structural facts found per script: events, functions, commands, loops,
waits and variable accesses.

Issues that need no runtime data are reported as well: long waits and
excessive variable access. Loop and timing issues require a profiling
session (see 'skprof replay' and 'skprof shell').

Examples:
  skprof analyze ./scripts
  skprof analyze ./scripts --structure
  skprof analyze ./scripts -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			env, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}

			dir := scriptDir(env.Config, args)
			loader := source.NewLoader(env.Config.Scripts.Loader(), env.Logger)
			files, warnings, err := loader.Load(cmd.Context(), dir)
			if err != nil {
				return err
			}

			set, analyzeWarnings := source.NewAnalyzer(env.Logger).Analyze(files)
			warnings = append(warnings, analyzeWarnings...)

			empty := tracker.NewSnapshot(time.Now(), nil)
			issues := detect.NewDetector(env.Logger).Detect(empty, set, env.Config.Thresholds.Detect())

			return writeAnalysis(cmd.OutOrStdout(), helpers.OutputFormat(format), dir, set, issues, warnings, structure)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListFormats)
	cmd.Flags().BoolVarP(&structure, "structure", "s", false, "List the labeled lines of each script (table output)")
	return cmd
}

func scriptRows(set *source.Set) []scriptRow {
	rows := make([]scriptRow, 0, set.Len())
	for _, sc := range set.Scripts() {
		structure := []lineLabels{}
		for _, n := range sc.LabeledLines() {
			structure = append(structure, lineLabels{Line: n, Labels: sc.Labels(n)})
		}
		rows = append(rows, scriptRow{
			Name:      sc.Name,
			Path:      sc.Path,
			Lines:     sc.LineCount(),
			Events:    sc.Events,
			Functions: sc.Functions,
			Commands:  sc.Commands,
			Loops:     sc.Loops,
			Waits:     len(sc.Waits),
			Variables: sc.Variables,
			Structure: structure,
		})
	}
	return rows
}

func writeAnalysis(w io.Writer, format helpers.OutputFormat, dir string, set *source.Set, issues []detect.Issue, warnings []source.Warning, structure bool) error {
	rows := scriptRows(set)

	if format == helpers.FormatJSON {
		doc := analyzeJSON{Root: dir, Scripts: rows, Issues: issues, Warnings: warnings}
		if doc.Issues == nil {
			doc.Issues = []detect.Issue{}
		}
		if doc.Warnings == nil {
			doc.Warnings = []source.Warning{}
		}
		return (&helpers.JSONFormatter{}).Format(doc, w)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "No scripts found in %s\n", dir)
		return err
	}

	formatter, err := helpers.NewFormatter(format)
	if err != nil {
		return err
	}
	if err := formatter.Format(rows, w); err != nil {
		return err
	}
	if format == helpers.FormatCSV {
		return nil
	}

	if structure {
		for _, row := range rows {
			fmt.Fprintf(w, "\n%s:\n", row.Name)
			for _, ll := range row.Structure {
				fmt.Fprintf(w, "  %4d  %s\n", ll.Line, strings.Join(ll.Labels, ", "))
			}
		}
	}

	if len(issues) > 0 {
		fmt.Fprintf(w, "\n%d issue(s):\n", len(issues))
		for _, is := range issues {
			fmt.Fprintf(w, "  [%s] %s at %s: %s\n", is.Severity.Label(), is.Kind.DisplayName(), is.Location(), is.Description)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(w, "\n%d warning(s):\n", len(warnings))
		for _, wn := range warnings {
			fmt.Fprintf(w, "  %s\n", wn.String())
		}
	}
	return nil
}
