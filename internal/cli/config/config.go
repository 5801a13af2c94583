// Package config implements the 'skprof config' command family.
package config

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/skprof/internal/cli/helpers"
	"github.com/coral-mesh/skprof/internal/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage skprof configuration",
		Long: `Manage skprof configuration.

Settings are layered, later layers win:
  1. Built-in defaults
  2. Config file (~/.skprof/config.yaml, or --config)
  3. SKPROF_* environment variables
  4. Command-line flags

Environment Variables:
  SKPROF_CONFIG   Override the base directory holding .skprof/ (default: home)`,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newPathCmd())

	return cmd
}

func configFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString(helpers.FlagConfig)
	return path
}

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Prints the configuration after defaults, file and environment are applied.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := helpers.Setup(cmd)
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), env.Config, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "Output format (yaml, json)")
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	case "json":
		return (&helpers.JSONFormatter{}).Format(cfg, w)
	default:
		return fmt.Errorf("unsupported format %q, must be one of: yaml, json", format)
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader().Init(configFlag(cmd), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

// validationRow is one line of the validate table.
type validationRow struct {
	Field   string `header:"FIELD" json:"field"`
	Message string `header:"PROBLEM" json:"message"`
}

func newValidateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Loads the configuration and reports every invalid setting.
Exits with an error when the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), configFlag(cmd), helpers.OutputFormat(format))
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListFormats)
	return cmd
}

func runValidate(w io.Writer, path string, format helpers.OutputFormat) error {
	_, err := config.NewLoader().Load(path)
	if err == nil {
		fmt.Fprintln(w, "Configuration is valid.")
		return nil
	}

	var verr *config.MultiValidationError
	if !stderrors.As(err, &verr) {
		return err
	}

	rows := make([]validationRow, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		rows = append(rows, validationRow{Field: e.Field, Message: e.Message})
	}
	formatter, ferr := helpers.NewFormatter(format)
	if ferr != nil {
		return ferr
	}
	if ferr := formatter.Format(rows, w); ferr != nil {
		return ferr
	}
	return fmt.Errorf("configuration has %d invalid setting(s)", len(rows))
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			path := configFlag(cmd)
			if path == "" {
				path = config.NewLoader().ConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}
}
