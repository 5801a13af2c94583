package helpers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/skprof/internal/errors"
)

// Persistent root flag names.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
	FlagVerbose  = "verbose"
)

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// AddFormatFlag adds a standard --format/-o flag to a command.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supportedFormats []OutputFormat) {
	names := formatNames(supportedFormats)
	description := fmt.Sprintf("Output format (%s)", strings.Join(names, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat), description)

	errors.Must(cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return names, cobra.ShellCompDirectiveNoFileComp
	}), "failed to register --format completion")
}

// AddThemeFlag adds a --theme flag selecting the report color theme.
func AddThemeFlag(cmd *cobra.Command, themeVar *string) {
	cmd.Flags().StringVar(themeVar, "theme", "", "Report theme (auto, plain, ansi, markers); defaults to reporting.theme")

	errors.Must(cmd.RegisterFlagCompletionFunc("theme", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return Themes, cobra.ShellCompDirectiveNoFileComp
	}), "failed to register --theme completion")
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	if slices.Contains(supported, OutputFormat(format)) {
		return nil
	}
	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(formatNames(supported), ", "))
}
