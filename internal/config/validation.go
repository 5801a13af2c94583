package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	reportFormats = []string{"text", "markdown", "pretty", "json"}
	reportThemes  = []string{"auto", "plain", "ansi", "markers"}
	loadSources   = []string{"cpu", "memory"}
	logLevels     = []string{"trace", "debug", "info", "warn", "warning", "error", "disabled", "off", "none"}
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError collects every invalid setting of a config.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

type validator struct {
	errs []ValidationError
}

func (v *validator) check(ok bool, field, format string, args ...any) {
	if !ok {
		v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
}

func (v *validator) oneOf(value, field string, allowed []string) {
	v.check(slices.Contains(allowed, strings.ToLower(value)), field,
		"must be one of %s, got %q", strings.Join(allowed, ", "), value)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	v := &validator{}

	v.check(c.Version != "", "version", "version is required")

	v.check(len(c.Scripts.Extensions) > 0, "scripts.extensions", "at least one extension is required")
	for _, ext := range c.Scripts.Extensions {
		v.check(strings.HasPrefix(ext, "."), "scripts.extensions", "extension %q must start with a dot", ext)
	}
	v.check(c.Scripts.MaxFileSize > 0, "scripts.max_file_size", "must be positive")

	th := c.Thresholds
	v.check(th.SlowMs > 0, "thresholds.slow_ms", "must be positive")
	v.check(th.VerySlowMs > 0, "thresholds.very_slow_ms", "must be positive")
	v.check(th.LoopIterations > 0, "thresholds.loop_iterations", "must be positive")
	v.check(th.WaitTicks > 0, "thresholds.wait_ticks", "must be positive")
	v.check(th.VariableAccesses > 0, "thresholds.variable_accesses", "must be positive")
	v.check(th.HighFrequencyCount > 0, "thresholds.high_frequency_count", "must be positive")
	v.check(th.HighFrequencyTotalMs >= 0, "thresholds.high_frequency_total_ms", "must not be negative")
	v.check(th.LoadCeiling >= 0, "thresholds.load_ceiling", "must not be negative")

	v.oneOf(c.Reporting.Format, "reporting.format", reportFormats)
	v.oneOf(c.Reporting.Theme, "reporting.theme", reportThemes)
	v.check(c.Reporting.TopN > 0, "reporting.top_n", "must be positive")
	v.check(c.Reporting.MaxIssues > 0, "reporting.max_issues", "must be positive")
	v.check(c.Reporting.BreakdownLines > 0, "reporting.breakdown_lines", "must be positive")
	v.check(c.Reporting.Width >= 0, "reporting.width", "must not be negative")

	v.check(c.Profiling.MaxDuration >= 0, "profiling.max_duration", "must not be negative")
	v.oneOf(c.Profiling.LoadSource, "profiling.load_source", loadSources)
	if c.Profiling.LoadAware {
		v.check(c.Profiling.LoadInterval > 0, "profiling.load_interval", "must be positive when load_aware is set")
	}

	v.check(c.Storage.Retries > 0, "storage.retries", "must be positive")
	v.check(c.Storage.Backoff >= 0, "storage.backoff", "must not be negative")

	v.oneOf(c.Logging.Level, "logging.level", logLevels)

	if len(v.errs) > 0 {
		return &MultiValidationError{Errors: v.errs}
	}
	return nil
}
