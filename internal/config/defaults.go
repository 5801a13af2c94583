package config

import (
	"slices"

	"github.com/coral-mesh/skprof/internal/constants"
	"github.com/coral-mesh/skprof/internal/profiler/detect"
	"github.com/coral-mesh/skprof/internal/profiler/load"
	"github.com/coral-mesh/skprof/internal/profiler/report"
	"github.com/coral-mesh/skprof/internal/profiler/source"
	"github.com/coral-mesh/skprof/internal/profiler/store"
)

// SchemaVersion is the configuration format version written by init.
const SchemaVersion = "1"

// DefaultConfig returns the built-in configuration. Storage.Path is left
// empty; the loader places it under the base directory.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Scripts: ScriptsConfig{
			Dir:         ".",
			Extensions:  slices.Clone(constants.DefaultScriptExtensions),
			MaxFileSize: constants.DefaultMaxScriptSize,
		},
		Thresholds: ThresholdsConfig{
			SlowMs:               constants.DefaultSlowExecutionMs,
			VerySlowMs:           constants.DefaultVerySlowExecutionMs,
			LoopIterations:       constants.DefaultLoopIterations,
			WaitTicks:            constants.DefaultLongWaitTicks,
			VariableAccesses:     constants.DefaultExcessiveVariables,
			HighFrequencyCount:   constants.DefaultHighFrequencyCount,
			HighFrequencyTotalMs: constants.DefaultHighFrequencyTotalMs,
			LoadCeiling:          constants.DefaultLoadCeiling,
		},
		Reporting: ReportingConfig{
			Format:         constants.DefaultReportFormat,
			Theme:          "auto",
			TopN:           constants.DefaultTopSlowest,
			MaxIssues:      constants.DefaultMaxReportedIssues,
			BreakdownLines: constants.DefaultBreakdownLines,
			Suggestions:    true,
			Width:          100,
		},
		Profiling: ProfilingConfig{
			LoadSource:        "cpu",
			LoadInterval:      constants.DefaultLoadInterval,
			LoadWarnThreshold: constants.DefaultLoadWarnThreshold,
		},
		Storage: StorageConfig{
			Retries: constants.DefaultStoreRetries,
			Backoff: constants.DefaultStoreBackoff,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Detect converts the thresholds for the detector.
func (c ThresholdsConfig) Detect() detect.Thresholds {
	return detect.Thresholds{
		SlowMs:               c.SlowMs,
		VerySlowMs:           c.VerySlowMs,
		LoopIterations:       c.LoopIterations,
		WaitTicks:            c.WaitTicks,
		VariableAccesses:     c.VariableAccesses,
		HighFrequencyCount:   c.HighFrequencyCount,
		HighFrequencyTotalMs: c.HighFrequencyTotalMs,
		LoadCeiling:          c.LoadCeiling,
	}
}

// Options converts the reporting section for the report builder.
func (c ReportingConfig) Options() report.Options {
	return report.Options{
		TopN:               c.TopN,
		MaxIssues:          c.MaxIssues,
		IncludeSuggestions: c.Suggestions,
		BreakdownLines:     c.BreakdownLines,
	}
}

// Loader converts the scripts section for the script loader.
func (c ScriptsConfig) Loader() source.LoaderConfig {
	return source.LoaderConfig{
		Extensions:     slices.Clone(c.Extensions),
		MaxFileSize:    c.MaxFileSize,
		FollowSymlinks: c.FollowSymlinks,
	}
}

// Sampler converts the profiling section for the load sampler.
func (c ProfilingConfig) Sampler() load.Config {
	return load.Config{
		Interval:      c.LoadInterval,
		WarnThreshold: c.LoadWarnThreshold,
	}
}

// Store converts the storage section for the session store.
func (c StorageConfig) Store() store.Config {
	return store.Config{
		Path:    c.Path,
		Retries: c.Retries,
		Backoff: c.Backoff,
	}
}
