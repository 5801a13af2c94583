package config

import (
	"time"
)

// Config is the skprof configuration file (~/.skprof/config.yaml).
type Config struct {
	Version    string           `yaml:"version" json:"version" jsonschema:"description=Configuration format version"`
	Scripts    ScriptsConfig    `yaml:"scripts" json:"scripts"`
	Thresholds ThresholdsConfig `yaml:"thresholds" json:"thresholds"`
	Reporting  ReportingConfig  `yaml:"reporting" json:"reporting"`
	Profiling  ProfilingConfig  `yaml:"profiling" json:"profiling"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ScriptsConfig selects the script files to analyze.
type ScriptsConfig struct {
	Dir            string   `yaml:"dir" json:"dir" env:"SKPROF_SCRIPTS_DIR" jsonschema:"description=Directory searched for scripts"`
	Extensions     []string `yaml:"extensions" json:"extensions" env:"SKPROF_SCRIPTS_EXTENSIONS" jsonschema:"description=Script file extensions"`
	MaxFileSize    int64    `yaml:"max_file_size" json:"max_file_size" env:"SKPROF_SCRIPTS_MAX_FILE_SIZE" jsonschema:"description=Largest script read in bytes,minimum=1"`
	FollowSymlinks bool     `yaml:"follow_symlinks" json:"follow_symlinks" env:"SKPROF_SCRIPTS_FOLLOW_SYMLINKS"`
}

// ThresholdsConfig holds the bottleneck detection thresholds.
type ThresholdsConfig struct {
	SlowMs               float64 `yaml:"slow_ms" json:"slow_ms" env:"SKPROF_SLOW_MS" jsonschema:"description=Average duration reported as slow,minimum=0"`
	VerySlowMs           float64 `yaml:"very_slow_ms" json:"very_slow_ms" env:"SKPROF_VERY_SLOW_MS" jsonschema:"description=Maximum duration reported as critical,minimum=0"`
	LoopIterations       int64   `yaml:"loop_iterations" json:"loop_iterations" env:"SKPROF_LOOP_ITERATIONS" jsonschema:"minimum=1"`
	WaitTicks            int64   `yaml:"wait_ticks" json:"wait_ticks" env:"SKPROF_WAIT_TICKS" jsonschema:"minimum=1"`
	VariableAccesses     int     `yaml:"variable_accesses" json:"variable_accesses" env:"SKPROF_VARIABLE_ACCESSES" jsonschema:"minimum=1"`
	HighFrequencyCount   int64   `yaml:"high_frequency_count" json:"high_frequency_count" env:"SKPROF_HIGH_FREQUENCY_COUNT" jsonschema:"minimum=1"`
	HighFrequencyTotalMs float64 `yaml:"high_frequency_total_ms" json:"high_frequency_total_ms" env:"SKPROF_HIGH_FREQUENCY_TOTAL_MS"`
	LoadCeiling          float64 `yaml:"load_ceiling" json:"load_ceiling" env:"SKPROF_LOAD_CEILING" jsonschema:"description=Host load above which load impact is reported (0 disables)"`
}

// ReportingConfig controls report rendering.
type ReportingConfig struct {
	Format         string `yaml:"format" json:"format" env:"SKPROF_REPORT_FORMAT" jsonschema:"enum=text,enum=markdown,enum=pretty,enum=json"`
	Theme          string `yaml:"theme" json:"theme" env:"SKPROF_REPORT_THEME" jsonschema:"enum=auto,enum=plain,enum=ansi,enum=markers"`
	TopN           int    `yaml:"top_n" json:"top_n" env:"SKPROF_REPORT_TOP_N" jsonschema:"minimum=1"`
	MaxIssues      int    `yaml:"max_issues" json:"max_issues" env:"SKPROF_REPORT_MAX_ISSUES" jsonschema:"minimum=1"`
	BreakdownLines int    `yaml:"breakdown_lines" json:"breakdown_lines" env:"SKPROF_REPORT_BREAKDOWN_LINES" jsonschema:"minimum=1"`
	Suggestions    bool   `yaml:"suggestions" json:"suggestions" env:"SKPROF_REPORT_SUGGESTIONS"`
	Width          int    `yaml:"width" json:"width" env:"SKPROF_REPORT_WIDTH" jsonschema:"description=Word wrap width of the pretty format"`
}

// ProfilingConfig controls sessions and host load sampling.
type ProfilingConfig struct {
	MaxDuration       time.Duration `yaml:"max_duration" json:"max_duration" env:"SKPROF_MAX_DURATION" jsonschema:"type=string,description=Stop sessions automatically after this long (0 disables)"`
	LoadAware         bool          `yaml:"load_aware" json:"load_aware" env:"SKPROF_LOAD_AWARE"`
	LoadSource        string        `yaml:"load_source" json:"load_source" env:"SKPROF_LOAD_SOURCE" jsonschema:"enum=cpu,enum=memory"`
	LoadInterval      time.Duration `yaml:"load_interval" json:"load_interval" env:"SKPROF_LOAD_INTERVAL" jsonschema:"type=string"`
	LoadWarnThreshold float64       `yaml:"load_warn_threshold" json:"load_warn_threshold" env:"SKPROF_LOAD_WARN_THRESHOLD"`
}

// StorageConfig controls session history persistence.
type StorageConfig struct {
	Path     string        `yaml:"path" json:"path" env:"SKPROF_STORAGE_PATH" jsonschema:"description=DuckDB file holding saved sessions"`
	AutoSave bool          `yaml:"auto_save" json:"auto_save" env:"SKPROF_STORAGE_AUTO_SAVE" jsonschema:"description=Save every generated report"`
	Retries  int           `yaml:"retries" json:"retries" env:"SKPROF_STORAGE_RETRIES" jsonschema:"minimum=1"`
	Backoff  time.Duration `yaml:"backoff" json:"backoff" env:"SKPROF_STORAGE_BACKOFF" jsonschema:"type=string"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"SKPROF_LOG_LEVEL" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,enum=disabled"`
	Pretty bool   `yaml:"pretty" json:"pretty" env:"SKPROF_LOG_PRETTY"`
}
