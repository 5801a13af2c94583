package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/skprof/internal/constants"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoader_Paths(t *testing.T) {
	l := NewLoaderAt("/home/dev")
	assert.Equal(t, "/home/dev/.skprof/config.yaml", l.ConfigPath())
	assert.Equal(t, "/home/dev/.skprof/sessions.duckdb", l.DatabasePath())
	assert.Equal(t, "/home/dev/.skprof/shell_history", l.HistoryPath())
}

func TestNewLoader_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	assert.Equal(t, filepath.Join(dir, constants.DefaultDir), NewLoader().Dir())
}

func TestLoader_LoadDefaultsWhenMissing(t *testing.T) {
	l := NewLoaderAt(t.TempDir())

	cfg, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, cfg.Version)
	assert.Equal(t, constants.DefaultSlowExecutionMs, cfg.Thresholds.SlowMs)
	assert.Equal(t, []string{".sk"}, cfg.Scripts.Extensions)
	assert.Equal(t, l.DatabasePath(), cfg.Storage.Path)
	assert.Equal(t, "text", cfg.Reporting.Format)
}

func TestLoader_LoadExplicitMissing(t *testing.T) {
	l := NewLoaderAt(t.TempDir())
	_, err := l.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoader_LoadFileOverridesDefaults(t *testing.T) {
	l := NewLoaderAt(t.TempDir())
	writeConfig(t, l.ConfigPath(), `
version: "1"
scripts:
  dir: /srv/scripts
  extensions: [".sk", ".skript"]
thresholds:
  slow_ms: 25
profiling:
  max_duration: 5m
  load_aware: true
storage:
  path: /var/lib/skprof.duckdb
`)

	cfg, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/scripts", cfg.Scripts.Dir)
	assert.Equal(t, []string{".sk", ".skript"}, cfg.Scripts.Extensions)
	assert.Equal(t, 25.0, cfg.Thresholds.SlowMs)
	assert.Equal(t, constants.DefaultVerySlowExecutionMs, cfg.Thresholds.VerySlowMs, "unset keys keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Profiling.MaxDuration)
	assert.True(t, cfg.Profiling.LoadAware)
	assert.Equal(t, "/var/lib/skprof.duckdb", cfg.Storage.Path)
}

func TestLoader_LoadEnvOverridesFile(t *testing.T) {
	l := NewLoaderAt(t.TempDir())
	writeConfig(t, l.ConfigPath(), "thresholds:\n  slow_ms: 25\n")

	t.Setenv("SKPROF_SLOW_MS", "75.5")
	t.Setenv("SKPROF_LOG_LEVEL", "debug")
	t.Setenv("SKPROF_MAX_DURATION", "90s")
	t.Setenv("SKPROF_SCRIPTS_EXTENSIONS", ".sk, .txt")

	cfg, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, 75.5, cfg.Thresholds.SlowMs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 90*time.Second, cfg.Profiling.MaxDuration)
	assert.Equal(t, []string{".sk", ".txt"}, cfg.Scripts.Extensions)
}

func TestLoader_LoadInvalid(t *testing.T) {
	l := NewLoaderAt(t.TempDir())

	writeConfig(t, l.ConfigPath(), "thresholds: [not, a, map]\n")
	_, err := l.Load("")
	assert.ErrorContains(t, err, "failed to parse config")

	writeConfig(t, l.ConfigPath(), "reporting:\n  format: html\n")
	_, err = l.Load("")
	var verr *MultiValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reporting.format", verr.Errors[0].Field)
}

func TestLoader_InitAndSave(t *testing.T) {
	l := NewLoaderAt(t.TempDir())

	path, err := l.Init("", false)
	require.NoError(t, err)
	assert.Equal(t, l.ConfigPath(), path)
	assert.FileExists(t, path)

	_, err = l.Init("", false)
	assert.ErrorIs(t, err, ErrConfigExists)

	cfg, err := l.Load("")
	require.NoError(t, err)
	cfg.Thresholds.LoopIterations = 42
	require.NoError(t, l.Save(cfg, ""))

	reloaded, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), reloaded.Thresholds.LoopIterations)
	assert.Equal(t, constants.DefaultLoadInterval, reloaded.Profiling.LoadInterval)

	_, err = l.Init("", true)
	require.NoError(t, err)
	reset, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(constants.DefaultLoopIterations), reset.Thresholds.LoopIterations)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"thresholds"`)
	assert.Contains(t, s, `"slow_ms"`)
	assert.Contains(t, s, `"load_source"`)
	assert.Contains(t, s, "skprof configuration")
}
