// Package config loads and validates the skprof configuration.
//
// Settings are layered: built-in defaults, then the YAML file, then
// SKPROF_* environment variables. Command-line flags are applied by the CLI
// on top of the result.
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/skprof/internal/constants"
)

// EnvConfigDir overrides the base directory holding .skprof/.
const EnvConfigDir = "SKPROF_CONFIG"

// ErrConfigExists is returned by Init when the file is already there.
var ErrConfigExists = stderrors.New("config file already exists")

// Loader resolves configuration paths and reads the config file.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader. The base directory is, in order, the
// SKPROF_CONFIG environment variable, the user home directory, or a
// fallback under /tmp for environments without a home directory.
func NewLoader() *Loader {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return &Loader{baseDir: dir}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: home}
	}
	return &Loader{baseDir: filepath.Join(os.TempDir(), "skprof-fallback")}
}

// NewLoaderAt creates a loader rooted at dir.
func NewLoaderAt(dir string) *Loader {
	return &Loader{baseDir: dir}
}

// Dir returns the skprof state directory.
func (l *Loader) Dir() string {
	return filepath.Join(l.baseDir, constants.DefaultDir)
}

// ConfigPath returns the default config file path.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.Dir(), constants.ConfigFile)
}

// DatabasePath returns the default session history database path.
func (l *Loader) DatabasePath() string {
	return filepath.Join(l.baseDir, constants.DefaultDatabasePath)
}

// HistoryPath returns the interactive shell history file path.
func (l *Loader) HistoryPath() string {
	return filepath.Join(l.baseDir, constants.DefaultHistoryFile)
}

// Load reads the configuration. An empty path reads the default file and
// falls back to defaults when it does not exist; an explicit path must
// exist. Environment overrides are applied last and the result is validated.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = l.ConfigPath()
	}

	// #nosec G304 -- path is the user's own config file.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case stderrors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = l.DatabasePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, or to the default file when path is empty.
func (l *Loader) Save(cfg *Config, path string) error {
	if path == "" {
		path = l.ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Init writes the default configuration unless the file exists and force
// is false. It returns the path written.
func (l *Loader) Init(path string, force bool) (string, error) {
	if path == "" {
		path = l.ConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := l.Save(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Schema returns the JSON Schema of the config file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(&Config{})
	schema.Title = "skprof configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
