package helpers

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/skprof/internal/config"
	"github.com/coral-mesh/skprof/internal/logging"
)

// Env is what every command needs: the resolved configuration and a logger.
type Env struct {
	Loader *config.Loader
	Config *config.Config
	Logger zerolog.Logger
}

// Setup loads the configuration named by the persistent --config flag and
// builds the logger. --log-level overrides logging.level; --verbose forces
// debug. Logs go to the command's stderr.
func Setup(cmd *cobra.Command) (*Env, error) {
	configPath, _ := cmd.Flags().GetString(FlagConfig)
	level, _ := cmd.Flags().GetString(FlagLogLevel)
	verbose, _ := cmd.Flags().GetBool(FlagVerbose)

	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, err
	}

	if level == "" {
		level = cfg.Logging.Level
	}
	if verbose {
		level = "debug"
	}

	logger := logging.New(logging.Config{
		Level:   level,
		Pretty:  cfg.Logging.Pretty,
		NoColor: !ColorEnabled(cmd.ErrOrStderr()),
		Output:  cmd.ErrOrStderr(),
	})

	return &Env{Loader: loader, Config: cfg, Logger: logger}, nil
}
