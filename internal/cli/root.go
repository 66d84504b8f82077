// Package cli implements the match-service command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/match-service/internal/config"
	"jobmate/match-service/internal/logger"
)

const app = "match-service"

var (
	cfgFile   string
	debugFlag bool
	jsonFlag  bool

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "match-service scores candidates against job offers and tracks the resulting matches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is match-service.yaml in current directory)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonFlag, "json", "j", false, "json format for logging")
}

// setup loads the configuration and builds the logger. The --debug and
// --json flags win over LOG_DEBUG and LOG_JSON.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if debugFlag {
		cfg.LogDebug = true
	}
	if jsonFlag {
		cfg.LogJSON = true
	}
	log, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}
