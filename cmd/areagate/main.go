package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shindakun/areagate/internal/config"
	"github.com/shindakun/areagate/internal/version"
)

// Path of the YAML configuration, shared by every subcommand
var configPath string

var rootCmd = &cobra.Command{
	Use:     "areagate",
	Short:   "Login gate for password protected areas",
	Version: version.GetFullVersion(),
	// Running the bare command starts the server
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
	SilenceUsage: true,
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig,
		"path to the YAML configuration (env CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd, passwdCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the zap logger described by the log section
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	return zc.Build()
}
