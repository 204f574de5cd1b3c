package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vitals-sim/internal/config"
	"vitals-sim/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vitals-sim",
	Short: "Patient monitor vitals simulator",
	Long:  "vitals-sim emulates a hospital-room patient monitor publishing vital signs and alerts over MQTT.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration YAML (defaults apply when empty)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig reads the configuration file and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
