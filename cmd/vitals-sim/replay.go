package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vitals-sim/internal/bus"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a captured message log",
	Long:  "replay republishes messages captured with simulate --log-file to the broker or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		transport, cleanup, err := newTransport(cfg, replayPrintOnly, "", logger)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := transport.Connect(cmd.Context()); err != nil {
			return err
		}
		defer transport.Disconnect()

		n, err := bus.ReplayFile(cmd.Context(), replayInput, transport, replaySpeed)
		logger.Info("replay finished", zap.Int("messages", n))
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to captured message log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 disables delays)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print messages to STDOUT instead of publishing to the broker")
	_ = replayCmd.MarkFlagRequired("input")
}
