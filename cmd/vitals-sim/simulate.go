package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vitals-sim/internal/admin"
	"vitals-sim/internal/backend"
	"vitals-sim/internal/catalog"
	"vitals-sim/internal/logging"
	"vitals-sim/internal/metrics"
	"vitals-sim/internal/scenario"
	"vitals-sim/internal/sim"
	"vitals-sim/internal/vitals"
)

var (
	simPrintOnly bool
	simRoomID    int
	simMode      string
	simTick      time.Duration
	simScenario  string
	simAdminAddr string
	simLogFile   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the patient monitor simulator",
	Long:  "simulate fetches the sensor catalog and occupied rooms, then publishes vital signs and emergencies for the selected room.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("tick") {
			cfg.Simulation.Tick = simTick
		}
		if cmd.Flags().Changed("room") {
			cfg.Simulation.RoomID = simRoomID
		}
		if cmd.Flags().Changed("mode") {
			cfg.Simulation.Mode = simMode
		}
		if cmd.Flags().Changed("admin-addr") {
			cfg.Admin.Addr = simAdminAddr
		}
		initialMode, err := cfg.InitialMode()
		if err != nil {
			return err
		}
		mapping, err := cfg.SensorMapping()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		var script *scenario.Scenario
		if simScenario != "" {
			if script, err = scenario.Resolve(simScenario); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		client := backend.New(backend.Options{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout,
			Retries: cfg.API.Retries,
		}, logger)
		sensors, err := client.FetchSensorCatalog(ctx)
		if err != nil {
			return fmt.Errorf("load sensor catalog: %w", err)
		}
		rooms, err := client.FetchOccupiedRooms(ctx)
		if err != nil {
			return fmt.Errorf("load occupied rooms: %w", err)
		}
		logger.Info("catalog loaded", zap.Int("sensors", len(sensors)), zap.Int("rooms", len(rooms)))

		transport, cleanup, err := newTransport(cfg, simPrintOnly, simLogFile, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := transport.Connect(ctx); err != nil {
			return err
		}
		defer transport.Disconnect()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)

		seed := cfg.Simulation.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		simulator := sim.NewSimulator(sim.Options{
			Transport:    transport,
			Registry:     catalog.NewRegistry(rooms),
			Sensors:      catalog.NewSensors(sensors),
			Fetcher:      client,
			Mapping:      mapping,
			Rand:         rand.New(rand.NewSource(seed)),
			TickInterval: cfg.Simulation.Tick,
			RearmDelay:   cfg.Simulation.RearmDelay,
			Logger:       logger,
			Metrics:      m,
		})
		go simulator.Run(ctx)

		if cfg.Simulation.RoomID > 0 {
			if err := simulator.SelectRoom(ctx, cfg.Simulation.RoomID); err != nil {
				return err
			}
		}
		if initialMode != vitals.Idle {
			if err := simulator.SetMode(ctx, initialMode); err != nil {
				return err
			}
		}

		if cfg.Admin.Addr != "" && cfg.Admin.Addr != "off" {
			srv := admin.NewServer(simulator, m, reg, logger)
			go func() {
				if err := srv.Start(ctx, cfg.Admin.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("admin server failed", zap.Error(err))
				}
			}()
		}

		if script != nil {
			go func() {
				if err := scenario.Run(ctx, simulator, script); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("scenario aborted", zap.Error(err))
				}
			}()
		}

		<-ctx.Done()
		<-simulator.Done()
		logger.Info("simulation stopped")
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print messages to STDOUT instead of publishing to the broker")
	simulateCmd.Flags().IntVar(&simRoomID, "room", 0, "Room to select at startup")
	simulateCmd.Flags().StringVar(&simMode, "mode", "idle", "Mode to enter at startup (idle, normal, high, low, stable)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Tick interval (e.g. 500ms, 2s)")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or path to a scenario YAML")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address (\"off\" disables it)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to capture every published message (JSONL)")
}
