package main

import (
	"go.uber.org/zap"

	"vitals-sim/internal/bus"
	"vitals-sim/internal/config"
)

// newTransport picks the broker or the print-only transport and optionally
// tees every publish into a capture file. The returned cleanup closes the
// capture file.
func newTransport(cfg *config.Config, printOnly bool, captureFile string, logger *zap.Logger) (bus.Transport, func(), error) {
	cleanup := func() {}

	var base bus.Transport
	if printOnly {
		logger.Info("print-only mode: messages will be printed to STDOUT")
		base = bus.NewStdout()
	} else {
		base = bus.NewMQTT(bus.MQTTConfig{
			BrokerURL:      cfg.Broker.URL,
			ClientID:       cfg.Broker.ClientID,
			Username:       cfg.Broker.Username,
			Password:       cfg.Broker.Password,
			ConnectTimeout: cfg.Broker.ConnectTimeout,
			Timeout:        cfg.Broker.PublishTimeout,
		}, logger)
	}
	if captureFile == "" {
		return base, cleanup, nil
	}

	rec, err := bus.NewRecorder(captureFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() {
		if err := rec.Close(); err != nil {
			logger.Warn("closing capture file", zap.Error(err))
		}
	}
	return bus.NewFanout(base, rec), cleanup, nil
}
