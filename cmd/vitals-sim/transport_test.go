package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitals-sim/internal/bus"
	"vitals-sim/internal/config"
)

func TestNewTransportPrintOnly(t *testing.T) {
	tr, cleanup, err := newTransport(config.Default(), true, "", zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	require.IsType(t, &bus.Stdout{}, tr)
}

func TestNewTransportBroker(t *testing.T) {
	tr, cleanup, err := newTransport(config.Default(), false, "", zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	require.IsType(t, &bus.MQTT{}, tr)
}

func TestNewTransportCaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	tr, cleanup, err := newTransport(config.Default(), true, path, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &bus.Fanout{}, tr)

	require.NoError(t, tr.Publish(context.Background(), "rooms/1/siren", []byte("1"), bus.Acknowledged))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"topic":"rooms/1/siren"`)
}

func TestNewTransportCaptureFileError(t *testing.T) {
	_, _, err := newTransport(config.Default(), true, filepath.Join(t.TempDir(), "missing", "capture.jsonl"), zap.NewNop())
	require.Error(t, err)
}
