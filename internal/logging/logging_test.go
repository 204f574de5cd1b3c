package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", ""} {
		l, err := New(lvl, "json")
		require.NoError(t, err, lvl)
		require.NotNil(t, l)
	}

	l, err := New("warn", "console")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	l := zap.NewNop()
	ctx := NewContext(context.Background(), l)
	require.Same(t, l, FromContext(ctx))
	require.NotNil(t, FromContext(context.Background()))
}
