package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Tick(TickOK)
	m.Tick(TickOK)
	m.Tick(TickSkipped)
	m.Publish(KindReading, nil)
	m.Publish(KindEmergency, errors.New("broker down"))
	m.Rearm()
	m.ConfigRefresh(nil)
	m.Dispatched(10 * time.Millisecond)
	m.Request("GET", "/status", 200)
	m.Request("POST", "/mode", 400)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Ticks.WithLabelValues(TickOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Ticks.WithLabelValues(TickSkipped)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Publishes.WithLabelValues(KindEmergency, "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AlarmRearms))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ConfigRefreshes.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/mode", "4xx")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Tick(TickOK)
	m.Publish(KindReading, nil)
	m.Rearm()
	m.ConfigRefresh(errors.New("x"))
	m.Dispatched(time.Second)
	m.Request("GET", "/", 200)
}
