// Package metrics holds the Prometheus collectors of the simulator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Tick results.
const (
	TickOK      = "ok"
	TickPartial = "partial"
	TickSkipped = "skipped"
	TickNoRoom  = "no_room"
)

// Publish kinds.
const (
	KindReading   = "reading"
	KindEmergency = "emergency"
	KindActuator  = "actuator"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	Ticks            *prometheus.CounterVec
	Publishes        *prometheus.CounterVec
	AlarmRearms      prometheus.Counter
	ConfigRefreshes  *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vitals_sim",
				Name:      "ticks_total",
				Help:      "Simulation ticks by result.",
			},
			[]string{"result"},
		),
		Publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vitals_sim",
				Name:      "publishes_total",
				Help:      "Published messages by kind and result.",
			},
			[]string{"kind", "result"},
		),
		AlarmRearms: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "vitals_sim",
				Name:      "alarm_rearms_total",
				Help:      "Alarm re-arm timer expiries that re-activated the actuators.",
			},
		),
		ConfigRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vitals_sim",
				Name:      "config_refreshes_total",
				Help:      "Threshold configuration refreshes by result.",
			},
			[]string{"result"},
		),
		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "vitals_sim",
				Name:      "tick_dispatch_duration_seconds",
				Help:      "Time for all publishes of one tick to settle.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vitals_sim",
				Name:      "admin_requests_total",
				Help:      "Admin API requests.",
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(m.Ticks, m.Publishes, m.AlarmRearms, m.ConfigRefreshes, m.DispatchDuration, m.HTTPRequests)
	return m
}

// Tick counts one tick outcome.
func (m *Metrics) Tick(result string) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(result).Inc()
}

// Publish counts one publish outcome.
func (m *Metrics) Publish(kind string, err error) {
	if m == nil {
		return
	}
	m.Publishes.WithLabelValues(kind, resultLabel(err)).Inc()
}

// Rearm counts one re-arm expiry.
func (m *Metrics) Rearm() {
	if m == nil {
		return
	}
	m.AlarmRearms.Inc()
}

// ConfigRefresh counts one configuration refresh outcome.
func (m *Metrics) ConfigRefresh(err error) {
	if m == nil {
		return
	}
	m.ConfigRefreshes.WithLabelValues(resultLabel(err)).Inc()
}

// Dispatched observes how long a tick dispatch took.
func (m *Metrics) Dispatched(d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchDuration.Observe(d.Seconds())
}

// Request counts one admin API request.
func (m *Metrics) Request(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
