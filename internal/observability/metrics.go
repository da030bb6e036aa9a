// Package observability exposes the monitor's counters to Prometheus.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	VisualRuns   *prometheus.CounterVec // label: status
	Alerts       *prometheus.CounterVec // label: category
	Pings        *prometheus.CounterVec // label: outcome (up/down)
	SkippedTicks *prometheus.CounterVec // label: driver

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		VisualRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storewatch_visual_runs_total",
			Help: "Visual pipeline runs by outcome status.",
		}, []string{"status"}),
		Alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storewatch_alerts_total",
			Help: "Alerts created, by category.",
		}, []string{"category"}),
		Pings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storewatch_pings_total",
			Help: "Availability probes by outcome.",
		}, []string{"outcome"}),
		SkippedTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storewatch_ticks_skipped_total",
			Help: "Scheduler ticks dropped because the previous cycle was still running.",
		}, []string{"driver"}),
		registry: reg,
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Nil-safe increment helpers so components can run without metrics wired
// (tests, preflight).

func (m *Metrics) RunFinished(status string) {
	if m != nil {
		m.VisualRuns.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) AlertCreated(category string) {
	if m != nil {
		m.Alerts.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) PingObserved(up bool) {
	if m == nil {
		return
	}
	outcome := "down"
	if up {
		outcome = "up"
	}
	m.Pings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TickSkipped(driver string) {
	if m != nil {
		m.SkippedTicks.WithLabelValues(driver).Inc()
	}
}
