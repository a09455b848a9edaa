// Package metrics exposes Prometheus instruments for runs, actions and inbound events.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoflow"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	actionsTotal   *prometheus.CounterVec
	nodeVisits     prometheus.Histogram
	eventsReceived *prometheus.CounterVec
	runsInFlight   prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished workflow runs by terminal status and failure reason.",
		}, []string{"status", "reason"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of workflow runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"status"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed actions by subtype and outcome.",
		}, []string{"action_type", "outcome"}),
		nodeVisits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_node_visits",
			Help:      "Nodes visited per run.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 500, 1000},
		}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound events by type and source.",
		}, []string{"event_type", "source"}),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently executing.",
		}),
	}

	registry.MustRegister(m.runsTotal, m.runDuration, m.actionsTotal, m.nodeVisits, m.eventsReceived, m.runsInFlight)

	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) RunStarted() {
	m.runsInFlight.Inc()
}

// RunEnded pairs with RunStarted.
func (m *Metrics) RunEnded() {
	m.runsInFlight.Dec()
}

func (m *Metrics) RunFinished(status, reason string, elapsed time.Duration, visits int) {
	m.runsTotal.WithLabelValues(status, reason).Inc()
	m.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.nodeVisits.Observe(float64(visits))
}

// ActionExecuted records one action outcome: "succeeded", "failed" or "skipped".
func (m *Metrics) ActionExecuted(actionType, outcome string) {
	m.actionsTotal.WithLabelValues(actionType, outcome).Inc()
}

func (m *Metrics) EventReceived(eventType, source string) {
	m.eventsReceived.WithLabelValues(eventType, source).Inc()
}
