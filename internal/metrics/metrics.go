// Package metrics records store activity as Prometheus counters and histograms.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atinyakov/appstate/internal/models"
)

// Metrics implements store.Recorder.
type Metrics struct {
	registry   *prometheus.Registry
	commits    *prometheus.CounterVec
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registers the store collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appstate",
			Name:      "commits_total",
			Help:      "Commits by mutation and result.",
		}, []string{"mutation", "result"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appstate",
			Name:      "dispatches_total",
			Help:      "Dispatches by action and result.",
		}, []string{"action", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appstate",
			Name:      "dispatch_duration_seconds",
			Help:      "Time from dispatch to action completion.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"action"}),
	}
	m.registry.MustRegister(m.commits, m.dispatches, m.duration)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCommit counts a commit.
func (m *Metrics) ObserveCommit(name models.Mutation, err error) {
	m.commits.WithLabelValues(string(name), result(err)).Inc()
}

// ObserveDispatch counts a dispatch and records its duration. Dispatches
// rejected before running have no duration.
func (m *Metrics) ObserveDispatch(name models.Action, elapsed time.Duration, err error) {
	m.dispatches.WithLabelValues(string(name), result(err)).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(string(name)).Observe(elapsed.Seconds())
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
