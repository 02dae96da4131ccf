// Package metrics exposes Prometheus collectors for import runs and remote
// source traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/catalogsync/pkg/runs"
)

const namespace = "catalogsync"

// Metrics owns a private registry so tests and embedded engines never
// collide with the global one.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	itemsTotal      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry. Process and Go
// runtime collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Import runs finished, by source and final status.",
		}, []string{"source", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_run_duration_seconds",
			Help:      "Wall time of finished import runs.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"source"}),
		itemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_items_total",
			Help:      "Records processed by import runs, by outcome.",
		}, []string{"source", "outcome"}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "HTTP requests sent to remote product sources.",
		}, []string{"source", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of remote product source requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finalized run. Its signature matches the engine's
// run-finished hook.
func (m *Metrics) ObserveRun(run runs.ImportRun) {
	source := string(run.Source)
	m.runsTotal.WithLabelValues(source, string(run.Status)).Inc()
	if run.FinishedAt != nil {
		m.runDuration.WithLabelValues(source).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
	for outcome, n := range map[string]int{
		"new":     run.New,
		"updated": run.Updated,
		"ignored": run.Ignored,
		"error":   run.Errors,
	} {
		if n > 0 {
			m.itemsTotal.WithLabelValues(source, outcome).Add(float64(n))
		}
	}
}

// ObserveRemoteRequest records one remote request. A zero status means the
// request never got a response.
func (m *Metrics) ObserveRemoteRequest(source string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(source, code).Inc()
	m.requestDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
