// Package metrics exposes Prometheus instrumentation for the console.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "console"

// Metrics bundles the console collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	inventoryRequests *prometheus.CounterVec
	inventoryDuration *prometheus.HistogramVec
	planMutations     *prometheus.CounterVec
	prefills          *prometheus.CounterVec
	jobs              *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		inventoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_requests_total",
			Help:      "Inventory API requests by endpoint and HTTP status code.",
		}, []string{"endpoint", "code"}),
		inventoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inventory_request_duration_seconds",
			Help:      "Inventory API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		planMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_mutations_total",
			Help:      "Create, patch and delete calls against migration resources.",
		}, []string{"op", "result"}),
		prefills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefill_total",
			Help:      "Edit-mode prefill attempts by outcome.",
		}, []string{"result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished async jobs by type and final status.",
		}, []string{"type", "result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inventoryRequests,
		m.inventoryDuration,
		m.planMutations,
		m.prefills,
		m.jobs,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveInventory records one inventory request. code is 0 for transport errors.
func (m *Metrics) ObserveInventory(endpoint string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.inventoryRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.inventoryDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// PlanMutation records a create/patch/delete and whether it failed.
func (m *Metrics) PlanMutation(op string, err error) {
	if m == nil {
		return
	}
	m.planMutations.WithLabelValues(op, result(err)).Inc()
}

// Prefill records the outcome of a prefill run ("done", "error", "pending").
func (m *Metrics) Prefill(outcome string) {
	if m == nil {
		return
	}
	m.prefills.WithLabelValues(outcome).Inc()
}

// Job records a finished job with its final status ("completed", "failed",
// "cancelled").
func (m *Metrics) Job(jobType, status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(jobType, status).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
