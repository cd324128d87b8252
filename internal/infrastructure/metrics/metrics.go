package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's collectors on a private prometheus registry.
type Registry struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	executions *prometheus.CounterVec
	sweeps     *prometheus.CounterVec
	requests   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

func New(namespace string) *Registry {
	if namespace == "" {
		namespace = "nftcredit"
	}
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Committed events handed to the publisher, by type.",
		}, []string{"type"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_executions_total",
			Help:      "Multisig execution attempts, by outcome.",
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_transitions_total",
			Help:      "Loan transitions applied by the sweeper, by target status.",
		}, []string{"status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(r.events, r.executions, r.sweeps, r.requests, r.durations)
	return r
}

func (r *Registry) EventPublished(typ string) { r.events.WithLabelValues(typ).Inc() }

func (r *Registry) GatewayExecution(outcome string) { r.executions.WithLabelValues(outcome).Inc() }

func (r *Registry) SweepTransitions(status string, n int) {
	if n > 0 {
		r.sweeps.WithLabelValues(status).Add(float64(n))
	}
}

func (r *Registry) ObserveRequest(route, method, status string, took time.Duration) {
	r.requests.WithLabelValues(route, method, status).Inc()
	r.durations.WithLabelValues(route, method).Observe(took.Seconds())
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }
