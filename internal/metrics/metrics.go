package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Provider metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderFallbacksTotal  prometheus.Counter

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsTotal    prometheus.Counter
	SessionsArchived prometheus.Counter

	// Step metrics
	StepsTotal          *prometheus.CounterVec
	StepDuration        *prometheus.HistogramVec
	StepViolationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Total number of backend generation requests",
			},
			[]string{"backend", "status"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Duration of backend generation requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		ProviderFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "provider_fallbacks_total",
				Help: "Total number of requests that fell over to an alternate backend",
			},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Number of currently active generation sessions",
			},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsArchived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_archived",
				Help: "Total number of sessions archived by retention",
			},
		),

		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steps_total",
				Help: "Total number of accepted iteration steps",
			},
			[]string{"kind", "status"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "step_duration_seconds",
				Help:    "Duration of iteration step execution in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		StepViolationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "step_violations_total",
				Help: "Total number of rejected iteration steps",
			},
			[]string{"code"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ProviderRequestsTotal)
	m.registry.MustRegister(m.ProviderRequestDuration)
	m.registry.MustRegister(m.ProviderFallbacksTotal)

	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsTotal)
	m.registry.MustRegister(m.SessionsArchived)

	m.registry.MustRegister(m.StepsTotal)
	m.registry.MustRegister(m.StepDuration)
	m.registry.MustRegister(m.StepViolationsTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
