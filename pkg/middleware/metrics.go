package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "nextgo").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "nextgo",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for nextgo.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	inFlight        prometheus.Gauge
	prepareDuration prometheus.Histogram
	prepareFailures prometheus.Counter
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests by render outcome and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request handling duration in seconds by render outcome",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of error responses by status class",
			ConstLabels: config.ConstLabels,
		}, []string{"class"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of requests being served, including those waiting for the engine",
			ConstLabels: config.ConstLabels,
		}),

		prepareDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "engine_prepare_seconds",
			Help:        "Engine preparation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		prepareFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "engine_prepare_failures_total",
			Help:        "Total number of failed engine preparations",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that collects request metrics.
//
// Metrics collected:
//   - nextgo_requests_total: Counter of requests by outcome and status code
//   - nextgo_request_duration_seconds: Histogram of request duration by outcome
//   - nextgo_request_errors_total: Counter of 4xx/5xx responses by class
//   - nextgo_requests_in_flight: Gauge of requests being served
//   - nextgo_engine_prepare_seconds: Histogram of engine preparation (RecordPrepare)
//   - nextgo_engine_prepare_failures_total: Counter of failed preparations
//
// Example:
//
//	r.Use(middleware.Prometheus(middleware.WithNamespace("myapp")))
//	r.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, slot := withSlot(r.Context())
			rec := newStatusRecorder(w)

			m.inFlight.Inc()
			start := time.Now()
			defer func() {
				m.inFlight.Dec()
				outcome := slot.get()
				status := rec.Status()
				m.requestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
				m.requestsTotal.WithLabelValues(outcome, strconv.Itoa(status)).Inc()
				if class := statusClass(status); class != "" {
					m.requestErrors.WithLabelValues(class).Inc()
				}
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

// statusClass returns "4xx" or "5xx" for error statuses and "" otherwise.
// Status classes keep the label set small.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return ""
	}
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordPrepare records an engine preparation.
// Call this when the readiness gate settles.
func RecordPrepare(d time.Duration, err error) {
	globalMetricsMu.Lock()
	m := globalMetrics
	globalMetricsMu.Unlock()
	if m == nil {
		return
	}
	m.prepareDuration.Observe(d.Seconds())
	if err != nil {
		m.prepareFailures.Inc()
	}
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the metrics for custom registrations and tests.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	InFlight        prometheus.Gauge
	PrepareDuration prometheus.Histogram
	PrepareFailures prometheus.Counter
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		RequestsTotal:   globalMetrics.requestsTotal,
		RequestDuration: globalMetrics.requestDuration,
		RequestErrors:   globalMetrics.requestErrors,
		InFlight:        globalMetrics.inFlight,
		PrepareDuration: globalMetrics.prepareDuration,
		PrepareFailures: globalMetrics.prepareFailures,
	}
}
