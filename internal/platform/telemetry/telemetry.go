// Package telemetry exposes Prometheus metrics for the notification builder:
// HTTP server metrics, transformation outcomes and archive pool gauges.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TelemetryConfig holds the telemetry settings.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	MetricsEnabled *bool // nil = enabled
}

func (c *TelemetryConfig) metricsOn() bool {
	if c.MetricsEnabled == nil {
		return true
	}
	return *c.MetricsEnabled
}

func (c *TelemetryConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "notification-builder"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// BoolPtr is a helper to create a *bool for TelemetryConfig fields.
func BoolPtr(b bool) *bool {
	return &b
}

// Transformation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var defaultDurationBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// TelemetryProvider owns a private registry and every collector of the
// service.
type TelemetryProvider struct {
	cfg      TelemetryConfig
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	activeRequests prometheus.Gauge

	transformations       *prometheus.CounterVec
	transformationLatency *prometheus.HistogramVec
	omissions             *prometheus.CounterVec

	poolActive prometheus.Gauge
	poolIdle   prometheus.Gauge
}

// NewTelemetryProvider creates the provider and registers its collectors
// together with the Go runtime and process collectors.
func NewTelemetryProvider(cfg TelemetryConfig) *TelemetryProvider {
	cfg.applyDefaults()
	constLabels := prometheus.Labels{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
	}

	tp := &TelemetryProvider{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_server_requests_total",
			Help:        "Total HTTP requests by method, route and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_server_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds.",
			ConstLabels: constLabels,
			Buckets:     defaultDurationBuckets,
		}, []string{"method", "route", "status_code"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_server_active_requests",
			Help:        "Number of active HTTP requests.",
			ConstLabels: constLabels,
		}),
		transformations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notification_transformations_total",
			Help:        "Notification bundle transformations by strategy and outcome.",
			ConstLabels: constLabels,
		}, []string{"strategy", "outcome"}),
		transformationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "notification_transformation_duration_seconds",
			Help:        "Duration of notification bundle transformations in seconds.",
			ConstLabels: constLabels,
			Buckets:     defaultDurationBuckets,
		}, []string{"strategy"}),
		omissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notification_excerpt_omissions_total",
			Help:        "Supplementary records left out of excerpts after a failed copy.",
			ConstLabels: constLabels,
		}, []string{"flavor", "resource_type"}),
		poolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_active_connections",
			Help:        "Number of active archive pool connections.",
			ConstLabels: constLabels,
		}),
		poolIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_idle_connections",
			Help:        "Number of idle archive pool connections.",
			ConstLabels: constLabels,
		}),
	}

	tp.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		tp.requests, tp.requestLatency, tp.activeRequests,
		tp.transformations, tp.transformationLatency, tp.omissions,
		tp.poolActive, tp.poolIdle,
	)
	return tp
}

// Registry returns the registry backing /metrics.
func (tp *TelemetryProvider) Registry() *prometheus.Registry {
	return tp.registry
}

// ObserveTransformation records one dispatch of strategy. A dispatch that
// never selected a strategy is recorded under "none".
func (tp *TelemetryProvider) ObserveTransformation(strategy string, err error, d time.Duration) {
	if tp == nil || !tp.cfg.metricsOn() {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	tp.transformations.WithLabelValues(strategy, outcome).Inc()
	tp.transformationLatency.WithLabelValues(strategy).Observe(d.Seconds())
}

// Omitted counts a record left out of an excerpt.
func (tp *TelemetryProvider) Omitted(flavor, resourceType string) {
	if tp == nil || !tp.cfg.metricsOn() {
		return
	}
	tp.omissions.WithLabelValues(flavor, resourceType).Inc()
}

// HealthMetricsRecorder sets the pool gauges.
type HealthMetricsRecorder struct {
	tp *TelemetryProvider
}

// HealthMetrics returns a recorder for the archive pool gauges.
func (tp *TelemetryProvider) HealthMetrics() *HealthMetricsRecorder {
	return &HealthMetricsRecorder{tp: tp}
}

func (h *HealthMetricsRecorder) SetDBPoolActive(n int64) {
	h.tp.poolActive.Set(float64(n))
}

func (h *HealthMetricsRecorder) SetDBPoolIdle(n int64) {
	h.tp.poolIdle.Set(float64(n))
}

// MetricsMiddleware returns an Echo middleware that records HTTP server metrics.
func (tp *TelemetryProvider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !tp.cfg.metricsOn() {
				return next(c)
			}
			tp.activeRequests.Inc()
			defer tp.activeRequests.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo render the error so the status code is final.
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := strconv.Itoa(c.Response().Status)
			tp.requests.WithLabelValues(c.Request().Method, route, status).Inc()
			tp.requestLatency.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (tp *TelemetryProvider) PrometheusHandler() echo.HandlerFunc {
	h := promhttp.HandlerFor(tp.registry, promhttp.HandlerOpts{Registry: tp.registry})
	return echo.WrapHandler(h)
}

// Handler is PrometheusHandler for plain net/http muxes.
func (tp *TelemetryProvider) Handler() http.Handler {
	return promhttp.HandlerFor(tp.registry, promhttp.HandlerOpts{Registry: tp.registry})
}
