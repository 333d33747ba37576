package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "agency_sales"

// Metrics holds the Prometheus collectors of the application
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	errorCounter    *prometheus.CounterVec
	importedRows    *prometheus.CounterVec
	skippedRows     *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

var metricsInstance *Metrics

// NewMetrics registers the application collectors on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path"},
		),
		errorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_errors_total",
				Help:      "Total number of HTTP responses with status >= 400",
			},
			[]string{"method", "path", "status"},
		),
		importedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_rows_imported_total",
				Help:      "Rows accepted by bulk imports",
			},
			[]string{"entity"},
		),
		skippedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "import_rows_skipped_total",
				Help:      "Rows rejected by bulk imports",
			},
			[]string{"entity"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "exports_total",
				Help:      "Exports rendered",
			},
			[]string{"entity", "format"},
		),
	}
}

// GetMetrics returns the process-wide metrics, or nil when metrics are off
func GetMetrics() *Metrics {
	return metricsInstance
}

// SetMetrics sets the process-wide metrics instance
func SetMetrics(m *Metrics) {
	metricsInstance = m
}

// Middleware tracks request counts, durations and errors per route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.requestCounter.WithLabelValues(method, path).Inc()
		m.requestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			m.errorCounter.WithLabelValues(method, path, status).Inc()
		}
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordImport counts the outcome of one bulk import
func (m *Metrics) RecordImport(entity string, imported, skipped int) {
	if m == nil {
		return
	}
	m.importedRows.WithLabelValues(entity).Add(float64(imported))
	m.skippedRows.WithLabelValues(entity).Add(float64(skipped))
}

// RecordExport counts one rendered export
func (m *Metrics) RecordExport(entity, format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(entity, format).Inc()
}
