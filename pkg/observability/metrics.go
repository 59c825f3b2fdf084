package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Spreadsheet metrics
	SheetOperationsTotal   *prometheus.CounterVec
	SheetOperationDuration *prometheus.HistogramVec
	SheetErrorsTotal       *prometheus.CounterVec

	// Permission cache metrics
	PermissionCacheHitsTotal   prometheus.Counter
	PermissionCacheMissesTotal prometheus.Counter

	// Assignment metrics
	AssignmentsTotal *prometheus.CounterVec

	// Audit queue metrics
	AuditQueueDepth prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seggio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seggio_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SheetOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seggio_sheet_operations_total",
				Help: "Total number of spreadsheet operations",
			},
			[]string{"operation", "range", "status"},
		),
		SheetOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seggio_sheet_operation_duration_seconds",
				Help:    "Spreadsheet operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "range"},
		),
		SheetErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seggio_sheet_errors_total",
				Help: "Total number of spreadsheet operation errors",
			},
			[]string{"operation", "range"},
		),
		PermissionCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seggio_permission_cache_hits_total",
				Help: "Total number of permission cache hits",
			},
		),
		PermissionCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seggio_permission_cache_misses_total",
				Help: "Total number of permission cache misses",
			},
		),
		AssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seggio_assignments_total",
				Help: "Total number of assignment mutations",
			},
			[]string{"operation", "status"},
		),
		AuditQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "seggio_audit_queue_depth",
				Help: "Number of audit events waiting to be written",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SheetOperationsTotal,
		m.SheetOperationDuration,
		m.SheetErrorsTotal,
		m.PermissionCacheHitsTotal,
		m.PermissionCacheMissesTotal,
		m.AssignmentsTotal,
		m.AuditQueueDepth,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSheetOperation records a spreadsheet operation
func (m *Metrics) ObserveSheetOperation(operation, rangeName string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.SheetErrorsTotal.WithLabelValues(operation, rangeName).Inc()
	}
	m.SheetOperationsTotal.WithLabelValues(operation, rangeName, status).Inc()
	m.SheetOperationDuration.WithLabelValues(operation, rangeName).Observe(duration.Seconds())
}

// HTTPMiddleware instruments HTTP handlers with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
