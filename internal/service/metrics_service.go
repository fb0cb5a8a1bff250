package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry of the process.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	overlapping     *prometheus.GaugeVec
	sessionsIssued  *prometheus.CounterVec
	sessionsExpired prometheus.Counter
	scans           *prometheus.CounterVec
	reportJobs      *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache operations",
			Buckets: prometheus.DefBuckets,
		}),
		overlapping: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "attendance_overlapping_sessions",
			Help: "Open live sessions per course observed at the last issuance",
		}, []string{"course"}),
		sessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_sessions_created_total",
			Help: "Sessions written by kind",
		}, []string{"kind"}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_sessions_expired_on_read_total",
			Help: "Sessions deactivated lazily when read past their deadline",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_scans_total",
			Help: "Scan attempts by outcome",
		}, []string{"outcome"}),
		reportJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_jobs_total",
			Help: "Report jobs by terminal status",
		}, []string{"status"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLookups, m.cacheLatency,
		m.overlapping, m.sessionsIssued, m.sessionsExpired, m.scans, m.reportJobs, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetOverlappingSessions publishes the number of open live sessions for course.
func (m *MetricsService) SetOverlappingSessions(course string, n int) {
	if m == nil {
		return
	}
	m.overlapping.WithLabelValues(course).Set(float64(n))
}

// SessionCreated counts a session write of kind.
func (m *MetricsService) SessionCreated(kind string) {
	if m == nil {
		return
	}
	m.sessionsIssued.WithLabelValues(kind).Inc()
}

// SessionExpiredOnRead counts a lazy expiry flip.
func (m *MetricsService) SessionExpiredOnRead() {
	if m == nil {
		return
	}
	m.sessionsExpired.Inc()
}

// ScanOutcome counts a scan attempt by outcome or error code.
func (m *MetricsService) ScanOutcome(outcome string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
}

// ReportJobFinished counts a report job reaching a terminal status.
func (m *MetricsService) ReportJobFinished(status string) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(status).Inc()
}
