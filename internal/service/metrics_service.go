package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheWrite        prometheus.Histogram
	dbQueryDuration   *prometheus.HistogramVec
	uploadsIngested   prometheus.Counter
	rowsIngested      prometheus.Counter
	ingestionFailures *prometheus.CounterVec
	countsRepaired    prometheus.Counter
	stagedRemoved     prometheus.Counter
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
			Help: "Cache lookups partitioned by result",
		}, []string{"result"}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		uploadsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploads_ingested_total",
			Help: "Spreadsheets ingested successfully",
		}),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "student_rows_ingested_total",
			Help: "Student rows persisted by ingestion",
		}),
		ingestionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_failures_total",
			Help: "Failed ingestions partitioned by stage",
		}, []string{"stage"}),
		countsRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upload_counts_repaired_total",
			Help: "Upload student counts corrected by reconciliation",
		}),
		stagedRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staged_files_removed_total",
			Help: "Stale staged upload files removed by cleanup",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLookups, m.cacheWrite, m.dbQueryDuration,
		m.uploadsIngested, m.rowsIngested, m.ingestionFailures, m.countsRepaired, m.stagedRemoved, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
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

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordIngestion counts one successful upload and its rows.
func (m *MetricsService) RecordIngestion(rows int) {
	if m == nil {
		return
	}
	m.uploadsIngested.Inc()
	m.rowsIngested.Add(float64(rows))
}

// RecordIngestionFailure counts a failed upload at the given stage.
func (m *MetricsService) RecordIngestionFailure(stage string) {
	if m == nil {
		return
	}
	m.ingestionFailures.WithLabelValues(stage).Inc()
}

// RecordCountsRepaired adds reconciled uploads.
func (m *MetricsService) RecordCountsRepaired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.countsRepaired.Add(float64(n))
}

// RecordStagedFilesRemoved adds removed stale staging files.
func (m *MetricsService) RecordStagedFilesRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.stagedRemoved.Add(float64(n))
}
