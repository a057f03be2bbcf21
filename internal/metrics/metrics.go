// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	navigationsEndedTotal       *prometheus.CounterVec
	recordSinkFailuresTotal     *prometheus.CounterVec
	recordSinkWritesTotal       *prometheus.CounterVec
	artifactUploadFailuresTotal *prometheus.CounterVec
	artifactUploadsTotal        *prometheus.CounterVec
	forensicProbeFailuresTotal  *prometheus.CounterVec
	sessionsRetiredTotal        *prometheus.CounterVec
	requestsSkippedTotal        prometheus.Counter
	crawlerActiveWorkers        prometheus.Gauge
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	rateLimitDelaySeconds       prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		navigationsEndedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_navigations_ended_total",
				Help: "Navigations finalized, labeled by office and outcome.",
			},
			[]string{"office", "outcome"},
		)

		recordSinkFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_record_sink_failures_total",
				Help: "Record sink writes that failed, labeled by table and stage.",
			},
			[]string{"table", "stage"},
		)

		recordSinkWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_record_sink_writes_total",
				Help: "Record sink writes that succeeded, labeled by table and stage.",
			},
			[]string{"table", "stage"},
		)

		artifactUploadFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_artifact_upload_failures_total",
				Help: "Artifact uploads that failed, labeled by kind.",
			},
			[]string{"kind"},
		)

		artifactUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_artifact_uploads_total",
				Help: "Artifact uploads that succeeded, labeled by kind.",
			},
			[]string{"kind"},
		)

		forensicProbeFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_forensic_probe_failures_total",
				Help: "Forensic capture probes that failed or timed out, labeled by probe.",
			},
			[]string{"probe"},
		)

		sessionsRetiredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_sessions_retired_total",
				Help: "Sessions removed from the pool, labeled by reason.",
			},
			[]string{"reason"},
		)

		requestsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tmc_requests_skipped_total",
				Help: "Requests skipped because their unique key was already attempted.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tmc_active_workers",
				Help: "Number of workers currently processing a request.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmc_http_requests_total",
				Help: "Total number of ops HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tmc_http_request_duration_seconds",
				Help:    "Histogram of ops HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tmc_rate_limit_delay_seconds",
				Help:    "Histogram of requests-per-minute limiter waits.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveNavigationEnded counts a finalized navigation.
func ObserveNavigationEnded(office, outcome string) {
	Init()
	if office == "" {
		office = "unknown"
	}
	navigationsEndedTotal.WithLabelValues(office, outcome).Inc()
}

// ObserveRecordWrite counts a record sink write by table and stage
// ("encode", "remote" or "local").
func ObserveRecordWrite(table, stage string, err error) {
	Init()
	if err != nil {
		recordSinkFailuresTotal.WithLabelValues(table, stage).Inc()
		return
	}
	recordSinkWritesTotal.WithLabelValues(table, stage).Inc()
}

// ObserveArtifactUpload counts an artifact upload by kind.
func ObserveArtifactUpload(kind string, err error) {
	Init()
	if err != nil {
		artifactUploadFailuresTotal.WithLabelValues(kind).Inc()
		return
	}
	artifactUploadsTotal.WithLabelValues(kind).Inc()
}

// ObserveProbeFailure counts a failed forensic probe.
func ObserveProbeFailure(probe string) {
	Init()
	forensicProbeFailuresTotal.WithLabelValues(probe).Inc()
}

// ObserveSessionRetired counts a session leaving the pool.
func ObserveSessionRetired(reason string) {
	Init()
	sessionsRetiredTotal.WithLabelValues(reason).Inc()
}

// ObserveRequestSkipped counts a deduplicated request.
func ObserveRequestSkipped() {
	Init()
	requestsSkippedTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	crawlerActiveWorkers.Dec()
}

// ObserveHTTPRequest records an ops HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records a limiter wait.
func ObserveRateLimitDelay(d time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(d.Seconds())
}
