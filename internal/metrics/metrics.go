package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "action", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streampay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "action"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streampay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampay_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streampay_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streampay_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScannerBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampay_scanner_batches_total",
			Help: "Total number of scan batches processed",
		},
		[]string{"status"},
	)

	ScannerBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streampay_scanner_batch_duration_seconds",
			Help:    "Scan batch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ScannerAssetsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampay_scanner_assets_imported_total",
			Help: "Total number of media assets imported by the scanner",
		},
	)

	ScannerEntriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampay_scanner_entries_skipped_total",
			Help: "Total number of filesystem entries skipped due to errors",
		},
	)

	ScannerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streampay_scanner_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)
)

// Transcoder metrics
var (
	TranscodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampay_transcode_jobs_total",
			Help: "Total number of transcode jobs by outcome",
		},
		[]string{"status"},
	)

	TranscodeJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streampay_transcode_job_duration_seconds",
			Help:    "Transcode job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	TranscodeJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streampay_transcode_jobs_in_progress",
			Help: "Number of transcode jobs currently in progress",
		},
	)

	TranscodeJobsReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampay_transcode_jobs_reclaimed_total",
			Help: "Total number of stale PROCESSING jobs reclaimed to PENDING",
		},
	)

	ProbeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampay_probe_failures_total",
			Help: "Total number of duration probes that fell back to zero",
		},
	)
)

// Streaming metrics
var (
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streampay_stream_requests_total",
			Help: "Total number of stream requests by delivery mode and status",
		},
		[]string{"mode", "status"},
	)

	StreamBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampay_stream_bytes_sent_total",
			Help: "Total bytes streamed inline to clients",
		},
	)

	StreamPathRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streampay_stream_path_rejections_total",
			Help: "Total number of asset paths rejected by the safety resolver",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streampay_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
