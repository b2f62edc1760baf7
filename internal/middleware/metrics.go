package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"streampay/internal/metrics"
)

// metricsResponseWriter wraps http.ResponseWriter to capture status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus metrics. API
// requests are labeled by their action parameter rather than the URL path,
// since the whole surface lives under one path.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)

			start := time.Now()
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start).Seconds()

			action := actionLabel(r)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, action, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, action).Observe(duration)
		})
	}
}

// actionLabel derives a bounded-cardinality label for a request.
func actionLabel(r *http.Request) string {
	if action := r.URL.Query().Get("action"); action != "" {
		// Unknown actions fall through to an error response; labeling
		// them individually would let clients mint metric series.
		if knownActions[action] {
			return action
		}
		return "unknown"
	}
	return r.URL.Path
}

// knownActions is the set of dispatchable API actions; used only to bound
// metric label cardinality.
var knownActions = map[string]bool{
	"scan_local_library":             true,
	"process_scan_batch":             true,
	"get_scan_folders":               true,
	"smart_organize_library":         true,
	"reorganize_all_videos":          true,
	"fix_library_metadata":           true,
	"get_admin_library_stats":        true,
	"admin_get_transcode_profiles":   true,
	"admin_save_transcode_profile":   true,
	"admin_delete_transcode_profile": true,
	"admin_transcode_scan_filters":   true,
	"admin_process_next_transcode":   true,
	"admin_retry_failed_transcodes":  true,
	"admin_clear_transcode_queue":    true,
	"get_transcode_queue":            true,
	"stream":                         true,
}
