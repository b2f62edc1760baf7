package metrics

// InitializeMetrics pre-populates expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "error"} {
		ScannerBatchesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"done", "failed"} {
		TranscodeJobsTotal.WithLabelValues(status)
	}

	for _, mode := range []string{"inline", "nginx", "sendfile"} {
		for _, status := range []string{"success", "error"} {
			StreamRequestsTotal.WithLabelValues(mode, status)
		}
	}

	for _, op := range []string{
		"initialize_schema", "create_asset", "get_asset", "update_asset",
		"enqueue_jobs", "claim_job", "complete_job", "fail_job",
		"retry_failed", "clear_queue", "reclaim_stale",
	} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
