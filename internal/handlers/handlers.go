package handlers

import (
	"net/http"

	"streampay/internal/database"
	"streampay/internal/scanner"
	"streampay/internal/streaming"
	"streampay/internal/transcode"
)

type Handlers struct {
	db       *database.Database
	scanner  *scanner.Scanner
	orch     *transcode.Orchestrator
	resolver *streaming.Resolver
	strategy streaming.Strategy
}

func New(db *database.Database, sc *scanner.Scanner, orch *transcode.Orchestrator, resolver *streaming.Resolver, strategy streaming.Strategy) *Handlers {
	return &Handlers{
		db:       db,
		scanner:  sc,
		orch:     orch,
		resolver: resolver,
		strategy: strategy,
	}
}

// API dispatches a request to the handler for its action parameter.
// GET /api?action=<name> or POST /api?action=<name>
func (h *Handlers) API(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")

	switch action {
	case "scan_local_library":
		h.ScanLocalLibrary(w, r)
	case "process_scan_batch":
		h.ProcessScanBatch(w, r)
	case "get_scan_folders":
		h.GetScanFolders(w, r)
	case "smart_organize_library":
		h.SmartOrganizeLibrary(w, r)
	case "reorganize_all_videos":
		h.ReorganizeAllVideos(w, r)
	case "fix_library_metadata":
		h.FixLibraryMetadata(w, r)
	case "get_admin_library_stats":
		h.GetAdminLibraryStats(w, r)
	case "admin_get_transcode_profiles":
		h.GetTranscodeProfiles(w, r)
	case "admin_save_transcode_profile":
		h.SaveTranscodeProfile(w, r)
	case "admin_delete_transcode_profile":
		h.DeleteTranscodeProfile(w, r)
	case "admin_transcode_scan_filters":
		h.TranscodeScanFilters(w, r)
	case "admin_process_next_transcode":
		h.ProcessNextTranscode(w, r)
	case "admin_retry_failed_transcodes":
		h.RetryFailedTranscodes(w, r)
	case "admin_clear_transcode_queue":
		h.ClearTranscodeQueue(w, r)
	case "get_transcode_queue":
		h.GetTranscodeQueue(w, r)
	case "stream":
		h.Stream(w, r)
	case "":
		respondError(w, http.StatusBadRequest, "Missing action parameter")
	default:
		respondError(w, http.StatusBadRequest, "Unknown action")
	}
}
