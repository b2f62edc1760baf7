package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"streampay/internal/database"
	"streampay/internal/logging"
	"streampay/internal/mediatypes"
)

// GetTranscodeProfiles lists all transcode profiles.
// GET /api?action=admin_get_transcode_profiles
func (h *Handlers) GetTranscodeProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.db.ListProfiles(r.Context())
	if err != nil {
		logging.Error("Failed to list transcode profiles: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list transcode profiles")
		return
	}

	respond(w, map[string]interface{}{"profiles": profiles})
}

// SaveTranscodeProfile creates or replaces the profile for an extension.
// POST /api?action=admin_save_transcode_profile
func (h *Handlers) SaveTranscodeProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var profile database.TranscodeProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile.Extension = mediatypes.NormalizeExt(profile.Extension)
	if profile.Extension == "" {
		respondError(w, http.StatusBadRequest, "Missing extension")
		return
	}

	if err := h.db.SaveProfile(r.Context(), &profile); err != nil {
		logging.Error("Failed to save transcode profile for %s: %v", profile.Extension, err)
		respondError(w, http.StatusInternalServerError, "Failed to save transcode profile")
		return
	}

	saved, err := h.db.GetProfile(r.Context(), profile.Extension)
	if err != nil {
		logging.Error("Failed to reload transcode profile for %s: %v", profile.Extension, err)
		respondError(w, http.StatusInternalServerError, "Failed to save transcode profile")
		return
	}

	logging.Info("Saved transcode profile for .%s (output .%s)", saved.Extension, saved.OutputExt)
	respond(w, saved)
}

// DeleteTranscodeProfile removes the profile for an extension.
// POST /api?action=admin_delete_transcode_profile&extension=<ext>
func (h *Handlers) DeleteTranscodeProfile(w http.ResponseWriter, r *http.Request) {
	ext := mediatypes.NormalizeExt(r.URL.Query().Get("extension"))
	if ext == "" {
		respondError(w, http.StatusBadRequest, "Missing extension parameter")
		return
	}

	if err := h.db.DeleteProfile(r.Context(), ext); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No profile for extension")
			return
		}
		logging.Error("Failed to delete transcode profile for %s: %v", ext, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete transcode profile")
		return
	}

	logging.Info("Deleted transcode profile for .%s", ext)
	respond(w, map[string]string{"deleted": ext})
}

// TranscodeScanFilters enqueues jobs for every asset whose extension
// matches one of the posted filters and has a profile.
// POST /api?action=admin_transcode_scan_filters
func (h *Handlers) TranscodeScanFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Extensions []string `json:"extensions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Extensions) == 0 {
		respondError(w, http.StatusBadRequest, "No extensions given")
		return
	}

	enqueued, err := h.orch.EnqueueMatching(r.Context(), req.Extensions)
	if err != nil {
		logging.Error("Failed to enqueue transcode jobs: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue transcode jobs")
		return
	}

	logging.Info("Enqueued %d transcode jobs for filters %v", enqueued, req.Extensions)
	respond(w, map[string]interface{}{"enqueued": enqueued})
}

// ProcessNextTranscode claims and runs the oldest pending job.
// POST /api?action=admin_process_next_transcode
func (h *Handlers) ProcessNextTranscode(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.orch.ProcessNext(r.Context())
	if err != nil {
		logging.Error("Failed to process transcode job: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to process transcode job")
		return
	}

	if outcome == nil {
		respond(w, map[string]interface{}{"claimed": false})
		return
	}

	respond(w, outcome)
}

// RetryFailedTranscodes moves all failed jobs back to pending.
// POST /api?action=admin_retry_failed_transcodes
func (h *Handlers) RetryFailedTranscodes(w http.ResponseWriter, r *http.Request) {
	retried, err := h.orch.RetryAllFailed(r.Context())
	if err != nil {
		logging.Error("Failed to retry transcode jobs: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to retry transcode jobs")
		return
	}

	logging.Info("Requeued %d failed transcode jobs", retried)
	respond(w, map[string]interface{}{"retried": retried})
}

// ClearTranscodeQueue deletes every job that has not completed.
// POST /api?action=admin_clear_transcode_queue
func (h *Handlers) ClearTranscodeQueue(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.orch.ClearQueue(r.Context())
	if err != nil {
		logging.Error("Failed to clear transcode queue: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to clear transcode queue")
		return
	}

	logging.Info("Cleared %d jobs from the transcode queue", cleared)
	respond(w, map[string]interface{}{"cleared": cleared})
}

// GetTranscodeQueue returns per-status job counts.
// GET /api?action=get_transcode_queue
func (h *Handlers) GetTranscodeQueue(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orch.QueueStats(r.Context())
	if err != nil {
		logging.Error("Failed to load transcode queue stats: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load transcode queue stats")
		return
	}

	respond(w, stats)
}
