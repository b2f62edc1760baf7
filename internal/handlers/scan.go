package handlers

import (
	"net/http"

	"streampay/internal/logging"
)

// ScanLocalLibrary resets the scan cursor and processes the first batch.
// GET|POST /api?action=scan_local_library
func (h *Handlers) ScanLocalLibrary(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.StartScan(r.Context())
	if err != nil {
		logging.Error("Failed to start library scan: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to start library scan")
		return
	}

	respond(w, result)
}

// ProcessScanBatch processes the next batch of the resumable scan.
// GET|POST /api?action=process_scan_batch
func (h *Handlers) ProcessScanBatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.ProcessBatch(r.Context())
	if err != nil {
		logging.Error("Failed to process scan batch: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to process scan batch")
		return
	}

	respond(w, result)
}

// GetScanFolders lists the top-level library folders with asset counts.
// GET /api?action=get_scan_folders
func (h *Handlers) GetScanFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.scanner.ScanFolders(r.Context())
	if err != nil {
		logging.Error("Failed to list scan folders: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list scan folders")
		return
	}

	respond(w, map[string]interface{}{"folders": folders})
}

// SmartOrganizeLibrary reclassifies assets still sitting in the default
// category.
// GET|POST /api?action=smart_organize_library
func (h *Handlers) SmartOrganizeLibrary(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.SmartOrganize(r.Context())
	if err != nil {
		logging.Error("Smart organize failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Smart organize failed")
		return
	}

	logging.Info("Smart organize: examined %d, updated %d", result.Examined, result.Updated)
	respond(w, result)
}

// ReorganizeAllVideos reclassifies every asset from its current path.
// GET|POST /api?action=reorganize_all_videos
func (h *Handlers) ReorganizeAllVideos(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.ReorganizeAll(r.Context())
	if err != nil {
		logging.Error("Reorganize failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Reorganize failed")
		return
	}

	logging.Info("Reorganize: examined %d, updated %d", result.Examined, result.Updated)
	respond(w, result)
}

// FixLibraryMetadata probes assets with missing duration or mime type
// and fills them in.
// GET|POST /api?action=fix_library_metadata
func (h *Handlers) FixLibraryMetadata(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.FixMetadata(r.Context())
	if err != nil {
		logging.Error("Metadata fix failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Metadata fix failed")
		return
	}

	logging.Info("Metadata fix: examined %d, updated %d, failed %d",
		result.Examined, result.Updated, result.Failed)
	respond(w, result)
}

// GetAdminLibraryStats returns aggregate library and queue statistics.
// GET /api?action=get_admin_library_stats
func (h *Handlers) GetAdminLibraryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetLibraryStats(r.Context())
	if err != nil {
		logging.Error("Failed to load library stats: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load library stats")
		return
	}

	respond(w, stats)
}
