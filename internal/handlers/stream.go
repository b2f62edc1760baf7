package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"streampay/internal/database"
	"streampay/internal/logging"
	"streampay/internal/mediatypes"
)

// Stream delivers an asset's playable file using the configured
// delivery strategy.
// GET /api?action=stream&id=<asset id>
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid asset id")
		return
	}

	asset, err := h.db.GetAssetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Asset not found")
			return
		}
		logging.Error("Failed to load asset %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to load asset")
		return
	}

	// The transcoded output takes precedence over the original file
	// once a job has completed.
	playPath := asset.PlayablePath()
	if playPath == "" {
		respondError(w, http.StatusNotFound, "Asset has no playable file")
		return
	}

	resolved, err := h.resolver.Resolve(playPath)
	if err != nil {
		// Deliberately indistinguishable from a missing asset.
		logging.Warn("Rejected stream path for asset %d: %v", id, err)
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	mimeType := asset.MimeType
	if mimeType == "" {
		mimeType = mediatypes.StreamMime(resolved)
	}

	if err := h.strategy.Deliver(w, r, resolved, mimeType); err != nil {
		// Headers may already be on the wire; all we can do is log.
		logging.Error("Stream delivery failed for asset %d: %v", id, err)
	}
}
