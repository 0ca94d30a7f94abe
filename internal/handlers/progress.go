package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"clipfold/internal/logging"
	"clipfold/internal/progress"
)

// GetProgress reports the live state of one upload. Entries evicted from
// the in-memory tracker fall back to the persisted record, so finished
// uploads stay queryable after the TTL sweep.
func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["id"]

	w.Header().Set("Content-Type", "application/json")

	if entry, ok := h.tracker.Get(uploadID); ok {
		writeJSON(w, entry)
		return
	}

	video, err := h.db.GetVideo(r.Context(), uploadID)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "unknown upload", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to load upload %s: %v", uploadID, err)
		writeJSONError(w, "failed to load upload", http.StatusInternalServerError)
		return
	}

	entry := progress.UploadProgress{
		UploadID: video.UploadID,
		Slug:     video.Slug,
		Status:   progress.Status(video.ProcessingStatus),
		Progress: video.ProcessingProgress,
		Error:    video.ProcessingError.String,
		Metadata: progress.Metadata{
			Filename: video.OriginalFilename,
			Duration: video.Duration.Float64,
		},
	}
	if video.Width.Valid && video.Height.Valid {
		entry.Metadata.Resolution = formatResolution(video.Width.Int64, video.Height.Int64)
	}
	writeJSON(w, entry)
}

// GetAuditLog returns the audit trail recorded for one upload.
func (h *Handlers) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["id"]
	entries := h.audit.EntriesForUpload(uploadID)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"uploadId": uploadID,
		"entries":  entries,
	})
}

func formatResolution(width, height int64) string {
	return fmt.Sprintf("%dx%d", width, height)
}
