package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"clipfold/internal/audit"
	"clipfold/internal/logging"
)

// DeleteUpload removes a finished upload: its media directory and its
// database record. In-flight uploads cannot be deleted since the
// pipeline holds no cancellation hook.
func (h *Handlers) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["id"]

	video, err := h.db.GetVideo(r.Context(), uploadID)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "unknown upload", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to load upload %s for delete: %v", uploadID, err)
		writeJSONError(w, "failed to load upload", http.StatusInternalServerError)
		return
	}

	if video.ProcessingStatus == "processing" || video.ProcessingStatus == "uploading" {
		writeJSONError(w, "upload is still processing", http.StatusConflict)
		return
	}

	destDir := h.config.DestinationDir(video.Visibility, video.Slug)
	if err := os.RemoveAll(destDir); err != nil {
		logging.Error("failed to remove media for upload %s at %s: %v", uploadID, destDir, err)
		writeJSONError(w, "failed to remove media", http.StatusInternalServerError)
		return
	}

	if err := h.db.DeleteVideo(r.Context(), uploadID); err != nil {
		logging.Error("failed to delete record for upload %s: %v", uploadID, err)
		writeJSONError(w, "failed to delete record", http.StatusInternalServerError)
		return
	}

	h.audit.Log(audit.EventFileDeleted, uploadID, video.Slug, "", map[string]string{
		"path": destDir,
	})

	writeJSONStatus(w, "deleted")
}
