package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipfold/internal/audit"
	"clipfold/internal/logging"
	"clipfold/internal/pipeline"
)

// multipart headers and form fields are small; the file itself streams
// to disk, so the in-memory budget stays modest.
const multipartMemoryLimit = 32 << 20

// UploadResponse is returned as soon as the upload is accepted; the
// pipeline runs in the background and progress is polled separately.
type UploadResponse struct {
	UploadID string `json:"uploadId"`
	Slug     string `json:"slug"`
	Status   string `json:"status"`
}

// Upload accepts a multipart video upload, stores it in the temp dir
// and kicks off background processing.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if limit := h.config.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, "upload exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "invalid multipart request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeJSONError(w, "missing video file field", http.StatusBadRequest)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logging.Warn("failed to close upload body: %v", closeErr)
		}
	}()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	visibility := r.FormValue("visibility")
	if visibility == "" {
		visibility = "public"
	}
	if visibility != "public" && visibility != "private" {
		writeJSONError(w, "visibility must be public or private", http.StatusBadRequest)
		return
	}

	uploadID := uuid.NewString()
	slug := makeSlug(title, uploadID)

	tempPath := filepath.Join(h.config.TempDir, uploadID+strings.ToLower(filepath.Ext(header.Filename)))
	written, err := saveUpload(tempPath, file)
	if err != nil {
		logging.Error("Upload %s: failed to save temp file: %v", uploadID, err)
		writeJSONError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	h.tracker.Init(uploadID, slug, header.Filename, written)

	if err := h.db.CreateVideo(r.Context(), uploadID, slug, title, visibility, header.Filename); err != nil {
		logging.Error("Upload %s: failed to create video record: %v", uploadID, err)
		if rmErr := os.Remove(tempPath); rmErr != nil {
			logging.Warn("Upload %s: failed to remove temp file after DB error: %v", uploadID, rmErr)
		}
		writeJSONError(w, "failed to register upload", http.StatusInternalServerError)
		return
	}

	h.audit.Log(audit.EventUploadStarted, uploadID, slug, "", map[string]string{
		"filename":   header.Filename,
		"size":       fmt.Sprintf("%d", written),
		"visibility": visibility,
	})

	pc := &pipeline.ProcessingContext{
		UploadID:         uploadID,
		Slug:             slug,
		TempPath:         tempPath,
		Visibility:       visibility,
		OriginalFilename: header.Filename,
		Config:           h.config,
		Tracker:          h.tracker,
		Stats:            h.stats,
		Audit:            h.audit,
		Store:            h.db,
	}
	go func() {
		if procErr := h.orch.Process(context.Background(), pc); procErr != nil {
			logging.Error("Upload %s: processing failed: %v", uploadID, procErr)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, UploadResponse{UploadID: uploadID, Slug: slug, Status: "uploading"})
}

// saveUpload streams the multipart file to dst and returns the byte count.
func saveUpload(dst string, src io.Reader) (int64, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, src)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return 0, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return written, nil
}

// makeSlug derives a URL-safe slug from the title, suffixed with a
// slice of the upload id so concurrent uploads of the same title never
// collide on the unique slug column.
func makeSlug(title, uploadID string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > 48 {
		slug = strings.Trim(slug[:48], "-")
	}

	suffix := strings.ReplaceAll(uploadID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
