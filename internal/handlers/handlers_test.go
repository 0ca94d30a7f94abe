package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"clipfold/internal/audit"
	"clipfold/internal/database"
	"clipfold/internal/pipeline"
	"clipfold/internal/progress"
	"clipfold/internal/startup"
	"clipfold/internal/stats"
)

func newTestHandlers(t *testing.T) (*Handlers, *mux.Router) {
	t.Helper()

	root := t.TempDir()
	cfg := &startup.Config{
		VideosDir:      root,
		TempDir:        filepath.Join(root, "tmp"),
		PublicDir:      filepath.Join(root, "public"),
		PrivateDir:     filepath.Join(root, "private"),
		MaxUploadBytes: 1 << 20,
	}
	for _, dir := range []string{cfg.TempDir, cfg.PublicDir, cfg.PrivateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	db, err := database.New(context.Background(), filepath.Join(root, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	h := New(db, cfg, progress.NewTracker(0), stats.NewStore(), audit.NewLogger(0), pipeline.New(nil, nil, nil))

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/uploads/{id}/progress", h.GetProgress).Methods("GET")
	api.HandleFunc("/uploads/{id}/audit", h.GetAuditLog).Methods("GET")
	api.HandleFunc("/uploads/{id}", h.DeleteUpload).Methods("DELETE")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	return h, r
}

func TestMakeSlug(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		uploadID string
		expected string
	}{
		{"Simple", "My Video", "abcdef12-3456-7890-abcd-ef1234567890", "my-video-abcdef12"},
		{"Punctuation", "Hello, World!", "abcdef12-3456-7890-abcd-ef1234567890", "hello-world-abcdef12"},
		{"Unicode", "日本語のタイトル", "abcdef12-3456-7890-abcd-ef1234567890", "abcdef12"},
		{"Empty", "", "abcdef12-3456-7890-abcd-ef1234567890", "abcdef12"},
		{"Collapsed", "a  --  b", "abcdef12-3456-7890-abcd-ef1234567890", "a-b-abcdef12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makeSlug(tt.title, tt.uploadID)
			if got != tt.expected {
				t.Errorf("Expected makeSlug(%q)=%q, got %q", tt.title, tt.expected, got)
			}
		})
	}
}

func TestMakeSlugLongTitle(t *testing.T) {
	slug := makeSlug(strings.Repeat("word ", 30), "abcdef12-3456-7890")
	if len(slug) > 48+1+8 {
		t.Errorf("Slug too long: %d chars (%s)", len(slug), slug)
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	_, router := newTestHandlers(t)

	// Not multipart at all
	req := httptest.NewRequest("POST", "/api/upload", strings.NewReader("plain body"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-multipart body, got %d", rr.Code)
	}

	// Multipart but missing the video field
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", "No File"); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()

	req = httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing video field, got %d", rr.Code)
	}

	// Invalid visibility
	body.Reset()
	mw = multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("video", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("visibility", "unlisted"); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()

	req = httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid visibility, got %d", rr.Code)
	}
}

func TestGetProgressFromTracker(t *testing.T) {
	h, router := newTestHandlers(t)

	h.tracker.Init("u1", "clip-abc", "clip.mp4", 100)
	h.tracker.Update("u1", progress.StatusProcessing, 50, "Transcoding HLS renditions")

	req := httptest.NewRequest("GET", "/api/uploads/u1/progress", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var entry progress.UploadProgress
	if err := json.Unmarshal(rr.Body.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if entry.UploadID != "u1" || entry.Progress != 50 {
		t.Errorf("Unexpected progress payload: %+v", entry)
	}
	if entry.Stage != "Transcoding HLS renditions" {
		t.Errorf("Unexpected stage: %s", entry.Stage)
	}
}

func TestGetProgressFallsBackToDatabase(t *testing.T) {
	h, router := newTestHandlers(t)

	// Entry only in the database, as after a TTL sweep
	if err := h.db.CreateVideo(context.Background(), "u1", "clip-abc", "Clip", "public", "clip.mp4"); err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}
	if err := h.db.UpdateProcessingState(context.Background(), "u1", "complete", 100, ""); err != nil {
		t.Fatalf("UpdateProcessingState failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/uploads/u1/progress", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var entry progress.UploadProgress
	if err := json.Unmarshal(rr.Body.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if entry.Status != progress.StatusComplete || entry.Progress != 100 {
		t.Errorf("Unexpected fallback payload: %+v", entry)
	}
}

func TestGetProgressUnknownUpload(t *testing.T) {
	_, router := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/uploads/ghost/progress", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestGetStats(t *testing.T) {
	h, router := newTestHandlers(t)
	h.stats.RecordError("validation")

	req := httptest.NewRequest("GET", "/api/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if snap.ErrorsByKind["validation"] != 1 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestGetAuditLog(t *testing.T) {
	h, router := newTestHandlers(t)
	h.audit.Log(audit.EventUploadStarted, "u1", "clip-abc", "", nil)

	req := httptest.NewRequest("GET", "/api/uploads/u1/audit", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var payload struct {
		UploadID string        `json:"uploadId"`
		Entries  []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if payload.UploadID != "u1" || len(payload.Entries) != 1 {
		t.Errorf("Unexpected audit payload: %+v", payload)
	}
}

func TestDeleteUpload(t *testing.T) {
	h, router := newTestHandlers(t)
	ctx := context.Background()

	if err := h.db.CreateVideo(ctx, "u1", "clip-abc", "Clip", "public", "clip.mp4"); err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}
	if err := h.db.UpdateProcessingState(ctx, "u1", "complete", 100, ""); err != nil {
		t.Fatalf("UpdateProcessingState failed: %v", err)
	}

	destDir := h.config.DestinationDir("public", "clip-abc")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatalf("Failed to create dest dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(destDir, "master.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}

	req := httptest.NewRequest("DELETE", "/api/uploads/u1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Error("Expected media directory to be removed")
	}
	if entries := h.audit.EntriesForUpload("u1"); len(entries) != 1 || entries[0].Event != audit.EventFileDeleted {
		t.Errorf("Expected file_deleted audit entry, got %+v", entries)
	}
}

func TestDeleteUploadStillProcessing(t *testing.T) {
	h, router := newTestHandlers(t)
	ctx := context.Background()

	if err := h.db.CreateVideo(ctx, "u1", "clip-abc", "Clip", "public", "clip.mp4"); err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}
	if err := h.db.UpdateProcessingState(ctx, "u1", "processing", 50, ""); err != nil {
		t.Fatalf("UpdateProcessingState failed: %v", err)
	}

	req := httptest.NewRequest("DELETE", "/api/uploads/u1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 for in-flight upload, got %d", rr.Code)
	}
}

func TestDeleteUploadUnknown(t *testing.T) {
	_, router := newTestHandlers(t)

	req := httptest.NewRequest("DELETE", "/api/uploads/ghost", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status healthy, got %s", resp.Status)
	}
	if resp.GoVersion == "" {
		t.Error("Expected goVersion to be set")
	}
}
