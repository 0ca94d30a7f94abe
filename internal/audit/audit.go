// Package audit keeps a bounded in-memory trail of upload lifecycle
// events for operational review.
package audit

import (
	"sync"
	"time"

	"clipfold/internal/metrics"
)

// Event is the kind of an audit log entry.
type Event string

// Audit event kinds.
const (
	EventUploadStarted       Event = "upload_started"
	EventProcessingStarted   Event = "processing_started"
	EventProcessingCompleted Event = "processing_completed"
	EventProcessingFailed    Event = "processing_failed"
	EventUploadCancelled     Event = "upload_cancelled"
	EventFileDeleted         Event = "file_deleted"
	EventAccessDenied        Event = "access_denied"
)

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Event     Event             `json:"event"`
	UploadID  string            `json:"uploadId"`
	Slug      string            `json:"slug,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// DefaultLimit bounds the in-memory audit trail.
const DefaultLimit = 1000

// Logger is a bounded append-only audit trail shared by all jobs.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

// NewLogger creates a Logger keeping at most limit entries (<= 0 selects
// DefaultLimit).
func NewLogger(limit int) *Logger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Logger{limit: limit}
}

// Log appends an entry, dropping the oldest once the limit is reached.
func (l *Logger) Log(event Event, uploadID, slug, userID string, details map[string]string) {
	entry := Entry{
		Timestamp: time.Now(),
		Event:     event,
		UploadID:  uploadID,
		Slug:      slug,
		UserID:    userID,
		Details:   details,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
	l.mu.Unlock()

	metrics.AuditEvents.WithLabelValues(string(event)).Inc()
}

// EntriesForUpload returns the entries recorded for one upload id, oldest
// first.
func (l *Logger) EntriesForUpload(uploadID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if e.UploadID == uploadID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
