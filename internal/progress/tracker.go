package progress

import (
	"sync"
	"time"

	"clipfold/internal/logging"
)

// Status is the coarse lifecycle state of an upload.
type Status string

// Upload lifecycle states, also persisted as the processing_status column.
const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Metadata holds the optional descriptive fields merged into an entry as
// the pipeline learns them.
type Metadata struct {
	Filename   string   `json:"filename,omitempty"`
	Size       int64    `json:"size,omitempty"`
	Duration   float64  `json:"duration,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
	Qualities  []string `json:"qualities,omitempty"`
}

// UploadProgress is the poller-visible state of one upload.
type UploadProgress struct {
	UploadID            string     `json:"uploadId"`
	Slug                string     `json:"slug"`
	Status              Status     `json:"status"`
	Progress            int        `json:"progress"`
	Stage               string     `json:"stage"`
	StartedAt           time.Time  `json:"startedAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Error               string     `json:"error,omitempty"`
	Metadata            Metadata   `json:"metadata,omitempty"`
}

// DefaultTTL is how long terminal entries stay pollable before eviction.
const DefaultTTL = time.Hour

// minElapsedForETA gates the ETA estimate: rate computed from less than
// this much history is noise.
const minElapsedForETA = 5 * time.Second

// Tracker is a concurrency-safe map of upload id to UploadProgress. One
// job owns the writes for its entry; pollers only read. Terminal entries
// are swept out after a TTL.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*UploadProgress
	ttl     time.Duration

	now func() time.Time // test hook
}

// NewTracker creates a Tracker with the given eviction TTL for terminal
// entries (<= 0 selects DefaultTTL).
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		entries: make(map[string]*UploadProgress),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Init creates the entry for a new upload in Uploading/0%.
func (t *Tracker) Init(uploadID, slug, filename string, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[uploadID] = &UploadProgress{
		UploadID:  uploadID,
		Slug:      slug,
		Status:    StatusUploading,
		Progress:  0,
		Stage:     "Upload received",
		StartedAt: t.now(),
		Metadata: Metadata{
			Filename: filename,
			Size:     size,
		},
	}
}

// Update overwrites status, progress and stage description. While the
// upload is processing and progress moved forward, the ETA is recomputed
// from the observed rate; with under 5 seconds of history it stays unset.
func (t *Tracker) Update(uploadID string, status Status, percent int, stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[uploadID]
	if !ok {
		return
	}

	prev := entry.Progress
	entry.Status = status
	entry.Progress = percent
	entry.Stage = stage

	if status == StatusProcessing && percent > prev {
		entry.EstimatedCompletion = t.estimate(entry)
	}
}

// estimate projects completion time from progress so far, or nil when
// there is not enough history.
func (t *Tracker) estimate(entry *UploadProgress) *time.Time {
	elapsed := t.now().Sub(entry.StartedAt)
	if elapsed < minElapsedForETA || entry.Progress <= 0 {
		return nil
	}
	rate := float64(entry.Progress) / elapsed.Seconds() // percent per second
	remaining := time.Duration(float64(100-entry.Progress) / rate * float64(time.Second))
	eta := t.now().Add(remaining)
	return &eta
}

// SetError marks the upload failed with the given message.
func (t *Tracker) SetError(uploadID, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[uploadID]
	if !ok {
		return
	}
	now := t.now()
	entry.Status = StatusError
	entry.Error = msg
	entry.CompletedAt = &now
	entry.EstimatedCompletion = nil
}

// SetComplete forces the upload to its successful terminal state.
func (t *Tracker) SetComplete(uploadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[uploadID]
	if !ok {
		return
	}
	now := t.now()
	entry.Status = StatusComplete
	entry.Progress = 100
	entry.Stage = "Complete"
	entry.CompletedAt = &now
	entry.EstimatedCompletion = nil
}

// UpdateMetadata merges the non-zero metadata fields without touching
// status or progress.
func (t *Tracker) UpdateMetadata(uploadID string, duration float64, resolution string, qualities []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[uploadID]
	if !ok {
		return
	}
	if duration > 0 {
		entry.Metadata.Duration = duration
	}
	if resolution != "" {
		entry.Metadata.Resolution = resolution
	}
	if len(qualities) > 0 {
		entry.Metadata.Qualities = qualities
	}
}

// Get returns a copy of the entry for uploadID.
func (t *Tracker) Get(uploadID string) (UploadProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[uploadID]
	if !ok {
		return UploadProgress{}, false
	}
	return *entry, true
}

// Len returns the number of tracked uploads.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Sweep evicts terminal entries whose completion is older than the TTL
// and returns how many were removed. Non-terminal entries are never
// evicted here.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.ttl)
	removed := 0
	for id, entry := range t.entries {
		if entry.Status.Terminal() && entry.CompletedAt != nil && entry.CompletedAt.Before(cutoff) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on the given interval until stop is closed.
func (t *Tracker) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				logging.Debug("progress: evicted %d finished upload(s)", n)
			}
		}
	}
}
