package progress

import (
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusUploading, false},
		{StatusProcessing, false},
		{StatusComplete, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Expected %s.Terminal()=%v, got %v", tt.status, tt.terminal, got)
		}
	}
}

func TestInitAndGet(t *testing.T) {
	tr := NewTracker(0)
	tr.Init("u1", "my-video-abc", "clip.mp4", 1024)

	entry, ok := tr.Get("u1")
	if !ok {
		t.Fatal("Expected entry for u1")
	}
	if entry.Status != StatusUploading {
		t.Errorf("Expected status uploading, got %s", entry.Status)
	}
	if entry.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", entry.Progress)
	}
	if entry.Slug != "my-video-abc" {
		t.Errorf("Expected slug my-video-abc, got %s", entry.Slug)
	}
	if entry.Metadata.Filename != "clip.mp4" || entry.Metadata.Size != 1024 {
		t.Errorf("Unexpected metadata: %+v", entry.Metadata)
	}

	if _, ok := tr.Get("missing"); ok {
		t.Error("Expected no entry for unknown id")
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	tr := NewTracker(0)
	tr.Update("ghost", StatusProcessing, 50, "Transcoding")
	tr.SetError("ghost", "boom")
	tr.SetComplete("ghost")
	tr.UpdateMetadata("ghost", 10, "640x360", nil)

	if tr.Len() != 0 {
		t.Errorf("Expected empty tracker, got %d entries", tr.Len())
	}
}

func TestETAGating(t *testing.T) {
	tr := NewTracker(0)

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return current }

	tr.Init("u1", "slug", "clip.mp4", 1)

	// Under 5 seconds of history: no ETA even with forward progress
	current = current.Add(2 * time.Second)
	tr.Update("u1", StatusProcessing, 10, "Extracting metadata")
	entry, _ := tr.Get("u1")
	if entry.EstimatedCompletion != nil {
		t.Error("Expected no ETA under 5s of history")
	}

	// 10 seconds in at 50%: rate is 5%/s, 50% remain -> ETA now+10s
	current = current.Add(8 * time.Second)
	tr.Update("u1", StatusProcessing, 50, "Transcoding HLS renditions")
	entry, _ = tr.Get("u1")
	if entry.EstimatedCompletion == nil {
		t.Fatal("Expected ETA after 10s of history")
	}
	expected := current.Add(10 * time.Second)
	if !entry.EstimatedCompletion.Equal(expected) {
		t.Errorf("Expected ETA %v, got %v", expected, *entry.EstimatedCompletion)
	}

	// Progress standing still must not refresh the estimate
	current = current.Add(time.Second)
	tr.Update("u1", StatusProcessing, 50, "Transcoding HLS renditions")
	entry, _ = tr.Get("u1")
	if !entry.EstimatedCompletion.Equal(expected) {
		t.Error("Expected ETA to stay put without forward progress")
	}
}

func TestSetComplete(t *testing.T) {
	tr := NewTracker(0)
	tr.Init("u1", "slug", "clip.mp4", 1)
	tr.Update("u1", StatusProcessing, 95, "Updating database")

	tr.SetComplete("u1")

	entry, _ := tr.Get("u1")
	if entry.Status != StatusComplete {
		t.Errorf("Expected status complete, got %s", entry.Status)
	}
	if entry.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", entry.Progress)
	}
	if entry.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
	if entry.EstimatedCompletion != nil {
		t.Error("Expected ETA to be cleared")
	}
}

func TestSetError(t *testing.T) {
	tr := NewTracker(0)
	tr.Init("u1", "slug", "clip.mp4", 1)

	tr.SetError("u1", "transcode_hls failed (hls_transcode): all 3 renditions failed")

	entry, _ := tr.Get("u1")
	if entry.Status != StatusError {
		t.Errorf("Expected status error, got %s", entry.Status)
	}
	if entry.Error == "" {
		t.Error("Expected error message to be set")
	}
	if entry.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set on error")
	}
}

func TestSweep(t *testing.T) {
	tr := NewTracker(time.Hour)

	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return current }

	tr.Init("done", "slug-a", "a.mp4", 1)
	tr.SetComplete("done")

	tr.Init("failed", "slug-b", "b.mp4", 1)
	tr.SetError("failed", "boom")

	tr.Init("running", "slug-c", "c.mp4", 1)
	tr.Update("running", StatusProcessing, 50, "Transcoding HLS renditions")

	// Within the TTL nothing is evicted
	current = current.Add(30 * time.Minute)
	if n := tr.Sweep(); n != 0 {
		t.Errorf("Expected 0 evictions inside TTL, got %d", n)
	}

	// Past the TTL only terminal entries go
	current = current.Add(31 * time.Minute)
	if n := tr.Sweep(); n != 2 {
		t.Errorf("Expected 2 evictions past TTL, got %d", n)
	}
	if _, ok := tr.Get("running"); !ok {
		t.Error("Expected in-flight entry to survive sweep")
	}
	if tr.Len() != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", tr.Len())
	}
}
