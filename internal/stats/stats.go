// Package stats aggregates processing statistics: per-stage timings,
// per-quality transcode results, error counts and a bounded ring of
// recent uploads. Everything here also feeds the Prometheus metrics.
package stats

import (
	"sync"
	"time"

	"clipfold/internal/metrics"
)

// recentLimit bounds the ring of per-upload summary records.
const recentLimit = 100

// StageStats aggregates timings for one pipeline stage.
type StageStats struct {
	Count    int           `json:"count"`
	Failures int           `json:"failures"`
	Total    time.Duration `json:"total"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
}

// Avg returns the mean stage duration.
func (s StageStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// QualityStats aggregates per-rendition transcode outcomes.
type QualityStats struct {
	Count    int           `json:"count"`
	Failures int           `json:"failures"`
	Total    time.Duration `json:"total"`
	Bytes    int64         `json:"bytes"`
}

// UploadRecord is the summary of one finished pipeline run.
type UploadRecord struct {
	UploadID   string        `json:"uploadId"`
	Slug       string        `json:"slug"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Bytes      int64         `json:"bytes"`
	Resolution string        `json:"resolution,omitempty"`
	Qualities  []string      `json:"qualities,omitempty"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Snapshot is a copy of the aggregate state for API consumers.
type Snapshot struct {
	TotalUploads  int                     `json:"totalUploads"`
	FailedUploads int                     `json:"failedUploads"`
	TotalBytes    int64                   `json:"totalBytes"`
	TotalTime     time.Duration           `json:"totalTime"`
	Stages        map[string]StageStats   `json:"stages"`
	Qualities     map[string]QualityStats `json:"qualities"`
	ErrorsByKind  map[string]int          `json:"errorsByKind"`
	RecentUploads []UploadRecord          `json:"recentUploads"`
}

// Store aggregates processing statistics across all uploads. One Store is
// created at service start and shared by every job; a single RWMutex
// guards the whole aggregate.
type Store struct {
	mu sync.RWMutex

	totalUploads  int
	failedUploads int
	totalBytes    int64
	totalTime     time.Duration

	stages    map[string]StageStats
	qualities map[string]QualityStats
	errors    map[string]int
	recent    []UploadRecord
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		stages:    make(map[string]StageStats),
		qualities: make(map[string]QualityStats),
		errors:    make(map[string]int),
	}
}

// RecordStageTiming folds one stage execution into the aggregate and the
// exported prometheus series.
func (s *Store) RecordStageTiming(stage string, d time.Duration, success bool) {
	s.mu.Lock()
	st := s.stages[stage]
	st.Count++
	st.Total += d
	if st.Count == 1 || d < st.Min {
		st.Min = d
	}
	if d > st.Max {
		st.Max = d
	}
	if !success {
		st.Failures++
	}
	s.stages[stage] = st
	s.mu.Unlock()

	metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	metrics.StageRuns.WithLabelValues(stage, statusLabel(success)).Inc()
}

// RecordQualityStats folds one rendition encode into the aggregate.
func (s *Store) RecordQualityStats(quality string, d time.Duration, bytes int64, success bool) {
	s.mu.Lock()
	q := s.qualities[quality]
	q.Count++
	q.Total += d
	q.Bytes += bytes
	if !success {
		q.Failures++
	}
	s.qualities[quality] = q
	s.mu.Unlock()

	metrics.QualityTranscodeDuration.WithLabelValues(quality).Observe(d.Seconds())
	metrics.QualityTranscodes.WithLabelValues(quality, statusLabel(success)).Inc()
}

// RecordError bumps the counter for an error kind (validation, metadata,
// transcode, storage, database, ...).
func (s *Store) RecordError(kind string) {
	s.mu.Lock()
	s.errors[kind]++
	s.mu.Unlock()

	metrics.PipelineErrors.WithLabelValues(kind).Inc()
}

// RecordSuccess appends a successful upload record.
func (s *Store) RecordSuccess(rec UploadRecord) {
	rec.Success = true
	s.record(rec)
}

// RecordFailure appends a failed upload record.
func (s *Store) RecordFailure(rec UploadRecord) {
	rec.Success = false
	s.record(rec)
}

func (s *Store) record(rec UploadRecord) {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}

	s.mu.Lock()
	s.totalUploads++
	s.totalBytes += rec.Bytes
	s.totalTime += rec.Duration
	if !rec.Success {
		s.failedUploads++
	}
	s.recent = append(s.recent, rec)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}
	s.mu.Unlock()

	metrics.UploadsProcessed.WithLabelValues(statusLabel(rec.Success)).Inc()
	if rec.Success {
		metrics.UploadDuration.Observe(rec.Duration.Seconds())
		metrics.UploadBytes.Add(float64(rec.Bytes))
	}
}

// StageStatsFor returns the aggregate for one stage.
func (s *Store) StageStatsFor(stage string) (StageStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stages[stage]
	return st, ok
}

// Snapshot returns a copy of the whole aggregate.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalUploads:  s.totalUploads,
		FailedUploads: s.failedUploads,
		TotalBytes:    s.totalBytes,
		TotalTime:     s.totalTime,
		Stages:        make(map[string]StageStats, len(s.stages)),
		Qualities:     make(map[string]QualityStats, len(s.qualities)),
		ErrorsByKind:  make(map[string]int, len(s.errors)),
		RecentUploads: append([]UploadRecord(nil), s.recent...),
	}
	for k, v := range s.stages {
		snap.Stages[k] = v
	}
	for k, v := range s.qualities {
		snap.Qualities[k] = v
	}
	for k, v := range s.errors {
		snap.ErrorsByKind[k] = v
	}
	return snap
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
