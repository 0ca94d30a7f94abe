package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipfold/internal/audit"
	"clipfold/internal/cleanup"
	"clipfold/internal/database"
	"clipfold/internal/hls"
	"clipfold/internal/logging"
	"clipfold/internal/media"
	"clipfold/internal/metrics"
	"clipfold/internal/probe"
	"clipfold/internal/progress"
	"clipfold/internal/startup"
	"clipfold/internal/stats"
	"clipfold/internal/workers"
)

// Prober extracts technical metadata from a source file.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.VideoMetadata, error)
}

// FrameExtractor pulls a single scaled frame out of a source file.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, req media.FrameRequest) error
}

// HlsTranscoder produces segmented HLS renditions for the given presets.
type HlsTranscoder interface {
	Transcode(ctx context.Context, sourcePath, outputDir string, presets []hls.QualityPreset, onProgress hls.ProgressFunc) []hls.VariantResult
}

// VideoStore is the slice of the database the pipeline writes to.
type VideoStore interface {
	UpdateProcessingState(ctx context.Context, uploadID, status string, progress int, errMsg string) error
	FinalizeVideo(ctx context.Context, uploadID string, meta database.FinalMetadata) error
}

// ProcessingContext is everything one background job needs. It is owned
// exclusively by that job and discarded when the job ends; the Tracker,
// Stats and Audit handles point at the process-wide shared stores.
type ProcessingContext struct {
	UploadID         string
	Slug             string
	TempPath         string
	Visibility       string
	OriginalFilename string

	Config  *startup.Config
	Tracker *progress.Tracker
	Stats   *stats.Store
	Audit   *audit.Logger
	Store   VideoStore
}

// Orchestrator sequences the pipeline stages for one upload at a time.
// A single Orchestrator is shared by all jobs; it holds no per-job state.
type Orchestrator struct {
	prober     Prober
	frames     FrameExtractor
	transcoder HlsTranscoder
}

// New creates an Orchestrator from explicit tool implementations. Tests
// pass fakes here; production wiring uses NewWithTools.
func New(prober Prober, frames FrameExtractor, transcoder HlsTranscoder) *Orchestrator {
	return &Orchestrator{prober: prober, frames: frames, transcoder: transcoder}
}

// NewWithTools creates an Orchestrator backed by the real ffprobe/ffmpeg
// wrappers configured from cfg.
func NewWithTools(cfg *startup.Config) *Orchestrator {
	return New(
		probe.New(cfg.FFprobePath),
		media.NewExtractor(cfg.FFmpegPath),
		hls.NewTranscoder(cfg.FFmpegPath, cfg.SegmentSeconds, workers.EncoderThreads()),
	)
}

// Process runs the whole pipeline for one upload. It is expected to be
// called from a dedicated goroutine; the error return is for the job
// owner's log only, since the uploader already got its id back and all
// failure visibility goes through progress polling, audit and metrics.
func (o *Orchestrator) Process(ctx context.Context, pc *ProcessingContext) error {
	start := time.Now()

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	cm := cleanup.New()
	defer cm.ReportLeaked()
	cm.RegisterFile(pc.TempPath)

	pc.Audit.Log(audit.EventProcessingStarted, pc.UploadID, pc.Slug, "", map[string]string{
		"filename":   pc.OriginalFilename,
		"visibility": pc.Visibility,
	})
	o.enterStage(ctx, pc, StageStarting)

	// Validate
	if err := o.runStage(ctx, pc, StageValidating, func() error {
		return validateSource(pc.TempPath)
	}); err != nil {
		return o.fail(ctx, pc, cm, StageValidating, ErrValidation, err, start)
	}

	// Extract metadata
	var meta *probe.VideoMetadata
	if err := o.runStage(ctx, pc, StageExtractingMetadata, func() error {
		m, probeErr := o.prober.Probe(ctx, pc.TempPath)
		if probeErr != nil {
			return probeErr
		}
		meta = m
		return nil
	}); err != nil {
		return o.fail(ctx, pc, cm, StageExtractingMetadata, ErrMetadata, err, start)
	}
	pc.Tracker.UpdateMetadata(pc.UploadID, meta.Duration, meta.Resolution(), nil)

	destDir := pc.Config.DestinationDir(pc.Visibility, pc.Slug)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return o.fail(ctx, pc, cm, StageGeneratingThumbnail, ErrStorage,
			fmt.Errorf("create destination directory: %w", err), start)
	}
	cm.RegisterDir(destDir)

	// Thumbnail and poster are best effort: a missing preview image is
	// tolerable, a dead pipeline is not.
	thumbnailOK := o.runStage(ctx, pc, StageGeneratingThumbnail, func() error {
		return o.frames.ExtractFrame(ctx, media.FrameRequest{
			SourcePath: pc.TempPath,
			OutputPath: filepath.Join(destDir, "thumbnail.jpg"),
			Timestamp:  media.ThumbnailTimestamp(meta.Duration),
			MaxWidth:   media.ThumbnailWidth,
			MaxHeight:  media.ThumbnailHeight,
			Quality:    media.DefaultJPEGQuality,
			Letterbox:  true,
		})
	}) == nil
	if !thumbnailOK {
		pc.Stats.RecordError(string(ErrThumbnail))
	}

	posterOK := o.runStage(ctx, pc, StageGeneratingPoster, func() error {
		return o.frames.ExtractFrame(ctx, media.FrameRequest{
			SourcePath: pc.TempPath,
			OutputPath: filepath.Join(destDir, "poster.jpg"),
			Timestamp:  media.PosterTimestamp(meta.Duration),
			MaxWidth:   media.PosterMaxWidth,
			MaxHeight:  media.PosterMaxHeight,
			Quality:    media.DefaultJPEGQuality,
		})
	}) == nil
	if !posterOK {
		pc.Stats.RecordError(string(ErrPoster))
	}

	// Transcode
	var produced []hls.QualityPreset
	if err := o.runStage(ctx, pc, StageTranscodingHls, func() error {
		selected := hls.SelectQualities(meta.Width, meta.Height)
		if len(selected) == 0 {
			return fmt.Errorf("source %s too small for any rendition", meta.Resolution())
		}

		results := o.transcoder.Transcode(ctx, pc.TempPath, destDir, selected, func(completed, total int) {
			pc.Tracker.Update(pc.UploadID, progress.StatusProcessing,
				hls.TranscodeProgress(completed, total, transcodeStart, transcodeEnd),
				StageTranscodingHls.Description())
		})
		for _, r := range results {
			pc.Stats.RecordQualityStats(r.Preset.Name, r.Duration, r.Bytes, r.Succeeded())
		}

		produced = hls.SucceededPresets(results)
		if len(produced) == 0 {
			return fmt.Errorf("all %d renditions failed", len(selected))
		}
		if len(produced) < len(selected) {
			logging.Warn("Upload %s: %d of %d renditions failed, continuing with %d",
				pc.UploadID, len(selected)-len(produced), len(selected), len(produced))
		}

		_, plErr := hls.WriteMasterPlaylist(destDir, produced)
		return plErr
	}); err != nil {
		return o.fail(ctx, pc, cm, StageTranscodingHls, ErrHlsTranscode, err, start)
	}

	qualityNames := presetNames(produced)
	pc.Tracker.UpdateMetadata(pc.UploadID, 0, "", qualityNames)

	// Move the original into permanent storage
	storedName := "original" + sourceExt(pc.OriginalFilename, pc.TempPath)
	if err := o.runStage(ctx, pc, StageMovingFile, func() error {
		return moveFile(pc.TempPath, filepath.Join(destDir, storedName))
	}); err != nil {
		return o.fail(ctx, pc, cm, StageMovingFile, ErrStorage, err, start)
	}

	// The media tree is now authoritative: a later database failure must
	// not take it down with the temp file.
	cm.Unregister(destDir)

	urlBase := fmt.Sprintf("/videos/%s/%s", pc.Visibility, pc.Slug)
	final := database.FinalMetadata{
		Duration:   meta.Duration,
		Width:      meta.Width,
		Height:     meta.Height,
		FPS:        meta.FrameRate,
		Codec:      meta.Codec,
		AudioCodec: meta.AudioCodec,
		Bitrate:    meta.BitRate,
		Format:     meta.Format,
		Filename:   storedName,
		PreviewURL: urlBase + "/" + hls.MasterPlaylistName,
	}
	if thumbnailOK {
		final.ThumbnailURL = urlBase + "/thumbnail.jpg"
	}
	if posterOK {
		final.PosterURL = urlBase + "/poster.jpg"
	}

	if err := o.runStage(ctx, pc, StageUpdatingDatabase, func() error {
		return pc.Store.FinalizeVideo(ctx, pc.UploadID, final)
	}); err != nil {
		return o.fail(ctx, pc, cm, StageUpdatingDatabase, ErrDatabase, err, start)
	}

	// Success: disarm before touching the temp file so a remove error
	// can never cascade into deleting finished media.
	cm.Success()
	if err := os.Remove(pc.TempPath); err != nil && !os.IsNotExist(err) {
		logging.Warn("Upload %s: failed to remove temp file %s: %v", pc.UploadID, pc.TempPath, err)
	}

	pc.Tracker.SetComplete(pc.UploadID)

	elapsed := time.Since(start)
	pc.Stats.RecordSuccess(stats.UploadRecord{
		UploadID:   pc.UploadID,
		Slug:       pc.Slug,
		Duration:   elapsed,
		Bytes:      meta.FileSize,
		Resolution: meta.Resolution(),
		Qualities:  qualityNames,
	})
	pc.Audit.Log(audit.EventProcessingCompleted, pc.UploadID, pc.Slug, "", map[string]string{
		"duration":   elapsed.Round(time.Millisecond).String(),
		"size":       fmt.Sprintf("%d", meta.FileSize),
		"resolution": meta.Resolution(),
		"qualities":  strings.Join(qualityNames, ","),
	})

	logging.Info("Upload %s (%s) processed in %v: %s, qualities [%s]",
		pc.UploadID, pc.Slug, elapsed.Round(time.Millisecond), meta.Resolution(), strings.Join(qualityNames, ","))
	return nil
}

// enterStage persists the stage transition and publishes it to pollers.
func (o *Orchestrator) enterStage(ctx context.Context, pc *ProcessingContext, stage Stage) {
	if err := pc.Store.UpdateProcessingState(ctx, pc.UploadID, string(progress.StatusProcessing), stage.Floor(), ""); err != nil {
		logging.Warn("Upload %s: failed to persist stage %s: %v", pc.UploadID, stage, err)
	}
	pc.Tracker.Update(pc.UploadID, progress.StatusProcessing, stage.Floor(), stage.Description())
}

// runStage times fn under the given stage, records the timing whether it
// succeeded or not, and returns fn's error.
func (o *Orchestrator) runStage(ctx context.Context, pc *ProcessingContext, stage Stage, fn func() error) error {
	o.enterStage(ctx, pc, stage)

	start := time.Now()
	err := fn()
	pc.Stats.RecordStageTiming(stage.Key(), time.Since(start), err == nil)

	if err != nil && (stage == StageGeneratingThumbnail || stage == StageGeneratingPoster) {
		logging.Warn("Upload %s: %s failed (non-fatal): %v", pc.UploadID, stage, err)
	}
	return err
}

// fail drives the error path: persist the terminal state, meter it,
// audit it, clean up partial artifacts and hand the wrapped error back
// to the job owner.
func (o *Orchestrator) fail(ctx context.Context, pc *ProcessingContext, cm *cleanup.Manager, stage Stage, kind ErrorKind, err error, start time.Time) error {
	wrapped := stageError(kind, stage, err)
	msg := wrapped.Error()

	if dbErr := pc.Store.UpdateProcessingState(ctx, pc.UploadID, string(progress.StatusError), stage.Floor(), msg); dbErr != nil {
		logging.Error("Upload %s: failed to persist error state: %v", pc.UploadID, dbErr)
	}
	pc.Tracker.SetError(pc.UploadID, msg)

	pc.Stats.RecordError(string(kind))
	pc.Stats.RecordFailure(stats.UploadRecord{
		UploadID: pc.UploadID,
		Slug:     pc.Slug,
		Error:    msg,
		Duration: time.Since(start),
	})
	pc.Audit.Log(audit.EventProcessingFailed, pc.UploadID, pc.Slug, "", map[string]string{
		"stage": stage.Key(),
		"kind":  string(kind),
		"error": err.Error(),
	})

	cm.Cleanup()

	logging.Error("Upload %s (%s) failed at %s: %v", pc.UploadID, pc.Slug, stage, err)
	return wrapped
}

// validateSource checks that the uploaded file exists, is a regular
// non-empty file and is readable.
func validateSource(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("source not accessible: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("source %s is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("source not readable: %w", err)
	}
	return f.Close()
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystem boundaries (temp and videos dirs are often separate mounts).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source for move: %w", err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			logging.Warn("failed to close %s after move: %v", src, closeErr)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination for move: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy to destination: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("flush destination: %w", err)
	}

	if err := os.Remove(src); err != nil {
		logging.Warn("moved %s but failed to remove source: %v", src, err)
	}
	return nil
}

// sourceExt picks the stored extension from the original filename,
// falling back to the temp file's and finally ".mp4".
func sourceExt(originalFilename, tempPath string) string {
	for _, candidate := range []string{originalFilename, tempPath} {
		if ext := strings.ToLower(filepath.Ext(candidate)); ext != "" && ext != "." {
			return ext
		}
	}
	return ".mp4"
}

func presetNames(presets []hls.QualityPreset) []string {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	return names
}
