package hls

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"clipfold/internal/logging"
)

// DefaultSegmentSeconds is the HLS segment duration used when the caller
// does not override it.
const DefaultSegmentSeconds = 6

// VariantResult records the outcome of one rendition encode.
type VariantResult struct {
	Preset   QualityPreset
	Duration time.Duration
	Bytes    int64
	Err      error
}

// Succeeded reports whether the rendition was produced.
func (r VariantResult) Succeeded() bool {
	return r.Err == nil
}

// ProgressFunc is called after each rendition finishes (success or not)
// with the number of completed renditions and the total.
type ProgressFunc func(completed, total int)

// Transcoder turns a source video into segmented HLS renditions.
type Transcoder struct {
	ffmpegPath     string
	segmentSeconds int
	threads        int
}

// NewTranscoder creates a Transcoder. ffmpegPath may be empty ("ffmpeg"
// from PATH); segmentSeconds <= 0 selects DefaultSegmentSeconds; threads
// is passed to ffmpeg as its encode thread budget (0 lets ffmpeg decide).
func NewTranscoder(ffmpegPath string, segmentSeconds, threads int) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = DefaultSegmentSeconds
	}
	return &Transcoder{
		ffmpegPath:     ffmpegPath,
		segmentSeconds: segmentSeconds,
		threads:        threads,
	}
}

// Transcode encodes every preset in order into outputDir/{quality}/ and
// reports per-rendition results. A failed rendition is logged and counted
// but does not stop the remaining ones; the caller decides fatality (the
// pipeline treats "all failed" as fatal).
func (t *Transcoder) Transcode(ctx context.Context, sourcePath, outputDir string, presets []QualityPreset, onProgress ProgressFunc) []VariantResult {
	results := make([]VariantResult, 0, len(presets))

	for i, preset := range presets {
		start := time.Now()
		err := t.transcodeVariant(ctx, sourcePath, outputDir, preset)

		result := VariantResult{
			Preset:   preset,
			Duration: time.Since(start),
			Err:      err,
		}
		if err == nil {
			result.Bytes = dirSize(filepath.Join(outputDir, preset.Name))
			logging.Info("Transcoded %s rendition of %s in %v (%d bytes)",
				preset.Name, filepath.Base(sourcePath), result.Duration.Round(time.Millisecond), result.Bytes)
		} else {
			logging.Error("Transcoding %s rendition of %s failed: %v", preset.Name, filepath.Base(sourcePath), err)
		}
		results = append(results, result)

		if onProgress != nil {
			onProgress(i+1, len(presets))
		}
	}

	return results
}

// transcodeVariant runs one ffmpeg encode producing
// outputDir/{quality}/index.m3u8 plus its segment_NNN.ts files.
func (t *Transcoder) transcodeVariant(ctx context.Context, sourcePath, outputDir string, preset QualityPreset) error {
	variantDir := filepath.Join(outputDir, preset.Name)
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		return fmt.Errorf("create variant directory: %w", err)
	}

	playlist := filepath.Join(variantDir, "index.m3u8")
	args := t.variantArgs(sourcePath, variantDir, playlist, preset)

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w - %s", err, tailLines(stderr.String(), 5))
	}

	if info, err := os.Stat(playlist); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg exited cleanly but %s is missing", playlist)
	}
	return nil
}

// variantArgs builds the ffmpeg invocation for one rendition: scale+pad
// to the exact target frame, rate-capped H.264, 44.1kHz stereo AAC, VOD
// HLS segmenting.
func (t *Transcoder) variantArgs(sourcePath, variantDir, playlist string, preset QualityPreset) []string {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		preset.Width, preset.Height, preset.Width, preset.Height,
	)

	args := []string{
		"-y",
		"-i", sourcePath,
		"-vf", filter,
		"-c:v", "libx264",
		"-profile:v", preset.Profile,
		"-level", preset.Level,
		"-b:v", fmt.Sprintf("%dk", preset.VideoBitrate),
		"-maxrate", fmt.Sprintf("%dk", preset.MaxBitrate),
		"-bufsize", fmt.Sprintf("%dk", preset.BufferSize),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", preset.AudioBitrate),
		"-ar", "44100",
		"-ac", "2",
	}

	if t.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", t.threads))
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", t.segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(variantDir, "segment_%03d.ts"),
		playlist,
	)
	return args
}

// SucceededPresets returns the presets that produced a rendition, in
// catalog order.
func SucceededPresets(results []VariantResult) []QualityPreset {
	var ok []QualityPreset
	for _, r := range results {
		if r.Succeeded() {
			ok = append(ok, r.Preset)
		}
	}
	return ok
}

// dirSize totals the file bytes under path; best effort, 0 on error.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// tailLines keeps the last n lines of ffmpeg stderr; the useful error is
// at the end and the full transcript can run to megabytes.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
