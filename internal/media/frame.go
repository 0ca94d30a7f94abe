package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"clipfold/internal/logging"
)

// Default frame targets for the ingestion pipeline.
const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 180
	PosterMaxWidth  = 1920
	PosterMaxHeight = 1080

	DefaultJPEGQuality = 85
)

// FrameRequest describes a single frame extraction.
type FrameRequest struct {
	SourcePath string
	OutputPath string
	Timestamp  float64
	MaxWidth   int
	MaxHeight  int
	// Quality is a JPEG quality in 1-100.
	Quality int
	// Letterbox pads the scaled frame to exactly MaxWidth x MaxHeight.
	// Without it the frame is scaled to fit inside the bounds.
	Letterbox bool
}

// Extractor pulls single frames out of video files with ffmpeg.
type Extractor struct {
	ffmpegPath string
}

// NewExtractor creates an Extractor. ffmpegPath may be empty, in which
// case "ffmpeg" is resolved from PATH.
func NewExtractor(ffmpegPath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{ffmpegPath: ffmpegPath}
}

// ExtractFrame grabs one frame at req.Timestamp, scales it to the target
// bounds and writes a JPEG to req.OutputPath, creating parent directories
// as needed. The primary path lets ffmpeg scale and pad in one pass; if
// that fails, a raw frame is piped out and finished with imaging.
func (e *Extractor) ExtractFrame(ctx context.Context, req FrameRequest) error {
	if req.Quality <= 0 {
		req.Quality = DefaultJPEGQuality
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := e.extractDirect(ctx, req); err == nil {
		return nil
	} else {
		logging.Debug("frame extraction via filter failed for %s: %v, trying decode fallback", req.SourcePath, err)
	}

	return e.extractViaPipe(ctx, req)
}

// extractDirect runs a single ffmpeg invocation that seeks, scales, pads
// and encodes in one go.
func (e *Extractor) extractDirect(ctx context.Context, req FrameRequest) error {
	args := []string{
		"-y",
		"-ss", formatTimestamp(req.Timestamp),
		"-i", req.SourcePath,
		"-vframes", "1",
		"-vf", scaleFilter(req.MaxWidth, req.MaxHeight, req.Letterbox),
		"-q:v", fmt.Sprintf("%d", jpegQualityToQScale(req.Quality)),
		req.OutputPath,
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	if info, err := os.Stat(req.OutputPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output for %s", req.SourcePath)
	}
	return nil
}

// extractViaPipe decodes a raw PNG frame from an image2pipe stream and
// finishes the scale/pad with imaging. Covers sources whose pixel formats
// confuse the one-pass filter chain.
func (e *Extractor) extractViaPipe(ctx context.Context, req FrameRequest) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-ss", formatTimestamp(req.Timestamp),
		"-i", req.SourcePath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return fmt.Errorf("ffmpeg produced no frame data for %s", req.SourcePath)
	}

	frame, err := imaging.Decode(&stdout)
	if err != nil {
		return fmt.Errorf("decode extracted frame: %w", err)
	}

	out := FitFrame(frame, req.MaxWidth, req.MaxHeight, req.Letterbox)

	if err := imaging.Save(out, req.OutputPath, imaging.JPEGQuality(req.Quality)); err != nil {
		return fmt.Errorf("write frame %s: %w", req.OutputPath, err)
	}
	return nil
}

// FitFrame scales img to fit inside w x h, preserving aspect ratio.
// With letterbox the result is padded to exactly w x h on black.
func FitFrame(img image.Image, w, h int, letterbox bool) image.Image {
	fitted := imaging.Fit(img, w, h, imaging.Lanczos)
	if !letterbox {
		return fitted
	}
	canvas := imaging.New(w, h, image.Black)
	return imaging.PasteCenter(canvas, fitted)
}

// ThumbnailTimestamp picks the frame time for the gallery thumbnail:
// 10% in, at least 1s, and at least 1s before the end.
func ThumbnailTimestamp(duration float64) float64 {
	return clampTimestamp(duration*0.10, 1.0, duration-1.0)
}

// PosterTimestamp picks the frame time for the player poster:
// 25% in, at least 2s, and at least 1s before the end.
func PosterTimestamp(duration float64) float64 {
	return clampTimestamp(duration*0.25, 2.0, duration-1.0)
}

// clampTimestamp applies the floor before the ceiling; for very short
// clips the floor wins and the result may exceed the ceiling. Sources
// shorter than the floor produce a seek past the end, which surfaces as
// an (ignorable) extraction failure rather than a guess at a frame.
func clampTimestamp(ts, min, max float64) float64 {
	if ts < min {
		ts = min
	}
	if ts > max && max >= min {
		ts = max
	}
	return ts
}

// scaleFilter builds the -vf chain for a bounded scale, optionally padded
// to the exact target size.
func scaleFilter(w, h int, letterbox bool) string {
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h)
	if !letterbox {
		return scale
	}
	return fmt.Sprintf("%s,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", scale, w, h)
}

// jpegQualityToQScale maps a 1-100 JPEG quality onto ffmpeg's 2-31
// qscale range (lower is better).
func jpegQualityToQScale(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	q := 31 - (quality*29)/100
	if q < 2 {
		q = 2
	}
	return q
}

func formatTimestamp(ts float64) string {
	if ts < 0 {
		ts = 0
	}
	return fmt.Sprintf("%.3f", ts)
}
