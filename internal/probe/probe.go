package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"clipfold/internal/logging"
)

// DefaultFrameRate is used when ffprobe reports an unparseable frame rate.
const DefaultFrameRate = 30.0

// VideoMetadata holds the technical metadata of an uploaded video,
// produced once by Probe and immutable thereafter.
type VideoMetadata struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameRate  float64 `json:"frameRate"`
	Codec      string  `json:"codec"`
	AudioCodec string  `json:"audioCodec,omitempty"`
	BitRate    int64   `json:"bitRate,omitempty"`
	FileSize   int64   `json:"fileSize"`
	Format     string  `json:"format"`
}

// Resolution returns "WxH" for the video stream.
func (m *VideoMetadata) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Prober extracts VideoMetadata from media files via ffprobe.
type Prober struct {
	ffprobePath string
}

// New creates a Prober. ffprobePath may be empty, in which case "ffprobe"
// is resolved from PATH.
func New(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe runs a single ffprobe JSON call against path and returns the
// parsed metadata.
func (p *Prober) Probe(ctx context.Context, path string) (*VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w - %s", path, err, strings.TrimSpace(stderr.String()))
	}

	meta, err := ParseJSON(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	// ffprobe omits format.size for some pipes; stat is authoritative anyway.
	if info, statErr := os.Stat(path); statErr == nil {
		meta.FileSize = info.Size()
	}

	return meta, nil
}

// ParseJSON converts raw ffprobe JSON output into VideoMetadata.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*VideoMetadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildMetadata(&raw)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	BitRate      string `json:"bit_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// --- Conversion from wire types to the domain type ---

func buildMetadata(raw *ffprobeOutput) (*VideoMetadata, error) {
	var video, audio *ffprobeStream
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			if audio == nil {
				audio = s
			}
		}
	}

	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("video stream has no dimensions")
	}

	duration, ok := parseDuration(raw.Format.Duration, video.Duration)
	if !ok {
		return nil, fmt.Errorf("missing or unparseable duration")
	}

	meta := &VideoMetadata{
		Duration:  duration,
		Width:     video.Width,
		Height:    video.Height,
		FrameRate: ParseFrameRate(firstNonEmpty(video.AvgFrameRate, video.RFrameRate)),
		Codec:     video.CodecName,
		Format:    raw.Format.FormatName,
	}

	if audio != nil {
		meta.AudioCodec = audio.CodecName
	}

	if raw.Format.BitRate != "" {
		if br, err := strconv.ParseInt(raw.Format.BitRate, 10, 64); err == nil {
			meta.BitRate = br
		} else {
			logging.Debug("probe: unparseable bit_rate %q", raw.Format.BitRate)
		}
	}
	if raw.Format.Size != "" {
		if size, err := strconv.ParseInt(raw.Format.Size, 10, 64); err == nil {
			meta.FileSize = size
		}
	}

	return meta, nil
}

// parseDuration prefers the container duration and falls back to the
// video stream duration (some containers only carry the latter).
func parseDuration(formatDur, streamDur string) (float64, bool) {
	for _, s := range []string{formatDur, streamDur} {
		if s == "" {
			continue
		}
		if d, err := strconv.ParseFloat(s, 64); err == nil && d > 0 {
			return d, true
		}
	}
	return 0, false
}

// ParseFrameRate parses an ffprobe rational frame rate ("30000/1001" or a
// plain number). Unparseable input falls back to DefaultFrameRate.
func ParseFrameRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultFrameRate
	}

	if num, den, found := strings.Cut(raw, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 || n <= 0 {
			return DefaultFrameRate
		}
		return n / d
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
		return f
	}
	return DefaultFrameRate
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" && v != "0/0" {
			return v
		}
	}
	return ""
}
