package hls

import "fmt"

// QualityPreset is one target rendition of the adaptive ladder.
type QualityPreset struct {
	Name         string
	Width        int
	Height       int
	VideoBitrate int // kbit/s
	MaxBitrate   int // kbit/s
	BufferSize   int // kbit
	AudioBitrate int // kbit/s
	Profile      string
	Level        string
}

// Bandwidth returns the EXT-X-STREAM-INF BANDWIDTH value in bits/sec.
func (p QualityPreset) Bandwidth() int {
	return (p.VideoBitrate + p.AudioBitrate) * 1000
}

// Resolution returns the "WxH" string for the preset.
func (p QualityPreset) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Presets is the static rendition catalog, ordered best first. The order
// is load-bearing: selection and the master playlist preserve it.
var Presets = []QualityPreset{
	{Name: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5000, MaxBitrate: 5350, BufferSize: 7500, AudioBitrate: 128, Profile: "high", Level: "4.0"},
	{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, MaxBitrate: 2996, BufferSize: 4200, AudioBitrate: 128, Profile: "main", Level: "3.1"},
	{Name: "480p", Width: 854, Height: 480, VideoBitrate: 1400, MaxBitrate: 1498, BufferSize: 2100, AudioBitrate: 96, Profile: "main", Level: "3.1"},
	{Name: "360p", Width: 640, Height: 360, VideoBitrate: 800, MaxBitrate: 856, BufferSize: 1200, AudioBitrate: 96, Profile: "baseline", Level: "3.0"},
}

// SelectQualities filters the catalog down to presets that fit inside the
// source dimensions. No preset ever upscales. An empty result means the
// source is too small for the smallest rendition.
func SelectQualities(sourceWidth, sourceHeight int) []QualityPreset {
	var selected []QualityPreset
	for _, p := range Presets {
		if p.Width <= sourceWidth && p.Height <= sourceHeight {
			selected = append(selected, p)
		}
	}
	return selected
}

// TranscodeProgress interpolates overall progress across the transcode
// stage: completed is how many renditions have finished out of total, and
// start/end bound the stage's share of the 0-100 range.
func TranscodeProgress(completed, total, start, end int) int {
	if total <= 0 {
		return start
	}
	return start + (end-start)*completed/total
}
