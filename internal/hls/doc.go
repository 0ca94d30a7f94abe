// Package hls produces HTTP Live Streaming renditions with FFmpeg.
//
// It provides:
//   - A fixed ladder of quality presets (1080p down to 360p)
//   - Source-resolution based quality selection (never upscale)
//   - Per-rendition transcoding into segmented VOD playlists
//   - Master playlist generation for adaptive playback
//
// Transcoding requires ffmpeg to be installed and reachable at the
// configured path.
package hls
