// Package probe extracts technical video metadata using ffprobe.
//
// It runs ffprobe with JSON output and parses duration, dimensions,
// frame rate, codecs, bitrate and container format. Sources without an
// audio stream or a reported bitrate are accepted; sources without a
// video stream are not.
package probe
