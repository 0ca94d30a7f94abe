package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EncoderThreads returns the ffmpeg thread budget for one rendition
// encode. Uploads run fully in parallel, so a single encode is kept to a
// fraction of the cores to stop one job from starving the rest; the
// budget respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// Can be overridden with the ENCODER_THREADS environment variable.
// Returns 0 (ffmpeg decides) when the host has a single core.
func EncoderThreads() int {
	if override := os.Getenv("ENCODER_THREADS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n >= 0 {
			return n
		}
	}

	available := runtime.GOMAXPROCS(0)
	if available <= 1 {
		return 0
	}

	threads := available / 2
	if threads < 1 {
		threads = 1
	}
	return threads
}
