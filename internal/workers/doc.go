// Package workers derives ffmpeg thread budgets from the CPUs actually
// available to the process. GOMAXPROCS reflects container CPU limits on
// Go 1.19+, unlike runtime.NumCPU() which reports the host count. The
// ENCODER_THREADS environment variable overrides the calculation.
package workers
