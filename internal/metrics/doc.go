// Package metrics provides Prometheus instrumentation for the clipfold
// application.
//
// All metrics are prefixed with "clipfold_" to avoid naming collisions
// with other applications and are registered with the default registry
// via promauto.
//
// # Metric Categories
//
// Upload metrics track pipeline outcomes:
//   - UploadsProcessed: Counter of finished uploads by status
//   - UploadDuration: Histogram of end-to-end processing time
//   - UploadBytes: Counter of bytes ingested
//   - JobsInFlight: Gauge of uploads currently processing
//   - PipelineErrors: Counter of errors by kind
//
// Stage metrics break processing down per pipeline stage:
//   - StageRuns: Counter of stage executions by stage and status
//   - StageDuration: Histogram of stage duration by stage
//
// Quality metrics cover individual HLS renditions:
//   - QualityTranscodes: Counter by quality and status
//   - QualityTranscodeDuration: Histogram by quality
//
// HTTP, database and audit metrics follow the usual request/query
// counter-plus-histogram pattern.
//
// # Usage
//
// Mount promhttp.Handler() on the metrics endpoint and record from other
// packages through the exported variables:
//
//	metrics.StageRuns.WithLabelValues("transcode_hls", "success").Inc()
package metrics
