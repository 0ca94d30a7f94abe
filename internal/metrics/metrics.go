package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	UploadsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_uploads_processed_total",
			Help: "Total number of uploads that finished processing",
		},
		[]string{"status"},
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipfold_upload_processing_duration_seconds",
			Help:    "Wall-clock duration of successful pipeline runs",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipfold_upload_bytes_total",
			Help: "Total bytes of source video processed successfully",
		},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipfold_processing_jobs_in_flight",
			Help: "Number of pipeline jobs currently running",
		},
	)

	PipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_pipeline_errors_total",
			Help: "Total number of fatal pipeline errors by kind",
		},
		[]string{"kind"},
	)
)

// Stage metrics
var (
	StageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_stage_runs_total",
			Help: "Total number of pipeline stage executions",
		},
		[]string{"stage", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfold_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)
)

// Transcode metrics
var (
	QualityTranscodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_quality_transcodes_total",
			Help: "Total number of rendition encodes",
		},
		[]string{"quality", "status"},
	)

	QualityTranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfold_quality_transcode_duration_seconds",
			Help:    "Rendition encode duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"quality"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfold_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipfold_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfold_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Audit metrics
var (
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfold_audit_events_total",
			Help: "Total number of audit events recorded",
		},
		[]string{"event"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clipfold_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
