package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipfold/internal/audit"
	"clipfold/internal/database"
	"clipfold/internal/handlers"
	"clipfold/internal/logging"
	"clipfold/internal/metrics"
	"clipfold/internal/middleware"
	"clipfold/internal/pipeline"
	"clipfold/internal/progress"
	"clipfold/internal/startup"
	"clipfold/internal/stats"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Verify ffmpeg/ffprobe before accepting any uploads
	if err := startup.CheckMediaTools(config.FFmpegPath, config.FFprobePath); err != nil {
		logging.Fatal("Media tool check failed: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		}
	}()
	logging.Info("Database ready in %v", time.Since(dbStart).Round(time.Millisecond))

	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())

	// Shared per-process stores
	tracker := progress.NewTracker(config.ProgressTTL)
	statsStore := stats.NewStore()
	auditLog := audit.NewLogger(audit.DefaultLimit)

	// Sweep terminal progress entries in the background
	sweepStop := make(chan struct{})
	go tracker.Run(config.SweepInterval, sweepStop)

	orch := pipeline.NewWithTools(config)

	// Initialize handlers
	h := handlers.New(db, config, tracker, statsStore, auditLog, orch)

	// Setup router
	router := setupRouter(h, config)

	// Apply metrics middleware
	meteredHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	handler := middleware.Logger(middleware.DefaultLoggingConfig())(meteredHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Dedicated metrics listener so scrapes never compete with uploads
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, sweepStop)

	// Start server
	startup.LogServerStarted(config.Port, config.MetricsPort, config.MetricsEnabled, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")

	// Upload API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/uploads/{id}/progress", h.GetProgress).Methods("GET")
	api.HandleFunc("/uploads/{id}/audit", h.GetAuditLog).Methods("GET")
	api.HandleFunc("/uploads/{id}", h.DeleteUpload).Methods("DELETE")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	// Finished media (playlists, segments, preview images)
	r.PathPrefix("/videos/public/").Handler(
		http.StripPrefix("/videos/public/", http.FileServer(http.Dir(config.PublicDir))))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, sweepStop chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping progress sweeper")
	close(sweepStop)
	startup.LogShutdownStepComplete("Progress sweeper stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
