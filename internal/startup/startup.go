package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"clipfold/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Config holds all application configuration.
type Config struct {
	VideosDir   string
	TempDir     string
	DatabaseDir string
	Port        string
	MetricsPort string

	FFmpegPath  string
	FFprobePath string

	SegmentSeconds int
	ProgressTTL    time.Duration
	SweepInterval  time.Duration
	MaxUploadBytes int64

	MetricsEnabled bool

	// Derived paths
	DatabasePath string
	PublicDir    string
	PrivateDir   string
}

// LoadConfig loads and validates configuration from the environment. A
// local .env file is honored if present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Info("Loaded configuration overrides from .env")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	videosDir := getEnv("VIDEOS_DIR", "/videos")
	tempDir := getEnv("TEMP_DIR", "/tmp/clipfold-uploads")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	ffprobePath := getEnv("FFPROBE_PATH", "ffprobe")
	segmentSeconds := getEnvInt("HLS_SEGMENT_SECONDS", 6)
	progressTTL := getEnvDuration("PROGRESS_TTL", time.Hour)
	sweepInterval := getEnvDuration("PROGRESS_SWEEP_INTERVAL", 5*time.Minute)
	maxUploadBytes := getEnvInt64("MAX_UPLOAD_BYTES", 8<<30)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  VIDEOS_DIR:              %s", videosDir)
	logging.Info("  TEMP_DIR:                %s", tempDir)
	logging.Info("  DATABASE_DIR:            %s", databaseDir)
	logging.Info("  PORT:                    %s", port)
	logging.Info("  METRICS_PORT:            %s", metricsPort)
	logging.Info("  METRICS_ENABLED:         %v", metricsEnabled)
	logging.Info("  HLS_SEGMENT_SECONDS:     %d", segmentSeconds)
	logging.Info("  PROGRESS_TTL:            %s", progressTTL)
	logging.Info("  PROGRESS_SWEEP_INTERVAL: %s", sweepInterval)
	logging.Info("  MAX_UPLOAD_BYTES:        %d", maxUploadBytes)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	videosDir, err = filepath.Abs(videosDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve videos directory path: %w", err)
	}
	tempDir, err = filepath.Abs(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve temp directory path: %w", err)
	}
	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	config := &Config{
		VideosDir:      videosDir,
		TempDir:        tempDir,
		DatabaseDir:    databaseDir,
		Port:           port,
		MetricsPort:    metricsPort,
		FFmpegPath:     ffmpegPath,
		FFprobePath:    ffprobePath,
		SegmentSeconds: segmentSeconds,
		ProgressTTL:    progressTTL,
		SweepInterval:  sweepInterval,
		MaxUploadBytes: maxUploadBytes,
		MetricsEnabled: metricsEnabled,
		DatabasePath:   filepath.Join(databaseDir, "clipfold.db"),
		PublicDir:      filepath.Join(videosDir, "public"),
		PrivateDir:     filepath.Join(videosDir, "private"),
	}

	for _, dir := range []struct {
		path string
		name string
	}{
		{config.PublicDir, "public videos"},
		{config.PrivateDir, "private videos"},
		{config.TempDir, "temp upload"},
		{config.DatabaseDir, "database"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory ready: %s", dir.name, dir.path)
	}

	return config, nil
}

// DestinationDir returns the permanent storage directory for a slug.
func (c *Config) DestinationDir(visibility, slug string) string {
	if visibility == "public" {
		return filepath.Join(c.PublicDir, slug)
	}
	return filepath.Join(c.PrivateDir, slug)
}

// CheckMediaTools verifies ffmpeg and ffprobe respond; the pipeline
// cannot run without them.
func CheckMediaTools(ffmpegPath, ffprobePath string) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA TOOL CHECK")
	logging.Info("------------------------------------------------------------")

	for _, tool := range []string{ffmpegPath, ffprobePath} {
		if err := checkTool(tool); err != nil {
			return err
		}
	}
	return nil
}

func checkTool(path string) error {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, resolved, "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", path, err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Info("  [OK] %s", strings.TrimSpace(lines[0]))
	}
	return nil
}

// LogServerStarted logs successful server start.
func LogServerStarted(port, metricsPort string, metricsEnabled bool, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:  %v", startupDuration)
	logging.Info("  Application:   http://0.0.0.0:%s", port)
	if metricsEnabled {
		logging.Info("  Metrics:       http://0.0.0.0:%s/metrics", metricsPort)
	} else {
		logging.Info("  Metrics:       DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start.
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs one step of the shutdown sequence.
func LogShutdownStep(step string) {
	logging.Info("  %s...", step)
}

// LogShutdownStepComplete logs the completion of a shutdown step.
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs the end of the shutdown sequence.
func LogShutdownComplete() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN COMPLETE")
	logging.Info("------------------------------------------------------------")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
        ___       ____      _    __
  _____/ (_)___  / __/___  / /__/ /
 / ___/ / / __ \/ /_/ __ \/ / __  /
/ /__/ / / /_/ / __/ /_/ / / /_/ /
\___/_/_/ .___/_/  \____/_/\__,_/
       /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
