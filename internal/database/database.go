package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"clipfold/internal/logging"
	"clipfold/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages the video catalog.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens (and if needed creates) the video database at dbPath. The
// parent directory must already exist and be writable; use
// startup.LoadConfig to validate that first.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL plus busy_timeout keeps concurrent pipeline jobs from tripping
	// over "database is locked".
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, dbPath: dbPath}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		upload_id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		visibility TEXT NOT NULL DEFAULT 'private',
		original_filename TEXT NOT NULL DEFAULT '',
		processing_status TEXT NOT NULL DEFAULT 'uploading',
		processing_progress INTEGER NOT NULL DEFAULT 0,
		processing_error TEXT,
		duration REAL,
		width INTEGER,
		height INTEGER,
		fps REAL,
		codec TEXT,
		audio_codec TEXT,
		bitrate INTEGER,
		format TEXT,
		thumbnail_url TEXT,
		poster_url TEXT,
		filename TEXT,
		preview_url TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_videos_slug ON videos(slug);
	CREATE INDEX IF NOT EXISTS idx_videos_status ON videos(processing_status);
	CREATE INDEX IF NOT EXISTS idx_videos_visibility ON videos(visibility);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Video is one row of the videos table.
type Video struct {
	UploadID           string
	Slug               string
	Title              string
	Visibility         string
	OriginalFilename   string
	ProcessingStatus   string
	ProcessingProgress int
	ProcessingError    sql.NullString
	Duration           sql.NullFloat64
	Width              sql.NullInt64
	Height             sql.NullInt64
	FPS                sql.NullFloat64
	Codec              sql.NullString
	AudioCodec         sql.NullString
	Bitrate            sql.NullInt64
	Format             sql.NullString
	ThumbnailURL       sql.NullString
	PosterURL          sql.NullString
	Filename           sql.NullString
	PreviewURL         sql.NullString
}

// FinalMetadata carries everything written on successful completion.
type FinalMetadata struct {
	Duration     float64
	Width        int
	Height       int
	FPS          float64
	Codec        string
	AudioCodec   string
	Bitrate      int64
	Format       string
	ThumbnailURL string
	PosterURL    string
	Filename     string
	PreviewURL   string
}

// CreateVideo inserts the initial record for a fresh upload.
func (d *Database) CreateVideo(ctx context.Context, uploadID, slug, title, visibility, originalFilename string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_video", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO videos (upload_id, slug, title, visibility, original_filename, processing_status, processing_progress)
		VALUES (?, ?, ?, ?, ?, 'uploading', 0)
	`, uploadID, slug, title, visibility, originalFilename)
	return err
}

// UpdateProcessingState persists the live status/progress/error triple.
// errMsg may be empty, which stores NULL.
func (d *Database) UpdateProcessingState(ctx context.Context, uploadID, status string, progress int, errMsg string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_processing_state", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}

	_, err = d.db.ExecContext(ctx, `
		UPDATE videos
		SET processing_status = ?, processing_progress = ?, processing_error = ?,
		    updated_at = strftime('%s', 'now')
		WHERE upload_id = ?
	`, status, progress, errVal, uploadID)
	return err
}

// FinalizeVideo writes the technical metadata and media URLs and marks
// the record complete.
func (d *Database) FinalizeVideo(ctx context.Context, uploadID string, meta FinalMetadata) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("finalize_video", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		UPDATE videos
		SET processing_status = 'complete', processing_progress = 100, processing_error = NULL,
		    duration = ?, width = ?, height = ?, fps = ?, codec = ?, audio_codec = ?,
		    bitrate = ?, format = ?, thumbnail_url = ?, poster_url = ?, filename = ?, preview_url = ?,
		    updated_at = strftime('%s', 'now')
		WHERE upload_id = ?
	`,
		meta.Duration, meta.Width, meta.Height, meta.FPS, meta.Codec, nullable(meta.AudioCodec),
		nullableInt(meta.Bitrate), meta.Format, meta.ThumbnailURL, meta.PosterURL, meta.Filename, meta.PreviewURL,
		uploadID,
	)
	if err != nil {
		return err
	}

	rows, raErr := res.RowsAffected()
	if raErr == nil && rows == 0 {
		err = fmt.Errorf("no video record for upload %s", uploadID)
	}
	return err
}

// GetVideo fetches one record by upload id.
func (d *Database) GetVideo(ctx context.Context, uploadID string) (*Video, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_video", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var v Video
	err = d.db.QueryRowContext(ctx, `
		SELECT upload_id, slug, title, visibility, original_filename,
		       processing_status, processing_progress, processing_error,
		       duration, width, height, fps, codec, audio_codec, bitrate, format,
		       thumbnail_url, poster_url, filename, preview_url
		FROM videos WHERE upload_id = ?
	`, uploadID).Scan(
		&v.UploadID, &v.Slug, &v.Title, &v.Visibility, &v.OriginalFilename,
		&v.ProcessingStatus, &v.ProcessingProgress, &v.ProcessingError,
		&v.Duration, &v.Width, &v.Height, &v.FPS, &v.Codec, &v.AudioCodec, &v.Bitrate, &v.Format,
		&v.ThumbnailURL, &v.PosterURL, &v.Filename, &v.PreviewURL,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVideo removes one record by upload id.
func (d *Database) DeleteVideo(ctx context.Context, uploadID string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_video", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM videos WHERE upload_id = ?", uploadID)
	return err
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
