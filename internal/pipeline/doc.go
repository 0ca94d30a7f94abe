// Package pipeline sequences the processing stages that turn an uploaded
// video into a served one.
//
// A single Orchestrator drives each upload through:
//   - Validation of the temp file
//   - Metadata extraction (ffprobe)
//   - Thumbnail and poster generation (best effort)
//   - HLS transcoding of every rendition the source resolution supports
//   - Moving the original into permanent storage
//   - Finalizing the database record
//
// Each stage transition is persisted to the database, published to the
// progress tracker and timed into the stats store. Thumbnail and poster
// failures are tolerated; every other stage failure ends the job with a
// typed StageError and removes partial artifacts. Once the media tree has
// been moved into place it is never deleted by a later failure.
package pipeline
