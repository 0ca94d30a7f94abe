package pipeline

import "fmt"

// ErrorKind classifies a fatal pipeline failure. The kind decides the
// metrics counter and shows up in the audit trail.
type ErrorKind string

// Failure kinds, matching the pipeline's error taxonomy. Thumbnail and
// poster kinds exist for metering only; those failures never abort a run.
const (
	ErrValidation   ErrorKind = "validation"
	ErrMetadata     ErrorKind = "metadata"
	ErrThumbnail    ErrorKind = "thumbnail"
	ErrPoster       ErrorKind = "poster"
	ErrHlsTranscode ErrorKind = "hls_transcode"
	ErrStorage      ErrorKind = "storage"
	ErrDatabase     ErrorKind = "database"
)

// StageError is a fatal pipeline failure attributed to a stage.
type StageError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(kind ErrorKind, stage Stage, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}
