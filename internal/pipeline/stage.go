package pipeline

// Stage is one step of the processing pipeline. Stages execute strictly
// in declaration order; StageFailed is reachable from any non-terminal
// stage.
type Stage int

// Pipeline stages in execution order.
const (
	StageStarting Stage = iota
	StageValidating
	StageExtractingMetadata
	StageGeneratingThumbnail
	StageGeneratingPoster
	StageTranscodingHls
	StageMovingFile
	StageUpdatingDatabase
	StageComplete
	StageFailed
)

// stageInfo carries the fixed progress floor and the poller-facing
// description for a stage. Floors are strictly increasing across the
// non-error sequence.
type stageInfo struct {
	floor       int
	description string
	key         string
}

var stageInfos = map[Stage]stageInfo{
	StageStarting:            {0, "Starting", "starting"},
	StageValidating:          {5, "Validating upload", "validation"},
	StageExtractingMetadata:  {10, "Extracting metadata", "metadata"},
	StageGeneratingThumbnail: {25, "Generating thumbnail", "thumbnail"},
	StageGeneratingPoster:    {35, "Generating poster", "poster"},
	StageTranscodingHls:      {50, "Transcoding HLS renditions", "transcode_hls"},
	StageMovingFile:          {90, "Moving files to storage", "move_file"},
	StageUpdatingDatabase:    {95, "Updating database", "update_database"},
	StageComplete:            {100, "Complete", "complete"},
	StageFailed:              {0, "Error", "error"},
}

// Floor returns the fixed progress percentage for entering the stage.
func (s Stage) Floor() int {
	return stageInfos[s].floor
}

// Description returns the poller-facing stage description.
func (s Stage) Description() string {
	return stageInfos[s].description
}

// Key returns the stable identifier used for metrics and stats.
func (s Stage) Key() string {
	return stageInfos[s].key
}

func (s Stage) String() string {
	return stageInfos[s].key
}

// Terminal reports whether the stage ends the pipeline.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// transcodeStart and transcodeEnd bound the share of the progress range
// spent transcoding; per-rendition progress interpolates between them.
const (
	transcodeStart = 50
	transcodeEnd   = 90
)
