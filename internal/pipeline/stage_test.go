package pipeline

import "testing"

func TestStageFloorsStrictlyIncrease(t *testing.T) {
	sequence := []Stage{
		StageStarting,
		StageValidating,
		StageExtractingMetadata,
		StageGeneratingThumbnail,
		StageGeneratingPoster,
		StageTranscodingHls,
		StageMovingFile,
		StageUpdatingDatabase,
		StageComplete,
	}

	for i := 1; i < len(sequence); i++ {
		prev, cur := sequence[i-1], sequence[i]
		if cur.Floor() <= prev.Floor() {
			t.Errorf("Floor(%s)=%d not greater than Floor(%s)=%d",
				cur, cur.Floor(), prev, prev.Floor())
		}
	}

	if StageStarting.Floor() != 0 {
		t.Errorf("Expected Starting floor 0, got %d", StageStarting.Floor())
	}
	if StageComplete.Floor() != 100 {
		t.Errorf("Expected Complete floor 100, got %d", StageComplete.Floor())
	}
}

func TestStageFloors(t *testing.T) {
	tests := []struct {
		stage Stage
		floor int
	}{
		{StageValidating, 5},
		{StageExtractingMetadata, 10},
		{StageGeneratingThumbnail, 25},
		{StageGeneratingPoster, 35},
		{StageTranscodingHls, 50},
		{StageMovingFile, 90},
		{StageUpdatingDatabase, 95},
	}

	for _, tt := range tests {
		if got := tt.stage.Floor(); got != tt.floor {
			t.Errorf("Expected Floor(%s)=%d, got %d", tt.stage, tt.floor, got)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	if !StageComplete.Terminal() {
		t.Error("Expected Complete to be terminal")
	}
	if !StageFailed.Terminal() {
		t.Error("Expected Error to be terminal")
	}
	if StageTranscodingHls.Terminal() {
		t.Error("Expected TranscodingHls to be non-terminal")
	}
}

func TestStageKeysUnique(t *testing.T) {
	seen := make(map[string]Stage)
	for stage, info := range stageInfos {
		if other, dup := seen[info.key]; dup {
			t.Errorf("Stages %v and %v share key %q", stage, other, info.key)
		}
		seen[info.key] = stage
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	inner := errSentinel("boom")
	err := stageError(ErrHlsTranscode, StageTranscodingHls, inner)

	if err.Unwrap() != inner {
		t.Error("Expected Unwrap to return the inner error")
	}
	if err.Kind != ErrHlsTranscode {
		t.Errorf("Expected kind hls_transcode, got %s", err.Kind)
	}
	msg := err.Error()
	if msg != "transcode_hls failed (hls_transcode): boom" {
		t.Errorf("Unexpected message: %q", msg)
	}
}

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
