package hls

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewTranscoderDefaults(t *testing.T) {
	tr := NewTranscoder("", 0, 0)

	if tr.ffmpegPath != "ffmpeg" {
		t.Errorf("Expected ffmpegPath=ffmpeg, got %s", tr.ffmpegPath)
	}
	if tr.segmentSeconds != DefaultSegmentSeconds {
		t.Errorf("Expected segmentSeconds=%d, got %d", DefaultSegmentSeconds, tr.segmentSeconds)
	}
}

func TestVariantArgs(t *testing.T) {
	tr := NewTranscoder("ffmpeg", 6, 2)
	preset := presetByName(t, "720p")

	variantDir := filepath.Join("out", "720p")
	playlist := filepath.Join(variantDir, "index.m3u8")
	args := tr.variantArgs("in.mp4", variantDir, playlist, preset)
	joined := strings.Join(args, " ")

	expectations := []string{
		"-i in.mp4",
		"scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2:black",
		"-c:v libx264",
		"-profile:v main",
		"-level 3.1",
		"-b:v 2800k",
		"-maxrate 2996k",
		"-bufsize 4200k",
		"-c:a aac",
		"-b:a 128k",
		"-ar 44100",
		"-ac 2",
		"-threads 2",
		"-f hls",
		"-hls_time 6",
		"-hls_playlist_type vod",
	}
	for _, want := range expectations {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q:\n%s", want, joined)
		}
	}

	if args[len(args)-1] != playlist {
		t.Errorf("Expected playlist as final argument, got %s", args[len(args)-1])
	}
	if !strings.Contains(joined, filepath.Join(variantDir, "segment_%03d.ts")) {
		t.Error("Expected segment filename template in args")
	}
}

func TestVariantArgsNoThreads(t *testing.T) {
	tr := NewTranscoder("ffmpeg", 6, 0)
	args := tr.variantArgs("in.mp4", "out/360p", "out/360p/index.m3u8", presetByName(t, "360p"))

	if strings.Contains(strings.Join(args, " "), "-threads") {
		t.Error("Expected no -threads flag when budget is 0")
	}
}

func TestSucceededPresets(t *testing.T) {
	results := []VariantResult{
		{Preset: presetByName(t, "720p")},
		{Preset: presetByName(t, "480p"), Err: fmt.Errorf("encoder crashed")},
		{Preset: presetByName(t, "360p")},
	}

	ok := SucceededPresets(results)
	if len(ok) != 2 {
		t.Fatalf("Expected 2 succeeded presets, got %d", len(ok))
	}
	if ok[0].Name != "720p" || ok[1].Name != "360p" {
		t.Errorf("Unexpected order: %s, %s", ok[0].Name, ok[1].Name)
	}
}

func TestVariantResultSucceeded(t *testing.T) {
	if !(VariantResult{}).Succeeded() {
		t.Error("Expected zero-value result to count as succeeded")
	}
	if (VariantResult{Err: fmt.Errorf("x"), Duration: time.Second}).Succeeded() {
		t.Error("Expected result with error to count as failed")
	}
}

func TestTailLines(t *testing.T) {
	long := "a\nb\nc\nd\ne\nf\ng"
	got := tailLines(long, 5)
	if got != "c | d | e | f | g" {
		t.Errorf("Unexpected tail: %q", got)
	}

	short := "only line"
	if got := tailLines(short, 5); got != "only line" {
		t.Errorf("Unexpected tail for short input: %q", got)
	}
}
