package hls

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildMasterPlaylist(t *testing.T) {
	presets := SelectQualities(1280, 720)
	playlist := BuildMasterPlaylist(presets)

	lines := strings.Split(strings.TrimSpace(playlist), "\n")
	expected := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-STREAM-INF:BANDWIDTH=2928000,RESOLUTION=1280x720",
		"720p/index.m3u8",
		"#EXT-X-STREAM-INF:BANDWIDTH=1496000,RESOLUTION=854x480",
		"480p/index.m3u8",
		"#EXT-X-STREAM-INF:BANDWIDTH=896000,RESOLUTION=640x360",
		"360p/index.m3u8",
	}

	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(expected), len(lines), playlist)
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("Line %d: expected %q, got %q", i, want, lines[i])
		}
	}
}

func TestBuildMasterPlaylistEmpty(t *testing.T) {
	playlist := BuildMasterPlaylist(nil)
	if playlist != "#EXTM3U\n#EXT-X-VERSION:3\n" {
		t.Errorf("Unexpected empty playlist content: %q", playlist)
	}
}

func TestWriteMasterPlaylist(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteMasterPlaylist(dir, SelectQualities(1920, 1080))
	if err != nil {
		t.Fatalf("WriteMasterPlaylist failed: %v", err)
	}

	if path != filepath.Join(dir, MasterPlaylistName) {
		t.Errorf("Expected path %s, got %s", filepath.Join(dir, MasterPlaylistName), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written playlist: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "#EXTM3U\n") {
		t.Error("Playlist missing #EXTM3U header")
	}
	for _, name := range []string{"1080p", "720p", "480p", "360p"} {
		if !strings.Contains(content, name+"/index.m3u8") {
			t.Errorf("Playlist missing %s rendition reference", name)
		}
	}
}
