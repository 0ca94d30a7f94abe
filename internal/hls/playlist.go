package hls

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MasterPlaylistName is the filename of the top-level HLS manifest.
const MasterPlaylistName = "master.m3u8"

// BuildMasterPlaylist renders the master manifest referencing the given
// renditions in catalog order. Only presets that actually produced a
// playlist should be passed in.
func BuildMasterPlaylist(presets []QualityPreset) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	for _, p := range presets {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", p.Bandwidth(), p.Resolution())
		fmt.Fprintf(&b, "%s/index.m3u8\n", p.Name)
	}

	return b.String()
}

// WriteMasterPlaylist writes the master manifest into outputDir and
// returns its path.
func WriteMasterPlaylist(outputDir string, presets []QualityPreset) (string, error) {
	path := filepath.Join(outputDir, MasterPlaylistName)
	if err := os.WriteFile(path, []byte(BuildMasterPlaylist(presets)), 0o644); err != nil {
		return "", fmt.Errorf("write master playlist: %w", err)
	}
	return path, nil
}
