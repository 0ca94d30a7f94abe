package hls

import (
	"testing"
)

func TestSelectQualities(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		height   int
		expected []string
	}{
		{"FullHD", 1920, 1080, []string{"1080p", "720p", "480p", "360p"}},
		{"HD", 1280, 720, []string{"720p", "480p", "360p"}},
		{"SD", 854, 480, []string{"480p", "360p"}},
		{"Small", 640, 360, []string{"360p"}},
		{"FourK", 3840, 2160, []string{"1080p", "720p", "480p", "360p"}},
		{"TooSmall", 320, 240, nil},
		{"WideButShort", 1920, 700, []string{"480p", "360p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected := SelectQualities(tt.width, tt.height)

			if len(selected) != len(tt.expected) {
				t.Fatalf("Expected %d presets, got %d", len(tt.expected), len(selected))
			}
			for i, p := range selected {
				if p.Name != tt.expected[i] {
					t.Errorf("Expected preset[%d]=%s, got %s", i, tt.expected[i], p.Name)
				}
			}
		})
	}
}

func TestSelectQualitiesNeverUpscales(t *testing.T) {
	for _, p := range SelectQualities(1280, 720) {
		if p.Width > 1280 || p.Height > 720 {
			t.Errorf("Preset %s (%dx%d) upscales a 1280x720 source", p.Name, p.Width, p.Height)
		}
	}
}

func TestBandwidth(t *testing.T) {
	tests := []struct {
		name     string
		expected int
	}{
		{"1080p", 5128000},
		{"720p", 2928000},
		{"480p", 1496000},
		{"360p", 896000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := presetByName(t, tt.name)
			if got := p.Bandwidth(); got != tt.expected {
				t.Errorf("Expected Bandwidth()=%d, got %d", tt.expected, got)
			}
		})
	}
}

func TestResolution(t *testing.T) {
	p := presetByName(t, "1080p")
	if got := p.Resolution(); got != "1920x1080" {
		t.Errorf("Expected Resolution()=1920x1080, got %s", got)
	}
}

func TestPresetsOrderedBestFirst(t *testing.T) {
	for i := 1; i < len(Presets); i++ {
		if Presets[i].Height >= Presets[i-1].Height {
			t.Errorf("Preset %s is not smaller than %s", Presets[i].Name, Presets[i-1].Name)
		}
	}
}

func TestTranscodeProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		expected  int
	}{
		{"None", 0, 4, 50},
		{"Half", 2, 4, 70},
		{"All", 4, 4, 90},
		{"OneOfThree", 1, 3, 63},
		{"ZeroTotal", 0, 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranscodeProgress(tt.completed, tt.total, 50, 90)
			if got != tt.expected {
				t.Errorf("Expected TranscodeProgress(%d, %d)=%d, got %d",
					tt.completed, tt.total, tt.expected, got)
			}
		})
	}
}

func presetByName(t *testing.T, name string) QualityPreset {
	t.Helper()
	for _, p := range Presets {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no preset named %s", name)
	return QualityPreset{}
}
