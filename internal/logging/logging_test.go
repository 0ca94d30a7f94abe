package logging

import "testing"

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Expected Level(%d).String()=%q, got %q", tt.level, tt.expected, got)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(LevelDebug < LevelInfo && LevelInfo < LevelWarn && LevelWarn < LevelError) {
		t.Error("Expected levels ordered debug < info < warn < error")
	}
}

func TestGetLevelDefault(t *testing.T) {
	// The level is latched once per process; without DEBUG/LOG_LEVEL in
	// the test environment it defaults to info.
	level := GetLevel()
	if level < LevelDebug || level > LevelError {
		t.Errorf("GetLevel() out of range: %v", level)
	}

	if IsDebugEnabled() != (level <= LevelDebug) {
		t.Error("IsDebugEnabled disagrees with GetLevel")
	}
}
