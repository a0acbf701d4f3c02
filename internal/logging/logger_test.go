package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = '%s', expected '%s'", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{" error ", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel('%s') = %d, expected %d", tt.input, got, tt.expected)
		}
	}
}

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Output: &buf, Prefix: "test"}), &buf
}

func TestLogger_Log(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Info("spawned %d sessions", 3)

	out := buf.String()
	if !strings.Contains(out, "level=info") {
		t.Errorf("expected level in output, got: %s", out)
	}
	if !strings.Contains(out, "test: spawned 3 sessions") {
		t.Errorf("expected prefixed message in output, got: %s", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got: %s", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got: %s", buf.String())
	}
}

func TestLogger_Fields(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.WithComponent("pty").WithFields(map[string]any{"session": "s1"}).Error("read failed")

	out := buf.String()
	for _, want := range []string{"component=pty", "session=s1", "level=error"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestLogger_WithError(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.WithError(errors.New("boom")).Warn("close failed")

	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("expected error field, got: %s", buf.String())
	}
}

func TestLogger_SetLevelSharedWithChildren(t *testing.T) {
	logger, buf := newBufferLogger(LevelError)
	child := logger.WithComponent("workspace")

	logger.SetLevel(LevelDebug)
	child.Debug("now visible")

	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("expected child to follow root level, got: %s", buf.String())
	}
	if child.Level() != LevelDebug {
		t.Errorf("expected child level DEBUG, got %s", child.Level())
	}
}

func TestNullLogger(t *testing.T) {
	// must not panic
	Null.Info("discarded")
	Null.WithField("k", "v").Error("discarded")
	Null.SetLevel(LevelDebug)
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected default logger")
	}
	custom, _ := newBufferLogger(LevelInfo)
	prev := Default()
	SetDefault(custom)
	t.Cleanup(func() { SetDefault(prev) })
	if Default() != custom {
		t.Error("expected SetDefault to replace the logger")
	}
}
