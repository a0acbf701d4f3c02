package config

import (
	"reflect"
	"testing"
)

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader("XTERMINAL_")
	tests := []struct {
		env      string
		expected string
	}{
		{"XTERMINAL_TERMINAL_COLS", "terminal.cols"},
		{"XTERMINAL_TERMINAL_WRITE_RATE", "terminal.writeRate"},
		{"XTERMINAL_KEYS_PREFIX", "keys.prefix"},
		{"XTERMINAL_DEFAULTPROFILE", "defaultprofile"},
	}
	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.expected {
			t.Errorf("envToPath(%q) = %q, expected %q", tt.env, got, tt.expected)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"", ""},
		{"true", true},
		{"OFF", false},
		{"42", int64(42)},
		{"1", int64(1)},
		{"1.5", 1.5},
		{"/bin/zsh", "/bin/zsh"},
		{`["-l","-i"]`, []any{"-l", "-i"}},
		{"[not json", "[not json"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.input); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("parseValue(%q) = %#v, expected %#v", tt.input, got, tt.expected)
		}
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("XTERMINAL_")
	l.lookup = func() []string {
		return []string{
			"XTERMINAL_LOG_LEVEL=debug",
			"XTERMINAL_TERMINAL_ROWS=40",
			"XTERMINAL_CONFIG_DIR=/tmp/x",
			"HOME=/root",
		}
	}
	l.AddMapping("XTERMINAL_TITLE", "startup.title")

	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]any{
		"logging":  map[string]any{"level": "debug"},
		"terminal": map[string]any{"rows": int64(40)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %#v, expected %#v", got, want)
	}
}
