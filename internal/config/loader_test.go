package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newTestLoader returns a loader with an empty environment layer.
func newTestLoader(path string, env ...string) *Loader {
	l := NewLoader(path)
	l.Env.lookup = func() []string { return env }
	return l
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := newTestLoader(filepath.Join(dir, SettingsFileTOML)).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Terminal.Cols != 80 || s.Terminal.Rows != 24 {
		t.Errorf("expected default 80x24, got %dx%d", s.Terminal.Cols, s.Terminal.Rows)
	}
	if s.Keys.Prefix != "ctrl+a" {
		t.Errorf("expected default prefix, got %q", s.Keys.Prefix)
	}
	if s.Keys.Bindings["|"] != "pane.splitVertical" {
		t.Errorf("expected default bindings, got %v", s.Keys.Bindings)
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SettingsFileTOML, `
defaultProfile = "work"

[logging]
level = "debug"

[terminal]
shell = "/bin/zsh"
cols = 120
writeRate = 200

[terminal.env]
EDITOR = "nvim"

[keys.bindings]
"v" = "pane.splitVertical"

[[profiles]]
id = "work"
name = "Work"
dir = "/srv"
color = "#00ff00"
`)

	s, err := newTestLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %q", s.Logging.Level)
	}
	if s.Terminal.Shell != "/bin/zsh" || s.Terminal.Cols != 120 || s.Terminal.Rows != 24 {
		t.Errorf("unexpected terminal settings %+v", s.Terminal)
	}
	if s.Terminal.WriteRate != 200 {
		t.Errorf("expected writeRate 200, got %d", s.Terminal.WriteRate)
	}
	if s.Terminal.Env["EDITOR"] != "nvim" {
		t.Errorf("expected env EDITOR, got %v", s.Terminal.Env)
	}
	if s.Keys.Bindings["v"] != "pane.splitVertical" || s.Keys.Bindings["x"] != "pane.close" {
		t.Errorf("expected bindings merged over defaults, got %v", s.Keys.Bindings)
	}
	p, ok := s.Profile("work")
	if !ok || p.Name != "Work" || p.Dir != "/srv" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestLoad_YAMLWithProfilesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SettingsFileYAML, `
logging:
  level: warn
terminal:
  rows: 50
broadcast:
  enabled: true
`)
	writeFile(t, dir, ProfilesFile, `
profiles:
  - id: ops
    name: Ops
    shell: /bin/bash
    args: ["-l"]
    env:
      KUBECONFIG: /etc/kube
defaultProfile: ops
`)

	s, err := newTestLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Logging.Level != "warn" || s.Terminal.Rows != 50 || !s.Broadcast.Enabled {
		t.Errorf("unexpected settings %+v", s)
	}
	if s.DefaultProfile != "ops" {
		t.Errorf("expected default profile ops, got %q", s.DefaultProfile)
	}
	p, ok := s.Profile("ops")
	if !ok {
		t.Fatal("expected ops profile")
	}
	if len(p.Args) != 1 || p.Args[0] != "-l" || p.Env["KUBECONFIG"] != "/etc/kube" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SettingsFileTOML, "[logging]\nlevel = \"info\"\n")

	s, err := newTestLoader(path,
		"XTERMINAL_LOG_LEVEL=error",
		"XTERMINAL_SHELL=/usr/bin/fish",
		"XTERMINAL_TERMINAL_WRITE_RATE=50",
		"XTERMINAL_CONFIG_DIR=/ignored",
		"OTHER_VAR=1",
	).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Logging.Level != "error" {
		t.Errorf("expected env level error, got %q", s.Logging.Level)
	}
	if s.Terminal.Shell != "/usr/bin/fish" {
		t.Errorf("expected env shell, got %q", s.Terminal.Shell)
	}
	if s.Terminal.WriteRate != 50 {
		t.Errorf("expected env writeRate 50, got %d", s.Terminal.WriteRate)
	}
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SettingsFileTOML, "[terminal]\ncols = = 3\n")

	_, err := newTestLoader(path).Load()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Errorf("expected error on line 2, got %d", pe.Line)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SettingsFileTOML, `
defaultProfile = "missing"

[[profiles]]
id = "a"

[[profiles]]
id = "a"
`)

	_, err := newTestLoader(path).Load()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	if _, err := Parse("settings.json", []byte("{}")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero cols", func(s *Settings) { s.Terminal.Cols = 0 }, true},
		{"negative rate", func(s *Settings) { s.Terminal.WriteRate = -1 }, true},
		{"profile without id", func(s *Settings) { s.Profiles = []Profile{{Name: "x"}} }, true},
		{"known default", func(s *Settings) {
			s.Profiles = []Profile{{ID: "p"}}
			s.DefaultProfile = "p"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"terminal": map[string]any{"cols": 80, "rows": 24},
		"keep":     "x",
	}
	src := map[string]any{
		"terminal": map[string]any{"cols": 100},
		"new":      true,
	}
	out := DeepMerge(dst, src)

	term := out["terminal"].(map[string]any)
	if term["cols"] != 100 || term["rows"] != 24 {
		t.Errorf("expected nested merge, got %v", term)
	}
	if out["keep"] != "x" || out["new"] != true {
		t.Errorf("expected top-level keys preserved and added, got %v", out)
	}
}

func TestFilesIncludesProfiles(t *testing.T) {
	l := NewLoader("/etc/xterminal/settings.toml")
	files := l.Files()
	if len(files) != 2 || files[1] != "/etc/xterminal/profiles.yaml" {
		t.Errorf("unexpected files %v", files)
	}
}
