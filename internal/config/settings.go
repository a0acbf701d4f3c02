// Package config loads xterminal settings.
//
// Settings are layered, later layers overriding earlier ones:
//
//  1. built-in defaults
//  2. the settings file (TOML, or YAML when the extension is .yaml/.yml)
//  3. an optional profiles.yaml next to the settings file
//  4. XTERMINAL_* environment variables
//
// Every layer is read into a generic map, the maps are deep merged, and the
// result is decoded into Settings. A Watcher reloads the file set when it
// changes on disk.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/xterminal/internal/logging"
)

// Settings is the complete runtime configuration.
type Settings struct {
	Logging        LoggingSettings   `toml:"logging" yaml:"logging"`
	Terminal       TerminalSettings  `toml:"terminal" yaml:"terminal"`
	Broadcast      BroadcastSettings `toml:"broadcast" yaml:"broadcast"`
	Startup        StartupSettings   `toml:"startup" yaml:"startup"`
	DefaultProfile string            `toml:"defaultProfile" yaml:"defaultProfile"`
	Profiles       []Profile         `toml:"profiles" yaml:"profiles"`
	Keys           KeySettings       `toml:"keys" yaml:"keys"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level string `toml:"level" yaml:"level"`
	// File receives log output. Empty means stderr.
	File string `toml:"file" yaml:"file"`
	JSON bool   `toml:"json" yaml:"json"`
}

// TerminalSettings configures spawned sessions.
type TerminalSettings struct {
	// Shell overrides $SHELL.
	Shell string            `toml:"shell" yaml:"shell"`
	Args  []string          `toml:"args" yaml:"args"`
	Cols  int               `toml:"cols" yaml:"cols"`
	Rows  int               `toml:"rows" yaml:"rows"`
	Env   map[string]string `toml:"env" yaml:"env"`
	// WriteRate caps input writes per second per session. Zero disables.
	WriteRate  int `toml:"writeRate" yaml:"writeRate"`
	WriteBurst int `toml:"writeBurst" yaml:"writeBurst"`
}

// BroadcastSettings configures input broadcasting.
type BroadcastSettings struct {
	// Enabled turns broadcast mode on at startup.
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// StartupSettings configures what runs when the window opens.
type StartupSettings struct {
	// Layout is a Lua script that builds the initial tabs and splits.
	Layout string `toml:"layout" yaml:"layout"`
}

// Profile is a named shell configuration a tab can be opened with.
type Profile struct {
	ID    string            `toml:"id" yaml:"id"`
	Name  string            `toml:"name" yaml:"name"`
	Shell string            `toml:"shell" yaml:"shell"`
	Args  []string          `toml:"args" yaml:"args"`
	Env   map[string]string `toml:"env" yaml:"env"`
	Dir   string            `toml:"dir" yaml:"dir"`
	Color string            `toml:"color" yaml:"color"`
}

// KeySettings configures the prefix key and its bindings.
type KeySettings struct {
	// Prefix is the chord that starts a command, e.g. "ctrl+a".
	Prefix string `toml:"prefix" yaml:"prefix"`
	// Bindings maps the key typed after the prefix to an action name.
	Bindings map[string]string `toml:"bindings" yaml:"bindings"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Logging: LoggingSettings{Level: "info"},
		Terminal: TerminalSettings{
			Cols: 80,
			Rows: 24,
		},
		Keys: KeySettings{
			Prefix: "ctrl+a",
			Bindings: map[string]string{
				"|": "pane.splitVertical",
				"-": "pane.splitHorizontal",
				"x": "pane.close",
				"o": "pane.focusNext",
				"O": "pane.focusPrev",
				"=": "pane.equalize",
				"+": "pane.grow",
				"_": "pane.shrink",
				"r": "pane.restart",
				"c": "tab.new",
				"d": "tab.duplicate",
				"&": "tab.close",
				"n": "tab.next",
				"p": "tab.prev",
				"<": "tab.moveLeft",
				">": "tab.moveRight",
				"b": "broadcast.toggle",
				"q": "app.quit",
			},
		},
	}
}

// Profile returns the profile with the given id.
func (s *Settings) Profile(id string) (Profile, bool) {
	i := slices.IndexFunc(s.Profiles, func(p Profile) bool { return p.ID == id })
	if i < 0 {
		return Profile{}, false
	}
	return s.Profiles[i], true
}

// LogLevel returns the configured level.
func (s *Settings) LogLevel() logging.Level {
	return logging.ParseLevel(s.Logging.Level)
}

// Validate checks value ranges and cross references.
func (s *Settings) Validate() error {
	var errs []error
	if s.Terminal.Cols <= 0 || s.Terminal.Rows <= 0 {
		errs = append(errs, &ValidationError{Path: "terminal", Message: fmt.Sprintf("size %dx%d must be positive", s.Terminal.Cols, s.Terminal.Rows)})
	}
	if s.Terminal.WriteRate < 0 {
		errs = append(errs, &ValidationError{Path: "terminal.writeRate", Message: "must not be negative"})
	}
	seen := make(map[string]bool, len(s.Profiles))
	for i, p := range s.Profiles {
		path := fmt.Sprintf("profiles[%d]", i)
		if p.ID == "" {
			errs = append(errs, &ValidationError{Path: path, Message: "id is required"})
			continue
		}
		if seen[p.ID] {
			errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf("duplicate id %q", p.ID)})
		}
		seen[p.ID] = true
	}
	if s.DefaultProfile != "" && !seen[s.DefaultProfile] {
		errs = append(errs, &ValidationError{Path: "defaultProfile", Message: fmt.Sprintf("unknown profile %q", s.DefaultProfile)})
	}
	return errors.Join(errs...)
}
