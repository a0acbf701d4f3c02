package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File names looked up in the settings directory.
const (
	SettingsFileTOML = "settings.toml"
	SettingsFileYAML = "settings.yaml"
	ProfilesFile     = "profiles.yaml"
	EnvPrefix        = "XTERMINAL_"
)

// DefaultDir returns the settings directory, usually ~/.config/xterminal.
func DefaultDir() string {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".xterminal")
	}
	return filepath.Join(base, "xterminal")
}

// DefaultPath returns the settings file in DefaultDir, preferring an
// existing YAML file over the TOML default.
func DefaultPath() string {
	dir := DefaultDir()
	yml := filepath.Join(dir, SettingsFileYAML)
	if _, err := os.Stat(yml); err == nil {
		return yml
	}
	return filepath.Join(dir, SettingsFileTOML)
}

// Loader reads and merges the settings layers.
type Loader struct {
	// Path is the settings file. A missing file is not an error.
	Path string
	// ProfilesPath is an optional YAML file with a profiles list.
	ProfilesPath string
	// Env supplies the environment layer. Nil disables it.
	Env *EnvLoader
}

// NewLoader creates a loader for path, or DefaultPath when path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultPath()
	}
	return &Loader{
		Path:         path,
		ProfilesPath: filepath.Join(filepath.Dir(path), ProfilesFile),
		Env:          NewEnvLoader(EnvPrefix),
	}
}

// Files returns the files the loader reads, for watching.
func (l *Loader) Files() []string {
	files := []string{l.Path}
	if l.ProfilesPath != "" {
		files = append(files, l.ProfilesPath)
	}
	return files
}

// Load reads every layer and returns validated settings.
func (l *Loader) Load() (*Settings, error) {
	merged, err := toMap(Defaults())
	if err != nil {
		return nil, err
	}

	layers := make([]map[string]any, 0, 3)
	file, err := readFile(l.Path)
	if err != nil {
		return nil, err
	}
	layers = append(layers, file)

	if l.ProfilesPath != "" {
		profiles, err := readFile(l.ProfilesPath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, profiles)
	}

	if l.Env != nil {
		env, err := l.Env.Load()
		if err != nil {
			return nil, err
		}
		layers = append(layers, env)
	}

	for _, layer := range layers {
		merged = DeepMerge(merged, layer)
	}

	s, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load is a shortcut for NewLoader(path).Load().
func Load(path string) (*Settings, error) {
	return NewLoader(path).Load()
}

// readFile parses a settings file by extension. A missing file yields an
// empty layer.
func readFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes settings data. The format is chosen by the extension of
// name.
func Parse(name string, data []byte) (map[string]any, error) {
	out := make(map[string]any)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if err := toml.Unmarshal(data, &out); err != nil {
			pe := &ParseError{Path: name, Message: err.Error(), Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, pe.Column = de.Position()
			}
			return nil, pe
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, &ParseError{Path: name, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	return prune(out), nil
}

// toMap converts settings into the generic layer form.
func toMap(s Settings) (map[string]any, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	out := make(map[string]any)
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	return out, nil
}

// fromMap decodes a merged layer into Settings.
func fromMap(m map[string]any) (*Settings, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, &ParseError{Path: "merged settings", Message: err.Error(), Err: err}
	}
	return &s, nil
}

// prune drops nil values, which YAML produces for empty keys.
func prune(m map[string]any) map[string]any {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			m[k] = prune(val)
		case []any:
			for i, item := range val {
				if sub, ok := item.(map[string]any); ok {
					val[i] = prune(sub)
				}
			}
		}
	}
	return m
}

// DeepMerge recursively merges src into dst.
// Values in src override values in dst.
// Maps are merged recursively; other types are replaced.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = srcVal
			continue
		}
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dstVal.(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
		} else {
			dst[key] = srcVal
		}
	}
	return dst
}
