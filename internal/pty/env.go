package pty

import (
	"maps"
	"slices"
	"strings"
)

// terminalEnv is set for every session.
var terminalEnv = map[string]string{
	"TERM":      "xterm-256color",
	"COLORTERM": "truecolor",
}

// buildEnv overlays each layer and then terminalEnv onto base. Later layers
// win, and TERM and COLORTERM always describe the emulator. Keys in base
// that are overridden are dropped so the child sees one value per key.
func buildEnv(base []string, layers ...map[string]string) []string {
	overrides := make(map[string]string)
	for _, layer := range layers {
		maps.Copy(overrides, layer)
	}
	maps.Copy(overrides, terminalEnv)

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
