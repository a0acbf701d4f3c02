package action

import (
	"errors"
	"fmt"

	"github.com/dshills/xterminal/internal/config"
	"github.com/dshills/xterminal/internal/surface"
)

// ErrNoPrefix is returned for key settings without a prefix chord.
var ErrNoPrefix = errors.New("key prefix is required")

// Keymap resolves the key typed after the prefix to an action.
type Keymap struct {
	prefix   string
	bindings map[string]string
}

// NewKeymap builds a keymap from key settings. Key names are normalized so
// "Ctrl+A" and "ctrl+a" bind the same chord. Bindings to unknown actions
// are reported together.
func NewKeymap(ks config.KeySettings) (*Keymap, error) {
	if ks.Prefix == "" {
		return nil, ErrNoPrefix
	}
	km := &Keymap{
		prefix:   surface.NormalizeKeyName(ks.Prefix),
		bindings: make(map[string]string, len(ks.Bindings)),
	}
	var errs []error
	for key, name := range ks.Bindings {
		if !Known(name) {
			errs = append(errs, fmt.Errorf("key %q: unknown action %q", key, name))
			continue
		}
		km.bindings[surface.NormalizeKeyName(key)] = name
	}
	return km, errors.Join(errs...)
}

// Prefix returns the normalized prefix chord.
func (k *Keymap) Prefix() string {
	return k.prefix
}

// Lookup returns the action bound to key.
func (k *Keymap) Lookup(key string) (string, bool) {
	name, ok := k.bindings[surface.NormalizeKeyName(key)]
	return name, ok
}

// StepKind says what to do with a key press.
type StepKind int

const (
	// StepPass sends the key to the focused pane.
	StepPass StepKind = iota
	// StepPending swallows the prefix and waits for the next key.
	StepPending
	// StepRun runs Step.Action.
	StepRun
	// StepLiteral sends the prefix chord itself to the focused pane.
	StepLiteral
	// StepUnbound swallows an unbound key typed after the prefix.
	StepUnbound
)

// Step is the outcome of feeding one key to a Chord.
type Step struct {
	Kind   StepKind
	Action string
}

// Chord tracks whether the prefix has been typed.
type Chord struct {
	km      *Keymap
	pending bool
}

// NewChord creates a chord reader over km.
func NewChord(km *Keymap) *Chord {
	return &Chord{km: km}
}

// SetKeymap swaps the keymap, dropping a pending prefix.
func (c *Chord) SetKeymap(km *Keymap) {
	c.km = km
	c.pending = false
}

// Pending reports whether the prefix was typed and a command key is awaited.
func (c *Chord) Pending() bool {
	return c.pending
}

// Feed consumes a key name as produced by surface.KeyName.
func (c *Chord) Feed(key string) Step {
	key = surface.NormalizeKeyName(key)
	if !c.pending {
		if key == c.km.prefix {
			c.pending = true
			return Step{Kind: StepPending}
		}
		return Step{Kind: StepPass}
	}
	c.pending = false
	if key == c.km.prefix {
		return Step{Kind: StepLiteral}
	}
	if name, ok := c.km.bindings[key]; ok {
		return Step{Kind: StepRun, Action: name}
	}
	return Step{Kind: StepUnbound}
}
