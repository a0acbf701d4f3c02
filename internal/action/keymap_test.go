package action

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/xterminal/internal/config"
)

func TestNewKeymap_Defaults(t *testing.T) {
	km, err := NewKeymap(config.Defaults().Keys)
	if err != nil {
		t.Fatalf("default bindings must be valid: %v", err)
	}
	if km.Prefix() != "ctrl+a" {
		t.Errorf("expected ctrl+a prefix, got %q", km.Prefix())
	}
	tests := map[string]string{
		"|": PaneSplitVertical,
		"o": PaneFocusNext,
		"O": PaneFocusPrev,
		"c": TabNew,
		"q": AppQuit,
	}
	for key, want := range tests {
		if got, ok := km.Lookup(key); !ok || got != want {
			t.Errorf("Lookup(%q) = %q, %v; expected %q", key, got, ok, want)
		}
	}
}

func TestNewKeymap_Errors(t *testing.T) {
	if _, err := NewKeymap(config.KeySettings{}); !errors.Is(err, ErrNoPrefix) {
		t.Errorf("expected ErrNoPrefix, got %v", err)
	}

	km, err := NewKeymap(config.KeySettings{
		Prefix:   "Ctrl+B",
		Bindings: map[string]string{"v": PaneSplitVertical, "z": "pane.zoom"},
	})
	if err == nil || !strings.Contains(err.Error(), "pane.zoom") {
		t.Fatalf("expected unknown action error, got %v", err)
	}
	if km.Prefix() != "ctrl+b" {
		t.Errorf("expected normalized prefix, got %q", km.Prefix())
	}
	if _, ok := km.Lookup("v"); !ok {
		t.Error("valid bindings must survive an invalid one")
	}
	if _, ok := km.Lookup("z"); ok {
		t.Error("unknown action must not be bound")
	}
}

func TestChord_Feed(t *testing.T) {
	km, err := NewKeymap(config.Defaults().Keys)
	if err != nil {
		t.Fatal(err)
	}
	c := NewChord(km)

	steps := []struct {
		key  string
		want Step
	}{
		{"a", Step{Kind: StepPass}},
		{"ctrl+a", Step{Kind: StepPending}},
		{"|", Step{Kind: StepRun, Action: PaneSplitVertical}},
		{"|", Step{Kind: StepPass}},
		{"Ctrl+A", Step{Kind: StepPending}},
		{"ctrl+a", Step{Kind: StepLiteral}},
		{"ctrl+a", Step{Kind: StepPending}},
		{"y", Step{Kind: StepUnbound}},
		{"y", Step{Kind: StepPass}},
	}
	for i, s := range steps {
		if got := c.Feed(s.key); got != s.want {
			t.Errorf("step %d (%q): expected %+v, got %+v", i, s.key, s.want, got)
		}
	}
}

func TestChord_SetKeymap(t *testing.T) {
	km, _ := NewKeymap(config.Defaults().Keys)
	c := NewChord(km)
	c.Feed("ctrl+a")
	if !c.Pending() {
		t.Fatal("expected pending after prefix")
	}

	other, err := NewKeymap(config.KeySettings{Prefix: "ctrl+b", Bindings: map[string]string{"x": PaneClose}})
	if err != nil {
		t.Fatal(err)
	}
	c.SetKeymap(other)
	if c.Pending() {
		t.Error("swapping keymaps drops the pending prefix")
	}
	if got := c.Feed("ctrl+a"); got.Kind != StepPass {
		t.Errorf("old prefix must pass through, got %+v", got)
	}
	c.Feed("ctrl+b")
	if got := c.Feed("x"); got.Kind != StepRun || got.Action != PaneClose {
		t.Errorf("expected pane.close, got %+v", got)
	}
}
