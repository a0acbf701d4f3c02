package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/xterminal/internal/action"
	"github.com/dshills/xterminal/internal/config"
	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/pty"
	"github.com/dshills/xterminal/internal/surface"
	"github.com/dshills/xterminal/internal/workspace"
)

type fakeBackend struct {
	mu      sync.Mutex
	spawned []pty.SpawnOptions
	writes  map[string]string
	closed  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{writes: make(map[string]string)}
}

func (b *fakeBackend) Spawn(_ context.Context, opts pty.SpawnOptions) (pty.SessionInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spawned = append(b.spawned, opts)
	n := len(b.spawned)
	return pty.SessionInfo{ID: fmt.Sprintf("s%d", n), PID: 100 + n, Shell: opts.Shell}, nil
}

func (b *fakeBackend) Start(string) error { return nil }

func (b *fakeBackend) Write(id, data string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes[id] += data
	return nil
}

func (b *fakeBackend) Resize(string, int, int) error { return nil }

func (b *fakeBackend) Close(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, id)
	return nil
}

func (b *fakeBackend) spawnCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.spawned)
}

func (b *fakeBackend) written(id string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[id]
}

func newTestApp(t *testing.T, settings string) (*Application, *fakeBackend) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	if settings != "" {
		if err := os.WriteFile(path, []byte(settings), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	backend := newFakeBackend()
	app, err := New(Options{
		ConfigPath:    path,
		LogOutput:     io.Discard,
		Backend:       backend,
		Hostname:      func() (string, error) { return "testhost", nil },
		FrameInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return app, backend
}

type runResult struct {
	done chan struct{}
	err  error
}

// startApp runs app on a simulation screen until the test ends.
func startApp(t *testing.T, app *Application) (tcell.SimulationScreen, *runResult) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	ctx, cancel := context.WithCancel(context.Background())
	res := &runResult{done: make(chan struct{})}
	go func() {
		defer close(res.done)
		res.err = app.Run(ctx, surface.NewScreenWith(sim))
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-res.done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not return")
		}
		_ = app.Close()
	})
	return sim, res
}

// waitFor polls cond on the loop until it holds.
func waitFor(t *testing.T, app *Application, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		ok := false
		err := app.Loop().Do(ctx, func() { ok = cond() })
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func activeRunning(app *Application) bool {
	id := app.ws.ActivePane()
	st, ok := app.ws.PaneStatus(id)
	return ok && st == workspace.PaneRunning
}

func TestNew_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("terminal = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{ConfigPath: path, LogOutput: io.Discard, Backend: newFakeBackend()})
	var ie *InitError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InitError, got %v", err)
	}
	if ie.Component != "config" {
		t.Errorf("expected config component, got %q", ie.Component)
	}
}

func TestNew_NoPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("[keys]\nprefix = \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{ConfigPath: path, LogOutput: io.Discard, Backend: newFakeBackend()})
	var ie *InitError
	if !errors.As(err, &ie) || ie.Component != "keys" {
		t.Fatalf("expected keys InitError, got %v", err)
	}
}

func TestRun_NoScreen(t *testing.T) {
	app, _ := newTestApp(t, "")
	defer app.Close()
	if err := app.Run(context.Background(), nil); !errors.Is(err, ErrNoScreen) {
		t.Errorf("expected ErrNoScreen, got %v", err)
	}
}

func TestRun_DefaultTab(t *testing.T) {
	app, backend := newTestApp(t, "")
	startApp(t, app)

	waitFor(t, app, "default tab", func() bool {
		return len(app.ws.Tabs()) == 1 && activeRunning(app)
	})
	if n := backend.spawnCount(); n != 1 {
		t.Errorf("expected 1 spawn, got %d", n)
	}
	waitFor(t, app, "tab title", func() bool {
		return app.ws.Tabs()[0].Title == "testhost"
	})
	if !app.IsRunning() {
		t.Error("expected IsRunning during Run")
	}
}

func TestRun_OutputReachesSurface(t *testing.T) {
	app, _ := newTestApp(t, "")
	startApp(t, app)
	waitFor(t, app, "running pane", func() bool { return activeRunning(app) })

	app.OnData("s1", "hello world")
	waitFor(t, app, "surface text", func() bool {
		sf, ok := app.surfaces[app.ws.ActivePane()]
		if !ok {
			return false
		}
		return strings.Contains(strings.Join(sf.Lines(), "\n"), "hello world")
	})
	if got := app.Metrics().Snapshot().BytesIn; got != uint64(len("hello world")) {
		t.Errorf("expected %d bytes in, got %d", len("hello world"), got)
	}
}

func TestRun_KeysReachSession(t *testing.T) {
	app, backend := newTestApp(t, "")
	sim, _ := startApp(t, app)
	waitFor(t, app, "running pane", func() bool { return activeRunning(app) })

	sim.InjectKey(tcell.KeyRune, 'l', tcell.ModNone)
	sim.InjectKey(tcell.KeyRune, 's', tcell.ModNone)
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	waitFor(t, app, "typed input", func() bool {
		return backend.written("s1") == "ls\r"
	})
}

func TestRun_PrefixSplit(t *testing.T) {
	app, backend := newTestApp(t, "")
	sim, _ := startApp(t, app)
	waitFor(t, app, "running pane", func() bool { return activeRunning(app) })

	sim.InjectKey(tcell.KeyCtrlA, 0, tcell.ModCtrl)
	sim.InjectKey(tcell.KeyRune, '|', tcell.ModNone)
	waitFor(t, app, "split", func() bool {
		tb, ok := app.ws.ActiveTab()
		return ok && len(app.ws.Panes(tb.ID)) == 2 && activeRunning(app)
	})
	if n := backend.spawnCount(); n != 2 {
		t.Errorf("expected 2 spawns, got %d", n)
	}
	if got := backend.written("s1"); got != "" {
		t.Errorf("prefix chord leaked input %q", got)
	}
}

func TestRun_PrefixQuit(t *testing.T) {
	app, _ := newTestApp(t, "")
	sim, res := startApp(t, app)
	waitFor(t, app, "running pane", func() bool { return activeRunning(app) })

	sim.InjectKey(tcell.KeyCtrlA, 0, tcell.ModCtrl)
	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case <-res.done:
		if res.err != nil {
			t.Errorf("expected clean quit, got %v", res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	if app.IsRunning() {
		t.Error("expected IsRunning false after quit")
	}
}

func TestApplySettings(t *testing.T) {
	app, _ := newTestApp(t, "")
	defer app.Close()

	var reloaded int
	sub, err := app.Bus().Subscribe(event.TopicConfigReloaded, func(event.Event) { reloaded++ })
	if err != nil {
		t.Fatal(err)
	}
	defer app.Bus().Unsubscribe(sub)

	s := config.Defaults()
	s.Keys.Prefix = "ctrl+b"
	app.applySettings(&s)

	if reloaded != 1 {
		t.Errorf("expected 1 reload event, got %d", reloaded)
	}
	if app.Settings() != &s {
		t.Error("expected settings swapped")
	}
	if step := app.chord.Feed("ctrl+a"); step.Kind != action.StepPass {
		t.Errorf("old prefix should pass through, got %v", step.Kind)
	}
	if step := app.chord.Feed("ctrl+b"); step.Kind != action.StepPending {
		t.Errorf("new prefix should be pending, got %v", step.Kind)
	}
	if app.status != "settings reloaded" {
		t.Errorf("unexpected status %q", app.status)
	}
}

func TestApplySettings_KeepsKeymapWithoutPrefix(t *testing.T) {
	app, _ := newTestApp(t, "")
	defer app.Close()

	s := config.Defaults()
	s.Keys.Prefix = ""
	app.applySettings(&s)

	if step := app.chord.Feed("ctrl+a"); step.Kind != action.StepPending {
		t.Errorf("expected previous prefix kept, got %v", step.Kind)
	}
}

func TestClose_Idempotent(t *testing.T) {
	app, _ := newTestApp(t, "")
	if err := app.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := app.Loop().Do(context.Background(), func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after Close, got %v", err)
	}
}
