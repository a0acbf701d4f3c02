// Package workspace composes the pane tree, the tab list, the session
// mirror, the broadcast router and the per-pane output buffers into the
// actions a user performs: open a tab, split a pane, type, close.
//
// # Threading
//
// A Workspace is owned by one goroutine, the event loop. Every exported
// method must be called from it. Blocking work (spawning a shell) runs on
// another goroutine and re-enters the loop through the Dispatcher, so
// results are applied in the same single-writer context as user actions.
//
// # Spawning
//
// Each pane carries a spawn token. When a spawn completes, the result is
// applied only if the pane still exists and its token is unchanged. If the
// pane was closed or re-spawned in the meantime, the new session is closed
// right away and never bound.
package workspace

import (
	"context"
	"os"

	"github.com/dshills/xterminal/internal/broadcast"
	"github.com/dshills/xterminal/internal/config"
	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/event/topic"
	"github.com/dshills/xterminal/internal/logging"
	"github.com/dshills/xterminal/internal/output"
	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/pty"
	"github.com/dshills/xterminal/internal/session"
	"github.com/dshills/xterminal/internal/tab"
)

// Backend is the PTY collaborator. *pty.Manager implements it.
type Backend interface {
	Spawn(ctx context.Context, opts pty.SpawnOptions) (pty.SessionInfo, error)
	Start(id string) error
	Write(id, data string) error
	Resize(id string, cols, rows int) error
	Close(id string) error
}

// Dispatcher runs a function on the event loop.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Post calls f.
func (f DispatcherFunc) Post(fn func()) { f(fn) }

// PaneStatus is the lifecycle state of a pane's session.
type PaneStatus int

const (
	// PaneSpawning means a spawn request is in flight.
	PaneSpawning PaneStatus = iota
	// PaneRunning means a live session is bound.
	PaneRunning
	// PaneExited means the session's process ended.
	PaneExited
	// PaneSpawnFailed means the shell could not be started.
	PaneSpawnFailed
)

// String returns the status name.
func (s PaneStatus) String() string {
	switch s {
	case PaneSpawning:
		return "spawning"
	case PaneRunning:
		return "running"
	case PaneExited:
		return "exited"
	case PaneSpawnFailed:
		return "spawn failed"
	default:
		return "unknown"
	}
}

// Launch describes the process a pane runs.
type Launch struct {
	ProfileID string
	Shell     string
	Args      []string
	Env       map[string]string
	Dir       string
}

type paneState struct {
	launch  Launch
	status  PaneStatus
	token   uint64
	cols    int
	rows    int
	lastErr error
	bell    bellScanner
}

// Options configures a Workspace.
type Options struct {
	Settings   *config.Settings
	Backend    Backend
	Dispatcher Dispatcher
	Bus        *event.Bus
	Logger     *logging.Logger
	// Context bounds spawn requests. Defaults to context.Background.
	Context context.Context
	// Go runs blocking backend calls. Defaults to starting a goroutine.
	Go func(fn func())
	// Hostname names tabs without a profile. Defaults to os.Hostname.
	Hostname func() (string, error)
	// IDs overrides node id generation.
	IDs func() pane.NodeID
}

// Workspace is the window-level orchestration state.
type Workspace struct {
	tree     *pane.Tree
	tabs     *tab.Registry
	sessions *session.Registry
	router   *broadcast.Router
	buffers  map[pane.NodeID]*output.Buffer
	panes    map[pane.NodeID]*paneState
	// bySession maps live session ids to their pane.
	bySession map[string]pane.NodeID
	// lastFocus remembers the focused pane of each tab.
	lastFocus   map[string]pane.NodeID
	broadcastOn bool

	settings *config.Settings
	backend  Backend
	dispatch Dispatcher
	bus      *event.Bus
	logger   *logging.Logger
	ctx      context.Context
	goFn     func(fn func())
	hostname func() (string, error)
}

// New creates an empty workspace.
func New(opts Options) *Workspace {
	if opts.Settings == nil {
		s := config.Defaults()
		opts.Settings = &s
	}
	if opts.Logger == nil {
		opts.Logger = logging.Null
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Go == nil {
		opts.Go = func(fn func()) { go fn() }
	}
	if opts.Hostname == nil {
		opts.Hostname = os.Hostname
	}
	var treeOpts []pane.Option
	if opts.IDs != nil {
		treeOpts = append(treeOpts, pane.WithIDGenerator(opts.IDs))
	}
	return &Workspace{
		tree:        pane.New(treeOpts...),
		tabs:        tab.NewRegistry(),
		sessions:    session.NewRegistry(),
		router:      broadcast.NewRouter(),
		buffers:     make(map[pane.NodeID]*output.Buffer),
		panes:       make(map[pane.NodeID]*paneState),
		bySession:   make(map[string]pane.NodeID),
		lastFocus:   make(map[string]pane.NodeID),
		broadcastOn: opts.Settings.Broadcast.Enabled,
		settings:    opts.Settings,
		backend:     opts.Backend,
		dispatch:    opts.Dispatcher,
		bus:         opts.Bus,
		logger:      opts.Logger.WithComponent("workspace"),
		ctx:         opts.Context,
		goFn:        opts.Go,
		hostname:    opts.Hostname,
	}
}

// ApplySettings replaces the settings used for future spawns.
func (w *Workspace) ApplySettings(s *config.Settings) {
	if s != nil {
		w.settings = s
	}
}

// Settings returns the current settings.
func (w *Workspace) Settings() *config.Settings {
	return w.settings
}

// Bus returns the workspace event bus.
func (w *Workspace) Bus() *event.Bus {
	return w.bus
}

// Tree exposes the pane arena for read access.
func (w *Workspace) Tree() *pane.Tree {
	return w.tree
}

// Tabs returns snapshots of all tabs in display order.
func (w *Workspace) Tabs() []tab.Tab {
	return w.tabs.List()
}

// ActiveTab returns the active tab.
func (w *Workspace) ActiveTab() (tab.Tab, bool) {
	t, ok := w.tabs.Active()
	if !ok {
		return tab.Tab{}, false
	}
	return *t, true
}

// ActivePane returns the focused pane.
func (w *Workspace) ActivePane() pane.NodeID {
	return w.tree.ActivePane()
}

// BroadcastMode reports whether input is broadcast.
func (w *Workspace) BroadcastMode() bool {
	return w.broadcastOn
}

// Panes returns the panes of a tab in visual order.
func (w *Workspace) Panes(tabID string) []pane.NodeID {
	t, ok := w.tabs.Get(tabID)
	if !ok {
		return nil
	}
	return w.tree.LeavesUnder(t.RootPaneID)
}

// Layout computes the rectangles of a tab's panes.
func (w *Workspace) Layout(tabID string, area pane.Rect) map[pane.NodeID]pane.Rect {
	t, ok := w.tabs.Get(tabID)
	if !ok {
		return nil
	}
	return w.tree.Layout(t.RootPaneID, area)
}

// PaneStatus returns the session state of a pane.
func (w *Workspace) PaneStatus(paneID pane.NodeID) (PaneStatus, bool) {
	st, ok := w.panes[paneID]
	if !ok {
		return 0, false
	}
	return st.status, true
}

// PaneError returns the spawn error of a failed pane.
func (w *Workspace) PaneError(paneID pane.NodeID) error {
	if st, ok := w.panes[paneID]; ok {
		return st.lastErr
	}
	return nil
}

// Session returns the session record bound to a pane.
func (w *Workspace) Session(paneID pane.NodeID) (session.Session, bool) {
	l, ok := w.tree.Leaf(paneID)
	if !ok || l.SessionID == "" {
		return session.Session{}, false
	}
	return w.sessions.Get(l.SessionID)
}

// Sessions lists every mirrored session.
func (w *Workspace) Sessions() []session.Session {
	return w.sessions.List()
}

// TabOf returns the tab that owns a node.
func (w *Workspace) TabOf(id pane.NodeID) (string, bool) {
	root, ok := w.tree.Root(id)
	if !ok {
		return "", false
	}
	t, ok := w.tabs.ByRoot(root)
	if !ok {
		return "", false
	}
	return t.ID, true
}

func (w *Workspace) publish(t topic.Topic, payload any) {
	w.bus.Publish(event.New(t, payload, "workspace"))
}
