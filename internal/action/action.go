// Package action maps named commands onto workspace operations.
//
// Actions are what key bindings resolve to. A Handler runs an action
// against the workspace and reports a Result the window loop uses to decide
// whether to repaint or exit.
package action

import (
	"fmt"
	"slices"

	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/tab"
	"github.com/dshills/xterminal/internal/workspace"
)

// Action names.
const (
	// Pane operations
	PaneSplitVertical   = "pane.splitVertical"   // prefix |
	PaneSplitHorizontal = "pane.splitHorizontal" // prefix -
	PaneClose           = "pane.close"           // prefix x
	PaneFocusNext       = "pane.focusNext"       // prefix o
	PaneFocusPrev       = "pane.focusPrev"       // prefix O
	PaneEqualize        = "pane.equalize"        // prefix =
	PaneGrow            = "pane.grow"            // prefix +
	PaneShrink          = "pane.shrink"          // prefix _
	PaneRestart         = "pane.restart"         // prefix r

	// Tab operations
	TabNew       = "tab.new"       // prefix c
	TabDuplicate = "tab.duplicate" // prefix d
	TabClose     = "tab.close"     // prefix &
	TabNext      = "tab.next"      // prefix n
	TabPrev      = "tab.prev"      // prefix p
	TabMoveLeft  = "tab.moveLeft"  // prefix <
	TabMoveRight = "tab.moveRight" // prefix >

	BroadcastToggle = "broadcast.toggle" // prefix b
	AppQuit         = "app.quit"         // prefix q
)

// ResizeStep is the share, in percentage points, pane.grow and pane.shrink
// move a split by.
const ResizeStep = 5

var names = []string{
	PaneSplitVertical, PaneSplitHorizontal, PaneClose, PaneFocusNext,
	PaneFocusPrev, PaneEqualize, PaneGrow, PaneShrink, PaneRestart,
	TabNew, TabDuplicate, TabClose, TabNext, TabPrev, TabMoveLeft,
	TabMoveRight, BroadcastToggle, AppQuit,
}

// Names returns every known action name.
func Names() []string {
	return append([]string(nil), names...)
}

// Known reports whether name is an action.
func Known(name string) bool {
	return slices.Contains(names, name)
}

// Status is the outcome of an action.
type Status uint8

const (
	// StatusOK means the action changed something.
	StatusOK Status = iota
	// StatusNoOp means the action had nothing to do.
	StatusNoOp
	// StatusError means the action failed.
	StatusError
	// StatusQuit asks the window loop to exit.
	StatusQuit
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	case StatusQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Result reports what an action did.
type Result struct {
	Status  Status
	Message string
	Err     error
}

// Redraw reports whether the window must repaint.
func (r Result) Redraw() bool {
	return r.Status == StatusOK
}

func success() Result { return Result{Status: StatusOK} }

func noOp(msg string) Result { return Result{Status: StatusNoOp, Message: msg} }

func failure(err error) Result {
	if err == nil {
		return success()
	}
	return Result{Status: StatusError, Message: err.Error(), Err: err}
}

// Manager is the workspace surface actions operate on.
// *workspace.Workspace satisfies it.
type Manager interface {
	SplitPane(paneID pane.NodeID, dir pane.SplitDirection) (pane.NodeID, error)
	ClosePane(paneID pane.NodeID) error
	FocusNext(delta int) error
	Equalize(tabID string) error
	ResizePane(paneID pane.NodeID, delta float64) error
	RestartPane(paneID pane.NodeID) error
	NewTab(opts workspace.NewTabOptions) (workspace.TabResult, error)
	DuplicateTab(tabID string) (workspace.TabResult, error)
	CloseTab(tabID string) error
	NextTab(delta int) error
	MoveTab(from, to int) error
	Tabs() []tab.Tab
	ActiveTab() (tab.Tab, bool)
	ToggleBroadcast() bool
}

// Handler runs actions against a Manager.
type Handler struct {
	mgr Manager
}

// NewHandler creates a handler bound to mgr.
func NewHandler(mgr Manager) *Handler {
	return &Handler{mgr: mgr}
}

// CanHandle returns true if this handler can process the action.
func (h *Handler) CanHandle(name string) bool {
	return Known(name)
}

// Handle runs the named action.
func (h *Handler) Handle(name string) Result {
	switch name {
	case PaneSplitVertical:
		return h.split(pane.Vertical)
	case PaneSplitHorizontal:
		return h.split(pane.Horizontal)
	case PaneClose:
		return failure(h.mgr.ClosePane(""))
	case PaneFocusNext:
		return failure(h.mgr.FocusNext(1))
	case PaneFocusPrev:
		return failure(h.mgr.FocusNext(-1))
	case PaneEqualize:
		return failure(h.mgr.Equalize(""))
	case PaneGrow:
		return failure(h.mgr.ResizePane("", ResizeStep))
	case PaneShrink:
		return failure(h.mgr.ResizePane("", -ResizeStep))
	case PaneRestart:
		return failure(h.mgr.RestartPane(""))
	case TabNew:
		_, err := h.mgr.NewTab(workspace.NewTabOptions{})
		return failure(err)
	case TabDuplicate:
		return h.withActiveTab(func(t tab.Tab) error {
			_, err := h.mgr.DuplicateTab(t.ID)
			return err
		})
	case TabClose:
		return h.withActiveTab(func(t tab.Tab) error {
			return h.mgr.CloseTab(t.ID)
		})
	case TabNext:
		return failure(h.mgr.NextTab(1))
	case TabPrev:
		return failure(h.mgr.NextTab(-1))
	case TabMoveLeft:
		return h.moveTab(-1)
	case TabMoveRight:
		return h.moveTab(1)
	case BroadcastToggle:
		on := h.mgr.ToggleBroadcast()
		if on {
			return Result{Status: StatusOK, Message: "broadcast on"}
		}
		return Result{Status: StatusOK, Message: "broadcast off"}
	case AppQuit:
		return Result{Status: StatusQuit}
	default:
		return failure(fmt.Errorf("unknown action: %s", name))
	}
}

func (h *Handler) split(dir pane.SplitDirection) Result {
	_, err := h.mgr.SplitPane("", dir)
	return failure(err)
}

func (h *Handler) withActiveTab(fn func(tab.Tab) error) Result {
	t, ok := h.mgr.ActiveTab()
	if !ok {
		return noOp("no active tab")
	}
	return failure(fn(t))
}

// moveTab shifts the active tab by delta positions, stopping at the ends.
func (h *Handler) moveTab(delta int) Result {
	tabs := h.mgr.Tabs()
	from := -1
	for i, t := range tabs {
		if t.IsActive {
			from = i
			break
		}
	}
	if from < 0 {
		return noOp("no active tab")
	}
	to := from + delta
	if to < 0 || to >= len(tabs) {
		return noOp("tab is at the edge")
	}
	return failure(h.mgr.MoveTab(from, to))
}
