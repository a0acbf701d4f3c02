package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/tab"
	"github.com/dshills/xterminal/internal/workspace"
)

// Host is the part of the workspace a layout script can drive.
// *workspace.Workspace satisfies it.
type Host interface {
	NewTab(opts workspace.NewTabOptions) (workspace.TabResult, error)
	SplitPane(paneID pane.NodeID, dir pane.SplitDirection) (pane.NodeID, error)
	ClosePane(paneID pane.NodeID) error
	ResizePane(paneID pane.NodeID, delta float64) error
	FocusPane(paneID pane.NodeID) error
	SetBroadcastMode(on bool)
	RenameTab(tabID, title string) error
	SetTabColor(tabID, color string) error
	ActivePane() pane.NodeID
	Tabs() []tab.Tab
	HandleInput(paneID pane.NodeID, data string) error
}

// ModuleName is the global the layout API is installed under.
const ModuleName = "xt"

// Install registers the xt module on s, bound to host.
func Install(s *State, host Host) {
	x := &xtModule{host: host}
	s.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"new_tab":     x.newTab,
		"split":       x.split,
		"close":       x.close,
		"resize":      x.resize,
		"focus":       x.focus,
		"broadcast":   x.broadcast,
		"set_title":   x.setTitle,
		"set_color":   x.setColor,
		"active_pane": x.activePane,
		"tabs":        x.tabs,
		"send":        x.send,
	})
}

// RunLayout runs the layout script at path against host.
func RunLayout(ctx context.Context, host Host, path string, opts ...Option) error {
	s := NewState(opts...)
	defer s.Close()
	Install(s, host)
	return s.DoFile(ctx, path)
}

type xtModule struct {
	host Host
}

// xt.new_tab{profile=, title=, color=} -> tab, pane
func (x *xtModule) newTab(L *lua.LState) int {
	var opts workspace.NewTabOptions
	if t := L.OptTable(1, nil); t != nil {
		opts.ProfileID = stringField(t, "profile")
		opts.Title = stringField(t, "title")
		opts.Color = stringField(t, "color")
	}
	res, err := x.host.NewTab(opts)
	if err != nil {
		L.RaiseError("new_tab: %v", err)
		return 0
	}
	L.Push(lua.LString(res.TabID))
	L.Push(lua.LString(res.PaneID))
	return 2
}

// xt.split(pane, "vertical"|"horizontal") -> pane
func (x *xtModule) split(L *lua.LState) int {
	id := optPane(L, 1)
	name := L.OptString(2, "vertical")
	dir, ok := pane.ParseSplitDirection(name)
	if !ok {
		L.ArgError(2, fmt.Sprintf("unknown split direction %q", name))
		return 0
	}
	newID, err := x.host.SplitPane(id, dir)
	if err != nil {
		L.RaiseError("split: %v", err)
		return 0
	}
	L.Push(lua.LString(newID))
	return 1
}

// xt.close(pane)
func (x *xtModule) close(L *lua.LState) int {
	if err := x.host.ClosePane(optPane(L, 1)); err != nil {
		L.RaiseError("close: %v", err)
	}
	return 0
}

// xt.resize(pane, delta)
func (x *xtModule) resize(L *lua.LState) int {
	id := optPane(L, 1)
	delta := float64(L.CheckNumber(2))
	if err := x.host.ResizePane(id, delta); err != nil {
		L.RaiseError("resize: %v", err)
	}
	return 0
}

// xt.focus(pane)
func (x *xtModule) focus(L *lua.LState) int {
	if err := x.host.FocusPane(pane.NodeID(L.CheckString(1))); err != nil {
		L.RaiseError("focus: %v", err)
	}
	return 0
}

// xt.broadcast(on)
func (x *xtModule) broadcast(L *lua.LState) int {
	x.host.SetBroadcastMode(L.ToBool(1))
	return 0
}

// xt.set_title(tab, title)
func (x *xtModule) setTitle(L *lua.LState) int {
	if err := x.host.RenameTab(L.CheckString(1), L.CheckString(2)); err != nil {
		L.RaiseError("set_title: %v", err)
	}
	return 0
}

// xt.set_color(tab, color)
func (x *xtModule) setColor(L *lua.LState) int {
	if err := x.host.SetTabColor(L.CheckString(1), L.OptString(2, "")); err != nil {
		L.RaiseError("set_color: %v", err)
	}
	return 0
}

// xt.active_pane() -> pane or nil
func (x *xtModule) activePane(L *lua.LState) int {
	id := x.host.ActivePane()
	if id == "" {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(id))
	return 1
}

// xt.tabs() -> {{id=, title=, active=, root=}, ...}
func (x *xtModule) tabs(L *lua.LState) int {
	list := L.NewTable()
	for _, t := range x.host.Tabs() {
		row := L.NewTable()
		row.RawSetString("id", lua.LString(t.ID))
		row.RawSetString("title", lua.LString(t.Title))
		row.RawSetString("active", lua.LBool(t.IsActive))
		row.RawSetString("root", lua.LString(t.RootPaneID))
		if t.Color != "" {
			row.RawSetString("color", lua.LString(t.Color))
		}
		list.Append(row)
	}
	L.Push(list)
	return 1
}

// xt.send(pane, text)
func (x *xtModule) send(L *lua.LState) int {
	id := optPane(L, 1)
	if err := x.host.HandleInput(id, L.CheckString(2)); err != nil {
		L.RaiseError("send: %v", err)
	}
	return 0
}

// optPane reads a pane id argument. nil means the focused pane.
func optPane(L *lua.LState, n int) pane.NodeID {
	if L.Get(n) == lua.LNil {
		return ""
	}
	return pane.NodeID(L.CheckString(n))
}

func stringField(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
