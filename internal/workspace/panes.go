package workspace

import (
	"maps"
	"slices"

	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/output"
	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/tab"
)

// SplitPane splits paneID (or the focused pane when empty) and starts a
// shell in the new pane, which takes focus within its tab. The new pane
// inherits the launch of the pane it was split from.
func (w *Workspace) SplitPane(paneID pane.NodeID, dir pane.SplitDirection) (pane.NodeID, error) {
	paneID, err := w.resolvePane("split", paneID)
	if err != nil {
		return "", err
	}
	tabID, ok := w.TabOf(paneID)
	if !ok {
		return "", opError("split", string(paneID), ErrPaneNotFound)
	}
	res, err := w.tree.Split(paneID, dir)
	if err != nil {
		return "", opError("split", string(paneID), err)
	}
	if res.RootReplaced {
		if err := w.tabs.SetRoot(tabID, res.ContainerID); err != nil {
			return "", opError("split", string(paneID), err)
		}
	}
	w.initPane(res.NewPaneID, w.launchFor(paneID))

	w.logger.Debug("pane %s split %s into %s", paneID, dir, res.NewPaneID)
	w.publish(event.TopicPaneCreated, event.PaneChanged{TabID: tabID, PaneID: string(res.NewPaneID)})
	// a split in a background tab is remembered for when the tab is shown
	if t, _ := w.tabs.Get(tabID); t != nil && t.IsActive {
		w.focusPane(tabID, res.NewPaneID)
		w.publish(event.TopicPaneActivated, event.PaneChanged{TabID: tabID, PaneID: string(res.NewPaneID)})
	} else {
		w.lastFocus[tabID] = res.NewPaneID
	}
	w.spawn(res.NewPaneID)
	return res.NewPaneID, nil
}

// ClosePane closes paneID (or the focused pane when empty) and its
// session. The sibling is promoted into the parent's place. Closing the
// last pane of a tab closes the tab.
func (w *Workspace) ClosePane(paneID pane.NodeID) error {
	paneID, err := w.resolvePane("close", paneID)
	if err != nil {
		return err
	}
	tabID, ok := w.TabOf(paneID)
	if !ok {
		return opError("close", string(paneID), ErrPaneNotFound)
	}
	wasActive := w.tree.ActivePane() == paneID
	res, err := w.tree.Close(paneID)
	if err != nil {
		return opError("close", string(paneID), err)
	}
	w.releasePane(paneID, res.SessionID)
	w.publish(event.TopicPaneClosed, event.PaneChanged{TabID: tabID, PaneID: string(paneID)})

	if res.Emptied {
		return w.removeTab(tabID)
	}
	if res.NewRoot != "" {
		if err := w.tabs.SetRoot(tabID, res.NewRoot); err != nil {
			return opError("close", string(paneID), err)
		}
	}
	if w.lastFocus[tabID] == paneID {
		next, _ := w.tree.FindLeaf(res.Sibling)
		w.lastFocus[tabID] = next
	}
	if wasActive && res.Active != "" {
		w.lastFocus[tabID] = res.Active
		w.publish(event.TopicPaneActivated, event.PaneChanged{TabID: tabID, PaneID: string(res.Active)})
	}
	return nil
}

// ResizeSplit sets the first-child share of a split container. It reports
// false when nodeID is not a container.
func (w *Workspace) ResizeSplit(nodeID pane.NodeID, size float64) bool {
	if !w.tree.Resize(nodeID, size) {
		return false
	}
	tabID, _ := w.TabOf(nodeID)
	w.publish(event.TopicPaneResized, event.PaneChanged{TabID: tabID, PaneID: string(nodeID)})
	return true
}

// ResizePane adjusts the container holding paneID (or the focused pane) by
// delta percentage points in favor of paneID.
func (w *Workspace) ResizePane(paneID pane.NodeID, delta float64) error {
	paneID, err := w.resolvePane("resize", paneID)
	if err != nil {
		return err
	}
	parent := w.tree.Parent(paneID)
	b, ok := w.tree.Branch(parent)
	if !ok {
		return nil
	}
	if b.Second == paneID {
		delta = -delta
	}
	w.ResizeSplit(parent, b.Size+delta)
	return nil
}

// Equalize resets every split of tabID (or the active tab) to even shares.
func (w *Workspace) Equalize(tabID string) error {
	if tabID == "" {
		t, ok := w.tabs.Active()
		if !ok {
			return opError("equalize", "", ErrNoActiveTab)
		}
		tabID = t.ID
	}
	t, ok := w.tabs.Get(tabID)
	if !ok {
		return opError("equalize", tabID, tab.ErrTabNotFound)
	}
	w.tree.Equalize(t.RootPaneID)
	w.publish(event.TopicPaneResized, event.PaneChanged{TabID: tabID, PaneID: string(t.RootPaneID)})
	return nil
}

// FocusPane focuses paneID, activating its tab if needed.
func (w *Workspace) FocusPane(paneID pane.NodeID) error {
	if _, ok := w.tree.Leaf(paneID); !ok {
		return opError("focus", string(paneID), ErrPaneNotFound)
	}
	tabID, ok := w.TabOf(paneID)
	if !ok {
		return opError("focus", string(paneID), ErrPaneNotFound)
	}
	w.lastFocus[tabID] = paneID
	if t, _ := w.tabs.Get(tabID); !t.IsActive {
		return w.SetActiveTab(tabID)
	}
	if w.tree.ActivePane() == paneID {
		return nil
	}
	w.focusPane(tabID, paneID)
	w.publish(event.TopicPaneActivated, event.PaneChanged{TabID: tabID, PaneID: string(paneID)})
	return nil
}

// FocusNext moves focus delta panes forward in the active tab, wrapping.
func (w *Workspace) FocusNext(delta int) error {
	t, ok := w.tabs.Active()
	if !ok {
		return opError("focusNext", "", ErrNoActiveTab)
	}
	next, ok := w.tree.NextLeaf(t.RootPaneID, w.tree.ActivePane(), delta)
	if !ok {
		return opError("focusNext", t.ID, ErrNoActivePane)
	}
	return w.FocusPane(next)
}

// AttachSurface connects a renderer to a pane's output buffer. Output
// stays buffered until SurfaceReady.
func (w *Workspace) AttachSurface(paneID pane.NodeID, r output.Renderer) error {
	buf, ok := w.buffers[paneID]
	if !ok {
		return opError("attach", string(paneID), ErrPaneNotFound)
	}
	buf.SetRenderer(r)
	return nil
}

// SurfaceReady flushes output queued while a pane's surface was not ready.
func (w *Workspace) SurfaceReady(paneID pane.NodeID) error {
	buf, ok := w.buffers[paneID]
	if !ok {
		return opError("ready", string(paneID), ErrPaneNotFound)
	}
	buf.MarkReady()
	return nil
}

// Buffer returns the output buffer of a pane.
func (w *Workspace) Buffer(paneID pane.NodeID) (*output.Buffer, bool) {
	buf, ok := w.buffers[paneID]
	return buf, ok
}

// initPane records the per-pane state of a freshly created leaf.
func (w *Workspace) initPane(id pane.NodeID, launch Launch) {
	w.panes[id] = &paneState{
		launch: launch,
		cols:   w.settings.Terminal.Cols,
		rows:   w.settings.Terminal.Rows,
	}
	buf := output.NewBuffer(nil)
	buf.OnError = func(err error) {
		w.logger.Warn("pane %s output: %v", id, err)
	}
	w.buffers[id] = buf
}

// releasePane forgets a removed leaf and closes its session.
func (w *Workspace) releasePane(id pane.NodeID, sessionID string) {
	delete(w.panes, id)
	delete(w.buffers, id)
	w.router.Unregister(string(id))
	if sessionID != "" {
		w.dropSession(sessionID)
	}
}

// launchFor copies the launch of an existing pane.
func (w *Workspace) launchFor(id pane.NodeID) Launch {
	st, ok := w.panes[id]
	if !ok {
		launch, _, _ := w.resolveLaunch("")
		return launch
	}
	l := st.launch
	l.Args = slices.Clone(l.Args)
	l.Env = maps.Clone(l.Env)
	return l
}

// resolvePane substitutes the focused pane for an empty id and checks the
// result is a live leaf.
func (w *Workspace) resolvePane(op string, id pane.NodeID) (pane.NodeID, error) {
	if id == "" {
		id = w.tree.ActivePane()
		if id == "" {
			return "", opError(op, "", ErrNoActivePane)
		}
	}
	if _, ok := w.tree.Leaf(id); !ok {
		return "", opError(op, string(id), ErrPaneNotFound)
	}
	return id, nil
}
