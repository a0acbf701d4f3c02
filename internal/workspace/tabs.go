package workspace

import (
	"maps"
	"slices"
	"strings"

	"github.com/dshills/xterminal/internal/config"
	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/tab"
)

// defaultTitle names a tab when neither a profile nor the hostname helps.
const defaultTitle = "Terminal"

// NewTabOptions describes a tab to open.
type NewTabOptions struct {
	// ProfileID selects a profile. Empty uses the default profile, if any.
	ProfileID string
	Title     string
	Color     string
}

// TabResult identifies a newly created tab.
type TabResult struct {
	TabID  string
	PaneID pane.NodeID
}

// NewTab appends a tab with a single pane, activates it and starts its
// shell.
func (w *Workspace) NewTab(opts NewTabOptions) (TabResult, error) {
	launch, prof, err := w.resolveLaunch(opts.ProfileID)
	if err != nil {
		return TabResult{}, opError("newTab", opts.ProfileID, err)
	}
	title := firstNonEmpty(opts.Title, prof.Name)
	if title == "" {
		title = w.hostTitle()
	}
	res := w.tabs.Add(tab.AddOptions{
		RootPaneID: w.tree.NewID(),
		Title:      title,
		Color:      firstNonEmpty(opts.Color, prof.Color),
		ProfileID:  launch.ProfileID,
	})
	return w.materializeTab(res, launch)
}

// DuplicateTab opens a copy of tabID right after it. The copy gets a single
// pane running the same launch as the source's focused pane.
func (w *Workspace) DuplicateTab(tabID string) (TabResult, error) {
	src, ok := w.tabs.Get(tabID)
	if !ok {
		return TabResult{}, opError("duplicateTab", tabID, tab.ErrTabNotFound)
	}
	launch := w.launchFor(w.focusIn(src))
	res, err := w.tabs.Duplicate(tabID, w.tree.NewID())
	if err != nil {
		return TabResult{}, opError("duplicateTab", tabID, err)
	}
	return w.materializeTab(res, launch)
}

// materializeTab creates the reserved root leaf of a registered tab.
func (w *Workspace) materializeTab(res tab.AddResult, launch Launch) (TabResult, error) {
	if _, err := w.tree.CreateRoot(res.RootPaneID); err != nil {
		// roll back the reservation so no tab points at a missing root
		if cr, cerr := w.tabs.Close(res.TabID); cerr == nil && cr.Activated != "" {
			w.focusTab(cr.Activated)
		}
		return TabResult{}, opError("newTab", res.TabID, err)
	}
	w.initPane(res.RootPaneID, launch)
	w.focusPane(res.TabID, res.RootPaneID)

	t, _ := w.tabs.Get(res.TabID)
	w.logger.Debug("tab %s added with pane %s", res.TabID, res.RootPaneID)
	w.publish(event.TopicTabAdded, event.TabChanged{TabID: res.TabID, Index: w.tabs.Index(res.TabID), Title: t.Title})
	w.publish(event.TopicPaneCreated, event.PaneChanged{TabID: res.TabID, PaneID: string(res.RootPaneID)})
	w.spawn(res.RootPaneID)
	return TabResult{TabID: res.TabID, PaneID: res.RootPaneID}, nil
}

// CloseTab closes every pane of a tab and removes it. When the tab was
// active, the tab before it (or the new last tab) becomes active.
func (w *Workspace) CloseTab(tabID string) error {
	t, ok := w.tabs.Get(tabID)
	if !ok {
		return opError("closeTab", tabID, tab.ErrTabNotFound)
	}
	leaves := w.tree.LeavesUnder(t.RootPaneID)
	sessions := make(map[pane.NodeID]string, len(leaves))
	for _, id := range leaves {
		if l, ok := w.tree.Leaf(id); ok {
			sessions[id] = l.SessionID
		}
	}
	w.tree.RemoveTree(t.RootPaneID)
	for _, id := range leaves {
		w.releasePane(id, sessions[id])
		w.publish(event.TopicPaneClosed, event.PaneChanged{TabID: tabID, PaneID: string(id)})
	}
	return w.removeTab(tabID)
}

// removeTab drops a tab whose panes are already gone.
func (w *Workspace) removeTab(tabID string) error {
	index := w.tabs.Index(tabID)
	res, err := w.tabs.Close(tabID)
	if err != nil {
		return opError("closeTab", tabID, err)
	}
	delete(w.lastFocus, tabID)
	w.logger.Debug("tab %s closed", tabID)
	w.publish(event.TopicTabClosed, event.TabChanged{TabID: tabID, Index: index, Title: res.Closed.Title})

	if res.Activated != "" {
		w.focusTab(res.Activated)
		w.publishTabActivated(res.Activated)
	}
	if w.tabs.Len() == 0 {
		_ = w.tree.SetActive("")
	}
	return nil
}

// SetActiveTab activates a tab and restores its last focused pane.
func (w *Workspace) SetActiveTab(tabID string) error {
	if err := w.tabs.SetActive(tabID); err != nil {
		return opError("setActiveTab", tabID, err)
	}
	w.focusTab(tabID)
	w.publishTabActivated(tabID)
	return nil
}

// NextTab activates the tab delta positions from the active one, wrapping.
func (w *Workspace) NextTab(delta int) error {
	n := w.tabs.Len()
	if n == 0 {
		return opError("nextTab", "", ErrNoActiveTab)
	}
	cur, ok := w.tabs.Active()
	if !ok {
		return opError("nextTab", "", ErrNoActiveTab)
	}
	i := w.tabs.Index(cur.ID)
	next, _ := w.tabs.At(((i+delta)%n + n) % n)
	if next.ID == cur.ID {
		return nil
	}
	return w.SetActiveTab(next.ID)
}

// MoveTab moves the tab at from to position to.
func (w *Workspace) MoveTab(from, to int) error {
	if err := w.tabs.Move(from, to); err != nil {
		return opError("moveTab", "", err)
	}
	if t, ok := w.tabs.At(to); ok {
		w.publish(event.TopicTabMoved, event.TabChanged{TabID: t.ID, Index: to, Title: t.Title})
	}
	return nil
}

// RenameTab changes a tab's title.
func (w *Workspace) RenameTab(tabID, title string) error {
	if err := w.tabs.SetTitle(tabID, title); err != nil {
		return opError("renameTab", tabID, err)
	}
	w.publish(event.TopicTabRenamed, event.TabChanged{TabID: tabID, Index: w.tabs.Index(tabID), Title: title})
	return nil
}

// SetTabColor changes a tab's accent color.
func (w *Workspace) SetTabColor(tabID, color string) error {
	return opError("setTabColor", tabID, w.tabs.SetColor(tabID, color))
}

// SetTabBell sets or clears a tab's bell indicator.
func (w *Workspace) SetTabBell(tabID string, on bool) error {
	if err := w.tabs.SetBell(tabID, on); err != nil {
		return opError("setTabBell", tabID, err)
	}
	if on {
		w.publish(event.TopicTabBell, event.TabChanged{TabID: tabID, Index: w.tabs.Index(tabID)})
	}
	return nil
}

// ClearBellOnActive clears the bell of the active tab.
func (w *Workspace) ClearBellOnActive() {
	w.tabs.ClearBellOnActive()
}

func (w *Workspace) publishTabActivated(tabID string) {
	t, ok := w.tabs.Get(tabID)
	if !ok {
		return
	}
	w.publish(event.TopicTabActivated, event.TabChanged{TabID: tabID, Index: w.tabs.Index(tabID), Title: t.Title})
	w.publish(event.TopicPaneActivated, event.PaneChanged{TabID: tabID, PaneID: string(w.tree.ActivePane())})
}

// focusTab moves pane focus to the remembered pane of tabID.
func (w *Workspace) focusTab(tabID string) {
	t, ok := w.tabs.Get(tabID)
	if !ok {
		return
	}
	w.focusPane(tabID, w.focusIn(t))
}

// focusIn returns the pane that should hold focus inside t.
func (w *Workspace) focusIn(t *tab.Tab) pane.NodeID {
	if id, ok := w.lastFocus[t.ID]; ok {
		if root, ok := w.tree.Root(id); ok && root == t.RootPaneID {
			return id
		}
	}
	id, _ := w.tree.FindLeaf(t.RootPaneID)
	return id
}

func (w *Workspace) focusPane(tabID string, id pane.NodeID) {
	if id == "" {
		return
	}
	if err := w.tree.SetActive(id); err != nil {
		w.logger.Warn("focus %s: %v", id, err)
		return
	}
	w.lastFocus[tabID] = id
}

// resolveLaunch merges terminal settings with the selected profile.
func (w *Workspace) resolveLaunch(profileID string) (Launch, config.Profile, error) {
	s := w.settings
	var prof config.Profile
	switch {
	case profileID != "":
		p, ok := s.Profile(profileID)
		if !ok {
			return Launch{}, prof, ErrUnknownProfile
		}
		prof = p
	case s.DefaultProfile != "":
		if p, ok := s.Profile(s.DefaultProfile); ok {
			prof = p
		} else {
			w.logger.Warn("default profile %q not found", s.DefaultProfile)
		}
	}

	launch := Launch{
		ProfileID: prof.ID,
		Shell:     firstNonEmpty(prof.Shell, s.Terminal.Shell),
		Args:      slices.Clone(s.Terminal.Args),
		Dir:       prof.Dir,
	}
	if len(prof.Args) > 0 {
		launch.Args = slices.Clone(prof.Args)
	}
	if len(s.Terminal.Env)+len(prof.Env) > 0 {
		launch.Env = make(map[string]string, len(s.Terminal.Env)+len(prof.Env))
		maps.Copy(launch.Env, s.Terminal.Env)
		maps.Copy(launch.Env, prof.Env)
	}
	return launch, prof, nil
}

// hostTitle returns the short hostname, or the default title.
func (w *Workspace) hostTitle() string {
	name, err := w.hostname()
	if err != nil || name == "" {
		return defaultTitle
	}
	if host, _, _ := strings.Cut(name, "."); host != "" {
		return host
	}
	return defaultTitle
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
