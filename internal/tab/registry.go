// Package tab keeps the ordered list of tabs in a window and tracks which
// one is active.
//
// Adding a tab is two-phase: Add reserves the tab id and the root pane id
// and records the tab; the caller then materializes the root leaf in the
// pane tree under the reserved id. Registry is not safe for concurrent use.
package tab

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/dshills/xterminal/internal/pane"
)

// Sentinel errors for the tab package.
var (
	// ErrTabNotFound is returned when a tab id is unknown.
	ErrTabNotFound = errors.New("tab not found")

	// ErrIndexOutOfRange is returned by Move for an invalid position.
	ErrIndexOutOfRange = errors.New("tab index out of range")
)

// Tab is one entry of the tab strip.
type Tab struct {
	ID         string
	Title      string
	RootPaneID pane.NodeID
	IsActive   bool
	Color      string
	HasBell    bool
	ProfileID  string
}

// AddOptions describes a new tab.
type AddOptions struct {
	// RootPaneID is the reserved id of the root leaf. Generated when empty.
	RootPaneID pane.NodeID
	Title      string
	Color      string
	ProfileID  string
}

// AddResult carries the reserved ids of a new tab.
type AddResult struct {
	TabID      string
	RootPaneID pane.NodeID
}

// CloseResult reports the removed tab and the tab activated in its place.
type CloseResult struct {
	Closed Tab
	// Activated is the id of the tab that became active, or "" if the
	// active tab did not change or the registry is now empty.
	Activated string
}

// Registry is the ordered tab list.
type Registry struct {
	tabs  []*Tab
	newID func() string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{newID: func() string { return uuid.New().String() }}
}

// Len returns the number of tabs.
func (r *Registry) Len() int {
	return len(r.tabs)
}

// Add appends a tab and makes it active.
func (r *Registry) Add(opts AddOptions) AddResult {
	root := opts.RootPaneID
	if root == "" {
		root = pane.NodeID(uuid.New().String())
	}
	t := &Tab{
		ID:         r.newID(),
		Title:      opts.Title,
		RootPaneID: root,
		Color:      opts.Color,
		ProfileID:  opts.ProfileID,
	}
	r.tabs = append(r.tabs, t)
	r.activate(len(r.tabs) - 1)
	return AddResult{TabID: t.ID, RootPaneID: root}
}

// Duplicate inserts a copy of tabID right after it, with a fresh root pane
// id, and makes the copy active. The pane tree is not copied.
func (r *Registry) Duplicate(tabID string, rootPaneID pane.NodeID) (AddResult, error) {
	i := r.Index(tabID)
	if i < 0 {
		return AddResult{}, fmt.Errorf("duplicate %s: %w", tabID, ErrTabNotFound)
	}
	if rootPaneID == "" {
		rootPaneID = pane.NodeID(uuid.New().String())
	}
	src := r.tabs[i]
	t := &Tab{
		ID:         r.newID(),
		Title:      src.Title,
		RootPaneID: rootPaneID,
		Color:      src.Color,
		ProfileID:  src.ProfileID,
	}
	r.tabs = slices.Insert(r.tabs, i+1, t)
	r.activate(i + 1)
	return AddResult{TabID: t.ID, RootPaneID: rootPaneID}, nil
}

// Close removes a tab. When it was active, the tab at
// max(min(index-1, len-1), 0) becomes active.
func (r *Registry) Close(tabID string) (CloseResult, error) {
	i := r.Index(tabID)
	if i < 0 {
		return CloseResult{}, fmt.Errorf("close %s: %w", tabID, ErrTabNotFound)
	}
	closed := r.tabs[i]
	r.tabs = slices.Delete(r.tabs, i, i+1)

	res := CloseResult{Closed: *closed}
	if !closed.IsActive || len(r.tabs) == 0 {
		return res, nil
	}
	next := max(min(i-1, len(r.tabs)-1), 0)
	r.activate(next)
	res.Activated = r.tabs[next].ID
	return res, nil
}

// SetActive makes tabID the active tab and clears its bell.
func (r *Registry) SetActive(tabID string) error {
	i := r.Index(tabID)
	if i < 0 {
		return fmt.Errorf("activate %s: %w", tabID, ErrTabNotFound)
	}
	r.activate(i)
	return nil
}

// Move relocates the tab at from to position to. Active state is unchanged.
func (r *Registry) Move(from, to int) error {
	if from < 0 || from >= len(r.tabs) || to < 0 || to >= len(r.tabs) {
		return fmt.Errorf("move %d to %d: %w", from, to, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}
	t := r.tabs[from]
	r.tabs = slices.Delete(r.tabs, from, from+1)
	r.tabs = slices.Insert(r.tabs, to, t)
	return nil
}

// SetBell sets or clears the bell indicator on a tab.
func (r *Registry) SetBell(tabID string, on bool) error {
	t, ok := r.lookup(tabID)
	if !ok {
		return fmt.Errorf("bell %s: %w", tabID, ErrTabNotFound)
	}
	t.HasBell = on
	return nil
}

// ClearBellOnActive clears the bell of the active tab.
func (r *Registry) ClearBellOnActive() {
	if t, ok := r.Active(); ok {
		t.HasBell = false
	}
}

// SetRoot repoints a tab at a new root node.
func (r *Registry) SetRoot(tabID string, root pane.NodeID) error {
	t, ok := r.lookup(tabID)
	if !ok {
		return fmt.Errorf("set root %s: %w", tabID, ErrTabNotFound)
	}
	t.RootPaneID = root
	return nil
}

// SetTitle renames a tab.
func (r *Registry) SetTitle(tabID, title string) error {
	t, ok := r.lookup(tabID)
	if !ok {
		return fmt.Errorf("set title %s: %w", tabID, ErrTabNotFound)
	}
	t.Title = title
	return nil
}

// SetColor changes a tab's accent color.
func (r *Registry) SetColor(tabID, color string) error {
	t, ok := r.lookup(tabID)
	if !ok {
		return fmt.Errorf("set color %s: %w", tabID, ErrTabNotFound)
	}
	t.Color = color
	return nil
}

// Get returns the tab with the given id.
func (r *Registry) Get(tabID string) (*Tab, bool) {
	return r.lookup(tabID)
}

// Active returns the active tab.
func (r *Registry) Active() (*Tab, bool) {
	for _, t := range r.tabs {
		if t.IsActive {
			return t, true
		}
	}
	return nil, false
}

// Index returns the position of tabID, or -1.
func (r *Registry) Index(tabID string) int {
	return slices.IndexFunc(r.tabs, func(t *Tab) bool { return t.ID == tabID })
}

// At returns the tab at position i.
func (r *Registry) At(i int) (*Tab, bool) {
	if i < 0 || i >= len(r.tabs) {
		return nil, false
	}
	return r.tabs[i], true
}

// ByRoot finds the tab whose root is the given node.
func (r *Registry) ByRoot(root pane.NodeID) (*Tab, bool) {
	for _, t := range r.tabs {
		if t.RootPaneID == root {
			return t, true
		}
	}
	return nil, false
}

// List returns snapshots of all tabs in display order.
func (r *Registry) List() []Tab {
	out := make([]Tab, len(r.tabs))
	for i, t := range r.tabs {
		out[i] = *t
	}
	return out
}

func (r *Registry) lookup(tabID string) (*Tab, bool) {
	i := r.Index(tabID)
	if i < 0 {
		return nil, false
	}
	return r.tabs[i], true
}

func (r *Registry) activate(i int) {
	for j, t := range r.tabs {
		t.IsActive = j == i
	}
	r.ClearBellOnActive()
}
