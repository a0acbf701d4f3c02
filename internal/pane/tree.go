package pane

import (
	"math"
	"slices"

	"github.com/google/uuid"
)

// Tree is the node arena shared by all tabs of a window.
type Tree struct {
	nodes  map[NodeID]Node
	parent map[NodeID]NodeID
	// order keeps creation order so Leaves is deterministic.
	order  []NodeID
	active NodeID
	newID  func() NodeID
}

// Option configures a Tree.
type Option func(*Tree)

// WithIDGenerator overrides the uuid based id generator.
func WithIDGenerator(gen func() NodeID) Option {
	return func(t *Tree) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// New creates an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		nodes:  make(map[NodeID]Node),
		parent: make(map[NodeID]NodeID),
		newID:  func() NodeID { return NodeID(uuid.New().String()) },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewID returns a fresh id without inserting anything. Callers reserving a
// root id before materializing it use this.
func (t *Tree) NewID() NodeID {
	for {
		id := t.newID()
		if _, taken := t.nodes[id]; !taken {
			return id
		}
	}
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns the node with the given id.
func (t *Tree) Get(id NodeID) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Leaf returns the leaf with the given id.
func (t *Tree) Leaf(id NodeID) (*Leaf, bool) {
	l, ok := t.nodes[id].(*Leaf)
	return l, ok
}

// Branch returns the branch with the given id.
func (t *Tree) Branch(id NodeID) (*Branch, bool) {
	b, ok := t.nodes[id].(*Branch)
	return b, ok
}

// Parent returns the parent of id, or "" for a root or unknown node.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.parent[id]
}

// Root walks up from id to the root of its tree.
func (t *Tree) Root(id NodeID) (NodeID, bool) {
	if _, ok := t.nodes[id]; !ok {
		return "", false
	}
	for {
		p, ok := t.parent[id]
		if !ok {
			return id, true
		}
		id = p
	}
}

// ActivePane returns the focused leaf, or "" when nothing is focused.
func (t *Tree) ActivePane() NodeID {
	return t.active
}

// SetActive focuses the given leaf. An empty id clears focus.
func (t *Tree) SetActive(id NodeID) error {
	if id == "" {
		t.active = ""
		return nil
	}
	n, ok := t.nodes[id]
	if !ok {
		return structural("activate", id, ErrNodeNotFound)
	}
	if _, ok := n.(*Leaf); !ok {
		return structural("activate", id, ErrNotLeaf)
	}
	t.active = id
	return nil
}

// CreateRoot materializes a new single-leaf tree. An empty id asks the tree
// to generate one.
func (t *Tree) CreateRoot(id NodeID) (NodeID, error) {
	if id == "" {
		id = t.NewID()
	}
	if _, exists := t.nodes[id]; exists {
		return "", structural("create", id, ErrDuplicateNode)
	}
	t.insert(&Leaf{ID: id, Size: 100})
	return id, nil
}

// SplitResult describes the outcome of Split.
type SplitResult struct {
	// NewPaneID is the leaf created as the second child.
	NewPaneID NodeID
	// ContainerID is the branch that took the split pane's place.
	ContainerID NodeID
	// RootReplaced is set when the split pane was a root. The owning tab
	// must repoint its root at ContainerID.
	RootReplaced bool
}

// Split replaces the leaf paneID with a branch holding paneID as its first
// child and a new empty leaf as its second.
func (t *Tree) Split(paneID NodeID, dir SplitDirection) (SplitResult, error) {
	n, ok := t.nodes[paneID]
	if !ok {
		return SplitResult{}, structural("split", paneID, ErrNodeNotFound)
	}
	leaf, ok := n.(*Leaf)
	if !ok {
		return SplitResult{}, structural("split", paneID, ErrNotLeaf)
	}

	newLeaf := &Leaf{ID: t.NewID(), Size: 100 - DefaultSize}
	t.insert(newLeaf)
	container := &Branch{
		ID:     t.NewID(),
		Split:  dir,
		First:  paneID,
		Second: newLeaf.ID,
		Size:   DefaultSize,
	}
	t.insert(container)

	res := SplitResult{NewPaneID: newLeaf.ID, ContainerID: container.ID}
	if p, hasParent := t.parent[paneID]; hasParent {
		t.nodes[p].(*Branch).replaceChild(paneID, container.ID)
		t.parent[container.ID] = p
	} else {
		res.RootReplaced = true
	}
	t.parent[paneID] = container.ID
	t.parent[newLeaf.ID] = container.ID
	leaf.Size = DefaultSize
	return res, nil
}

// CloseResult describes the outcome of Close.
type CloseResult struct {
	// SessionID is the session that was bound to the closed leaf.
	SessionID string
	// Sibling is the node promoted into the removed parent's place.
	Sibling NodeID
	// NewRoot is set when the promoted sibling became the root of its tree.
	NewRoot NodeID
	// Emptied is set when the closed leaf was the root.
	Emptied bool
	// Active is the focused leaf after the close.
	Active NodeID
}

// Close removes the leaf paneID. If the leaf has a parent, the parent is
// removed too and the sibling takes its place.
func (t *Tree) Close(paneID NodeID) (CloseResult, error) {
	n, ok := t.nodes[paneID]
	if !ok {
		return CloseResult{}, structural("close", paneID, ErrNodeNotFound)
	}
	leaf, ok := n.(*Leaf)
	if !ok {
		return CloseResult{}, structural("close", paneID, ErrNotLeaf)
	}
	res := CloseResult{SessionID: leaf.SessionID}

	p, hasParent := t.parent[paneID]
	if !hasParent {
		t.remove(paneID)
		res.Emptied = true
		if t.active == paneID {
			t.active = ""
		}
		res.Active = t.active
		return res, nil
	}

	parent := t.nodes[p].(*Branch)
	sibling := parent.other(paneID)
	res.Sibling = sibling

	if g, hasGrand := t.parent[p]; hasGrand {
		t.nodes[g].(*Branch).replaceChild(p, sibling)
		t.parent[sibling] = g
	} else {
		delete(t.parent, sibling)
		res.NewRoot = sibling
	}
	t.remove(paneID)
	t.remove(p)

	if t.active == paneID {
		if next, ok := t.FindLeaf(sibling); ok {
			t.active = next
		} else {
			t.active = ""
		}
	}
	res.Active = t.active
	return res, nil
}

// RemoveTree deletes every node reachable from root and returns the session
// ids that were bound to its leaves, in leaf order.
func (t *Tree) RemoveTree(root NodeID) []string {
	var sessions []string
	var ids []NodeID
	t.walk(root, func(n Node) {
		ids = append(ids, n.NodeID())
		if l, ok := n.(*Leaf); ok && l.SessionID != "" {
			sessions = append(sessions, l.SessionID)
		}
	})
	for _, id := range ids {
		if t.active == id {
			t.active = ""
		}
		t.remove(id)
	}
	return sessions
}

// Resize sets the first-child share of a branch, clamped to [0, 100]. It
// reports false and does nothing when nodeID is not a branch.
func (t *Tree) Resize(nodeID NodeID, size float64) bool {
	b, ok := t.nodes[nodeID].(*Branch)
	if !ok {
		return false
	}
	b.Size = clampSize(size)
	return true
}

// Equalize resets every branch under root to an even split.
func (t *Tree) Equalize(root NodeID) {
	t.walk(root, func(n Node) {
		if b, ok := n.(*Branch); ok {
			b.Size = DefaultSize
		}
	})
}

// FindLeaf returns the leftmost leaf under nodeID.
func (t *Tree) FindLeaf(nodeID NodeID) (NodeID, bool) {
	id := nodeID
	for {
		switch n := t.nodes[id].(type) {
		case *Leaf:
			return n.ID, true
		case *Branch:
			id = n.First
		default:
			return "", false
		}
	}
}

// Leaves returns every leaf in the arena in creation order.
func (t *Tree) Leaves() []*Leaf {
	leaves := make([]*Leaf, 0, len(t.order))
	for _, id := range t.order {
		if l, ok := t.nodes[id].(*Leaf); ok {
			leaves = append(leaves, l)
		}
	}
	return leaves
}

// LeavesUnder returns the leaves under root in visual order (first child
// before second).
func (t *Tree) LeavesUnder(root NodeID) []NodeID {
	var out []NodeID
	t.walk(root, func(n Node) {
		if l, ok := n.(*Leaf); ok {
			out = append(out, l.ID)
		}
	})
	return out
}

// NextLeaf returns the leaf delta steps away from "from" in visual order
// under root, wrapping around. If from is not under root the first leaf is
// returned.
func (t *Tree) NextLeaf(root, from NodeID, delta int) (NodeID, bool) {
	leaves := t.LeavesUnder(root)
	if len(leaves) == 0 {
		return "", false
	}
	i := slices.Index(leaves, from)
	if i < 0 {
		return leaves[0], true
	}
	n := len(leaves)
	return leaves[((i+delta)%n+n)%n], true
}

// BindSession attaches a session to a leaf, replacing any previous binding.
// An empty sessionID unbinds.
func (t *Tree) BindSession(paneID NodeID, sessionID string) error {
	n, ok := t.nodes[paneID]
	if !ok {
		return structural("bind", paneID, ErrNodeNotFound)
	}
	l, ok := n.(*Leaf)
	if !ok {
		return structural("bind", paneID, ErrNotLeaf)
	}
	l.SessionID = sessionID
	return nil
}

// LeafBySession finds the leaf bound to sessionID.
func (t *Tree) LeafBySession(sessionID string) (NodeID, bool) {
	if sessionID == "" {
		return "", false
	}
	for _, id := range t.order {
		if l, ok := t.nodes[id].(*Leaf); ok && l.SessionID == sessionID {
			return id, true
		}
	}
	return "", false
}

// walk visits nodes under root in pre-order.
func (t *Tree) walk(root NodeID, fn func(Node)) {
	n, ok := t.nodes[root]
	if !ok {
		return
	}
	fn(n)
	if b, ok := n.(*Branch); ok {
		t.walk(b.First, fn)
		t.walk(b.Second, fn)
	}
}

func (t *Tree) insert(n Node) {
	t.nodes[n.NodeID()] = n
	t.order = append(t.order, n.NodeID())
}

func (t *Tree) remove(id NodeID) {
	delete(t.nodes, id)
	delete(t.parent, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
}

func clampSize(size float64) float64 {
	switch {
	case math.IsNaN(size):
		return DefaultSize
	case size < 0:
		return 0
	case size > 100:
		return 100
	default:
		return size
	}
}
