// Package pane implements the split-pane tree shared by every tab.
//
// Nodes live in a single arena keyed by NodeID. A node is either a Leaf,
// which shows one terminal session, or a Branch, which divides its area
// between two children. Every tab owns one root; the arena is a forest and
// no node is reachable from more than one root.
//
// # Structure
//
//   - Leaf: terminal pane, optionally bound to a session id
//   - Branch: container with a split direction and the first child's share
//   - Tree: the arena plus the parent index and the active pane pointer
//
// The parent of every non-root node is tracked in an explicit side index
// that is updated by every structural mutation, so split and close run in
// constant time regardless of tree size.
//
// # Usage
//
//	tree := pane.New()
//	root, _ := tree.CreateRoot("")
//	res, err := tree.Split(root, pane.Vertical)
//	if err != nil {
//	    return err
//	}
//	if res.RootReplaced {
//	    // the owning tab must now point at res.ContainerID
//	}
//
// Tree is not safe for concurrent use. It is owned by the workspace event
// loop.
package pane
