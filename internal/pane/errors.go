package pane

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pane package.
var (
	// ErrNodeNotFound is returned when a node id is not in the arena.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotLeaf is returned when an operation requires a leaf but got a branch.
	ErrNotLeaf = errors.New("node is not a leaf")

	// ErrDuplicateNode is returned when a root is created with an id already in use.
	ErrDuplicateNode = errors.New("node id already in use")
)

// StructuralError reports a tree operation that was rejected.
// The tree is never modified when a StructuralError is returned.
type StructuralError struct {
	Op     string
	NodeID NodeID
	Err    error
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("pane %s %s: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(op string, id NodeID, err error) error {
	return &StructuralError{Op: op, NodeID: id, Err: err}
}
