package workspace

import (
	"errors"
	"fmt"
)

// Workspace errors.
var (
	// ErrPaneNotFound indicates a pane id that is not a live leaf.
	ErrPaneNotFound = errors.New("pane not found")

	// ErrNoActivePane indicates an operation that needs a focused pane.
	ErrNoActivePane = errors.New("no active pane")

	// ErrNoActiveTab indicates an operation that needs an active tab.
	ErrNoActiveTab = errors.New("no active tab")

	// ErrNotFailed indicates a retry for a pane whose spawn did not fail.
	ErrNotFailed = errors.New("pane spawn has not failed")

	// ErrUnknownProfile indicates a profile id missing from the settings.
	ErrUnknownProfile = errors.New("unknown profile")
)

// OperationError represents an error that occurred during a workspace
// operation.
type OperationError struct {
	Op     string // Operation name (e.g., "split", "closeTab")
	Target string // Pane or tab id
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Target: target, Err: err}
}
