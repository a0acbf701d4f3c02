package pty

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pty package.
var (
	// ErrSessionNotFound is returned when a session id is unknown or closed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrManagerClosed is returned when operations are attempted after Shutdown.
	ErrManagerClosed = errors.New("pty manager is closed")

	// ErrAlreadyStarted is returned when Start is called twice for a session.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrWriteQueueFull is returned when a session's input queue is saturated.
	ErrWriteQueueFull = errors.New("session write queue is full")

	// ErrInvalidSize is returned for a zero terminal size.
	ErrInvalidSize = errors.New("invalid terminal size")
)

// SpawnError reports that a shell could not be started.
type SpawnError struct {
	Shell string
	Err   error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Shell, e.Err)
}

// Unwrap returns the underlying error.
func (e *SpawnError) Unwrap() error {
	return e.Err
}
