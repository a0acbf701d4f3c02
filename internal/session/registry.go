// Package session mirrors the state of the PTY sessions owned by the
// backend. Records outlive process exit until the owning pane is closed, so
// the exit status stays visible.
package session

import (
	"errors"
	"fmt"
	"slices"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Status is the lifecycle state of a session.
type Status int

const (
	// StatusActive means the process is running.
	StatusActive Status = iota
	// StatusExited means the process ended with code 0.
	StatusExited
	// StatusFailed means the process ended with a non-zero code or an I/O error.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExited:
		return "exited"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusForExit maps an exit code to the terminal status.
func StatusForExit(code int) Status {
	if code == 0 {
		return StatusExited
	}
	return StatusFailed
}

// Session is the mirrored state of one PTY session.
type Session struct {
	ID       string
	PID      int
	Shell    string
	Status   Status
	ExitCode *int
	Cols     int
	Rows     int
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Status   *Status
	ExitCode *int
	Cols     *int
	Rows     *int
}

// Registry maps session ids to records.
type Registry struct {
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add records a session, replacing any record with the same id.
func (r *Registry) Add(s Session) {
	if _, exists := r.sessions[s.ID]; !exists {
		r.order = append(r.order, s.ID)
	}
	r.sessions[s.ID] = &s
}

// Remove deletes a session record. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// Update applies a patch. Status only moves away from active; a second
// exit for the same session is ignored.
func (r *Registry) Update(id string, p Patch) error {
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrSessionNotFound)
	}
	if p.Status != nil && s.Status == StatusActive {
		s.Status = *p.Status
		if p.ExitCode != nil {
			code := *p.ExitCode
			s.ExitCode = &code
		}
	}
	if p.Cols != nil {
		s.Cols = *p.Cols
	}
	if p.Rows != nil {
		s.Rows = *p.Rows
	}
	return nil
}

// MarkExited records the exit of a session.
func (r *Registry) MarkExited(id string, code int) error {
	st := StatusForExit(code)
	return r.Update(id, Patch{Status: &st, ExitCode: &code})
}

// Get returns a copy of the session record.
func (r *Registry) Get(id string) (Session, bool) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// List returns copies of all records in insertion order.
func (r *Registry) List() []Session {
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}
