// Package broadcast fans user input from one pane out to every other
// registered pane.
//
// The router does not know whether broadcast mode is on; callers decide
// when to invoke Broadcast. Router is not safe for concurrent use.
package broadcast

import (
	"errors"
	"fmt"
	"slices"
)

// Handler receives input forwarded from another pane.
type Handler func(data string) error

// Router holds the registered panes in registration order.
type Router struct {
	order    []string
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for paneID. Re-registering keeps the
// pane's original position.
func (r *Router) Register(paneID string, h Handler) {
	if h == nil {
		return
	}
	if _, exists := r.handlers[paneID]; !exists {
		r.order = append(r.order, paneID)
	}
	r.handlers[paneID] = h
}

// Unregister removes paneID. Unknown ids are ignored.
func (r *Router) Unregister(paneID string) {
	if _, ok := r.handlers[paneID]; !ok {
		return
	}
	delete(r.handlers, paneID)
	if i := slices.Index(r.order, paneID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// Registered reports whether paneID has a handler.
func (r *Router) Registered(paneID string) bool {
	_, ok := r.handlers[paneID]
	return ok
}

// Len returns the number of registered panes.
func (r *Router) Len() int {
	return len(r.order)
}

// Broadcast invokes every handler except the source's, in registration
// order. It returns how many handlers were invoked. A failing handler does
// not stop delivery to the rest; all failures are joined into the error.
func (r *Router) Broadcast(data, source string) (int, error) {
	// handlers may unregister panes while we iterate
	targets := slices.Clone(r.order)
	var errs []error
	n := 0
	for _, id := range targets {
		if id == source {
			continue
		}
		h, ok := r.handlers[id]
		if !ok {
			continue
		}
		n++
		if err := h(data); err != nil {
			errs = append(errs, fmt.Errorf("pane %s: %w", id, err))
		}
	}
	return n, errors.Join(errs...)
}
