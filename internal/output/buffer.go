// Package output holds terminal output for a pane until its rendering
// surface can accept writes.
package output

import (
	"errors"
	"fmt"
	"strings"
)

// State is the delivery state of a Buffer.
type State int

const (
	// Buffering queues every chunk.
	Buffering State = iota
	// Ready delivers chunks directly.
	Ready
)

// String returns the state name.
func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "buffering"
}

// ErrRendererPanic wraps a panic raised by a Renderer.
var ErrRendererPanic = errors.New("renderer panicked")

// Renderer receives pane output.
type Renderer interface {
	Write(text string) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(text string) error

// Write calls f.
func (f RendererFunc) Write(text string) error { return f(text) }

// Buffer is the per-pane output state machine.
//
// While buffering, chunks accumulate in arrival order. MarkReady flushes the
// queue as one concatenated write. A failed write puts the buffer back into
// buffering with the failed payload at the head of the queue; the next
// Enqueue retries the flush. Buffer is not safe for concurrent use.
type Buffer struct {
	renderer Renderer
	state    State
	// signaled records that the surface reported readiness at least once.
	signaled bool
	queue    []string
	// OnError is called with every delivery failure.
	OnError func(error)
}

// NewBuffer creates a buffer in the buffering state.
func NewBuffer(r Renderer) *Buffer {
	return &Buffer{renderer: r}
}

// State returns the current state.
func (b *Buffer) State() State {
	return b.state
}

// Pending returns the number of queued chunks.
func (b *Buffer) Pending() int {
	return len(b.queue)
}

// SetRenderer replaces the renderer, as when a pane's surface is recreated.
// The buffer returns to buffering until MarkReady is called again.
func (b *Buffer) SetRenderer(r Renderer) {
	b.renderer = r
	b.state = Buffering
	b.signaled = false
}

// Enqueue delivers or queues a chunk.
func (b *Buffer) Enqueue(chunk string) {
	if chunk == "" {
		return
	}
	if b.state == Ready {
		if err := b.deliver(chunk); err != nil {
			b.demote(err, chunk)
		}
		return
	}
	b.queue = append(b.queue, chunk)
	if b.signaled {
		// a previous delivery failed; retry now
		b.flush()
	}
}

// MarkReady is called once the surface can accept writes.
func (b *Buffer) MarkReady() {
	b.signaled = true
	if b.state == Ready {
		return
	}
	b.flush()
}

func (b *Buffer) flush() {
	if len(b.queue) == 0 {
		b.state = Ready
		return
	}
	payload := strings.Join(b.queue, "")
	b.queue = b.queue[:0]
	if err := b.deliver(payload); err != nil {
		b.demote(err, payload)
		return
	}
	b.state = Ready
}

func (b *Buffer) demote(err error, payload string) {
	b.state = Buffering
	b.queue = append([]string{payload}, b.queue...)
	if b.OnError != nil {
		b.OnError(err)
	}
}

func (b *Buffer) deliver(text string) (err error) {
	if b.renderer == nil {
		return fmt.Errorf("deliver: no renderer")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRendererPanic, r)
		}
	}()
	return b.renderer.Write(text)
}
