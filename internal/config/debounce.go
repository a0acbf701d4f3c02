package config

import (
	"sync"
	"time"
)

// debouncer runs fn once calls to Call have stopped for delay. A burst of
// editor writes to the settings file therefore causes one reload.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
	gen   uint64
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Call restarts the quiet period.
func (d *debouncer) Call() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	stale := gen != d.gen
	if !stale {
		d.timer = nil
	}
	d.mu.Unlock()
	if !stale {
		d.fn()
	}
}

// Cancel drops a scheduled run.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
