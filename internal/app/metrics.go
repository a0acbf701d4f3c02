package app

import (
	"sync/atomic"
	"time"

	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/event/topic"
)

// Metrics tracks session and loop counters.
type Metrics struct {
	// Sessions
	spawns        atomic.Uint64
	spawnFailures atomic.Uint64
	exits         atomic.Uint64
	failedExits   atomic.Uint64

	// Traffic
	bytesIn    atomic.Uint64
	bytesOut   atomic.Uint64
	broadcasts atomic.Uint64

	// Loop tasks
	taskCount   atomic.Uint64
	taskTotalNs atomic.Int64
	taskMaxNs   atomic.Int64
	panics      atomic.Uint64

	// Frames
	frameCount   atomic.Uint64
	frameTotalNs atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Subscribe counts session lifecycle events published on bus.
func (m *Metrics) Subscribe(bus *event.Bus) ([]event.Subscription, error) {
	handlers := []struct {
		topic topic.Topic
		fn    event.Handler
	}{
		{event.TopicSessionStarted, func(event.Event) { m.spawns.Add(1) }},
		{event.TopicPaneSpawnFailed, func(event.Event) { m.spawnFailures.Add(1) }},
		{event.TopicSessionExited, func(ev event.Event) {
			m.exits.Add(1)
			if p, ok := ev.Payload.(event.SessionExited); ok && p.ExitCode != 0 {
				m.failedExits.Add(1)
			}
		}},
	}
	subs := make([]event.Subscription, 0, len(handlers))
	for _, h := range handlers {
		sub, err := bus.Subscribe(h.topic, h.fn)
		if err != nil {
			for _, s := range subs {
				bus.Unsubscribe(s)
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// RecordOutput records bytes read from a session.
func (m *Metrics) RecordOutput(n int) {
	m.bytesIn.Add(uint64(n))
}

// RecordInput records bytes typed into a pane.
func (m *Metrics) RecordInput(n int, broadcast bool) {
	m.bytesOut.Add(uint64(n))
	if broadcast {
		m.broadcasts.Add(1)
	}
}

// RecordTask records the run time of one loop task.
func (m *Metrics) RecordTask(d time.Duration) {
	ns := d.Nanoseconds()
	m.taskCount.Add(1)
	m.taskTotalNs.Add(ns)
	for {
		old := m.taskMaxNs.Load()
		if ns <= old || m.taskMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordPanic records a recovered task panic.
func (m *Metrics) RecordPanic() {
	m.panics.Add(1)
}

// RecordFrame records the time spent painting one frame.
func (m *Metrics) RecordFrame(d time.Duration) {
	m.frameCount.Add(1)
	m.frameTotalNs.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	taskCount := m.taskCount.Load()
	frameCount := m.frameCount.Load()

	var avgTaskNs, avgFrameNs int64
	if taskCount > 0 {
		avgTaskNs = m.taskTotalNs.Load() / int64(taskCount)
	}
	if frameCount > 0 {
		avgFrameNs = m.frameTotalNs.Load() / int64(frameCount)
	}

	return MetricsSnapshot{
		Uptime:        time.Since(m.startTime),
		Spawns:        m.spawns.Load(),
		SpawnFailures: m.spawnFailures.Load(),
		Exits:         m.exits.Load(),
		FailedExits:   m.failedExits.Load(),
		BytesIn:       m.bytesIn.Load(),
		BytesOut:      m.bytesOut.Load(),
		Broadcasts:    m.broadcasts.Load(),
		TaskCount:     taskCount,
		AvgTaskNs:     avgTaskNs,
		MaxTaskNs:     m.taskMaxNs.Load(),
		Panics:        m.panics.Load(),
		FrameCount:    frameCount,
		AvgFrameNs:    avgFrameNs,
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime        time.Duration
	Spawns        uint64
	SpawnFailures uint64
	Exits         uint64
	FailedExits   uint64
	BytesIn       uint64
	BytesOut      uint64
	Broadcasts    uint64
	TaskCount     uint64
	AvgTaskNs     int64
	MaxTaskNs     int64
	Panics        uint64
	FrameCount    uint64
	AvgFrameNs    int64
}

// AvgFPS returns the average frames per second over the uptime.
func (s MetricsSnapshot) AvgFPS() float64 {
	if s.Uptime <= 0 {
		return 0
	}
	return float64(s.FrameCount) / s.Uptime.Seconds()
}
