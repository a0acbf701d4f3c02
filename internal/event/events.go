package event

import "github.com/dshills/xterminal/internal/event/topic"

// Workspace topics.
const (
	TopicTabAdded     topic.Topic = "tab.added"
	TopicTabClosed    topic.Topic = "tab.closed"
	TopicTabActivated topic.Topic = "tab.activated"
	TopicTabMoved     topic.Topic = "tab.moved"
	TopicTabBell      topic.Topic = "tab.bell"
	TopicTabRenamed   topic.Topic = "tab.renamed"

	TopicPaneCreated     topic.Topic = "pane.created"
	TopicPaneClosed      topic.Topic = "pane.closed"
	TopicPaneActivated   topic.Topic = "pane.activated"
	TopicPaneResized     topic.Topic = "pane.resized"
	TopicPaneSpawnFailed topic.Topic = "pane.spawn_failed"

	TopicSessionStarted topic.Topic = "session.started"
	TopicSessionExited  topic.Topic = "session.exited"

	TopicBroadcastMode topic.Topic = "broadcast.mode"

	TopicConfigReloaded topic.Topic = "config.reloaded"
)

// TabChanged is the payload of tab.* events.
type TabChanged struct {
	TabID string
	Index int
	Title string
}

// PaneChanged is the payload of pane.created, pane.closed and pane.activated.
type PaneChanged struct {
	TabID  string
	PaneID string
}

// PaneSpawnFailed is published when a pane's shell could not be started.
type PaneSpawnFailed struct {
	TabID  string
	PaneID string
	Shell  string
	Err    error
}

// SessionStarted is published when a session is bound to a pane.
type SessionStarted struct {
	PaneID    string
	SessionID string
	PID       int
	Shell     string
}

// SessionExited is published when a session's process ends.
type SessionExited struct {
	PaneID    string
	SessionID string
	ExitCode  int
}

// BroadcastMode is published when broadcast input is toggled.
type BroadcastMode struct {
	Enabled bool
}
