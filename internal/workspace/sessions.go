package workspace

import (
	"errors"
	"fmt"

	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/pty"
	"github.com/dshills/xterminal/internal/session"
)

// spawn starts a shell for paneID. The backend call runs off the loop and
// the result is posted back to finishSpawn.
func (w *Workspace) spawn(paneID pane.NodeID) {
	st, ok := w.panes[paneID]
	if !ok {
		return
	}
	st.token++
	st.status = PaneSpawning
	st.lastErr = nil
	token := st.token
	opts := pty.SpawnOptions{
		Shell: st.launch.Shell,
		Args:  st.launch.Args,
		Env:   st.launch.Env,
		Dir:   st.launch.Dir,
		Cols:  st.cols,
		Rows:  st.rows,
	}
	if w.backend == nil || w.dispatch == nil {
		w.finishSpawn(paneID, token, opts, pty.SessionInfo{}, &pty.SpawnError{Shell: opts.Shell, Err: errors.New("no pty backend")})
		return
	}
	ctx := w.ctx
	w.goFn(func() {
		info, err := w.backend.Spawn(ctx, opts)
		w.dispatch.Post(func() {
			w.finishSpawn(paneID, token, opts, info, err)
		})
	})
}

// finishSpawn applies a spawn result on the loop. A result for a pane that
// was closed or re-spawned meanwhile is discarded and its session closed.
func (w *Workspace) finishSpawn(paneID pane.NodeID, token uint64, opts pty.SpawnOptions, info pty.SessionInfo, err error) {
	st, ok := w.panes[paneID]
	if !ok || st.token != token {
		if err == nil {
			w.logger.Debug("discarding session %s for stale pane %s", info.ID, paneID)
			if cerr := w.backend.Close(info.ID); cerr != nil {
				w.logger.Warn("close stale session %s: %v", info.ID, cerr)
			}
		}
		return
	}
	tabID, _ := w.TabOf(paneID)
	if err != nil {
		st.status = PaneSpawnFailed
		st.lastErr = err
		w.logger.WithError(err).Warn("pane %s: spawn failed", paneID)
		w.notice(paneID, spawnNotice(opts.Shell, err))
		w.publish(event.TopicPaneSpawnFailed, event.PaneSpawnFailed{TabID: tabID, PaneID: string(paneID), Shell: opts.Shell, Err: err})
		return
	}

	cols, rows := opts.Cols, opts.Rows
	if st.cols > 0 && st.rows > 0 && (st.cols != cols || st.rows != rows) {
		// the surface was resized while the shell was starting
		if rerr := w.backend.Resize(info.ID, st.cols, st.rows); rerr != nil {
			w.logger.Warn("resize session %s: %v", info.ID, rerr)
		} else {
			cols, rows = st.cols, st.rows
		}
	}
	w.sessions.Add(session.Session{
		ID:     info.ID,
		PID:    info.PID,
		Shell:  info.Shell,
		Status: session.StatusActive,
		Cols:   cols,
		Rows:   rows,
	})
	if berr := w.tree.BindSession(paneID, info.ID); berr != nil {
		w.logger.Error("bind session %s: %v", info.ID, berr)
		w.dropSession(info.ID)
		return
	}
	w.bySession[info.ID] = paneID
	st.status = PaneRunning
	id := string(paneID)
	w.router.Register(id, func(data string) error {
		return w.writePane(paneID, data)
	})

	w.logger.Info("pane %s: started %s (pid %d)", paneID, info.Shell, info.PID)
	w.publish(event.TopicSessionStarted, event.SessionStarted{PaneID: id, SessionID: info.ID, PID: info.PID, Shell: info.Shell})
	if serr := w.backend.Start(info.ID); serr != nil {
		w.logger.Warn("start session %s: %v", info.ID, serr)
	}
}

// dropSession closes a session and forgets its record.
func (w *Workspace) dropSession(sessionID string) {
	delete(w.bySession, sessionID)
	w.sessions.Remove(sessionID)
	if w.backend == nil {
		return
	}
	if err := w.backend.Close(sessionID); err != nil {
		w.logger.Warn("close session %s: %v", sessionID, err)
	}
}

// HandleData routes a chunk of session output to its pane.
func (w *Workspace) HandleData(sessionID, chunk string) {
	paneID, ok := w.bySession[sessionID]
	if !ok {
		w.logger.Debug("dropping %d bytes for unknown session %s", len(chunk), sessionID)
		return
	}
	st := w.panes[paneID]
	if buf, ok := w.buffers[paneID]; ok {
		buf.Enqueue(chunk)
	}
	if st != nil && st.bell.scan(chunk) {
		w.ring(paneID)
	}
}

// ring marks the pane's tab when it is not the active one.
func (w *Workspace) ring(paneID pane.NodeID) {
	tabID, ok := w.TabOf(paneID)
	if !ok {
		return
	}
	t, _ := w.tabs.Get(tabID)
	if t.IsActive || t.HasBell {
		return
	}
	_ = w.SetTabBell(tabID, true)
}

// HandleExit records the end of a session. The pane stays open showing the
// exit status until it is closed or restarted.
func (w *Workspace) HandleExit(sessionID string, code int) {
	paneID, ok := w.bySession[sessionID]
	if !ok {
		return
	}
	delete(w.bySession, sessionID)
	if err := w.sessions.MarkExited(sessionID, code); err != nil {
		w.logger.Warn("exit %s: %v", sessionID, err)
	}
	w.router.Unregister(string(paneID))
	if st, ok := w.panes[paneID]; ok {
		st.status = PaneExited
	}
	w.logger.Info("pane %s: session %s exited with code %d", paneID, sessionID, code)
	w.notice(paneID, fmt.Sprintf("process exited with code %d", code))
	w.publish(event.TopicSessionExited, event.SessionExited{PaneID: string(paneID), SessionID: sessionID, ExitCode: code})
}

// HandleInput writes keyboard input to paneID (or the focused pane). In
// broadcast mode the input is also sent to every other running pane.
func (w *Workspace) HandleInput(paneID pane.NodeID, data string) error {
	paneID, err := w.resolvePane("input", paneID)
	if err != nil {
		return err
	}
	if err := w.writePane(paneID, data); err != nil {
		w.logger.Warn("input %s: %v", paneID, err)
	}
	if !w.broadcastOn {
		return nil
	}
	if _, err := w.router.Broadcast(data, string(paneID)); err != nil {
		w.logger.Warn("broadcast from %s: %v", paneID, err)
	}
	return nil
}

// writePane sends data to the session of a running pane. Input for a pane
// without a live session is dropped.
func (w *Workspace) writePane(paneID pane.NodeID, data string) error {
	st, ok := w.panes[paneID]
	if !ok || st.status != PaneRunning {
		return nil
	}
	l, ok := w.tree.Leaf(paneID)
	if !ok || l.SessionID == "" {
		return nil
	}
	err := w.backend.Write(l.SessionID, data)
	if errors.Is(err, pty.ErrSessionNotFound) {
		w.logger.Warn("write to stale session %s", l.SessionID)
		return nil
	}
	return err
}

// SetBroadcastMode turns input broadcasting on or off.
func (w *Workspace) SetBroadcastMode(on bool) {
	if w.broadcastOn == on {
		return
	}
	w.broadcastOn = on
	w.logger.Info("broadcast mode %t", on)
	w.publish(event.TopicBroadcastMode, event.BroadcastMode{Enabled: on})
}

// ToggleBroadcast flips broadcast mode and returns the new state.
func (w *Workspace) ToggleBroadcast() bool {
	w.SetBroadcastMode(!w.broadcastOn)
	return w.broadcastOn
}

// SurfaceResized records a pane's grid size and resizes its session.
func (w *Workspace) SurfaceResized(paneID pane.NodeID, cols, rows int) error {
	st, ok := w.panes[paneID]
	if !ok {
		return opError("resize", string(paneID), ErrPaneNotFound)
	}
	if cols <= 0 || rows <= 0 || (st.cols == cols && st.rows == rows) {
		return nil
	}
	st.cols, st.rows = cols, rows
	l, _ := w.tree.Leaf(paneID)
	if st.status != PaneRunning || l == nil || l.SessionID == "" {
		return nil
	}
	err := w.backend.Resize(l.SessionID, cols, rows)
	switch {
	case errors.Is(err, pty.ErrSessionNotFound):
		w.logger.Warn("resize stale session %s", l.SessionID)
		return nil
	case err != nil:
		return opError("resize", string(paneID), err)
	}
	_ = w.sessions.Update(l.SessionID, session.Patch{Cols: &cols, Rows: &rows})
	return nil
}

// RestartPane closes the pane's current session, if any, and spawns a new
// one with the same launch.
func (w *Workspace) RestartPane(paneID pane.NodeID) error {
	paneID, err := w.resolvePane("restart", paneID)
	if err != nil {
		return err
	}
	w.resetSession(paneID)
	w.spawn(paneID)
	return nil
}

// RetrySpawn spawns again for a pane whose spawn failed.
func (w *Workspace) RetrySpawn(paneID pane.NodeID) error {
	paneID, err := w.resolvePane("retry", paneID)
	if err != nil {
		return err
	}
	if st := w.panes[paneID]; st == nil || st.status != PaneSpawnFailed {
		return opError("retry", string(paneID), ErrNotFailed)
	}
	w.spawn(paneID)
	return nil
}

func (w *Workspace) resetSession(paneID pane.NodeID) {
	w.router.Unregister(string(paneID))
	l, ok := w.tree.Leaf(paneID)
	if !ok || l.SessionID == "" {
		return
	}
	sid := l.SessionID
	_ = w.tree.BindSession(paneID, "")
	w.dropSession(sid)
	if st, ok := w.panes[paneID]; ok {
		st.bell = bellScanner{}
	}
}

// notice writes a status line into a pane's output.
func (w *Workspace) notice(paneID pane.NodeID, msg string) {
	if buf, ok := w.buffers[paneID]; ok {
		buf.Enqueue("\r\n[" + msg + "]\r\n")
	}
}

func spawnNotice(shell string, err error) string {
	cause := err
	var se *pty.SpawnError
	if errors.As(err, &se) {
		shell, cause = se.Shell, se.Err
	}
	if shell == "" {
		shell = "shell"
	}
	return fmt.Sprintf("failed to start %s: %v", shell, cause)
}
