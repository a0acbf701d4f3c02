// Package pty spawns shells on pseudo-terminals and pumps their output.
//
// A session is created in two steps. Spawn starts the process and returns
// its id; Start begins reading output. Callers that must record the session
// before any output arrives call Start after recording it. Output and exit
// notifications for one session are delivered from a single goroutine, in
// order, with the exit notification last.
package pty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dshills/xterminal/internal/logging"
)

// Defaults applied to SpawnOptions and Config.
const (
	DefaultCols       = 80
	DefaultRows       = 24
	DefaultReadBuffer = 8192
	DefaultWriteQueue = 256
)

// EventHandler receives session output. Calls for one session come from a
// single goroutine.
type EventHandler interface {
	OnData(sessionID, chunk string)
	OnExit(sessionID string, code int)
}

// StartFunc starts cmd attached to a new pseudo-terminal of the given size.
type StartFunc func(cmd *exec.Cmd, size *pty.Winsize) (*os.File, error)

// Config configures a Manager.
type Config struct {
	// DefaultShell is used when SpawnOptions.Shell is empty. Falls back to
	// $SHELL, then /bin/bash.
	DefaultShell string
	// Env is added to every session's environment.
	Env map[string]string
	// Handler receives output and exit notifications.
	Handler EventHandler
	// Logger defaults to logging.Null.
	Logger *logging.Logger
	// WriteRate limits input writes per second per session. Zero disables.
	WriteRate float64
	// WriteBurst is the limiter burst. Defaults to 64 when WriteRate is set.
	WriteBurst int
	// ReadBufferSize is the size of each PTY read.
	ReadBufferSize int
	// Start overrides pty.StartWithSize.
	Start StartFunc
}

// SpawnOptions describes a shell to start.
type SpawnOptions struct {
	Shell string
	Args  []string
	Cols  int
	Rows  int
	Env   map[string]string
	Dir   string
}

// SessionInfo identifies a spawned session.
type SessionInfo struct {
	ID    string
	PID   int
	Shell string
}

type session struct {
	id      string
	shell   string
	cmd     *exec.Cmd
	ptmx    *os.File
	writes  chan []byte
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	closed  atomic.Bool
	// done is closed after the process has been reaped.
	done chan struct{}
}

// Manager owns every PTY session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   atomic.Bool
	cfg      Config
	logger   *logging.Logger
}

// NewManager creates a manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logging.Null
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBuffer
	}
	if cfg.WriteRate > 0 && cfg.WriteBurst <= 0 {
		cfg.WriteBurst = 64
	}
	if cfg.Start == nil {
		cfg.Start = pty.StartWithSize
	}
	return &Manager{
		sessions: make(map[string]*session),
		cfg:      cfg,
		logger:   cfg.Logger.WithComponent("pty"),
	}
}

// SetHandler replaces the event handler. It must be called before any
// session is started.
func (m *Manager) SetHandler(h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Handler = h
}

// ResolveShell returns the shell Spawn would use for the given request.
func (m *Manager) ResolveShell(shell string) string {
	if shell != "" {
		return shell
	}
	if m.cfg.DefaultShell != "" {
		return m.cfg.DefaultShell
	}
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/bash"
}

// Spawn starts a shell. Output is not read until Start is called.
func (m *Manager) Spawn(ctx context.Context, opts SpawnOptions) (SessionInfo, error) {
	shell := m.ResolveShell(opts.Shell)
	if m.closed.Load() {
		return SessionInfo{}, &SpawnError{Shell: shell, Err: ErrManagerClosed}
	}
	if err := ctx.Err(); err != nil {
		return SessionInfo{}, &SpawnError{Shell: shell, Err: err}
	}

	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = DefaultCols
	}
	if rows <= 0 {
		rows = DefaultRows
	}

	cmd := exec.Command(shell, opts.Args...)
	cmd.Env = buildEnv(os.Environ(), m.cfg.Env, opts.Env)
	cmd.Dir = opts.Dir

	ptmx, err := m.cfg.Start(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return SessionInfo{}, &SpawnError{Shell: shell, Err: err}
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.New().String(),
		shell:  shell,
		cmd:    cmd,
		ptmx:   ptmx,
		writes: make(chan []byte, DefaultWriteQueue),
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if m.cfg.WriteRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(m.cfg.WriteRate), m.cfg.WriteBurst)
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	go m.writeLoop(s)

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	m.logger.WithField("session", s.id).Info("spawned %s (pid %d, %dx%d)", shell, pid, cols, rows)
	return SessionInfo{ID: s.id, PID: pid, Shell: shell}, nil
}

// Start begins pumping output for a spawned session.
func (m *Manager) Start(id string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if s.started.Swap(true) {
		return fmt.Errorf("start %s: %w", id, ErrAlreadyStarted)
	}
	m.mu.RLock()
	h := m.cfg.Handler
	m.mu.RUnlock()
	go m.readLoop(s, h)
	return nil
}

// Write queues input for the session. It does not wait for the PTY.
func (m *Manager) Write(id string, data string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if data == "" {
		return nil
	}
	select {
	case s.writes <- []byte(data):
		return nil
	case <-s.ctx.Done():
		return fmt.Errorf("write %s: %w", id, ErrSessionNotFound)
	default:
		return fmt.Errorf("write %s: %w", id, ErrWriteQueueFull)
	}
}

// Resize changes the PTY window size.
func (m *Manager) Resize(id string, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("resize %s to %dx%d: %w", id, cols, rows, ErrInvalidSize)
	}
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// Close terminates a session. Closing an unknown or already closed session
// is not an error. Close does not wait for the process to be reaped.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.terminate(s)
	return nil
}

// Done returns a channel closed once the session's process has been reaped.
func (m *Manager) Done(id string) (<-chan struct{}, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return s.done, nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session and waits for the processes to be reaped,
// killing stragglers when ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.closed.Swap(true) {
		return nil
	}
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		g.Go(func() error {
			m.terminate(s)
			select {
			case <-s.done:
				return nil
			case <-gctx.Done():
				if s.cmd.Process != nil {
					_ = s.cmd.Process.Kill()
				}
				return fmt.Errorf("session %s: %w", s.id, gctx.Err())
			}
		})
	}
	return g.Wait()
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.closed.Load() {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

func (m *Manager) terminate(s *session) {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.ptmx.Close()
	if !s.started.Swap(true) {
		// no reader will reap the process
		go func() {
			_ = s.cmd.Wait()
			close(s.done)
		}()
	}
	m.logger.WithField("session", s.id).Debug("closed")
}

func (m *Manager) readLoop(s *session, h EventHandler) {
	log := m.logger.WithField("session", s.id)
	var dec utf8Carry
	buf := make([]byte, m.cfg.ReadBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 && h != nil {
			if text := dec.decode(buf[:n]); text != "" {
				h.OnData(s.id, text)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !s.closed.Load() {
				log.Debug("read ended: %v", err)
			}
			break
		}
	}
	if rest := dec.flush(); rest != "" && h != nil {
		h.OnData(s.id, rest)
	}

	code := exitCode(s.cmd.Wait())
	close(s.done)
	s.cancel()
	log.Info("exited with code %d", code)
	if h != nil {
		h.OnExit(s.id, code)
	}
}

func (m *Manager) writeLoop(s *session) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.writes:
			if s.limiter != nil {
				if err := s.limiter.Wait(s.ctx); err != nil {
					return
				}
			}
			if _, err := s.ptmx.Write(data); err != nil {
				if !s.closed.Load() {
					m.logger.WithField("session", s.id).Warn("write failed: %v", err)
				}
				return
			}
		}
	}
}

// exitCode maps the result of cmd.Wait to a process exit code. Processes
// killed by a signal report 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}
