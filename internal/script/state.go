// Package script runs Lua layout scripts. A layout script builds the
// initial tabs and splits through the xt module:
//
//	local tab, left = xt.new_tab{title = "dev", profile = "work"}
//	local right = xt.split(left, "vertical")
//	xt.send(right, "htop\r")
//	xt.resize(left, 10)
//	xt.focus(left)
//
// Scripts run in a sandbox with only the base, table, string and math
// libraries. Nothing can touch the filesystem or load other code.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/xterminal/internal/logging"
)

// DefaultTimeout bounds a script run.
const DefaultTimeout = 5 * time.Second

// Errors for script execution.
var (
	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script timed out")
)

// Error reports a failure inside a script.
type Error struct {
	Script string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe. A State must be used from the
// goroutine that owns the workspace.
type State struct {
	L       *lua.LState
	timeout time.Duration
	logger  *logging.Logger
	closed  bool
}

// Option configures a State.
type Option func(*State)

// WithTimeout sets the execution timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// WithLogger sets the logger that receives print output.
func WithLogger(l *logging.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...Option) *State {
	s := &State{
		timeout: DefaultTimeout,
		logger:  logging.Null,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.installSandbox()
	return s
}

// openSafeLibraries opens only the side-effect free standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func (s *State) installSandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info("%s", strings.Join(parts, "\t"))
		return 0
	}))
}

// RegisterModule installs a global table of Go functions.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

// DoString runs code. name identifies the script in errors.
func (s *State) DoString(ctx context.Context, name, code string) error {
	return s.run(ctx, name, func() error { return s.L.DoString(code) })
}

// DoFile runs the script at path.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, path, func() error { return s.L.DoFile(path) })
}

func (s *State) run(ctx context.Context, name string, fn func() error) (err error) {
	if s.closed {
		return ErrStateClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Script: name, Err: fmt.Errorf("lua panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{Script: name, Err: ErrTimeout}
		}
		return &Error{Script: name, Err: err}
	}
	return nil
}

// Close releases the Lua state.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}

// Check compiles the script at path without running it.
func Check(path string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if _, err := L.LoadFile(path); err != nil {
		return &Error{Script: path, Err: err}
	}
	return nil
}
