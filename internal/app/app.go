// Package app wires xterminal together. It owns the settings, the logger,
// the PTY manager, the workspace and the window, and runs all workspace
// mutations on a single Loop.
//
// Threading:
//
//   - the goroutine calling Run executes every Loop task
//   - PTY reader goroutines post output and exits into the loop
//   - a poll goroutine posts terminal key and resize events
//   - the settings watcher posts reloads
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/xterminal/internal/action"
	"github.com/dshills/xterminal/internal/config"
	"github.com/dshills/xterminal/internal/event"
	"github.com/dshills/xterminal/internal/logging"
	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/pty"
	"github.com/dshills/xterminal/internal/surface"
	"github.com/dshills/xterminal/internal/workspace"
)

// ShutdownTimeout bounds how long Close waits for sessions to exit.
const ShutdownTimeout = 5 * time.Second

// LogFileName is the log file created in the settings directory when no
// log file is configured.
const LogFileName = "xterminal.log"

// Options configures the application.
type Options struct {
	// ConfigPath is the settings file. Empty means config.DefaultPath.
	ConfigPath string
	// LayoutPath overrides startup.layout.
	LayoutPath string
	// LogLevel overrides logging.level.
	LogLevel string
	// LogFile overrides logging.file.
	LogFile string
	// LogOutput, when set, receives log output instead of any file.
	LogOutput io.Writer
	// Backend replaces the PTY manager.
	Backend workspace.Backend
	// Hostname names tabs without a profile.
	Hostname func() (string, error)
	// FrameInterval is the minimum time between repaints.
	FrameInterval time.Duration
	// Watch enables settings live reload.
	Watch bool
}

// Application is the central coordinator for all xterminal components.
type Application struct {
	opts     Options
	loader   *config.Loader
	settings *config.Settings
	logger   *logging.Logger
	logFile  io.Closer
	bus      *event.Bus
	ptys     *pty.Manager
	ws       *workspace.Workspace
	loop     *Loop
	metrics  *Metrics
	actions  *action.Handler
	chord    *action.Chord
	watcher  *config.Watcher
	subs     []event.Subscription

	ctx       context.Context
	cancel    context.CancelFunc
	running   atomic.Bool
	closeOnce sync.Once
	closeErr  error

	// Window state. Touched only from loop tasks.
	screen   *surface.Screen
	surfaces map[pane.NodeID]*surface.Surface
	booted   bool
	dirty    bool
	pasting  bool
	status   string
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}
	app := &Application{
		opts:     opts,
		metrics:  NewMetrics(),
		surfaces: make(map[pane.NodeID]*surface.Surface),
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())
	if err := app.bootstrap(); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Settings
	app.loader = config.NewLoader(app.opts.ConfigPath)
	s, err := app.loader.Load()
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.settings = s

	// 2. Logging
	logger, closer, err := newLogger(s.Logging, app.opts)
	if err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	app.logger, app.logFile = logger, closer
	logging.SetDefault(logger)

	// 3. Event bus and metrics
	app.bus = event.NewBus()
	app.bus.SetPanicHandler(func(ev event.Event, r any) {
		app.logger.Error("%s subscriber panicked: %v", ev.Type, r)
	})
	subs, err := app.metrics.Subscribe(app.bus)
	if err != nil {
		return &InitError{Component: "metrics", Err: err}
	}
	app.subs = subs

	// 4. Loop
	app.loop = NewLoop(DefaultQueueSize, app.logger, app.metrics)

	// 5. PTY backend
	backend := app.opts.Backend
	if backend == nil {
		app.ptys = pty.NewManager(pty.Config{
			Handler:    app,
			Logger:     app.logger,
			WriteRate:  float64(s.Terminal.WriteRate),
			WriteBurst: s.Terminal.WriteBurst,
		})
		backend = app.ptys
	}

	// 6. Workspace
	app.ws = workspace.New(workspace.Options{
		Settings:   s,
		Backend:    backend,
		Dispatcher: app.loop,
		Bus:        app.bus,
		Logger:     app.logger,
		Context:    app.ctx,
		Hostname:   app.opts.Hostname,
	})

	// 7. Key bindings
	km, err := action.NewKeymap(s.Keys)
	if km == nil {
		return &InitError{Component: "keys", Err: err}
	}
	if err != nil {
		app.logger.Warn("key bindings: %v", err)
	}
	app.actions = action.NewHandler(app.ws)
	app.chord = action.NewChord(km)
	return nil
}

// newLogger builds the root logger. Without a configured file the log goes
// to LogFileName in the settings directory so the window stays clean.
func newLogger(ls config.LoggingSettings, opts Options) (*logging.Logger, io.Closer, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(firstNonEmpty(opts.LogLevel, ls.Level))
	cfg.JSON = ls.JSON
	if opts.LogOutput != nil {
		cfg.Output = opts.LogOutput
		return logging.New(cfg), nil, nil
	}
	path := firstNonEmpty(opts.LogFile, ls.File)
	if path == "" {
		path = filepath.Join(config.DefaultDir(), LogFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	cfg.Output = f
	return logging.New(cfg), f, nil
}

// OnData implements pty.EventHandler.
func (app *Application) OnData(sessionID, chunk string) {
	app.metrics.RecordOutput(len(chunk))
	app.loop.Post(func() {
		app.ws.HandleData(sessionID, chunk)
		app.dirty = true
	})
}

// OnExit implements pty.EventHandler.
func (app *Application) OnExit(sessionID string, code int) {
	app.loop.Post(func() {
		app.ws.HandleExit(sessionID, code)
		app.dirty = true
	})
}

// startWatcher begins settings live reload. Failures only disable reload.
func (app *Application) startWatcher() {
	if !app.opts.Watch {
		return
	}
	app.watcher = config.NewWatcher(app.loader, app.onReload, config.WithWatcherLogger(app.logger))
	if err := app.watcher.Start(); err != nil {
		app.logger.Warn("settings watcher: %v", err)
		app.watcher = nil
	}
}

func (app *Application) onReload(s *config.Settings, err error) {
	app.loop.Post(func() {
		if err != nil {
			app.setStatus("settings: " + err.Error())
			return
		}
		app.applySettings(s)
	})
}

// applySettings switches to reloaded settings. Running sessions keep their
// launch; new panes use the new terminal and profile settings.
func (app *Application) applySettings(s *config.Settings) {
	app.settings = s
	app.ws.ApplySettings(s)
	app.logger.SetLevel(logging.ParseLevel(firstNonEmpty(app.opts.LogLevel, s.Logging.Level)))

	km, err := action.NewKeymap(s.Keys)
	switch {
	case km == nil:
		app.logger.Warn("keeping previous key bindings: %v", err)
	case err != nil:
		app.logger.Warn("key bindings: %v", err)
		app.chord.SetKeymap(km)
	default:
		app.chord.SetKeymap(km)
	}

	app.bus.Publish(event.New(event.TopicConfigReloaded, s, "app"))
	app.setStatus("settings reloaded")
}

// Close stops the loop, terminates every session and releases the log file.
// It is safe to call more than once.
func (app *Application) Close() error {
	app.closeOnce.Do(func() {
		var errs []error
		if app.watcher != nil {
			errs = append(errs, app.watcher.Close())
		}
		if app.loop != nil {
			app.loop.Stop()
		}
		app.cancel()
		if app.ptys != nil {
			ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			errs = append(errs, app.ptys.Shutdown(ctx))
			cancel()
		}
		for _, sub := range app.subs {
			app.bus.Unsubscribe(sub)
		}
		if app.logFile != nil {
			errs = append(errs, app.logFile.Close())
		}
		app.closeErr = errors.Join(errs...)
	})
	return app.closeErr
}

// IsRunning returns true while Run is executing.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Workspace returns the workspace. Use it only from loop tasks.
func (app *Application) Workspace() *workspace.Workspace {
	return app.ws
}

// Loop returns the task loop.
func (app *Application) Loop() *Loop {
	return app.loop
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// Metrics returns the application's metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// Logger returns the root logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Settings returns the current settings. Use it only from loop tasks.
func (app *Application) Settings() *config.Settings {
	return app.settings
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
