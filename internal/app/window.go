package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/xterminal/internal/action"
	"github.com/dshills/xterminal/internal/pane"
	"github.com/dshills/xterminal/internal/script"
	"github.com/dshills/xterminal/internal/surface"
	"github.com/dshills/xterminal/internal/workspace"
)

// Run opens the window on scr, builds the startup layout and blocks until
// the user quits, the last tab closes or ctx ends. The loop cannot be
// restarted afterwards. Close must still be called.
func (app *Application) Run(ctx context.Context, scr *surface.Screen) error {
	if scr == nil {
		return ErrNoScreen
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := scr.Init(); err != nil {
		return &InitError{Component: "screen", Err: err}
	}
	defer scr.Shutdown()
	defer app.loop.Stop()

	app.screen = scr
	scr.OnResize(func(int, int) {
		app.loop.Post(app.markDirty)
	})

	app.startWatcher()
	app.loop.Post(func() { app.startup(ctx) })
	go app.poll(scr)
	stopFrames := app.startFrames()
	defer stopFrames()

	app.logger.Info("window started")
	err := app.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startup runs the layout script, then opens a default tab if the script
// did not open one.
func (app *Application) startup(ctx context.Context) {
	if path := firstNonEmpty(app.opts.LayoutPath, app.settings.Startup.Layout); path != "" {
		err := script.RunLayout(ctx, app.ws, path, script.WithLogger(app.logger))
		if err != nil {
			app.logger.Error("layout: %v", err)
			app.setStatus("layout: " + err.Error())
		}
	}
	if len(app.ws.Tabs()) == 0 {
		if _, err := app.ws.NewTab(workspace.NewTabOptions{}); err != nil {
			app.logger.Error("open tab: %v", err)
			app.setStatus(err.Error())
		}
	}
	app.booted = true
	app.markDirty()
}

// poll forwards terminal events to the loop until the screen shuts down.
func (app *Application) poll(scr *surface.Screen) {
	for {
		ev := scr.PollEvent()
		if ev == nil {
			return
		}
		app.loop.Post(func() { app.handleEvent(ev) })
	}
}

func (app *Application) startFrames() func() {
	ticker := time.NewTicker(app.opts.FrameInterval)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				app.loop.Post(app.frame)
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(stop)
	}
}

func (app *Application) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		app.markDirty()
	case *tcell.EventPaste:
		app.pasting = ev.Start()
	case *tcell.EventKey:
		app.handleKey(ev)
	}
}

// handleKey routes a key press through the prefix chord. Pasted text always
// goes to the pane.
func (app *Application) handleKey(ev *tcell.EventKey) {
	if app.pasting {
		app.sendInput(surface.Encode(ev))
		return
	}
	step := app.chord.Feed(surface.KeyName(ev))
	switch step.Kind {
	case action.StepPass, action.StepLiteral:
		if app.status != "" {
			app.setStatus("")
		}
		app.sendInput(surface.Encode(ev))
	case action.StepPending, action.StepUnbound:
		app.markDirty()
	case action.StepRun:
		app.runAction(step.Action)
	}
}

func (app *Application) sendInput(data string) {
	if data == "" {
		return
	}
	app.metrics.RecordInput(len(data), app.ws.BroadcastMode())
	if err := app.ws.HandleInput("", data); err != nil {
		app.logger.Debug("input: %v", err)
	}
}

func (app *Application) runAction(name string) {
	res := app.actions.Handle(name)
	switch res.Status {
	case action.StatusQuit:
		app.logger.Info("quit requested")
		app.loop.Stop()
		return
	case action.StatusError:
		app.logger.Warn("%s: %v", name, res.Err)
	}
	app.setStatus(res.Message)
}

// frame repaints when something changed. Once the startup layout exists, a
// window without tabs ends the loop.
func (app *Application) frame() {
	if app.screen == nil {
		return
	}
	if len(app.ws.Tabs()) == 0 {
		if app.booted {
			app.logger.Info("last tab closed")
			app.loop.Stop()
		}
		return
	}
	if !app.dirty {
		return
	}
	app.dirty = false
	start := time.Now()
	app.render()
	app.metrics.RecordFrame(time.Since(start))
}

func (app *Application) render() {
	app.syncSurfaces()
	w, h := app.screen.Size()
	f := surface.Frame{
		Tabs:      app.ws.Tabs(),
		Surfaces:  app.surfaces,
		Active:    app.ws.ActivePane(),
		Broadcast: app.ws.BroadcastMode(),
		Status:    app.statusLine(),
	}
	if t, ok := app.ws.ActiveTab(); ok {
		f.Rects = app.ws.Layout(t.ID, surface.ContentArea(w, h))
	}
	app.screen.Render(f)
}

// syncSurfaces gives every pane a surface and drops surfaces of closed
// panes.
func (app *Application) syncSurfaces() {
	live := make(map[pane.NodeID]bool)
	for _, t := range app.ws.Tabs() {
		for _, id := range app.ws.Panes(t.ID) {
			live[id] = true
			if _, ok := app.surfaces[id]; !ok {
				app.attach(id)
			}
		}
	}
	for id, sf := range app.surfaces {
		if !live[id] {
			sf.Close()
			delete(app.surfaces, id)
		}
	}
}

func (app *Application) attach(id pane.NodeID) {
	sf := surface.New(
		surface.OnReady(func() {
			if err := app.ws.SurfaceReady(id); err != nil {
				app.logger.Warn("surface ready %s: %v", id, err)
			}
			app.dirty = true
		}),
		surface.OnResize(func(cols, rows int) {
			if err := app.ws.SurfaceResized(id, cols, rows); err != nil {
				app.logger.Debug("surface resize %s: %v", id, err)
			}
		}),
	)
	if err := app.ws.AttachSurface(id, sf); err != nil {
		app.logger.Warn("attach surface %s: %v", id, err)
		return
	}
	app.surfaces[id] = sf
}

func (app *Application) statusLine() string {
	var parts []string
	if app.chord.Pending() {
		parts = append(parts, "PREFIX")
	}
	if id := app.ws.ActivePane(); id != "" {
		if st, ok := app.ws.PaneStatus(id); ok && st != workspace.PaneRunning {
			parts = append(parts, st.String())
		}
	}
	if app.status != "" {
		parts = append(parts, app.status)
	}
	return strings.Join(parts, "  ")
}

func (app *Application) setStatus(msg string) {
	app.status = msg
	app.dirty = true
}

func (app *Application) markDirty() {
	app.dirty = true
}
