package app

import (
	"fmt"
	"strings"

	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/gpu"
	"github.com/pkg/errors"
)

// Renderer is the render context driven by the frame loop.
type Renderer interface {
	Update(timing core.FrameTiming, input *core.Input)
	Resize(width, height uint32)
	Render() error
	Size() (width, height uint32)
	Camera() *core.OrbitCamera
}

// Stage is the compute work recorded ahead of each render.
type Stage interface {
	Profile(frame uint32)
	Dispatch(frame uint32) error
}

type Options struct {
	RotateSpeed float32
	ZoomSpeed   float32
	// MaxFrames stops the loop after that many redraws. 0 runs until close.
	MaxFrames int
	// HUD receives the overlay text before each render.
	HUD func(text string)
	// HUDLines adds lines to the overlay text.
	HUDLines func() []string
}

func OptionsFrom(cfg vokselis.Config) Options {
	return Options{
		RotateSpeed: cfg.RotateSpeed,
		ZoomSpeed:   cfg.ZoomSpeed,
		MaxFrames:   cfg.Frames,
	}
}

// App is the frame driver. It runs on the thread that owns the window and
// the GPU objects.
type App struct {
	platform Platform
	renderer Renderer
	stage    Stage
	opts     Options
	log      vokselis.Logger

	counter  *core.FrameCounter
	profiler *Profiler
	input    core.Input

	focused  bool
	dragging bool
	redraws  int
}

func New(platform Platform, renderer Renderer, stage Stage, opts Options, log vokselis.Logger) *App {
	return &App{
		platform: platform,
		renderer: renderer,
		stage:    stage,
		opts:     opts,
		log:      vokselis.OrNop(log),
		counter:  core.NewFrameCounter(),
		profiler: NewProfiler(),
		focused:  true,
	}
}

// Run processes events until the window closes, the exit key is pressed,
// MaxFrames is reached or a fatal error occurs.
func (a *App) Run() error {
	for {
		for _, ev := range a.platform.WaitEvents() {
			stop, err := a.handle(ev)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
}

func (a *App) handle(ev Event) (stop bool, err error) {
	switch ev.Kind {
	case EventAboutToWait:
		a.profiler.Scope("update", func() {
			a.renderer.Update(a.counter.Timing(), &a.input)
		})
		a.stage.Profile(a.counter.Frame())
		a.platform.RequestRedraw()

	case EventRedraw:
		return a.redraw()

	case EventResize:
		if ev.Width > 0 && ev.Height > 0 {
			a.renderer.Resize(uint32(ev.Width), uint32(ev.Height))
		}

	case EventClose:
		a.log.Infof("close requested")
		return true, nil

	case EventFocus:
		a.focused = ev.Pressed
		if !a.focused {
			a.dragging = false
		}

	case EventKey:
		if ev.Escape {
			return ev.Pressed, nil
		}
		a.input.SetKey(ev.Key, ev.Pressed)

	case EventCursor:
		w, h := a.platform.Size()
		a.input.SetCursor(ev.X, ev.Y, w, h)

	case EventMouseButton:
		if !ev.Primary {
			break
		}
		a.input.MousePressed = ev.Pressed
		if a.focused {
			a.dragging = ev.Pressed
		}

	case EventMouseMotion:
		if a.focused && a.dragging {
			cam := a.renderer.Camera()
			cam.AddYaw(-float32(ev.X) * a.opts.RotateSpeed)
			cam.AddPitch(float32(ev.Y) * a.opts.RotateSpeed)
		}

	case EventScroll:
		if a.focused {
			a.renderer.Camera().AddZoom(-float32(ev.Scroll) * a.opts.ZoomSpeed)
		}
	}
	return false, nil
}

func (a *App) redraw() (bool, error) {
	// The stage sees the frame index the uniforms were uploaded with.
	frame := a.counter.Frame()
	a.counter.Record()

	var dispatchErr error
	a.profiler.Scope("raycast", func() { dispatchErr = a.stage.Dispatch(frame) })
	if dispatchErr != nil {
		return true, errors.Wrap(dispatchErr, "raycast")
	}

	if a.opts.HUD != nil {
		a.opts.HUD(a.hudText())
	}

	var err error
	a.profiler.Scope("render", func() { err = a.renderer.Render() })
	switch {
	case err == nil:
	case gpu.IsSurfaceLost(err):
		w, h := a.renderer.Size()
		a.log.Debugf("surface lost, reconfiguring %dx%d", w, h)
		a.renderer.Resize(w, h)
		a.platform.RequestRedraw()
	case gpu.IsOutOfMemory(err):
		return true, err
	default:
		a.log.Warnf("render: %v", err)
		a.platform.RequestRedraw()
	}

	a.redraws++
	if a.opts.MaxFrames > 0 && a.redraws >= a.opts.MaxFrames {
		a.log.Infof("rendered %d frames", a.redraws)
		return true, nil
	}
	return false, nil
}

func (a *App) hudText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FPS %.1f  (%.2f ms)\n", a.counter.FPS(), float64(a.counter.Delta().Microseconds())/1000)
	if a.opts.HUDLines != nil {
		for _, line := range a.opts.HUDLines() {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString(a.profiler.StatsString())
	return sb.String()
}

// Input returns the current input snapshot.
func (a *App) Input() core.Input { return a.input }

func (a *App) Frames() int { return a.redraws }
