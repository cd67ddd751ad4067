package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/app"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func init() {
	// glfw and the wgpu surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg := vokselis.DefaultConfig()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	log := vokselis.NewDefaultLogger("vokselis", cfg.Debug)
	if err := cfg.Validate(); err != nil {
		log.Errorf("config: %v", err)
		os.Exit(2)
	}
	log.Infof("session %s", uuid.NewString())

	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg vokselis.Config, log *vokselis.DefaultLogger) error {
	gpuLog := log.With("gpu")

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	var (
		platform app.Platform
		session  *app.Session
		err      error
	)
	if cfg.Headless {
		platform = app.NewHeadlessPlatform(cfg.WindowWidth, cfg.WindowHeight)
		session, err = app.NewSession(instance, nil, app.OffscreenSurface(cfg.WindowWidth, cfg.WindowHeight), cfg, gpuLog)
	} else {
		if err := glfw.Init(); err != nil {
			return errors.Wrap(err, "glfw init")
		}
		defer glfw.Terminate()

		window, werr := app.NewGLFWPlatform(cfg.Title, cfg.WindowWidth, cfg.WindowHeight)
		if werr != nil {
			return werr
		}
		platform = window

		surface := instance.CreateSurface(window.SurfaceDescriptor())
		w, h := window.Size()
		session, err = app.NewSession(instance, surface, app.WindowSurface(surface, w, h), cfg, gpuLog)
	}
	defer platform.Close()
	if err != nil {
		return err
	}
	defer session.Release()

	opts := app.OptionsFrom(cfg)
	if cfg.HUD {
		opts.HUD = session.ShowHUD
		opts.HUDLines = session.HUDLines
	}
	return app.New(platform, session.Context, session.Stage(), opts, log.With("app")).Run()
}
