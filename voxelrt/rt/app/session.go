package app

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/gpu"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

// Session holds every GPU object of a run, created in dependency order and
// released in reverse.
type Session struct {
	Device    *gpu.Device
	Surface   gpu.Surface
	Context   *gpu.Context
	Volume    *gpu.Volume
	Raycaster *gpu.Raycaster
	Library   *shaders.Library
}

// SurfaceFactory creates the presentation surface once the device exists.
type SurfaceFactory func(dev *gpu.Device) (gpu.Surface, error)

// WindowSurface presents to a wgpu surface created for a window.
func WindowSurface(surface *wgpu.Surface, width, height int) SurfaceFactory {
	return func(dev *gpu.Device) (gpu.Surface, error) {
		return gpu.NewSwapchainSurface(dev, surface, uint32(width), uint32(height))
	}
}

// OffscreenSurface renders into a texture of the given size.
func OffscreenSurface(width, height int) SurfaceFactory {
	return func(dev *gpu.Device) (gpu.Surface, error) {
		return gpu.NewOffscreenSurface(dev, uint32(width), uint32(height))
	}
}

// NewSession builds the device, the render context, the volume and the
// raycaster, and seeds the volume. compatible may be nil for offscreen runs.
func NewSession(instance *wgpu.Instance, compatible *wgpu.Surface, newSurface SurfaceFactory, cfg vokselis.Config, log vokselis.Logger) (*Session, error) {
	log = vokselis.OrNop(log)
	s := &Session{Library: shaders.NewLibrary()}

	var err error
	if s.Device, err = gpu.NewDevice(instance, compatible, log); err != nil {
		return nil, errors.Wrap(err, "device")
	}
	if s.Surface, err = newSurface(s.Device); err != nil {
		s.Release()
		return nil, errors.Wrap(err, "surface")
	}
	if s.Context, err = gpu.NewContext(s.Device, s.Surface, s.Library, gpu.ContextConfigFrom(cfg), log); err != nil {
		s.Release()
		return nil, errors.Wrap(err, "render context")
	}
	if s.Volume, err = gpu.NewVolume(s.Device, s.Library, s.Context.Sampler(), log); err != nil {
		s.Release()
		return nil, errors.Wrap(err, "volume")
	}
	s.Raycaster, err = gpu.NewRaycaster(s.Device, s.Library, s.Context.HdrTarget(), s.Volume, gpu.RaycasterConfig{
		ProfileInterval: cfg.ProfileInterval,
		ReadbackTimeout: cfg.ReadbackTimeout,
		TimestampPeriod: cfg.TimestampPeriod,
	}, log)
	if err != nil {
		s.Release()
		return nil, errors.Wrap(err, "raycaster")
	}

	globals, _ := s.Context.Bindings()
	if err := s.Volume.Seed(globals); err != nil {
		s.Release()
		return nil, errors.Wrap(err, "seed volume")
	}
	w, h := s.Context.HdrSize()
	log.Debugf("volume seeded, hdr target %dx%d", w, h)
	return s, nil
}

// Stage adapts the raycaster to the frame loop.
func (s *Session) Stage() Stage {
	return raycastStage{raycaster: s.Raycaster, context: s.Context}
}

// HUDLines reports the last GPU measurement and, in debug runs, the HDR
// probe.
func (s *Session) HUDLines() []string {
	var lines []string
	if sample, ok := s.Raycaster.LastSample(); ok {
		lines = append(lines, fmt.Sprintf("raycast %.3f ms (frame %d)", float64(sample.Elapsed.Microseconds())/1000, sample.Frame))
	} else if !s.Raycaster.Profiling() {
		lines = append(lines, "raycast timing unavailable")
	}
	if px, ok := s.Context.ProbeValue(); ok {
		lines = append(lines, fmt.Sprintf("hdr centre %.3f %.3f %.3f", px[0], px[1], px[2]))
	}
	return lines
}

// ShowHUD replaces the overlay text. It does nothing when the overlay is off.
func (s *Session) ShowHUD(text string) {
	ov := s.Context.Overlay()
	if ov == nil {
		return
	}
	ov.Clear()
	ov.DrawText(text, 10, 10, 1, [4]float32{1, 1, 0, 1})
}

func (s *Session) Release() {
	if s.Raycaster != nil {
		s.Raycaster.Release()
	}
	if s.Volume != nil {
		s.Volume.Release()
	}
	if s.Context != nil {
		s.Context.Release()
	}
	if s.Surface != nil {
		s.Surface.Release()
	}
	if s.Device != nil {
		s.Device.Release()
	}
}

type raycastStage struct {
	raycaster *gpu.Raycaster
	context   *gpu.Context
}

func (r raycastStage) Profile(frame uint32) { r.raycaster.Profile(frame) }

func (r raycastStage) Dispatch(frame uint32) error {
	globals, camera := r.context.Bindings()
	return r.raycaster.Dispatch(frame, globals, camera)
}
