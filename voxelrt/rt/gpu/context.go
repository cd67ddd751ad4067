package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Orbit camera start pose.
const (
	DefaultCameraDistance float32 = 3
	DefaultCameraPitch    float32 = -0.5
	DefaultCameraYaw      float32 = 1
)

type ContextConfig struct {
	HdrWidth   uint32
	HdrHeight  uint32
	ClearColor [4]float64
	PitchLimit float32

	// HUD enables the text overlay, Probe the HDR centre texel readback.
	HUD   bool
	Probe bool
}

// ContextConfigFrom picks the context settings out of the process config.
func ContextConfigFrom(cfg vokselis.Config) ContextConfig {
	return ContextConfig{
		HdrWidth:   cfg.HdrWidth,
		HdrHeight:  cfg.HdrHeight,
		ClearColor: cfg.ClearColor,
		PitchLimit: cfg.PitchLimit,
		HUD:        cfg.HUD,
		Probe:      cfg.HUD && cfg.Debug,
	}
}

// Context owns the surface, the HDR target, the copy target, the frame
// uniforms and the present stage. Update, Resize and Render are only called
// from the thread running the frame loop.
type Context struct {
	dev     *Device
	surface Surface
	sampler *wgpu.Sampler

	hdr        *HdrTarget
	copyTarget *CopyTarget
	uniforms   *UniformBuffers
	presenter  *Presenter
	overlay    *Overlay
	probe      *HdrProbe

	uniform core.Uniform
	camera  *core.OrbitCamera
	width   uint32
	height  uint32

	newCopyTarget func(width, height uint32) (*CopyTarget, error)
	log           vokselis.Logger
}

func NewContext(dev *Device, surface Surface, lib *shaders.Library, cfg ContextConfig, log vokselis.Logger) (*Context, error) {
	log = vokselis.OrNop(log)
	width, height := surface.Size()
	c := &Context{
		dev:     dev,
		surface: surface,
		width:   width,
		height:  height,
		camera:  core.NewOrbitCamera(DefaultCameraDistance, DefaultCameraPitch, DefaultCameraYaw, mgl32.Vec3{}, float32(width)/float32(height)),
		log:     log,
		newCopyTarget: func(w, h uint32) (*CopyTarget, error) {
			return NewCopyTarget(dev, w, h)
		},
	}
	c.camera.PitchLimit = cfg.PitchLimit

	var err error
	if c.sampler, err = NewLinearSampler(dev); err != nil {
		return nil, err
	}
	if c.hdr, err = NewHdrTarget(dev, cfg.HdrWidth, cfg.HdrHeight, c.sampler); err != nil {
		c.Release()
		return nil, err
	}
	if c.copyTarget, err = c.newCopyTarget(width, height); err != nil {
		c.Release()
		return nil, err
	}
	if c.uniforms, err = NewUniformBuffers(dev); err != nil {
		c.Release()
		return nil, err
	}
	if c.presenter, err = NewPresenter(dev, lib, surface.Format(), cfg.ClearColor, log); err != nil {
		c.Release()
		return nil, err
	}
	if cfg.HUD {
		text, err := core.NewDefaultTextRenderer(16)
		if err != nil {
			log.Warnf("HUD disabled: %v", err)
		} else if c.overlay, err = NewOverlay(dev, lib, text, surface.Format(), c.sampler, log); err != nil {
			log.Warnf("HUD disabled: %v", err)
			c.overlay = nil
		}
	}
	if cfg.Probe {
		if c.probe, err = NewHdrProbe(dev, c.hdr, log); err != nil {
			c.Release()
			return nil, err
		}
	}
	c.uniform.Resolution = [2]float32{float32(width), float32(height)}
	return c, nil
}

// Update advances the frame uniforms from timing and input and uploads them
// with the camera block. No GPU work is recorded.
func (c *Context) Update(timing core.FrameTiming, input *core.Input) {
	timing.Apply(&c.uniform)
	c.uniform.Resolution = [2]float32{float32(c.width), float32(c.height)}
	if input != nil {
		input.ProcessPosition(&c.uniform)
	}
	if c.uniforms != nil {
		c.uniforms.Upload(&c.uniform, c.camera)
	}
}

// Resize reconfigures the surface and rebuilds the copy target for a new
// window size. Zero dimensions are ignored. The HDR target keeps its size.
func (c *Context) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	if err := c.surface.Configure(width, height); err != nil {
		c.log.Errorf("resize %dx%d: %v", width, height, err)
		return
	}
	target, err := c.newCopyTarget(width, height)
	if err != nil {
		c.log.Errorf("resize %dx%d: %v", width, height, err)
		return
	}
	c.copyTarget.Release()
	c.copyTarget = target
	c.width, c.height = width, height
	c.camera.SetAspect(width, height)
	c.log.Debugf("resized to %dx%d", width, height)
}

// Render presents the HDR target. Surface errors are returned classified:
// see IsSurfaceLost and IsOutOfMemory.
func (c *Context) Render() error {
	frame, err := c.surface.Acquire()
	if err != nil {
		return err
	}
	defer frame.Release()

	encoder, err := c.dev.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Present Encoder"})
	if err != nil {
		return errors.Wrap(err, "create present encoder")
	}
	if err := c.presenter.Encode(encoder, frame.View, c.copyTarget.View, c.uniforms.GlobalsGroup, c.uniforms.CameraGroup, c.hdr.Sampled); err != nil {
		encoder.Release()
		return err
	}
	if c.probe != nil {
		c.probe.Encode(encoder)
	}
	if c.overlay != nil {
		if err := c.overlay.Upload(frame.Width, frame.Height); err != nil {
			c.log.Warnf("overlay: %v", err)
		} else if err := c.overlay.Encode(encoder, frame.View); err != nil {
			c.log.Warnf("overlay: %v", err)
		}
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish present encoder")
	}
	c.dev.Queue.Submit(cmd)
	frame.Present()
	if c.probe != nil {
		c.probe.Collect()
	}
	return nil
}

// Size is the current surface size.
func (c *Context) Size() (uint32, uint32) { return c.width, c.height }

func (c *Context) HdrSize() (uint32, uint32) { return c.hdr.Width, c.hdr.Height }

func (c *Context) CopyTargetSize() (uint32, uint32) {
	return c.copyTarget.Width, c.copyTarget.Height
}

func (c *Context) Camera() *core.OrbitCamera { return c.camera }

// Uniform returns a copy of the current uniform block.
func (c *Context) Uniform() core.Uniform { return c.uniform }

func (c *Context) Device() *Device { return c.dev }

func (c *Context) HdrTarget() *HdrTarget { return c.hdr }

func (c *Context) Sampler() *wgpu.Sampler { return c.sampler }

// Bindings returns the globals and camera bind groups shared with the
// compute stages.
func (c *Context) Bindings() (globals, camera *wgpu.BindGroup) {
	return c.uniforms.GlobalsGroup, c.uniforms.CameraGroup
}

// Overlay returns the HUD overlay, nil when disabled.
func (c *Context) Overlay() *Overlay { return c.overlay }

// ProbeValue returns the last sampled HDR centre texel.
func (c *Context) ProbeValue() ([4]float32, bool) {
	if c.probe == nil {
		return [4]float32{}, false
	}
	return c.probe.value, c.probe.valid
}

func (c *Context) Release() {
	if c.probe != nil {
		c.probe.Release()
	}
	if c.overlay != nil {
		c.overlay.Release()
	}
	if c.presenter != nil {
		c.presenter.Release()
	}
	if c.uniforms != nil {
		c.uniforms.Release()
	}
	c.copyTarget.Release()
	if c.hdr != nil {
		c.hdr.Release()
	}
	if c.sampler != nil {
		c.sampler.Release()
	}
}
