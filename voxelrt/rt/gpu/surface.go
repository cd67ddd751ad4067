package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// Frame is one acquired presentation image. Present must be called after the
// frame's commands are submitted, Release in every case.
type Frame struct {
	View   *wgpu.TextureView
	Width  uint32
	Height uint32

	present func()
	release func()
}

func (f *Frame) Present() {
	if f.present != nil {
		f.present()
	}
}

func (f *Frame) Release() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
}

// Surface is where the present stage draws.
type Surface interface {
	Format() wgpu.TextureFormat
	Size() (width, height uint32)
	Configure(width, height uint32) error
	Acquire() (*Frame, error)
	Release()
}

// SwapchainSurface presents to a window through a configured wgpu surface.
type SwapchainSurface struct {
	dev     *Device
	surface *wgpu.Surface
	config  *wgpu.SurfaceConfiguration
}

// NewSwapchainSurface configures surface for width x height with vsync,
// preferring an 8 bit unorm format.
func NewSwapchainSurface(dev *Device, surface *wgpu.Surface, width, height uint32) (*SwapchainSurface, error) {
	caps := surface.GetCapabilities(dev.Adapter)
	if len(caps.Formats) == 0 {
		return nil, errors.New("surface reports no formats")
	}
	alpha := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alpha = caps.AlphaModes[0]
	}
	s := &SwapchainSurface{
		dev:     dev,
		surface: surface,
		config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      pickSurfaceFormat(caps.Formats),
			Width:       width,
			Height:      height,
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   alpha,
		},
	}
	if err := s.Configure(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, want := range []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm} {
		for _, f := range formats {
			if f == want {
				return f
			}
		}
	}
	return formats[0]
}

func (s *SwapchainSurface) Format() wgpu.TextureFormat { return s.config.Format }

func (s *SwapchainSurface) Size() (uint32, uint32) { return s.config.Width, s.config.Height }

func (s *SwapchainSurface) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return errors.Errorf("configure surface with %dx%d", width, height)
	}
	s.config.Width = width
	s.config.Height = height
	s.surface.Configure(s.dev.Adapter, s.dev.Device, s.config)
	return nil
}

func (s *SwapchainSurface) Acquire() (*Frame, error) {
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, classifySurfaceError(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, errors.Wrap(err, "create swapchain view")
	}
	return &Frame{
		View:    view,
		Width:   s.config.Width,
		Height:  s.config.Height,
		present: func() { s.surface.Present() },
		release: func() {
			view.Release()
			tex.Release()
		},
	}, nil
}

func (s *SwapchainSurface) Release() {
	s.surface.Release()
}

// OffscreenSurface renders into a texture instead of a window. It backs the
// headless mode and GPU tests.
type OffscreenSurface struct {
	dev     *Device
	format  wgpu.TextureFormat
	width   uint32
	height  uint32
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func NewOffscreenSurface(dev *Device, width, height uint32) (*OffscreenSurface, error) {
	s := &OffscreenSurface{dev: dev, format: wgpu.TextureFormatRGBA8Unorm}
	if err := s.Configure(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *OffscreenSurface) Format() wgpu.TextureFormat { return s.format }

func (s *OffscreenSurface) Size() (uint32, uint32) { return s.width, s.height }

func (s *OffscreenSurface) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return errors.Errorf("configure offscreen surface with %dx%d", width, height)
	}
	tex, err := s.dev.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Offscreen Surface",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        s.format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return errors.Wrap(err, "create offscreen surface")
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return errors.Wrap(err, "create offscreen view")
	}
	s.releaseTexture()
	s.texture, s.view = tex, view
	s.width, s.height = width, height
	return nil
}

func (s *OffscreenSurface) Texture() *wgpu.Texture { return s.texture }

func (s *OffscreenSurface) Acquire() (*Frame, error) {
	return &Frame{View: s.view, Width: s.width, Height: s.height}, nil
}

func (s *OffscreenSurface) releaseTexture() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

func (s *OffscreenSurface) Release() { s.releaseTexture() }
