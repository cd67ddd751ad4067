package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

const (
	HdrFormat  = wgpu.TextureFormatRGBA16Float
	CopyFormat = wgpu.TextureFormatRGBA8Unorm
)

// HdrTarget is the fixed size image the raycaster writes and the present
// stage samples. It is created once and never follows the window size.
type HdrTarget struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Width   uint32
	Height  uint32

	// Storage binds the target for writing (HdrStorageLayout), Sampled for
	// reading (HdrSampledLayout).
	Storage *wgpu.BindGroup
	Sampled *wgpu.BindGroup
}

func NewHdrTarget(dev *Device, width, height uint32, sampler *wgpu.Sampler) (*HdrTarget, error) {
	if width == 0 || height == 0 {
		return nil, errors.Errorf("hdr target %dx%d", width, height)
	}
	tex, err := dev.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HDR Target",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        HdrFormat,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create hdr target")
	}
	t := &HdrTarget{Texture: tex, Width: width, Height: height}
	if t.View, err = tex.CreateView(nil); err != nil {
		t.Release()
		return nil, errors.Wrap(err, "create hdr view")
	}

	storageLayout, err := dev.Layout(HdrStorageLayout)
	if err != nil {
		t.Release()
		return nil, err
	}
	t.Storage, err = dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "HDR Storage BG",
		Layout:  storageLayout,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, TextureView: t.View}},
	})
	if err != nil {
		t.Release()
		return nil, errors.Wrap(err, "create hdr storage bind group")
	}

	sampledLayout, err := dev.Layout(HdrSampledLayout)
	if err != nil {
		t.Release()
		return nil, err
	}
	t.Sampled, err = dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "HDR Sampled BG",
		Layout: sampledLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.View},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		t.Release()
		return nil, errors.Wrap(err, "create hdr sampled bind group")
	}
	return t, nil
}

func (t *HdrTarget) Release() {
	if t.Sampled != nil {
		t.Sampled.Release()
	}
	if t.Storage != nil {
		t.Storage.Release()
	}
	if t.View != nil {
		t.View.Release()
	}
	if t.Texture != nil {
		t.Texture.Release()
	}
}

// CopyTarget is the second colour attachment of the present pass. It matches
// the surface size and is recreated on resize.
type CopyTarget struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Width   uint32
	Height  uint32
}

func NewCopyTarget(dev *Device, width, height uint32) (*CopyTarget, error) {
	tex, err := dev.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Copy Target",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        CopyFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create copy target")
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, errors.Wrap(err, "create copy target view")
	}
	return &CopyTarget{Texture: tex, View: view, Width: width, Height: height}, nil
}

func (c *CopyTarget) Release() {
	if c == nil {
		return
	}
	if c.View != nil {
		c.View.Release()
	}
	if c.Texture != nil {
		c.Texture.Release()
	}
}

// NewLinearSampler creates the clamped linear sampler shared by the volume,
// the HDR target and the text atlas.
func NewLinearSampler(dev *Device) (*wgpu.Sampler, error) {
	s, err := dev.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Linear Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create sampler")
	}
	return s, nil
}
