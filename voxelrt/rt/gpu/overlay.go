package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

var OverlayContract = PipelineContract{
	Name:   "overlay",
	Groups: []GroupLayout{AtlasLayout},
}

// Overlay draws text on top of the presented image in its own pass.
type Overlay struct {
	dev       *Device
	text      *core.TextRenderer
	pipeline  *wgpu.RenderPipeline
	atlas     *wgpu.Texture
	atlasView *wgpu.TextureView
	group     *wgpu.BindGroup

	vertexBuf   *wgpu.Buffer
	vertexCount uint32
	items       []core.TextItem
}

func NewOverlay(dev *Device, lib *shaders.Library, text *core.TextRenderer, surfaceFormat wgpu.TextureFormat, sampler *wgpu.Sampler, log vokselis.Logger) (*Overlay, error) {
	log = vokselis.OrNop(log)
	o := &Overlay{dev: dev, text: text}
	if err := o.uploadAtlas(); err != nil {
		return nil, err
	}

	program, err := lib.Get(shaders.Overlay)
	if err != nil {
		o.Release()
		return nil, err
	}
	module, layout, err := prepareProgram(dev, program, OverlayContract, []programCheck{
		{Entry: "vs_main", Stage: shaders.StageVertex},
		{Entry: "fs_main", Stage: shaders.StageFragment},
	}, log)
	if err != nil {
		o.Release()
		return nil, err
	}
	defer module.Release()
	defer layout.Release()

	o.pipeline, err = dev.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  OverlayContract.Name,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: core.TextVertexSize,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: surfaceFormat,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		o.Release()
		return nil, errors.Wrap(err, "create overlay pipeline")
	}

	atlasLayout, err := dev.Layout(AtlasLayout)
	if err != nil {
		o.Release()
		return nil, err
	}
	o.group, err = dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Overlay Atlas BG",
		Layout: atlasLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: o.atlasView},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		o.Release()
		return nil, errors.Wrap(err, "create overlay bind group")
	}
	return o, nil
}

func (o *Overlay) uploadAtlas() error {
	img := o.text.Atlas
	w, h := uint32(img.Bounds().Dx()), uint32(img.Bounds().Dy())
	tex, err := o.dev.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return errors.Wrap(err, "create text atlas")
	}
	o.dev.Queue.WriteTexture(tex.AsImageCopy(), img.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: h,
	}, &wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1})
	o.atlas = tex
	if o.atlasView, err = tex.CreateView(nil); err != nil {
		return errors.Wrap(err, "create text atlas view")
	}
	return nil
}

func (o *Overlay) Clear() {
	o.items = o.items[:0]
}

func (o *Overlay) DrawText(text string, x, y, scale float32, color [4]float32) {
	o.items = append(o.items, core.TextItem{
		Text:     text,
		Position: [2]float32{x, y},
		Scale:    scale,
		Color:    color,
	})
}

// Upload lays out the queued text for a width x height target and writes
// the vertex buffer, growing it when needed.
func (o *Overlay) Upload(width, height uint32) error {
	o.vertexCount = 0
	vertices := o.text.BuildVertices(o.items, width, height)
	if len(vertices) == 0 {
		return nil
	}
	data := core.VertexBytes(vertices)
	size := uint64(len(data))
	if o.vertexBuf == nil || o.vertexBuf.GetSize() < size {
		if o.vertexBuf != nil {
			o.vertexBuf.Release()
			o.vertexBuf = nil
		}
		buf, err := o.dev.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Text VB",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return errors.Wrap(err, "create text vertex buffer")
		}
		o.vertexBuf = buf
	}
	o.dev.Queue.WriteBuffer(o.vertexBuf, 0, data)
	o.vertexCount = uint32(len(vertices))
	return nil
}

// Encode loads view and draws the uploaded text over it. Nothing is recorded
// when there is no text.
func (o *Overlay) Encode(encoder *wgpu.CommandEncoder, view *wgpu.TextureView) error {
	if o.vertexCount == 0 {
		return nil
	}
	groups, err := OverlayContract.Resolve(map[string]*wgpu.BindGroup{AtlasLayout.Name: o.group})
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Overlay",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(o.pipeline)
	bindAll(groups, func(slot uint32, bg *wgpu.BindGroup) { pass.SetBindGroup(slot, bg, nil) })
	pass.SetVertexBuffer(0, o.vertexBuf, 0, o.vertexBuf.GetSize())
	pass.Draw(o.vertexCount, 1, 0, 0)
	if err := pass.End(); err != nil {
		return errors.Wrap(err, "end overlay pass")
	}
	return nil
}

func (o *Overlay) Release() {
	if o.vertexBuf != nil {
		o.vertexBuf.Release()
	}
	if o.group != nil {
		o.group.Release()
	}
	if o.pipeline != nil {
		o.pipeline.Release()
	}
	if o.atlasView != nil {
		o.atlasView.Release()
	}
	if o.atlas != nil {
		o.atlas.Release()
	}
}
