package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

var PresentContract = PipelineContract{
	Name:   "present",
	Groups: []GroupLayout{GlobalsLayout, CameraLayout, HdrSampledLayout},
}

// Presenter tone maps the HDR target with a fullscreen triangle into two
// attachments: the surface image and the RGBA8 copy target. Both are
// cleared first.
type Presenter struct {
	pipeline *wgpu.RenderPipeline
	clear    wgpu.Color
}

func NewPresenter(dev *Device, lib *shaders.Library, surfaceFormat wgpu.TextureFormat, clear [4]float64, log vokselis.Logger) (*Presenter, error) {
	log = vokselis.OrNop(log)
	program, err := lib.Get(shaders.Present)
	if err != nil {
		return nil, err
	}
	module, layout, err := prepareProgram(dev, program, PresentContract, []programCheck{
		{Entry: "vs_main", Stage: shaders.StageVertex},
		{Entry: "fs_main", Stage: shaders.StageFragment},
	}, log)
	if err != nil {
		return nil, err
	}
	defer module.Release()
	defer layout.Release()

	pipeline, err := dev.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  PresentContract.Name,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: surfaceFormat, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: CopyFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
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
		return nil, errors.Wrap(err, "create present pipeline")
	}
	return &Presenter{
		pipeline: pipeline,
		clear:    wgpu.Color{R: clear[0], G: clear[1], B: clear[2], A: clear[3]},
	}, nil
}

// Encode records the present pass.
func (p *Presenter) Encode(encoder *wgpu.CommandEncoder, surface, copyTarget *wgpu.TextureView, globals, camera, hdr *wgpu.BindGroup) error {
	groups, err := PresentContract.Resolve(map[string]*wgpu.BindGroup{
		GlobalsLayout.Name:    globals,
		CameraLayout.Name:     camera,
		HdrSampledLayout.Name: hdr,
	})
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Present",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{View: surface, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore, ClearValue: p.clear},
			{View: copyTarget, LoadOp: wgpu.LoadOpClear, StoreOp: wgpu.StoreOpStore, ClearValue: p.clear},
		},
	})
	pass.SetPipeline(p.pipeline)
	bindAll(groups, func(slot uint32, bg *wgpu.BindGroup) { pass.SetBindGroup(slot, bg, nil) })
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return errors.Wrap(err, "end present pass")
	}
	return nil
}

func (p *Presenter) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
}
