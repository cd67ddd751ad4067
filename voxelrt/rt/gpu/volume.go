package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

const VolumeFormat = wgpu.TextureFormatRGBA16Float

// XorContract binds the generator program: globals at slot 0, the two
// writable volume textures at slot 1.
var XorContract = PipelineContract{
	Name:   "xor",
	Groups: []GroupLayout{GlobalsLayout, VolumeStorageLayout},
}

// Volume owns the density and normal 3D textures. NewVolume only allocates;
// the contents are generated by a single Seed call before the first frame.
type Volume struct {
	Density     *wgpu.Texture
	Normal      *wgpu.Texture
	DensityView *wgpu.TextureView
	NormalView  *wgpu.TextureView
	Size        uint32

	// Sampled binds both textures and the sampler for reading
	// (VolumeSampledLayout).
	Sampled *wgpu.BindGroup

	dev        *Device
	storage    *wgpu.BindGroup
	pipeline   *wgpu.ComputePipeline
	seeded     bool
	dispatches int
	log        vokselis.Logger
}

func NewVolume(dev *Device, lib *shaders.Library, sampler *wgpu.Sampler, log vokselis.Logger) (*Volume, error) {
	log = vokselis.OrNop(log)
	v := &Volume{dev: dev, Size: core.VolumeSize, log: log}

	var err error
	if v.Density, v.DensityView, err = v.createTexture("Density Volume"); err != nil {
		return nil, err
	}
	if v.Normal, v.NormalView, err = v.createTexture("Normal Volume"); err != nil {
		v.Release()
		return nil, err
	}

	storageLayout, err := dev.Layout(VolumeStorageLayout)
	if err != nil {
		v.Release()
		return nil, err
	}
	v.storage, err = dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Volume Storage BG",
		Layout: storageLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: v.DensityView},
			{Binding: 1, TextureView: v.NormalView},
		},
	})
	if err != nil {
		v.Release()
		return nil, errors.Wrap(err, "create volume storage bind group")
	}

	sampledLayout, err := dev.Layout(VolumeSampledLayout)
	if err != nil {
		v.Release()
		return nil, err
	}
	v.Sampled, err = dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Volume Sampled BG",
		Layout: sampledLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: v.DensityView},
			{Binding: 1, TextureView: v.NormalView},
			{Binding: 2, Sampler: sampler},
		},
	})
	if err != nil {
		v.Release()
		return nil, errors.Wrap(err, "create volume sampled bind group")
	}

	program, err := lib.Get(shaders.Xor)
	if err != nil {
		v.Release()
		return nil, err
	}
	v.pipeline, err = newComputePipeline(dev, program, XorContract, programCheck{
		Entry:     "cs_main",
		Workgroup: [3]uint32{core.VolumeSize / core.VolumeWorkgroups, core.VolumeSize / core.VolumeWorkgroups, core.VolumeSize / core.VolumeWorkgroups},
	}, log)
	if err != nil {
		v.Release()
		return nil, err
	}
	return v, nil
}

func (v *Volume) createTexture(label string) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := v.dev.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: v.Size, Height: v.Size, DepthOrArrayLayers: v.Size},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension3D,
		Format:        VolumeFormat,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", label)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, errors.Wrapf(err, "create %s view", label)
	}
	return tex, view, nil
}

// Seed runs the generator once and waits for the queue to drain. A second
// call returns ErrAlreadySeeded without touching the GPU.
func (v *Volume) Seed(globals *wgpu.BindGroup) error {
	if v.seeded {
		return ErrAlreadySeeded
	}
	groups, err := XorContract.Resolve(map[string]*wgpu.BindGroup{
		GlobalsLayout.Name:       globals,
		VolumeStorageLayout.Name: v.storage,
	})
	if err != nil {
		return err
	}

	encoder, err := v.dev.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Volume Seed"})
	if err != nil {
		return errors.Wrap(err, "create seed encoder")
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "Xor Volume"})
	pass.SetPipeline(v.pipeline)
	bindAll(groups, func(slot uint32, bg *wgpu.BindGroup) { pass.SetBindGroup(slot, bg, nil) })
	pass.DispatchWorkgroups(core.VolumeWorkgroups, core.VolumeWorkgroups, core.VolumeWorkgroups)
	if err := pass.End(); err != nil {
		return errors.Wrap(err, "end seed pass")
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish seed encoder")
	}
	v.dev.Queue.Submit(cmd)
	v.dev.Poll(true)

	v.dispatches++
	v.seeded = true
	v.log.Debugf("volume seeded: %d^3 in %d^3 workgroups", v.Size, core.VolumeWorkgroups)
	return nil
}

func (v *Volume) Seeded() bool { return v.seeded }

// Dispatches counts generator dispatches. It never exceeds one.
func (v *Volume) Dispatches() int { return v.dispatches }

func (v *Volume) Release() {
	if v.pipeline != nil {
		v.pipeline.Release()
	}
	for _, bg := range []*wgpu.BindGroup{v.Sampled, v.storage} {
		if bg != nil {
			bg.Release()
		}
	}
	for _, view := range []*wgpu.TextureView{v.DensityView, v.NormalView} {
		if view != nil {
			view.Release()
		}
	}
	for _, tex := range []*wgpu.Texture{v.Density, v.Normal} {
		if tex != nil {
			tex.Release()
		}
	}
}
