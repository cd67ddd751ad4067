package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/pkg/errors"
)

// UniformBuffers holds the per-frame globals block and the camera block,
// each with its bind group.
type UniformBuffers struct {
	Globals      *wgpu.Buffer
	Camera       *wgpu.Buffer
	GlobalsGroup *wgpu.BindGroup
	CameraGroup  *wgpu.BindGroup

	queue   *wgpu.Queue
	scratch [core.UniformSize]byte
}

func NewUniformBuffers(dev *Device) (*UniformBuffers, error) {
	u := &UniformBuffers{queue: dev.Queue}
	var err error
	if u.Globals, u.GlobalsGroup, err = uniformBlock(dev, "Globals", GlobalsLayout, core.UniformSize); err != nil {
		return nil, err
	}
	if u.Camera, u.CameraGroup, err = uniformBlock(dev, "Camera", CameraLayout, core.CameraUniformSize); err != nil {
		u.Release()
		return nil, err
	}
	return u, nil
}

func uniformBlock(dev *Device, label string, g GroupLayout, size uint64) (*wgpu.Buffer, *wgpu.BindGroup, error) {
	buf, err := dev.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " UB",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s buffer", label)
	}
	layout, err := dev.Layout(g)
	if err != nil {
		buf.Release()
		return nil, nil, err
	}
	bg, err := dev.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label + " BG",
		Layout:  layout,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: buf, Size: size}},
	})
	if err != nil {
		buf.Release()
		return nil, nil, errors.Wrapf(err, "create %s bind group", label)
	}
	return buf, bg, nil
}

// Upload writes both blocks. Called once per frame from the update step.
func (u *UniformBuffers) Upload(un *core.Uniform, cam *core.OrbitCamera) {
	un.Put(u.scratch[:])
	u.queue.WriteBuffer(u.Globals, 0, u.scratch[:])
	u.queue.WriteBuffer(u.Camera, 0, cam.Bytes())
}

func (u *UniformBuffers) Release() {
	for _, bg := range []*wgpu.BindGroup{u.GlobalsGroup, u.CameraGroup} {
		if bg != nil {
			bg.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{u.Globals, u.Camera} {
		if b != nil {
			b.Release()
		}
	}
}
