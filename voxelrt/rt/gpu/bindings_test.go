package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContracts_slotOrder(t *testing.T) {
	assert.Equal(t, GlobalsLayout.Name, RaycastContract.Groups[SlotGlobals].Name)
	assert.Equal(t, CameraLayout.Name, RaycastContract.Groups[SlotCamera].Name)
	assert.Equal(t, VolumeSampledLayout.Name, RaycastContract.Groups[SlotVolume].Name)
	assert.Equal(t, HdrStorageLayout.Name, RaycastContract.Groups[SlotTarget].Name)

	assert.Equal(t, GlobalsLayout.Name, PresentContract.Groups[SlotGlobals].Name)
	assert.Equal(t, CameraLayout.Name, PresentContract.Groups[SlotCamera].Name)

	for _, c := range []PipelineContract{XorContract, RaycastContract, PresentContract, OverlayContract} {
		assert.NoError(t, c.Validate(), c.Name)
	}
}

func TestPipelineContract_Validate(t *testing.T) {
	uniform := LayoutEntry{Binding: 0, Kind: shaders.BindingUniformBuffer, Visibility: wgpu.ShaderStageCompute}
	tests := []struct {
		name     string
		contract PipelineContract
	}{
		{"no groups", PipelineContract{Name: "empty"}},
		{"layout twice", PipelineContract{Name: "dup", Groups: []GroupLayout{GlobalsLayout, GlobalsLayout}}},
		{"unnamed layout", PipelineContract{Name: "anon", Groups: []GroupLayout{{Entries: []LayoutEntry{uniform}}}}},
		{"empty layout", PipelineContract{Name: "hollow", Groups: []GroupLayout{{Name: "hollow"}}}},
		{"binding twice", PipelineContract{Name: "twice", Groups: []GroupLayout{{Name: "g", Entries: []LayoutEntry{uniform, uniform}}}}},
		{"no kind", PipelineContract{Name: "kindless", Groups: []GroupLayout{{Name: "g", Entries: []LayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageCompute}}}}}},
		{"invisible", PipelineContract{Name: "hidden", Groups: []GroupLayout{{Name: "g", Entries: []LayoutEntry{{Binding: 0, Kind: shaders.BindingSampler}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.contract.Validate()
			require.Error(t, err)
			assert.Equal(t, ErrContractMismatch, errors.Cause(err))
		})
	}
}

func volumeReflection() *shaders.Reflection {
	return &shaders.Reflection{Bindings: []shaders.Binding{
		{Name: "un", Group: 0, Binding: 0, Kind: shaders.BindingUniformBuffer},
		{Name: "density", Group: 1, Binding: 0, Kind: shaders.BindingStorageTexture, Dim: shaders.Dim3D, WriteOnly: true},
		{Name: "normal", Group: 1, Binding: 1, Kind: shaders.BindingStorageTexture, Dim: shaders.Dim3D, WriteOnly: true},
	}}
}

func TestPipelineContract_Check(t *testing.T) {
	require.NoError(t, XorContract.Check(volumeReflection()))

	tests := []struct {
		name   string
		mutate func(r *shaders.Reflection)
		want   string
	}{
		{"wrong kind", func(r *shaders.Reflection) { r.Bindings[0].Kind = shaders.BindingStorageBuffer }, "declares uniform"},
		{"wrong dimension", func(r *shaders.Reflection) { r.Bindings[1].Dim = shaders.Dim2D }, "3d dimension"},
		{"read write storage", func(r *shaders.Reflection) { r.Bindings[2].WriteOnly = false }, "write access"},
		{"undeclared entry", func(r *shaders.Reflection) { r.Bindings = r.Bindings[:2] }, "not declared by program"},
		{"unknown binding", func(r *shaders.Reflection) { r.Bindings[2].Binding = 7 }, "not in layout"},
		{"extra group", func(r *shaders.Reflection) {
			r.Bindings = append(r.Bindings, shaders.Binding{Name: "extra", Group: 2, Kind: shaders.BindingSampler})
		}, "program uses 3 groups"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := volumeReflection()
			tt.mutate(r)
			err := XorContract.Check(r)
			require.Error(t, err)
			assert.Equal(t, ErrContractMismatch, errors.Cause(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// The embedded programs must agree with the contracts they are built with.
func TestPipelineContract_embeddedPrograms(t *testing.T) {
	tests := []struct {
		contract PipelineContract
		source   string
	}{
		{XorContract, shaders.XorWGSL},
		{RaycastContract, shaders.RaycastWGSL},
		{PresentContract, shaders.PresentWGSL},
		{OverlayContract, shaders.OverlayWGSL},
	}
	for _, tt := range tests {
		t.Run(tt.contract.Name, func(t *testing.T) {
			r, err := shaders.Reflect(tt.source)
			if err != nil {
				t.Skipf("naga cannot reflect %s: %v", tt.contract.Name, err)
			}
			assert.NoError(t, tt.contract.Check(r))
		})
	}
}

func TestPipelineContract_Slot(t *testing.T) {
	slot, err := RaycastContract.Slot(HdrStorageLayout.Name)
	require.NoError(t, err)
	assert.Equal(t, SlotTarget, slot)

	_, err = RaycastContract.Slot(AtlasLayout.Name)
	assert.Equal(t, ErrContractMismatch, errors.Cause(err))
}

func TestPipelineContract_Resolve(t *testing.T) {
	globals, camera, hdr := &wgpu.BindGroup{}, &wgpu.BindGroup{}, &wgpu.BindGroup{}

	groups, err := PresentContract.Resolve(map[string]*wgpu.BindGroup{
		HdrSampledLayout.Name: hdr,
		GlobalsLayout.Name:    globals,
		CameraLayout.Name:     camera,
	})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Same(t, globals, groups[SlotGlobals])
	assert.Same(t, camera, groups[SlotCamera])
	assert.Same(t, hdr, groups[2])

	var order []uint32
	bindAll(groups, func(slot uint32, bg *wgpu.BindGroup) { order = append(order, slot) })
	assert.Equal(t, []uint32{0, 1, 2}, order)

	_, err = PresentContract.Resolve(map[string]*wgpu.BindGroup{
		GlobalsLayout.Name: globals,
		CameraLayout.Name:  camera,
	})
	assert.Equal(t, ErrContractMismatch, errors.Cause(err), "missing slot")

	_, err = PresentContract.Resolve(map[string]*wgpu.BindGroup{
		GlobalsLayout.Name:    globals,
		CameraLayout.Name:     nil,
		HdrSampledLayout.Name: hdr,
	})
	assert.Equal(t, ErrContractMismatch, errors.Cause(err), "nil group")

	_, err = PresentContract.Resolve(map[string]*wgpu.BindGroup{
		GlobalsLayout.Name:    globals,
		CameraLayout.Name:     camera,
		HdrSampledLayout.Name: hdr,
		AtlasLayout.Name:      hdr,
	})
	assert.Equal(t, ErrContractMismatch, errors.Cause(err), "unknown layout")
}

func TestGroupLayout_Descriptor(t *testing.T) {
	d := VolumeStorageLayout.Descriptor()
	assert.Equal(t, VolumeStorageLayout.Name, d.Label)
	require.Len(t, d.Entries, 2)
	for _, e := range d.Entries {
		assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, e.StorageTexture.Access)
		assert.Equal(t, VolumeFormat, e.StorageTexture.Format)
		assert.Equal(t, wgpu.TextureViewDimension3D, e.StorageTexture.ViewDimension)
	}

	d = HdrSampledLayout.Descriptor()
	require.Len(t, d.Entries, 2)
	assert.Equal(t, wgpu.TextureViewDimension2D, d.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, d.Entries[1].Sampler.Type)

	d = GlobalsLayout.Descriptor()
	assert.Equal(t, wgpu.BufferBindingTypeUniform, d.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(48), d.Entries[0].Buffer.MinBindingSize)
}

func TestCheckProgram_rejectsInvalidSource(t *testing.T) {
	p := shaders.NewLibrary().Register("broken", "fn broken( {")
	err := checkProgram(p, XorContract, nil, vokselis.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken#")
	assert.NotEqual(t, shaders.ErrUnsupported, errors.Cause(err))
}
