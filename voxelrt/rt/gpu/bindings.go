package gpu

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

// Slot ordinals shared by the raycast and present pipelines.
const (
	SlotGlobals uint32 = 0
	SlotCamera  uint32 = 1
	SlotVolume  uint32 = 2
	SlotTarget  uint32 = 3
)

// LayoutEntry describes one binding of a bind group layout.
type LayoutEntry struct {
	Binding    uint32
	Kind       shaders.BindingKind
	Dim        shaders.TextureDim
	Visibility wgpu.ShaderStage
	// MinSize applies to buffers.
	MinSize uint64
	// Format applies to storage textures.
	Format wgpu.TextureFormat
}

// GroupLayout is a named bind group layout. Layouts with the same name are
// created once per device and shared between pipelines.
type GroupLayout struct {
	Name    string
	Entries []LayoutEntry
}

var (
	GlobalsLayout = GroupLayout{Name: "globals", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingUniformBuffer, Visibility: allStages, MinSize: core.UniformSize},
	}}
	CameraLayout = GroupLayout{Name: "camera", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingUniformBuffer, Visibility: allStages, MinSize: core.CameraUniformSize},
	}}
	VolumeStorageLayout = GroupLayout{Name: "volume-storage", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingStorageTexture, Dim: shaders.Dim3D, Visibility: wgpu.ShaderStageCompute, Format: VolumeFormat},
		{Binding: 1, Kind: shaders.BindingStorageTexture, Dim: shaders.Dim3D, Visibility: wgpu.ShaderStageCompute, Format: VolumeFormat},
	}}
	VolumeSampledLayout = GroupLayout{Name: "volume-sampled", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingSampledTexture, Dim: shaders.Dim3D, Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageFragment},
		{Binding: 1, Kind: shaders.BindingSampledTexture, Dim: shaders.Dim3D, Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageFragment},
		{Binding: 2, Kind: shaders.BindingSampler, Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageFragment},
	}}
	HdrStorageLayout = GroupLayout{Name: "hdr-storage", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingStorageTexture, Dim: shaders.Dim2D, Visibility: wgpu.ShaderStageCompute, Format: HdrFormat},
	}}
	HdrSampledLayout = GroupLayout{Name: "hdr-sampled", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingSampledTexture, Dim: shaders.Dim2D, Visibility: wgpu.ShaderStageFragment | wgpu.ShaderStageCompute},
		{Binding: 1, Kind: shaders.BindingSampler, Visibility: wgpu.ShaderStageFragment | wgpu.ShaderStageCompute},
	}}
	AtlasLayout = GroupLayout{Name: "atlas", Entries: []LayoutEntry{
		{Binding: 0, Kind: shaders.BindingSampledTexture, Dim: shaders.Dim2D, Visibility: wgpu.ShaderStageFragment},
		{Binding: 1, Kind: shaders.BindingSampler, Visibility: wgpu.ShaderStageFragment},
	}}
)

var allStages = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute

func (g GroupLayout) entry(binding uint32) (LayoutEntry, bool) {
	for _, e := range g.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return LayoutEntry{}, false
}

func (g GroupLayout) validate() error {
	if g.Name == "" {
		return errors.New("group layout without a name")
	}
	if len(g.Entries) == 0 {
		return errors.Errorf("group layout %q has no entries", g.Name)
	}
	seen := make(map[uint32]bool, len(g.Entries))
	for _, e := range g.Entries {
		if seen[e.Binding] {
			return errors.Errorf("group layout %q: binding %d declared twice", g.Name, e.Binding)
		}
		seen[e.Binding] = true
		if e.Kind == shaders.BindingUnknown {
			return errors.Errorf("group layout %q: binding %d has no kind", g.Name, e.Binding)
		}
		if e.Visibility == wgpu.ShaderStageNone {
			return errors.Errorf("group layout %q: binding %d is not visible to any stage", g.Name, e.Binding)
		}
	}
	return nil
}

// Descriptor converts the layout into its wgpu form.
func (g GroupLayout) Descriptor() *wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(g.Entries))
	for _, e := range g.Entries {
		le := wgpu.BindGroupLayoutEntry{Binding: e.Binding, Visibility: e.Visibility}
		switch e.Kind {
		case shaders.BindingUniformBuffer:
			le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: e.MinSize}
		case shaders.BindingStorageBuffer:
			le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: e.MinSize}
		case shaders.BindingSampledTexture:
			le.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: viewDimension(e.Dim),
			}
		case shaders.BindingStorageTexture:
			le.StorageTexture = wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        e.Format,
				ViewDimension: viewDimension(e.Dim),
			}
		case shaders.BindingSampler:
			le.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		}
		entries = append(entries, le)
	}
	return &wgpu.BindGroupLayoutDescriptor{Label: g.Name, Entries: entries}
}

func viewDimension(d shaders.TextureDim) wgpu.TextureViewDimension {
	switch d {
	case shaders.Dim1D:
		return wgpu.TextureViewDimension1D
	case shaders.Dim3D:
		return wgpu.TextureViewDimension3D
	case shaders.DimCube:
		return wgpu.TextureViewDimensionCube
	}
	return wgpu.TextureViewDimension2D
}

// PipelineContract fixes which named group layout occupies each slot of a
// pipeline. Groups[i] is bound at slot i.
type PipelineContract struct {
	Name   string
	Groups []GroupLayout
}

// Validate checks the contract on its own: every slot filled, no layout
// bound twice, every layout well formed.
func (c PipelineContract) Validate() error {
	if len(c.Groups) == 0 {
		return errors.Wrapf(ErrContractMismatch, "%s: no groups", c.Name)
	}
	seen := make(map[string]int, len(c.Groups))
	for i, g := range c.Groups {
		if err := g.validate(); err != nil {
			return errors.Wrapf(ErrContractMismatch, "%s slot %d: %v", c.Name, i, err)
		}
		if prev, ok := seen[g.Name]; ok {
			return errors.Wrapf(ErrContractMismatch, "%s: layout %q bound at slots %d and %d", c.Name, g.Name, prev, i)
		}
		seen[g.Name] = i
	}
	return nil
}

// Check compares the contract with the bindings a program declares. Every
// declared binding must match a contract entry of the same kind and
// dimension, and every contract entry must be declared.
func (c PipelineContract) Check(r *shaders.Reflection) error {
	var problems []string
	if n := r.GroupCount(); n > len(c.Groups) {
		problems = append(problems, fmt.Sprintf("program uses %d groups, contract has %d", n, len(c.Groups)))
	}
	for _, b := range r.Bindings {
		if int(b.Group) >= len(c.Groups) {
			continue
		}
		g := c.Groups[b.Group]
		e, ok := g.entry(b.Binding)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s not in layout %q", b, g.Name))
			continue
		}
		if e.Kind != b.Kind {
			problems = append(problems, fmt.Sprintf("%s: layout %q declares %s", b, g.Name, e.Kind))
			continue
		}
		if b.Dim != shaders.DimNone && e.Dim != b.Dim {
			problems = append(problems, fmt.Sprintf("%s: layout %q declares %s dimension", b, g.Name, e.Dim))
		}
		if b.Kind == shaders.BindingStorageTexture && !b.WriteOnly {
			problems = append(problems, fmt.Sprintf("%s: layout %q only allows write access", b, g.Name))
		}
	}
	for slot, g := range c.Groups {
		declared := r.Group(uint32(slot))
		for _, e := range g.Entries {
			found := false
			for _, b := range declared {
				if b.Binding == e.Binding {
					found = true
					break
				}
			}
			if !found {
				problems = append(problems, fmt.Sprintf("layout %q binding %d (slot %d) not declared by program", g.Name, e.Binding, slot))
			}
		}
	}
	if len(problems) > 0 {
		return errors.Wrapf(ErrContractMismatch, "%s: %s", c.Name, strings.Join(problems, "; "))
	}
	return nil
}

// Slot returns the slot the named layout is bound at.
func (c PipelineContract) Slot(name string) (uint32, error) {
	for i, g := range c.Groups {
		if g.Name == name {
			return uint32(i), nil
		}
	}
	return 0, errors.Wrapf(ErrContractMismatch, "%s: no layout %q", c.Name, name)
}

// Resolve orders named bind groups by slot. Every slot must be supplied and
// no unknown names are accepted.
func (c PipelineContract) Resolve(groups map[string]*wgpu.BindGroup) ([]*wgpu.BindGroup, error) {
	out := make([]*wgpu.BindGroup, len(c.Groups))
	for i, g := range c.Groups {
		bg, ok := groups[g.Name]
		if !ok || bg == nil {
			return nil, errors.Wrapf(ErrContractMismatch, "%s: slot %d (%s) not bound", c.Name, i, g.Name)
		}
		out[i] = bg
	}
	for name := range groups {
		if _, err := c.Slot(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// bindAll hands resolved groups to set at their slot ordinals.
func bindAll(groups []*wgpu.BindGroup, set func(slot uint32, bg *wgpu.BindGroup)) {
	for i, bg := range groups {
		set(uint32(i), bg)
	}
}
