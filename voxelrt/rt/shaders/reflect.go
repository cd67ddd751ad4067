package shaders

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/pkg/errors"
)

type BindingKind int

const (
	BindingUnknown BindingKind = iota
	BindingUniformBuffer
	BindingStorageBuffer
	BindingSampledTexture
	BindingStorageTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniformBuffer:
		return "uniform"
	case BindingStorageBuffer:
		return "storage"
	case BindingSampledTexture:
		return "texture"
	case BindingStorageTexture:
		return "storage_texture"
	case BindingSampler:
		return "sampler"
	}
	return "unknown"
}

type TextureDim int

const (
	DimNone TextureDim = iota
	Dim1D
	Dim2D
	Dim3D
	DimCube
)

func (d TextureDim) String() string {
	switch d {
	case Dim1D:
		return "1d"
	case Dim2D:
		return "2d"
	case Dim3D:
		return "3d"
	case DimCube:
		return "cube"
	}
	return "-"
}

type Stage int

const (
	StageOther Stage = iota
	StageVertex
	StageFragment
	StageCompute
)

// Binding is one @group/@binding resource declared by a program.
type Binding struct {
	Name    string
	Group   uint32
	Binding uint32
	Kind    BindingKind
	Dim     TextureDim
	// WriteOnly is set for storage textures declared with write access.
	WriteOnly bool
}

func (b Binding) String() string {
	s := fmt.Sprintf("@group(%d) @binding(%d) %s: %s", b.Group, b.Binding, b.Name, b.Kind)
	if b.Dim != DimNone {
		s += "_" + b.Dim.String()
	}
	return s
}

type EntryPoint struct {
	Name      string
	Stage     Stage
	Workgroup [3]uint32
}

type Reflection struct {
	Bindings    []Binding
	EntryPoints []EntryPoint
}

// Reflect parses and lowers source with naga and lists its resource
// bindings, sorted by group then binding, and its entry points.
func Reflect(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, errors.Wrap(err, "reflect")
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, errors.Wrap(err, "reflect")
	}

	r := &Reflection{}
	for _, gv := range mod.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{Name: gv.Name, Group: gv.Binding.Group, Binding: gv.Binding.Binding}
		switch gv.Space {
		case ir.SpaceUniform:
			b.Kind = BindingUniformBuffer
		case ir.SpaceStorage:
			b.Kind = BindingStorageBuffer
		case ir.SpaceHandle:
			if int(gv.Type) < len(mod.Types) {
				classifyHandle(&b, mod.Types[gv.Type].Inner)
			}
		}
		r.Bindings = append(r.Bindings, b)
	}
	sort.Slice(r.Bindings, func(i, j int) bool {
		if r.Bindings[i].Group != r.Bindings[j].Group {
			return r.Bindings[i].Group < r.Bindings[j].Group
		}
		return r.Bindings[i].Binding < r.Bindings[j].Binding
	})

	for _, ep := range mod.EntryPoints {
		e := EntryPoint{Name: ep.Name, Workgroup: ep.Workgroup}
		switch ep.Stage {
		case ir.StageVertex:
			e.Stage = StageVertex
		case ir.StageFragment:
			e.Stage = StageFragment
		case ir.StageCompute:
			e.Stage = StageCompute
		}
		r.EntryPoints = append(r.EntryPoints, e)
	}
	return r, nil
}

func classifyHandle(b *Binding, inner ir.TypeInner) {
	switch t := inner.(type) {
	case ir.SamplerType:
		b.Kind = BindingSampler
	case ir.ImageType:
		b.Kind = BindingSampledTexture
		if t.Class == ir.ImageClassStorage {
			b.Kind = BindingStorageTexture
			b.WriteOnly = t.StorageAccess == ir.StorageAccessWrite
		}
		switch t.Dim {
		case ir.Dim1D:
			b.Dim = Dim1D
		case ir.Dim2D:
			b.Dim = Dim2D
		case ir.Dim3D:
			b.Dim = Dim3D
		case ir.DimCube:
			b.Dim = DimCube
		}
	}
}

// Group returns the bindings of one bind group in binding order.
func (r *Reflection) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// GroupCount is one past the highest group index in use.
func (r *Reflection) GroupCount() int {
	n := 0
	for _, b := range r.Bindings {
		if int(b.Group)+1 > n {
			n = int(b.Group) + 1
		}
	}
	return n
}

func (r *Reflection) EntryPoint(name string) (EntryPoint, bool) {
	for _, ep := range r.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// ErrUnsupported marks programs the offline compiler cannot translate yet.
// The GPU driver compiles them independently, so callers treat it as a
// warning.
var ErrUnsupported = errors.New("shader feature not supported by offline compiler")

// Preflight runs the full naga pipeline (parse, lower, validate, SPIR-V) over
// source to surface errors before the device sees the program.
func Preflight(source string) error {
	if _, err := naga.Compile(source); err != nil {
		if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
			return errors.Wrap(ErrUnsupported, err.Error())
		}
		return errors.Wrap(err, "preflight")
	}
	return nil
}
