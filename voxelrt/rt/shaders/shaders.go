package shaders

import (
	_ "embed"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//go:embed xor.wgsl
var XorWGSL string

//go:embed raycast.wgsl
var RaycastWGSL string

//go:embed present.wgsl
var PresentWGSL string

//go:embed overlay.wgsl
var OverlayWGSL string

// Program names registered by NewLibrary.
const (
	Xor     = "xor"
	Raycast = "raycast"
	Present = "present"
	Overlay = "overlay"
)

type AssetId string

type Program struct {
	Id     AssetId
	Name   string
	Source string
}

// Label is used for GPU object labels so validation messages name both the
// program and the asset.
func (p *Program) Label() string {
	return p.Name + "#" + string(p.Id)[:8]
}

// Library maps program names to WGSL sources.
type Library struct {
	programs map[string]*Program
}

// NewLibrary registers the embedded programs.
func NewLibrary() *Library {
	l := &Library{programs: make(map[string]*Program)}
	l.Register(Xor, XorWGSL)
	l.Register(Raycast, RaycastWGSL)
	l.Register(Present, PresentWGSL)
	l.Register(Overlay, OverlayWGSL)
	return l
}

// Register adds or replaces a program and returns it with a fresh id.
func (l *Library) Register(name, source string) *Program {
	p := &Program{Id: AssetId(uuid.NewString()), Name: name, Source: source}
	l.programs[name] = p
	return p
}

func (l *Library) Get(name string) (*Program, error) {
	p, ok := l.programs[name]
	if !ok {
		return nil, errors.Errorf("shader program %q not registered", name)
	}
	return p, nil
}

func (l *Library) Names() []string {
	names := make([]string, 0, len(l.programs))
	for n := range l.programs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
