package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

// programCheck is what a pipeline expects of its program beyond the binding
// contract.
type programCheck struct {
	Entry string
	Stage shaders.Stage
	// Workgroup is compared for compute entries when non-zero.
	Workgroup [3]uint32
}

// checkProgram validates the contract, compiles the program offline and
// compares the contract with the bindings the program declares. When the
// offline compiler cannot handle the program the checks are skipped with a
// warning and the driver has the last word.
func checkProgram(p *shaders.Program, c PipelineContract, want []programCheck, log vokselis.Logger) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := shaders.Preflight(p.Source); err != nil {
		if errors.Cause(err) != shaders.ErrUnsupported {
			return errors.Wrap(err, p.Label())
		}
		log.Warnf("preflight skipped for %s: %v", p.Label(), err)
	}
	r, err := shaders.Reflect(p.Source)
	if err != nil {
		log.Warnf("binding check skipped for %s: %v", p.Label(), err)
		return nil
	}
	if err := c.Check(r); err != nil {
		return errors.Wrap(err, p.Label())
	}
	for _, w := range want {
		ep, ok := r.EntryPoint(w.Entry)
		if !ok {
			return errors.Wrapf(ErrContractMismatch, "%s: no entry point %q", p.Label(), w.Entry)
		}
		if ep.Stage != w.Stage {
			return errors.Wrapf(ErrContractMismatch, "%s: entry point %q has the wrong stage", p.Label(), w.Entry)
		}
		if w.Workgroup != [3]uint32{} && ep.Workgroup != w.Workgroup {
			return errors.Wrapf(ErrContractMismatch, "%s: %q workgroup %v, expected %v", p.Label(), w.Entry, ep.Workgroup, w.Workgroup)
		}
	}
	return nil
}

// prepareProgram checks p against c and returns its shader module together
// with the pipeline layout built from c.
func prepareProgram(dev *Device, p *shaders.Program, c PipelineContract, want []programCheck, log vokselis.Logger) (*wgpu.ShaderModule, *wgpu.PipelineLayout, error) {
	if err := checkProgram(p, c, want, log); err != nil {
		return nil, nil, err
	}
	module, err := dev.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          p.Label(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.Source},
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create shader module %s", p.Label())
	}
	layout, err := dev.PipelineLayout(c)
	if err != nil {
		module.Release()
		return nil, nil, err
	}
	return module, layout, nil
}

func newComputePipeline(dev *Device, p *shaders.Program, c PipelineContract, want programCheck, log vokselis.Logger) (*wgpu.ComputePipeline, error) {
	want.Stage = shaders.StageCompute
	module, layout, err := prepareProgram(dev, p, c, []programCheck{want}, log)
	if err != nil {
		return nil, err
	}
	defer module.Release()
	defer layout.Release()
	pipeline, err := dev.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  c.Name,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: want.Entry,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create compute pipeline %s", c.Name)
	}
	return pipeline, nil
}
