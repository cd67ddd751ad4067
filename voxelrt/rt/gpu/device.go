package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/pkg/errors"
)

type AdapterInfo struct {
	Name    string
	Backend string
}

// Device bundles the adapter, logical device and queue together with the
// bind group layouts created on it.
type Device struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Info     AdapterInfo

	// Timestamps is set when the device was created with timestamp queries.
	Timestamps bool
	// TimestampPeriod is the queue's timer period in nanoseconds per tick,
	// zero without timestamp queries.
	TimestampPeriod float64

	layouts map[string]*wgpu.BindGroupLayout
	log     vokselis.Logger
}

// NewDevice requests a high performance adapter compatible with surface
// (nil for offscreen rendering) and a device on it. Timestamp queries are
// enabled when the adapter offers them.
func NewDevice(instance *wgpu.Instance, surface *wgpu.Surface, log vokselis.Logger) (*Device, error) {
	log = vokselis.OrNop(log)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, errors.Wrap(ErrNoAdapter, err.Error())
	}
	if adapter == nil {
		return nil, ErrNoAdapter
	}

	info := adapter.GetInfo()
	d := &Device{
		Instance: instance,
		Adapter:  adapter,
		Info:     AdapterInfo{Name: info.Name, Backend: info.BackendType.String()},
		layouts:  make(map[string]*wgpu.BindGroupLayout),
		log:      log,
	}

	var features []wgpu.FeatureName
	if adapter.HasFeature(wgpu.FeatureNameTimestampQuery) {
		features = append(features, wgpu.FeatureNameTimestampQuery)
		d.Timestamps = true
	}
	d.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "vokselis device",
		RequiredFeatures: features,
	})
	if err != nil {
		adapter.Release()
		return nil, errors.Wrap(err, "request device")
	}
	d.Queue = d.Device.GetQueue()
	if d.Timestamps {
		d.TimestampPeriod = float64(d.Queue.GetTimestampPeriod())
	}

	log.Infof("adapter %s (%s), timestamps=%v period=%gns", d.Info.Name, d.Info.Backend, d.Timestamps, d.TimestampPeriod)
	return d, nil
}

// Layout returns the bind group layout for g, creating it on first use.
func (d *Device) Layout(g GroupLayout) (*wgpu.BindGroupLayout, error) {
	if l, ok := d.layouts[g.Name]; ok {
		return l, nil
	}
	if err := g.validate(); err != nil {
		return nil, errors.Wrap(ErrContractMismatch, err.Error())
	}
	l, err := d.Device.CreateBindGroupLayout(g.Descriptor())
	if err != nil {
		return nil, errors.Wrapf(err, "create layout %s", g.Name)
	}
	d.layouts[g.Name] = l
	return l, nil
}

// PipelineLayout creates the pipeline layout for a validated contract.
func (d *Device) PipelineLayout(c PipelineContract) (*wgpu.PipelineLayout, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	layouts := make([]*wgpu.BindGroupLayout, 0, len(c.Groups))
	for _, g := range c.Groups {
		l, err := d.Layout(g)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	pl, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            c.Name,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create pipeline layout %s", c.Name)
	}
	return pl, nil
}

// Poll drives pending callbacks. With wait set it blocks until the queue is
// idle.
func (d *Device) Poll(wait bool) {
	d.Device.Poll(wait, nil)
}

func (d *Device) Release() {
	for name, l := range d.layouts {
		l.Release()
		delete(d.layouts, name)
	}
	if d.Queue != nil {
		d.Queue.Release()
	}
	if d.Device != nil {
		d.Device.Release()
	}
	if d.Adapter != nil {
		d.Adapter.Release()
	}
}
