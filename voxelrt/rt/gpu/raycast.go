package gpu

import (
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/pkg/errors"
)

// TileSize is the raycast workgroup edge in pixels.
const TileSize = 8

const timestampBytes = 16

var RaycastContract = PipelineContract{
	Name:   "raycast",
	Groups: []GroupLayout{GlobalsLayout, CameraLayout, VolumeSampledLayout, HdrStorageLayout},
}

// ProfileSample is one measured raycast pass.
type ProfileSample struct {
	Frame   uint32
	Elapsed time.Duration
}

type RaycasterConfig struct {
	ProfileInterval uint32
	ReadbackTimeout time.Duration
	// TimestampPeriod overrides the device timer period, in nanoseconds per
	// tick. Zero uses the device value.
	TimestampPeriod float64
}

// timestampPeriod picks the tick length used for elapsed times. Devices
// that report no period fall back to 1 ns.
func timestampPeriod(override, device float64) float64 {
	switch {
	case override > 0:
		return override
	case device > 0:
		return device
	}
	return 1
}

// Raycaster fills the HDR target from the volume once per frame. On devices
// with timestamp queries every ProfileInterval-th pass is timed.
type Raycaster struct {
	// OnSample receives each completed measurement.
	OnSample func(ProfileSample)

	dev      *Device
	pipeline *wgpu.ComputePipeline
	target   *HdrTarget
	volume   *Volume
	cfg      RaycasterConfig
	log      vokselis.Logger

	querySet   *wgpu.QuerySet
	resolveBuf *wgpu.Buffer
	readBuf    *wgpu.Buffer
	readback   *Readback

	// encoded is set between copying timestamps for frame encodedAt and
	// requesting their map. queryFrame is the frame being read back.
	encoded    bool
	encodedAt  uint32
	queryFrame uint32

	last    ProfileSample
	sampled bool
}

func NewRaycaster(dev *Device, lib *shaders.Library, target *HdrTarget, volume *Volume, cfg RaycasterConfig, log vokselis.Logger) (*Raycaster, error) {
	log = vokselis.OrNop(log)
	if cfg.ProfileInterval == 0 {
		return nil, errors.New("raycaster: profile interval must be positive")
	}
	program, err := lib.Get(shaders.Raycast)
	if err != nil {
		return nil, err
	}
	r := &Raycaster{dev: dev, target: target, volume: volume, cfg: cfg, log: log}
	r.pipeline, err = newComputePipeline(dev, program, RaycastContract, programCheck{
		Entry:     "single",
		Workgroup: [3]uint32{TileSize, TileSize, 1},
	}, log)
	if err != nil {
		return nil, err
	}
	if dev.Timestamps {
		r.cfg.TimestampPeriod = timestampPeriod(cfg.TimestampPeriod, dev.TimestampPeriod)
		log.Debugf("raycast timestamp period %gns", r.cfg.TimestampPeriod)
		if err := r.createQueries(); err != nil {
			r.Release()
			return nil, err
		}
	} else {
		log.Warnf("timestamp queries unavailable, raycast profiling disabled")
	}
	return r, nil
}

func (r *Raycaster) createQueries() error {
	var err error
	r.querySet, err = r.dev.Device.CreateQuerySet(&wgpu.QuerySetDescriptor{
		Label: "Raycast Timestamps",
		Type:  wgpu.QueryTypeTimestamp,
		Count: 2,
	})
	if err != nil {
		return errors.Wrap(err, "create query set")
	}
	r.resolveBuf, err = r.dev.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamp Resolve",
		Size:  timestampBytes,
		Usage: wgpu.BufferUsageQueryResolve | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return errors.Wrap(err, "create timestamp resolve buffer")
	}
	r.readBuf, err = r.dev.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamp Readback",
		Size:  timestampBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "create timestamp readback buffer")
	}
	r.readback = NewBufferReadback(r.dev, r.readBuf, r.cfg.ReadbackTimeout)
	return nil
}

// profiled reports whether frame's pass gets timestamp writes.
func (r *Raycaster) profiled(frame uint32) bool {
	return r.readback != nil && frame%r.cfg.ProfileInterval == 0 && r.readback.Idle() && !r.encoded
}

// Encode records the raycast pass for frame into encoder.
func (r *Raycaster) Encode(encoder *wgpu.CommandEncoder, frame uint32, globals, camera *wgpu.BindGroup) error {
	if !r.volume.Seeded() {
		return ErrVolumeNotSeeded
	}
	groups, err := RaycastContract.Resolve(map[string]*wgpu.BindGroup{
		GlobalsLayout.Name:       globals,
		CameraLayout.Name:        camera,
		VolumeSampledLayout.Name: r.volume.Sampled,
		HdrStorageLayout.Name:    r.target.Storage,
	})
	if err != nil {
		return err
	}

	profile := r.profiled(frame)
	desc := &wgpu.ComputePassDescriptor{Label: "Raycast"}
	if profile {
		desc.TimestampWrites = &wgpu.ComputePassTimestampWrites{
			QuerySet:                  r.querySet,
			BeginningOfPassWriteIndex: 0,
			EndOfPassWriteIndex:       1,
		}
	}
	pass := encoder.BeginComputePass(desc)
	pass.SetPipeline(r.pipeline)
	bindAll(groups, func(slot uint32, bg *wgpu.BindGroup) { pass.SetBindGroup(slot, bg, nil) })
	x, y := core.Dispatch2D(r.target.Width, r.target.Height, TileSize, TileSize)
	pass.DispatchWorkgroups(x, y, 1)
	if err := pass.End(); err != nil {
		return errors.Wrap(err, "end raycast pass")
	}

	if profile {
		encoder.ResolveQuerySet(r.querySet, 0, 2, r.resolveBuf, 0)
		encoder.CopyBufferToBuffer(r.resolveBuf, 0, r.readBuf, 0, timestampBytes)
		r.encoded = true
		r.encodedAt = frame
	}
	return nil
}

// Dispatch records the raycast pass for frame in its own encoder, submits
// it and, when the pass was timed, requests the timestamp map.
func (r *Raycaster) Dispatch(frame uint32, globals, camera *wgpu.BindGroup) error {
	encoder, err := r.dev.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "Volume Encoder"})
	if err != nil {
		return errors.Wrap(err, "create raycast encoder")
	}
	if err := r.Encode(encoder, frame, globals, camera); err != nil {
		encoder.Release()
		return err
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return errors.Wrap(err, "finish raycast encoder")
	}
	r.dev.Queue.Submit(cmd)
	r.requestPending()
	return nil
}

func (r *Raycaster) requestPending() {
	if !r.encoded {
		return
	}
	r.encoded = false
	if err := r.readback.Request(); err != nil {
		r.log.Warnf("timestamp readback: %v", err)
		return
	}
	r.queryFrame = r.encodedAt
}

// Profile reads back the last timed pass on every ProfileInterval-th frame.
// The wait is bounded by the readback timeout; a read that times out stays
// pending until the next profiling frame.
func (r *Raycaster) Profile(frame uint32) {
	if r.readback == nil || frame%r.cfg.ProfileInterval != 0 {
		return
	}
	r.requestPending()
	if r.readback.Idle() {
		return
	}
	var sample ProfileSample
	var decodeErr error
	err := r.readback.TryRead(func(data []byte) {
		start, end, err := decodeTimestamps(data)
		if err != nil {
			decodeErr = err
			return
		}
		sample = ProfileSample{Frame: r.queryFrame, Elapsed: TimestampElapsed(start, end, r.cfg.TimestampPeriod)}
	})
	switch {
	case errors.Cause(err) == ErrReadbackTimeout:
		r.log.Debugf("timestamps of frame %d not ready at frame %d", r.queryFrame, frame)
		return
	case err != nil:
		r.log.Warnf("timestamp readback: %v", err)
		return
	case decodeErr != nil:
		r.log.Warnf("timestamp readback: %v", decodeErr)
		return
	}
	r.last, r.sampled = sample, true
	r.log.Infof("raycast pass: %v (frame %d)", sample.Elapsed, sample.Frame)
	if r.OnSample != nil {
		r.OnSample(sample)
	}
}

// LastSample returns the most recent measurement.
func (r *Raycaster) LastSample() (ProfileSample, bool) { return r.last, r.sampled }

// Profiling reports whether timestamp queries are in use.
func (r *Raycaster) Profiling() bool { return r.readback != nil }

func (r *Raycaster) Release() {
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.querySet != nil {
		r.querySet.Release()
	}
	for _, b := range []*wgpu.Buffer{r.resolveBuf, r.readBuf} {
		if b != nil {
			b.Release()
		}
	}
}
