package gpu

import (
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/gekko3d/vokselis/voxelrt/rt/shaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDevice skips the test when no adapter is available.
func newTestDevice(t *testing.T) *Device {
	t.Helper()
	if testing.Short() {
		t.Skip("GPU test skipped in short mode")
	}
	instance := wgpu.CreateInstance(nil)
	dev, err := NewDevice(instance, nil, vokselis.NewNopLogger())
	if err != nil {
		instance.Release()
		t.Skipf("no GPU adapter: %v", err)
	}
	t.Cleanup(func() {
		dev.Release()
		instance.Release()
	})
	return dev
}

func TestDevice_LayoutCache(t *testing.T) {
	dev := newTestDevice(t)
	a, err := dev.Layout(GlobalsLayout)
	require.NoError(t, err)
	b, err := dev.Layout(GlobalsLayout)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestEndToEnd_offscreen(t *testing.T) {
	dev := newTestDevice(t)
	log := vokselis.NewNopLogger()
	lib := shaders.NewLibrary()

	surface, err := NewOffscreenSurface(dev, 1280, 720)
	require.NoError(t, err)
	defer surface.Release()

	cfg := ContextConfig{HdrWidth: 1280, HdrHeight: 720, ClearColor: [4]float64{0, 0, 0, 1}, HUD: true, Probe: true}
	ctx, err := NewContext(dev, surface, lib, cfg, log)
	require.NoError(t, err)
	defer ctx.Release()

	volume, err := NewVolume(dev, lib, ctx.Sampler(), log)
	require.NoError(t, err)
	defer volume.Release()
	assert.Zero(t, volume.Dispatches(), "construction must not dispatch")

	raycaster, err := NewRaycaster(dev, lib, ctx.HdrTarget(), volume, RaycasterConfig{
		ProfileInterval: 1,
		ReadbackTimeout: 50 * time.Millisecond,
		TimestampPeriod: 1,
	}, log)
	require.NoError(t, err)
	defer raycaster.Release()

	globals, camera := ctx.Bindings()
	assert.ErrorIs(t, raycaster.Dispatch(0, globals, camera), ErrVolumeNotSeeded)

	require.NoError(t, volume.Seed(globals))
	assert.ErrorIs(t, volume.Seed(globals), ErrAlreadySeeded)

	fc := core.NewFrameCounter()
	input := &core.Input{}
	for i := 0; i < 2; i++ {
		fc.Record()
		ctx.Update(fc.Timing(), input)
		raycaster.Profile(fc.Frame())
		require.NoError(t, raycaster.Dispatch(fc.Frame(), globals, camera))
		require.NoError(t, ctx.Render())
	}
	assert.Equal(t, 1, volume.Dispatches())

	ctx.Resize(800, 600)
	fc.Record()
	ctx.Update(fc.Timing(), input)
	require.NoError(t, raycaster.Dispatch(fc.Frame(), globals, camera))
	require.NoError(t, ctx.Render())

	w, h := surface.Size()
	assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, h})
	w, h = ctx.CopyTargetSize()
	assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, h})
	w, h = ctx.HdrSize()
	assert.Equal(t, [2]uint32{1280, 720}, [2]uint32{w, h})
	assert.Equal(t, float32(800)/600, ctx.Camera().Aspect)
}
