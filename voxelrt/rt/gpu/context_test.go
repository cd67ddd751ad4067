package gpu

import (
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	width, height uint32
	configures    int
	configureErr  error
	acquireErr    error
}

func (s *fakeSurface) Format() wgpu.TextureFormat { return wgpu.TextureFormatBGRA8Unorm }

func (s *fakeSurface) Size() (uint32, uint32) { return s.width, s.height }

func (s *fakeSurface) Configure(width, height uint32) error {
	if s.configureErr != nil {
		return s.configureErr
	}
	s.configures++
	s.width, s.height = width, height
	return nil
}

func (s *fakeSurface) Acquire() (*Frame, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return &Frame{Width: s.width, Height: s.height}, nil
}

func (s *fakeSurface) Release() {}

// newHostContext builds a Context without GPU objects. Only the host side
// state machine (Update, Resize, accessors) may be used.
func newHostContext(width, height uint32) (*Context, *fakeSurface, *int) {
	surface := &fakeSurface{width: width, height: height}
	created := 0
	c := &Context{
		surface:    surface,
		hdr:        &HdrTarget{Width: 1280, Height: 720},
		copyTarget: &CopyTarget{Width: width, Height: height},
		camera:     core.NewOrbitCamera(DefaultCameraDistance, DefaultCameraPitch, DefaultCameraYaw, mgl32.Vec3{}, float32(width)/float32(height)),
		width:      width,
		height:     height,
		log:        vokselis.NewNopLogger(),
		newCopyTarget: func(w, h uint32) (*CopyTarget, error) {
			created++
			return &CopyTarget{Width: w, Height: h}, nil
		},
	}
	return c, surface, &created
}

func TestContext_ResizeIgnoresZero(t *testing.T) {
	for _, size := range [][2]uint32{{0, 600}, {800, 0}, {0, 0}} {
		c, surface, created := newHostContext(1280, 720)
		aspect := c.Camera().Aspect

		c.Resize(size[0], size[1])

		assert.Zero(t, surface.configures, "%v", size)
		assert.Zero(t, *created, "%v", size)
		w, h := c.CopyTargetSize()
		assert.Equal(t, [2]uint32{1280, 720}, [2]uint32{w, h})
		assert.Equal(t, aspect, c.Camera().Aspect)
	}
}

func TestContext_ResizeSetsAspect(t *testing.T) {
	tests := []struct{ w, h uint32 }{{800, 600}, {1920, 1080}, {1, 3}, {333, 777}}
	for _, tt := range tests {
		c, surface, created := newHostContext(1280, 720)
		c.Resize(tt.w, tt.h)

		assert.Equal(t, float32(tt.w)/float32(tt.h), c.Camera().Aspect)
		assert.Equal(t, 1, surface.configures)
		assert.Equal(t, 1, *created)
		w, h := c.Size()
		assert.Equal(t, [2]uint32{tt.w, tt.h}, [2]uint32{w, h})
		w, h = c.CopyTargetSize()
		assert.Equal(t, [2]uint32{tt.w, tt.h}, [2]uint32{w, h})
	}
}

func TestContext_HdrSizeNeverChanges(t *testing.T) {
	c, _, _ := newHostContext(1280, 720)
	for _, size := range [][2]uint32{{800, 600}, {0, 10}, {3840, 2160}, {1, 1}, {1280, 720}} {
		c.Resize(size[0], size[1])
		w, h := c.HdrSize()
		require.Equal(t, [2]uint32{1280, 720}, [2]uint32{w, h})
	}
}

func TestContext_ResizeConfigureFailure(t *testing.T) {
	c, surface, created := newHostContext(1280, 720)
	surface.configureErr = errors.New("device lost")
	c.Resize(640, 480)

	assert.Zero(t, *created)
	w, h := c.Size()
	assert.Equal(t, [2]uint32{1280, 720}, [2]uint32{w, h})
	assert.Equal(t, float32(1280)/720, c.Camera().Aspect)
}

func TestContext_Update(t *testing.T) {
	c, _, _ := newHostContext(800, 600)
	in := &core.Input{Up: true, Right: true, MousePressed: true, Mouse: [2]float32{0.5, -0.25}}

	for i := 1; i <= 3; i++ {
		c.Update(core.FrameTiming{Frame: uint32(i), Elapsed: time.Duration(i) * time.Second, Delta: 16 * time.Millisecond}, in)
	}

	u := c.Uniform()
	assert.Equal(t, uint32(3), u.Frame)
	assert.InDelta(t, 3.0, u.Time, 1e-6)
	assert.InDelta(t, 0.016, u.TimeDelta, 1e-6)
	assert.Equal(t, [2]float32{800, 600}, u.Resolution)
	assert.InDelta(t, 3*core.PositionStep, u.Pos[0], 1e-6)
	assert.InDelta(t, 3*core.PositionStep, u.Pos[1], 1e-6)
	assert.Zero(t, u.Pos[2])
	assert.Equal(t, uint32(1), u.MousePressed)
	assert.Equal(t, [2]float32{0.5, -0.25}, u.Mouse)

	c.Resize(1024, 512)
	c.Update(core.FrameTiming{Frame: 4}, nil)
	assert.Equal(t, [2]float32{1024, 512}, c.Uniform().Resolution)
}

func TestContext_RenderPropagatesSurfaceErrors(t *testing.T) {
	c, surface, _ := newHostContext(1280, 720)
	surface.acquireErr = classifySurfaceError(errors.New("Lost"))
	err := c.Render()
	assert.True(t, IsSurfaceLost(err))

	surface.acquireErr = classifySurfaceError(errors.New("OutOfMemory"))
	err = c.Render()
	assert.True(t, IsOutOfMemory(err))
}

func TestContextConfigFrom(t *testing.T) {
	cfg := vokselis.DefaultConfig()
	cfg.PitchLimit = 1.5
	cfg.Debug = true
	cc := ContextConfigFrom(cfg)
	assert.Equal(t, uint32(1280), cc.HdrWidth)
	assert.Equal(t, uint32(720), cc.HdrHeight)
	assert.Equal(t, float32(1.5), cc.PitchLimit)
	assert.True(t, cc.HUD)
	assert.True(t, cc.Probe)

	cfg.HUD = false
	assert.False(t, ContextConfigFrom(cfg).Probe)
}
