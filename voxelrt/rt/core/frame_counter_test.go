package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Duration }

func (c *fakeClock) now() time.Duration { return c.t }

func TestFrameCounter_Record(t *testing.T) {
	clk := &fakeClock{t: time.Second}
	fc := newFrameCounter(clk.now)

	timing := fc.Timing()
	assert.Equal(t, uint32(0), timing.Frame)
	assert.Zero(t, timing.Elapsed)

	clk.t += 16 * time.Millisecond
	fc.Record()
	assert.Equal(t, uint32(1), fc.Frame())
	assert.Equal(t, 16*time.Millisecond, fc.Delta())

	clk.t += 10 * time.Millisecond
	timing = fc.Timing()
	assert.Equal(t, uint32(1), timing.Frame)
	assert.Equal(t, 26*time.Millisecond, timing.Elapsed)
	assert.Equal(t, 16*time.Millisecond, timing.Delta)
}

func TestFrameCounter_FPS(t *testing.T) {
	clk := &fakeClock{}
	fc := newFrameCounter(clk.now)
	assert.Zero(t, fc.FPS())

	for i := 0; i < fpsWindow; i++ {
		clk.t += 10 * time.Millisecond
		fc.Record()
	}
	assert.InDelta(t, 100, fc.FPS(), 1e-6)
}

func TestNewFrameCounter_realClock(t *testing.T) {
	fc := NewFrameCounter()
	fc.Record()
	fc.Record()
	assert.Equal(t, uint32(2), fc.Frame())
	assert.GreaterOrEqual(t, fc.Timing().Elapsed, time.Duration(0))
}
