package core

import (
	"time"

	"github.com/loov/hrtime"
)

// fpsWindow is how many frames the FPS figure averages over.
const fpsWindow = 60

type FrameCounter struct {
	frame uint32
	start time.Duration
	last  time.Duration
	delta time.Duration

	windowStart  time.Duration
	windowFrames int
	fps          float64

	now func() time.Duration
}

func NewFrameCounter() *FrameCounter {
	return newFrameCounter(hrtime.Now)
}

func newFrameCounter(now func() time.Duration) *FrameCounter {
	t := now()
	return &FrameCounter{start: t, last: t, windowStart: t, now: now}
}

// Record marks the start of a new frame.
func (fc *FrameCounter) Record() {
	t := fc.now()
	fc.delta = t - fc.last
	fc.last = t
	fc.frame++

	fc.windowFrames++
	if fc.windowFrames >= fpsWindow {
		if span := t - fc.windowStart; span > 0 {
			fc.fps = float64(fc.windowFrames) / span.Seconds()
		}
		fc.windowStart = t
		fc.windowFrames = 0
	}
}

func (fc *FrameCounter) Frame() uint32 { return fc.frame }

func (fc *FrameCounter) Delta() time.Duration { return fc.delta }

func (fc *FrameCounter) FPS() float64 { return fc.fps }

// Timing returns the clock state for the next update. Elapsed is measured at
// call time, not at the last Record.
func (fc *FrameCounter) Timing() FrameTiming {
	return FrameTiming{
		Frame:   fc.frame,
		Elapsed: fc.now() - fc.start,
		Delta:   fc.delta,
	}
}
