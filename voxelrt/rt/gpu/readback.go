package gpu

import (
	"encoding/binary"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/loov/hrtime"
	"github.com/pkg/errors"
)

type readbackState int

const (
	readbackIdle readbackState = iota
	readbackPending
	readbackMapped
	readbackFailed
)

func (s readbackState) String() string {
	switch s {
	case readbackIdle:
		return "idle"
	case readbackPending:
		return "pending"
	case readbackMapped:
		return "mapped"
	case readbackFailed:
		return "failed"
	}
	return "unknown"
}

// readbackBackend is the buffer side of a readback. mapRead requests a map
// and reports completion through done, which fires from inside poll.
type readbackBackend struct {
	mapRead func(done func(ok bool)) error
	poll    func()
	mapped  func() []byte
	unmap   func()
}

// Readback moves small results from a mappable buffer to the CPU without
// ever blocking a frame for longer than its timeout.
//
// The owner writes into the buffer only while Idle reports true, then calls
// Request once the copy is submitted. TryRead polls until the map completes
// or the timeout elapses. A timed out read stays pending and is picked up by
// a later TryRead.
type Readback struct {
	backend readbackBackend
	timeout time.Duration
	now     func() time.Duration
	state   readbackState
}

func newReadback(b readbackBackend, timeout time.Duration) *Readback {
	return &Readback{backend: b, timeout: timeout, now: hrtime.Now}
}

// NewBufferReadback reads buf, which must have MapRead usage, polling dev.
func NewBufferReadback(dev *Device, buf *wgpu.Buffer, timeout time.Duration) *Readback {
	size := buf.GetSize()
	return newReadback(readbackBackend{
		mapRead: func(done func(ok bool)) error {
			return buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
				done(status == wgpu.BufferMapAsyncStatusSuccess)
			})
		},
		poll:   func() { dev.Poll(false) },
		mapped: func() []byte { return buf.GetMappedRange(0, uint(size)) },
		unmap:  func() { buf.Unmap() },
	}, timeout)
}

// Idle reports whether the buffer may be written.
func (r *Readback) Idle() bool { return r.state == readbackIdle }

// Request starts mapping the buffer. It must follow the submit that fills it.
func (r *Readback) Request() error {
	if r.state != readbackIdle {
		return errors.Errorf("readback request while %s", r.state)
	}
	r.state = readbackPending
	err := r.backend.mapRead(func(ok bool) {
		if r.state != readbackPending {
			return
		}
		if ok {
			r.state = readbackMapped
		} else {
			r.state = readbackFailed
		}
	})
	if err != nil {
		r.state = readbackIdle
		return errors.Wrap(err, "map readback buffer")
	}
	return nil
}

// TryRead hands the mapped bytes to read and unmaps the buffer. It returns
// ErrReadbackNotReady when nothing was requested and ErrReadbackTimeout when
// the map did not complete in time. The slice passed to read is only valid
// during the call.
func (r *Readback) TryRead(read func(data []byte)) error {
	if r.state == readbackIdle {
		return ErrReadbackNotReady
	}
	start := r.now()
	for {
		if r.state == readbackPending {
			r.backend.poll()
		}
		switch r.state {
		case readbackMapped:
			read(r.backend.mapped())
			r.backend.unmap()
			r.state = readbackIdle
			return nil
		case readbackFailed:
			r.state = readbackIdle
			return errors.New("readback map failed")
		}
		if r.now()-start >= r.timeout {
			return ErrReadbackTimeout
		}
	}
}

// TimestampElapsed converts a pair of timestamp ticks into a duration using
// the timer period in nanoseconds per tick. Out of order pairs yield zero.
func TimestampElapsed(start, end uint64, period float64) time.Duration {
	if end <= start {
		return 0
	}
	return time.Duration(float64(end-start) * period)
}

// decodeTimestamps reads the begin and end ticks resolved from a two entry
// query set.
func decodeTimestamps(data []byte) (start, end uint64, err error) {
	if len(data) < 16 {
		return 0, 0, errors.Errorf("timestamp readback holds %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[0:8]), binary.LittleEndian.Uint64(data[8:16]), nil
}
