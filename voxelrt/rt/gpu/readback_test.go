package gpu

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBuffer completes a map after a given number of polls.
type fakeBuffer struct {
	data      []byte
	pollsLeft int
	fail      bool
	mapErr    error

	done    func(ok bool)
	polls   int
	unmaps  int
	mapReqs int
}

func (f *fakeBuffer) backend() readbackBackend {
	return readbackBackend{
		mapRead: func(done func(ok bool)) error {
			f.mapReqs++
			if f.mapErr != nil {
				return f.mapErr
			}
			f.done = done
			return nil
		},
		poll: func() {
			f.polls++
			if f.done == nil {
				return
			}
			if f.pollsLeft > 0 {
				f.pollsLeft--
				return
			}
			done := f.done
			f.done = nil
			done(!f.fail)
		},
		mapped: func() []byte { return f.data },
		unmap:  func() { f.unmaps++ },
	}
}

// stepClock advances by step on every reading.
func stepClock(step time.Duration) func() time.Duration {
	var t time.Duration
	return func() time.Duration {
		t += step
		return t
	}
}

func newTestReadback(f *fakeBuffer, timeout time.Duration) *Readback {
	r := newReadback(f.backend(), timeout)
	r.now = stepClock(time.Millisecond)
	return r
}

func TestReadback_notRequested(t *testing.T) {
	f := &fakeBuffer{}
	r := newTestReadback(f, 2*time.Millisecond)
	assert.True(t, r.Idle())
	err := r.TryRead(func([]byte) { t.Fatal("read without request") })
	assert.Equal(t, ErrReadbackNotReady, err)
	assert.Zero(t, f.polls)
}

func TestReadback_readsAndUnmaps(t *testing.T) {
	f := &fakeBuffer{data: []byte{1, 2, 3}, pollsLeft: 1}
	r := newTestReadback(f, 10*time.Millisecond)
	require.NoError(t, r.Request())
	assert.False(t, r.Idle())

	var got []byte
	require.NoError(t, r.TryRead(func(data []byte) { got = append(got, data...) }))
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 1, f.unmaps)
	assert.Equal(t, 2, f.polls)
	assert.True(t, r.Idle())
}

func TestReadback_timeoutKeepsPending(t *testing.T) {
	f := &fakeBuffer{data: []byte{9}, pollsLeft: 100}
	r := newTestReadback(f, 3*time.Millisecond)
	require.NoError(t, r.Request())

	err := r.TryRead(func([]byte) { t.Fatal("read before map completed") })
	assert.Equal(t, ErrReadbackTimeout, errors.Cause(err))
	assert.LessOrEqual(t, f.polls, 4, "wait must stop at the timeout")
	assert.False(t, r.Idle())
	assert.Error(t, r.Request(), "no second request while pending")

	f.pollsLeft = 0
	called := false
	require.NoError(t, r.TryRead(func([]byte) { called = true }))
	assert.True(t, called)
	assert.True(t, r.Idle())
	assert.Equal(t, 1, f.mapReqs)
}

func TestReadback_mapFailure(t *testing.T) {
	f := &fakeBuffer{fail: true}
	r := newTestReadback(f, 5*time.Millisecond)
	require.NoError(t, r.Request())
	err := r.TryRead(func([]byte) { t.Fatal("read after failed map") })
	assert.Error(t, err)
	assert.NotEqual(t, ErrReadbackTimeout, errors.Cause(err))
	assert.True(t, r.Idle())
	assert.Zero(t, f.unmaps)
}

func TestReadback_requestError(t *testing.T) {
	f := &fakeBuffer{mapErr: errors.New("buffer destroyed")}
	r := newTestReadback(f, time.Millisecond)
	err := r.Request()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer destroyed")
	assert.True(t, r.Idle())
}

func TestTimestampElapsed(t *testing.T) {
	tests := []struct {
		name       string
		start, end uint64
		period     float64
		want       time.Duration
	}{
		{"unit period", 1000, 4000, 1, 3000},
		{"scaled period", 10, 110, 2.5, 250},
		{"equal ticks", 500, 500, 1, 0},
		{"zero period", 1, 1000, 0, 0},
		{"reversed ticks", 900, 100, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimestampElapsed(tt.start, tt.end, tt.period)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, time.Duration(0))
		})
	}
}

func TestDecodeTimestamps(t *testing.T) {
	buf := make([]byte, timestampBytes)
	binary.LittleEndian.PutUint64(buf[0:], 123)
	binary.LittleEndian.PutUint64(buf[8:], 456)
	start, end, err := decodeTimestamps(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(123), start)
	assert.Equal(t, uint64(456), end)

	_, _, err = decodeTimestamps(buf[:8])
	assert.Error(t, err)
}
