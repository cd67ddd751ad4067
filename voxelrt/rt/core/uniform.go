package core

import (
	"encoding/binary"
	"time"
)

// UniformSize is the byte size of the global uniform block. The offsets in
// Bytes must match the Uniform struct in every shader.
const UniformSize = 48

type Uniform struct {
	Pos          [3]float32
	Frame        uint32
	Resolution   [2]float32
	Mouse        [2]float32
	MousePressed uint32
	Time         float32
	TimeDelta    float32
}

func (u *Uniform) Bytes() []byte {
	buf := make([]byte, UniformSize)
	u.Put(buf)
	return buf
}

// Put writes the block into buf, which must hold UniformSize bytes. Byte 44
// is padding and always zero.
func (u *Uniform) Put(buf []byte) {
	_ = buf[UniformSize-1]
	putF32(buf[0:], u.Pos[0])
	putF32(buf[4:], u.Pos[1])
	putF32(buf[8:], u.Pos[2])
	binary.LittleEndian.PutUint32(buf[12:], u.Frame)
	putF32(buf[16:], u.Resolution[0])
	putF32(buf[20:], u.Resolution[1])
	putF32(buf[24:], u.Mouse[0])
	putF32(buf[28:], u.Mouse[1])
	binary.LittleEndian.PutUint32(buf[32:], u.MousePressed)
	putF32(buf[36:], u.Time)
	putF32(buf[40:], u.TimeDelta)
	binary.LittleEndian.PutUint32(buf[44:], 0)
}

// FrameTiming is the per-frame clock state handed to the render context.
type FrameTiming struct {
	Frame   uint32
	Elapsed time.Duration
	Delta   time.Duration
}

// Apply copies the timing fields into u.
func (t FrameTiming) Apply(u *Uniform) {
	u.Frame = t.Frame
	u.Time = float32(t.Elapsed.Seconds())
	u.TimeDelta = float32(t.Delta.Seconds())
}
