package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInput_SetKey(t *testing.T) {
	var in Input
	assert.True(t, in.SetKey(KeyUp, true))
	assert.True(t, in.SetKey(KeySlash, true))
	assert.True(t, in.SetKey(KeyRightShift, true))
	assert.False(t, in.SetKey(KeyUnknown, true))
	assert.True(t, in.Up)
	assert.True(t, in.Slash)
	assert.True(t, in.RightShift)

	in.SetKey(KeyUp, false)
	assert.False(t, in.Up)
}

func TestInput_ProcessPositionAccumulates(t *testing.T) {
	tests := []struct {
		name string
		keys []Key
		want [3]float32
	}{
		{"none", nil, [3]float32{}},
		{"right", []Key{KeyRight}, [3]float32{1, 0, 0}},
		{"left", []Key{KeyLeft}, [3]float32{-1, 0, 0}},
		{"up", []Key{KeyUp}, [3]float32{0, 1, 0}},
		{"down", []Key{KeyDown}, [3]float32{0, -1, 0}},
		{"slash", []Key{KeySlash}, [3]float32{0, 0, -1}},
		{"right shift", []Key{KeyRightShift}, [3]float32{0, 0, 1}},
		{"opposites cancel", []Key{KeyLeft, KeyRight}, [3]float32{}},
		{"diagonal", []Key{KeyUp, KeyRight, KeyRightShift}, [3]float32{1, 1, 1}},
	}
	const frames = 50
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Input
			for _, k := range tt.keys {
				in.SetKey(k, true)
			}
			var u Uniform
			for i := 0; i < frames; i++ {
				in.ProcessPosition(&u)
			}
			for axis := 0; axis < 3; axis++ {
				assert.InDelta(t, tt.want[axis]*frames*PositionStep, u.Pos[axis], 1e-4, "axis %d", axis)
			}
		})
	}
}

func TestInput_SetCursor(t *testing.T) {
	tests := []struct {
		name  string
		x, y  float64
		wantX float32
		wantY float32
	}{
		{"top left", 0, 0, -1, 1},
		{"center", 400, 300, 0, 0},
		{"bottom right", 800, 600, 1, -1},
		{"quarter", 200, 450, -0.5, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Input
			in.SetCursor(tt.x, tt.y, 800, 600)
			assert.InDelta(t, tt.wantX, in.Mouse[0], 1e-6)
			assert.InDelta(t, tt.wantY, in.Mouse[1], 1e-6)
		})
	}
}

func TestInput_SetCursorZeroWindow(t *testing.T) {
	in := Input{Mouse: [2]float32{0.3, 0.4}}
	in.SetCursor(10, 10, 0, 600)
	assert.Equal(t, [2]float32{0.3, 0.4}, in.Mouse)
}

func TestInput_ProcessPositionMouse(t *testing.T) {
	in := Input{MousePressed: true, Mouse: [2]float32{0.1, -0.2}}
	var u Uniform
	in.ProcessPosition(&u)
	assert.Equal(t, uint32(1), u.MousePressed)
	assert.Equal(t, [2]float32{0.1, -0.2}, u.Mouse)

	in.MousePressed = false
	in.ProcessPosition(&u)
	assert.Equal(t, uint32(0), u.MousePressed)
}
