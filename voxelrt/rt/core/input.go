package core

// PositionStep is the per-frame offset applied for each held movement key.
const PositionStep = 0.01

type Key int

const (
	KeyUnknown Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySlash
	KeyRightShift
	KeyEnter
	KeySpace
)

// Input is the normalized snapshot of keyboard and mouse state.
type Input struct {
	Up, Down, Left, Right bool
	// Slash and RightShift move along -z and +z.
	Slash, RightShift bool
	Enter, Space      bool

	MousePressed bool
	// Mouse is the cursor in [-1, 1] on both axes, +y up.
	Mouse [2]float32
}

// SetKey records a key transition. It reports false for keys the snapshot
// does not track.
func (in *Input) SetKey(k Key, pressed bool) bool {
	switch k {
	case KeyUp:
		in.Up = pressed
	case KeyDown:
		in.Down = pressed
	case KeyLeft:
		in.Left = pressed
	case KeyRight:
		in.Right = pressed
	case KeySlash:
		in.Slash = pressed
	case KeyRightShift:
		in.RightShift = pressed
	case KeyEnter:
		in.Enter = pressed
	case KeySpace:
		in.Space = pressed
	default:
		return false
	}
	return true
}

// SetCursor maps a pixel position inside a width x height window to [-1, 1],
// flipping y so that the top edge is +1.
func (in *Input) SetCursor(x, y float64, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	in.Mouse[0] = (float32(x)/float32(width) - 0.5) * 2
	in.Mouse[1] = -(float32(y)/float32(height) - 0.5) * 2
}

// ProcessPosition advances u.Pos by PositionStep per held direction and
// copies the mouse state.
func (in *Input) ProcessPosition(u *Uniform) {
	if in.Left {
		u.Pos[0] -= PositionStep
	}
	if in.Right {
		u.Pos[0] += PositionStep
	}
	if in.Down {
		u.Pos[1] -= PositionStep
	}
	if in.Up {
		u.Pos[1] += PositionStep
	}
	if in.Slash {
		u.Pos[2] -= PositionStep
	}
	if in.RightShift {
		u.Pos[2] += PositionStep
	}
	u.MousePressed = 0
	if in.MousePressed {
		u.MousePressed = 1
	}
	u.Mouse = in.Mouse
}
