package app

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/vokselis/voxelrt/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

var glfwKeys = map[glfw.Key]core.Key{
	glfw.KeyUp:         core.KeyUp,
	glfw.KeyDown:       core.KeyDown,
	glfw.KeyLeft:       core.KeyLeft,
	glfw.KeyRight:      core.KeyRight,
	glfw.KeySlash:      core.KeySlash,
	glfw.KeyRightShift: core.KeyRightShift,
	glfw.KeyEnter:      core.KeyEnter,
	glfw.KeySpace:      core.KeySpace,
}

// keyEvent converts a glfw key callback. Repeats and untracked keys other
// than Escape report false.
func keyEvent(key glfw.Key, action glfw.Action) (Event, bool) {
	if action == glfw.Repeat {
		return Event{}, false
	}
	ev := Event{Kind: EventKey, Pressed: action == glfw.Press}
	if key == glfw.KeyEscape {
		ev.Escape = true
		return ev, true
	}
	k, ok := glfwKeys[key]
	if !ok {
		return Event{}, false
	}
	ev.Key = k
	return ev, true
}

// GLFWPlatform is a resizable window without a client API. glfw must be
// initialised on the calling thread before NewGLFWPlatform.
type GLFWPlatform struct {
	window *glfw.Window
	events []Event

	redraw    bool
	hasCursor bool
	lastX     float64
	lastY     float64
}

func NewGLFWPlatform(title string, width, height int) (*GLFWPlatform, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	p := &GLFWPlatform{window: win}
	p.installCallbacks()
	return p, nil
}

func (p *GLFWPlatform) installCallbacks() {
	p.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		p.push(Event{Kind: EventResize, Width: width, Height: height})
	})
	p.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if ev, ok := keyEvent(key, action); ok {
			p.push(ev)
		}
	})
	p.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		p.push(Event{Kind: EventCursor, X: x, Y: y})
		if p.hasCursor {
			p.push(Event{Kind: EventMouseMotion, X: x - p.lastX, Y: y - p.lastY})
		}
		p.lastX, p.lastY, p.hasCursor = x, y, true
	})
	p.window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		p.push(Event{Kind: EventMouseButton, Primary: button == glfw.MouseButtonLeft, Pressed: action == glfw.Press})
	})
	p.window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		p.push(Event{Kind: EventScroll, Scroll: yoff})
	})
	p.window.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		p.push(Event{Kind: EventFocus, Pressed: focused})
	})
	p.window.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		// Re-entering must not produce a jump from the stale position.
		if !entered {
			p.hasCursor = false
		}
	})
}

func (p *GLFWPlatform) push(ev Event) {
	p.events = append(p.events, ev)
}

func (p *GLFWPlatform) WaitEvents() []Event {
	if p.redraw {
		glfw.PollEvents()
	} else {
		glfw.WaitEvents()
	}
	if p.window.ShouldClose() {
		p.push(Event{Kind: EventClose})
	}
	if p.redraw {
		p.redraw = false
		p.push(Event{Kind: EventRedraw})
	}
	p.push(Event{Kind: EventAboutToWait})

	out := p.events
	p.events = nil
	return out
}

func (p *GLFWPlatform) RequestRedraw() { p.redraw = true }

func (p *GLFWPlatform) Size() (int, int) {
	return p.window.GetFramebufferSize()
}

// SurfaceDescriptor wraps the window for wgpu surface creation.
func (p *GLFWPlatform) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(p.window)
}

func (p *GLFWPlatform) Close() {
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
}
