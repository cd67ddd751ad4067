package app

import "github.com/gekko3d/vokselis/voxelrt/rt/core"

type EventKind int

const (
	// EventAboutToWait closes every batch returned by WaitEvents.
	EventAboutToWait EventKind = iota
	EventRedraw
	EventResize
	EventClose
	EventFocus
	EventKey
	EventCursor
	EventMouseButton
	EventMouseMotion
	EventScroll
)

func (k EventKind) String() string {
	switch k {
	case EventAboutToWait:
		return "about-to-wait"
	case EventRedraw:
		return "redraw"
	case EventResize:
		return "resize"
	case EventClose:
		return "close"
	case EventFocus:
		return "focus"
	case EventKey:
		return "key"
	case EventCursor:
		return "cursor"
	case EventMouseButton:
		return "mouse-button"
	case EventMouseMotion:
		return "mouse-motion"
	case EventScroll:
		return "scroll"
	}
	return "unknown"
}

// Event is one platform event. Only the fields of its kind are set.
type Event struct {
	Kind EventKind

	// Resize: framebuffer size in pixels.
	Width, Height int

	// Key: the tracked key, or KeyUnknown with Escape set for the exit key.
	Key    core.Key
	Escape bool

	// Key, MouseButton and Focus state.
	Pressed bool
	// MouseButton: true for the primary button.
	Primary bool

	// Cursor: position in pixels. MouseMotion: delta in pixels.
	X, Y float64

	// Scroll: vertical wheel delta in lines, positive away from the user.
	Scroll float64
}

// Platform is the window system seen by the frame loop.
type Platform interface {
	// WaitEvents blocks until something happens and returns the pending
	// events, a Redraw if one was requested, and a closing AboutToWait.
	WaitEvents() []Event
	RequestRedraw()
	// Size is the framebuffer size in pixels.
	Size() (width, height int)
	Close()
}
