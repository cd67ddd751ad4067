package app

// HeadlessPlatform is a window-less event source. It never blocks: every
// WaitEvents call returns the injected events followed by a Redraw when one
// was requested and a closing AboutToWait.
type HeadlessPlatform struct {
	width, height int
	events        []Event
	redraw        bool
	closed        bool
}

func NewHeadlessPlatform(width, height int) *HeadlessPlatform {
	return &HeadlessPlatform{width: width, height: height}
}

// Inject queues events for the next WaitEvents call. A Resize also updates
// Size.
func (p *HeadlessPlatform) Inject(events ...Event) {
	for _, ev := range events {
		if ev.Kind == EventResize && ev.Width > 0 && ev.Height > 0 {
			p.width, p.height = ev.Width, ev.Height
		}
		p.events = append(p.events, ev)
	}
}

func (p *HeadlessPlatform) WaitEvents() []Event {
	out := p.events
	p.events = nil
	if p.closed {
		out = append(out, Event{Kind: EventClose})
	}
	if p.redraw {
		p.redraw = false
		out = append(out, Event{Kind: EventRedraw})
	}
	return append(out, Event{Kind: EventAboutToWait})
}

func (p *HeadlessPlatform) RequestRedraw() { p.redraw = true }

func (p *HeadlessPlatform) Size() (int, int) { return p.width, p.height }

func (p *HeadlessPlatform) Close() { p.closed = true }
