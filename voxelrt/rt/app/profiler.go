package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loov/hrtime"
)

// Profiler measures named CPU scopes of the frame loop. Scopes are listed
// in first-use order.
type Profiler struct {
	Scopes map[string]time.Duration
	Counts map[string]int
	Order  []string

	starts map[string]time.Duration
	now    func() time.Duration
}

func NewProfiler() *Profiler {
	return newProfiler(hrtime.Now)
}

func newProfiler(now func() time.Duration) *Profiler {
	return &Profiler{
		Scopes: make(map[string]time.Duration),
		Counts: make(map[string]int),
		starts: make(map[string]time.Duration),
		now:    now,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.starts[name] = p.now()
	if _, seen := p.Scopes[name]; !seen {
		p.Scopes[name] = 0
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.starts[name]; ok {
		p.Scopes[name] = p.now() - start
		delete(p.starts, name)
	}
}

// Scope times fn under name.
func (p *Profiler) Scope(name string, fn func()) {
	p.BeginScope(name)
	defer p.EndScope(name)
	fn()
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) StatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-10s: %.2f ms\n", name, ms))
	}

	if len(p.Counts) > 0 {
		sb.WriteString("Stats:\n")
		keys := make([]string, 0, len(p.Counts))
		for k := range p.Counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %-10s: %d\n", k, p.Counts[k]))
		}
	}
	return sb.String()
}
