// Package fragment mirrors the current slide into a restorable location
// identifier of the form "slide-<N>" and restores it on mount.
package fragment

import (
	"strconv"
	"strings"
	"sync"

	"postdeck/internal/logging"
	"postdeck/internal/nav"
)

// Prefix precedes the decimal slide index.
const Prefix = "slide-"

// Format returns the fragment for a slide index.
func Format(slide int) string {
	return Prefix + strconv.Itoa(slide)
}

// Parse returns the slide index encoded in frag. A leading '#' is ignored.
// Absent, malformed or out-of-range input yields 0.
func Parse(frag string, slideCount int) int {
	frag = strings.TrimPrefix(strings.TrimSpace(frag), "#")
	if !strings.HasPrefix(frag, Prefix) {
		return 0
	}
	n, err := strconv.Atoi(frag[len(Prefix):])
	if err != nil || n < 0 || n >= slideCount {
		return 0
	}
	return n
}

// Location is an external, restorable place for the fragment.
type Location interface {
	// Fragment returns the stored fragment, or "" if none.
	Fragment() (string, error)
	// ReplaceFragment overwrites the stored fragment without keeping history.
	ReplaceFragment(frag string) error
}

// Memory is an in-process Location.
type Memory struct {
	mu     sync.Mutex
	frag   string
	writes int
}

// NewMemory returns a Location holding frag.
func NewMemory(frag string) *Memory {
	return &Memory{frag: frag}
}

func (m *Memory) Fragment() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frag, nil
}

func (m *Memory) ReplaceFragment(frag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frag = frag
	m.writes++
	return nil
}

// Writes returns the number of ReplaceFragment calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Restore reads loc and returns the flat position of the first segment of
// the stored slide. Read errors and bad fragments restore to the start.
func Restore(loc Location, ctl *nav.Controller) nav.Position {
	frag, err := loc.Fragment()
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("fragment read failed, starting at 0: %v", err)
		frag = ""
	}
	slide := Parse(frag, ctl.State().Deck().Len())
	if slide > 0 {
		if _, err := ctl.GotoSlide(slide); err != nil {
			return ctl.State().Position()
		}
	}
	return ctl.State().Position()
}

// Persister writes the current slide to a Location on every position
// change. Writes are held until Ready: the host's own initial sync would
// otherwise overwrite them.
type Persister struct {
	mu      sync.Mutex
	loc     Location
	ready   bool
	pending string
	last    string
	cancel  func()
	errFn   func(error)
}

// NewPersister subscribes to state. errFn, if set, receives write errors.
func NewPersister(loc Location, state *nav.State, errFn func(error)) *Persister {
	p := &Persister{loc: loc, errFn: errFn}
	p.pending = Format(state.Position().Slide)
	p.cancel = state.Subscribe(p.observe)
	return p
}

func (p *Persister) observe(ch nav.Change) {
	frag := Format(ch.To.Slide)

	p.mu.Lock()
	if !p.ready {
		p.pending = frag
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.write(frag)
}

// Ready releases deferred writes and flushes the latest pending fragment.
func (p *Persister) Ready() {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		return
	}
	p.ready = true
	frag := p.pending
	p.pending = ""
	p.mu.Unlock()

	if frag != "" {
		p.write(frag)
	}
}

func (p *Persister) write(frag string) {
	p.mu.Lock()
	if frag == p.last {
		p.mu.Unlock()
		return
	}
	p.last = frag
	p.mu.Unlock()

	if err := p.loc.ReplaceFragment(frag); err != nil {
		logging.Get(logging.CategoryStore).Error("fragment write %s failed: %v", frag, err)
		if p.errFn != nil {
			p.errFn(err)
		}
		return
	}
	logging.Get(logging.CategoryStore).Debug("fragment -> %s", frag)
}

// Close stops observing position changes.
func (p *Persister) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}
