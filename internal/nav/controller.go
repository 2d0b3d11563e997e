package nav

import (
	"errors"
	"fmt"

	"postdeck/internal/deck"
	"postdeck/internal/logging"
)

// Precondition errors. Controls disable themselves from HasPrevious and
// HasNext, so reaching one of these means a control forgot its guard.
var (
	ErrPrecondition = errors.New("navigation precondition violated")
	ErrNoPrevious   = fmt.Errorf("%w: no previous segment", ErrPrecondition)
	ErrNoNext       = fmt.Errorf("%w: no next segment", ErrPrecondition)
	ErrLinkInert    = fmt.Errorf("%w: link is not the next unrevealed segment", ErrPrecondition)
	ErrOutOfRange   = errors.New("position out of range")
)

// Controller performs every position transition.
type Controller struct {
	state *State
}

// NewController returns a controller for state.
func NewController(state *State) *Controller {
	return &Controller{state: state}
}

// State returns the controlled position cell.
func (c *Controller) State() *State {
	return c.state
}

// HasPrevious reports whether Previous is allowed.
func (c *Controller) HasPrevious() bool {
	return c.state.Position().Flat > 0
}

// HasNext reports whether Next is allowed.
func (c *Controller) HasNext() bool {
	return c.state.Position().Flat < c.state.Deck().Total()-1
}

// Next reveals the next segment, moving to the first segment of the next
// slide after the last segment of the current one.
func (c *Controller) Next() (Change, error) {
	if !c.HasNext() {
		logging.Get(logging.CategoryNav).Warn("next rejected at %s", c.state.Position())
		return Change{}, ErrNoNext
	}
	ch := c.state.set(c.state.Position().Flat+1, DirForward)
	logging.Get(logging.CategoryNav).Debug("next %s -> %s", ch.From, ch.To)
	return ch, nil
}

// Previous hides the current segment, moving to the last segment of the
// previous slide from the first segment of the current one.
func (c *Controller) Previous() (Change, error) {
	if !c.HasPrevious() {
		logging.Get(logging.CategoryNav).Warn("previous rejected at %s", c.state.Position())
		return Change{}, ErrNoPrevious
	}
	ch := c.state.set(c.state.Position().Flat-1, DirBackward)
	logging.Get(logging.CategoryNav).Debug("previous %s -> %s", ch.From, ch.To)
	return ch, nil
}

// Goto jumps to a flat position.
func (c *Controller) Goto(flat int) (Change, error) {
	if flat < 0 || flat >= c.state.Deck().Total() {
		return Change{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, flat, c.state.Deck().Total())
	}
	cur := c.state.Position().Flat
	dir := DirNone
	switch {
	case flat > cur:
		dir = DirForward
	case flat < cur:
		dir = DirBackward
	}
	return c.state.set(flat, dir), nil
}

// GotoSlide jumps to the first segment of slide.
func (c *Controller) GotoSlide(slide int) (Change, error) {
	flat, ok := c.state.Deck().Flatten(slide, 0)
	if !ok {
		return Change{}, fmt.Errorf("%w: slide %d", ErrOutOfRange, slide)
	}
	return c.Goto(flat)
}

// Restore places the position without a direction, used at mount.
func (c *Controller) Restore(flat int) (Change, error) {
	if flat < 0 || flat >= c.state.Deck().Total() {
		return Change{}, fmt.Errorf("%w: %d", ErrOutOfRange, flat)
	}
	return c.state.set(flat, DirNone), nil
}

// Reload swaps in a rebuilt deck and clamps the position into it.
func (c *Controller) Reload(d *deck.Deck) (Change, error) {
	if d == nil || d.Total() == 0 {
		return Change{}, ErrEmptyDeck
	}
	ch := c.state.swap(d)
	logging.Get(logging.CategoryNav).Info("deck reloaded: %d slides, position %s", d.Len(), ch.To)
	return ch, nil
}

// LinkActive reports whether a NextSegmentLink declared in segment
// (slide, segment) is live: the position is exactly there and a following
// segment exists in the same slide.
func (c *Controller) LinkActive(slide, segment int) bool {
	cur := c.state.Position()
	if cur.Slide != slide || cur.Segment != segment {
		return false
	}
	return segment+1 < c.state.Deck().SegmentCount(slide)
}

// FollowLink advances by one segment when the link at (slide, segment) is
// active.
func (c *Controller) FollowLink(slide, segment int) (Change, error) {
	if !c.LinkActive(slide, segment) {
		return Change{}, ErrLinkInert
	}
	return c.Next()
}
