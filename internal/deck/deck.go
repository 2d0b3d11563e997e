// Package deck holds the immutable structure of a slide presentation.
// A Deck is produced once per presentation by a Builder during the
// declaration pass and is read-only afterwards.
package deck

import "fmt"

// Kind is the display kind of a slide.
type Kind string

const (
	KindText  Kind = "text"  // Text only
	KindSplit Kind = "split" // Text with a side graphic pane
)

// ParseKind maps an authored kind attribute to a Kind. Empty means text.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindText:
		return KindText, nil
	case KindSplit:
		return KindSplit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Segment is the smallest revealable unit of a slide.
type Segment struct {
	Index  int    // Position within the parent slide
	Slide  int    // Parent slide index
	Anchor string // Optional scroll anchor
	Body   string // Markdown source
}

// Slide is one top-level navigable unit.
type Slide struct {
	Index    int
	Kind     Kind
	Media    string // Manifest reference for split slides
	Segments []Segment
}

// Deck is an ordered, frozen sequence of slides.
type Deck struct {
	slides []Slide
	// offsets[i] is the flat position of (i, 0); offsets[len] is the total.
	offsets []int
}

func newDeck(slides []Slide) *Deck {
	offsets := make([]int, len(slides)+1)
	for i, s := range slides {
		offsets[i+1] = offsets[i] + len(s.Segments)
	}
	return &Deck{slides: slides, offsets: offsets}
}

// Len returns the number of slides.
func (d *Deck) Len() int {
	return len(d.slides)
}

// Total returns the number of (slide, segment) pairs.
func (d *Deck) Total() int {
	return d.offsets[len(d.slides)]
}

// Slide returns the slide at index i.
func (d *Deck) Slide(i int) (Slide, bool) {
	if i < 0 || i >= len(d.slides) {
		return Slide{}, false
	}
	return d.slides[i], true
}

// Slides returns a copy of the slide list.
func (d *Deck) Slides() []Slide {
	out := make([]Slide, len(d.slides))
	copy(out, d.slides)
	return out
}

// SegmentCount returns the number of segments in slide i, or 0.
func (d *Deck) SegmentCount(i int) int {
	if i < 0 || i >= len(d.slides) {
		return 0
	}
	return len(d.slides[i].Segments)
}

// Flatten converts a (slide, segment) pair into its flat position.
func (d *Deck) Flatten(slide, segment int) (int, bool) {
	if segment < 0 || segment >= d.SegmentCount(slide) {
		return 0, false
	}
	return d.offsets[slide] + segment, true
}

// Locate converts a flat position into its (slide, segment) pair.
func (d *Deck) Locate(flat int) (slide, segment int, ok bool) {
	if flat < 0 || flat >= d.Total() {
		return 0, 0, false
	}
	// Decks are small; a linear scan keeps this obvious.
	for i := range d.slides {
		if flat < d.offsets[i+1] {
			return i, flat - d.offsets[i], true
		}
	}
	return 0, 0, false
}

// Segment returns the segment at (slide, segment).
func (d *Deck) Segment(slide, segment int) (Segment, bool) {
	if segment < 0 || segment >= d.SegmentCount(slide) {
		return Segment{}, false
	}
	return d.slides[slide].Segments[segment], true
}
