package deck

import (
	"fmt"
	"sync"
)

// SlideSpec describes a slide at declaration time.
type SlideSpec struct {
	Kind  Kind
	Media string
	Line  int
}

// SegmentSpec describes a segment at declaration time.
type SegmentSpec struct {
	Anchor string
	Body   string
	Line   int
}

// Builder records slides and segments in declaration order.
// Declaration order is navigation order. A Builder is write-once: after
// Build it rejects further registrations.
type Builder struct {
	mu     sync.Mutex
	slides []Slide
	lines  []int // declaration line per slide
	sealed bool
}

// NewBuilder returns an empty registry.
func NewBuilder() *Builder {
	return &Builder{}
}

// Slide opens a new slide and returns its index. Subsequent segments attach
// to it until the next Slide call.
func (b *Builder) Slide(spec SlideSpec) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return 0, &DeclarationError{Line: spec.Line, Slide: -1, Err: ErrSealed}
	}
	kind := spec.Kind
	if kind == "" {
		kind = KindText
	}

	idx := len(b.slides)
	b.slides = append(b.slides, Slide{Index: idx, Kind: kind, Media: spec.Media})
	b.lines = append(b.lines, spec.Line)
	return idx, nil
}

// Segment appends a segment to the currently open slide and returns its
// index within that slide.
func (b *Builder) Segment(spec SegmentSpec) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return 0, &DeclarationError{Line: spec.Line, Slide: -1, Err: ErrSealed}
	}
	if len(b.slides) == 0 {
		return 0, &DeclarationError{Line: spec.Line, Slide: -1, Err: ErrSegmentOutsideSlide}
	}

	cur := &b.slides[len(b.slides)-1]
	idx := len(cur.Segments)
	cur.Segments = append(cur.Segments, Segment{
		Index:  idx,
		Slide:  cur.Index,
		Anchor: spec.Anchor,
		Body:   spec.Body,
	})
	return idx, nil
}

// SetBody replaces the Markdown body of an already registered segment.
// The declaration pass registers a segment at its opening tag and fills in
// the body when the closing tag is reached.
func (b *Builder) SetBody(slide, segment int, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return &DeclarationError{Slide: slide, Err: ErrSealed}
	}
	if slide < 0 || slide >= len(b.slides) || segment < 0 || segment >= len(b.slides[slide].Segments) {
		return fmt.Errorf("set body: no segment (%d, %d)", slide, segment)
	}
	b.slides[slide].Segments[segment].Body = body
	return nil
}

// Build validates the declared structure and freezes it into a Deck.
func (b *Builder) Build() (*Deck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return nil, &DeclarationError{Slide: -1, Err: ErrSealed}
	}
	for i, s := range b.slides {
		if len(s.Segments) == 0 {
			return nil, &DeclarationError{Line: b.lines[i], Slide: i, Err: ErrEmptySlide}
		}
	}
	b.sealed = true

	slides := make([]Slide, len(b.slides))
	for i, s := range b.slides {
		segs := make([]Segment, len(s.Segments))
		copy(segs, s.Segments)
		s.Segments = segs
		slides[i] = s
	}
	return newDeck(slides), nil
}

// FromCounts declares a text deck whose slide i has counts[i] segments.
func FromCounts(counts ...int) (*Deck, error) {
	b := NewBuilder()
	for _, n := range counts {
		if _, err := b.Slide(SlideSpec{Kind: KindText}); err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			if _, err := b.Segment(SegmentSpec{}); err != nil {
				return nil, err
			}
		}
	}
	return b.Build()
}
