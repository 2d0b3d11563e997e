package nav

// Reveal selects how slides other than the current one are shown.
type Reveal string

const (
	// RevealProgressive keeps completed slides rendered.
	RevealProgressive Reveal = "progressive"
	// RevealExclusive shows only the current slide.
	RevealExclusive Reveal = "exclusive"
)

// ParseReveal maps a config value to a Reveal, defaulting to progressive.
func ParseReveal(s string) Reveal {
	if Reveal(s) == RevealExclusive {
		return RevealExclusive
	}
	return RevealProgressive
}

// SlideVisible reports whether slide is shown at cur.
func SlideVisible(r Reveal, cur Position, slide int) bool {
	if r == RevealExclusive {
		return slide == cur.Slide
	}
	return slide <= cur.Slide
}

// SegmentVisible reports whether segment (slide, segment) is shown at cur.
// Segments reveal cumulatively within the current slide and stay revealed
// on every earlier slide.
func SegmentVisible(cur Position, slide, segment int) bool {
	if slide < cur.Slide {
		return true
	}
	return slide == cur.Slide && segment <= cur.Segment
}
