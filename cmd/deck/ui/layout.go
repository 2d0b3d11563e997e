package ui

// Layout constants for viewport and panel sizing
const (
	// Viewport padding
	ViewportHorizontalPadding = 2

	// Split slides
	SplitPaneDivider   = 2
	MinMediaPaneWidth  = 24
	MediaPaneBorderPad = 4 // Border and padding on both sides

	// Chrome
	HeaderHeight = 2
	FooterHeight = 2

	// Responsive breakpoints
	CompactModeWidth = 60
	MinContentWidth  = 20
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	ProseWidth     int     // Cap for prose-layout posts, 0 = none
	SplitRatio     float64 // Text share of split slides
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height, proseWidth int, splitRatio float64) LayoutConfig {
	if splitRatio <= 0 || splitRatio >= 1 {
		splitRatio = 0.6
	}
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		ProseWidth:     proseWidth,
		SplitRatio:     splitRatio,
		IsCompact:      width < CompactModeWidth,
	}
}

// ContentWidth returns the usable document width. Prose layouts are capped.
func (l LayoutConfig) ContentWidth(full bool) int {
	w := l.TerminalWidth - ViewportHorizontalPadding
	if !full && l.ProseWidth > 0 && w > l.ProseWidth {
		w = l.ProseWidth
	}
	if w < MinContentWidth {
		w = MinContentWidth
	}
	return w
}

// ViewportHeight returns the document viewport height.
func (l LayoutConfig) ViewportHeight() int {
	h := l.TerminalHeight - HeaderHeight - FooterHeight
	if h < 1 {
		h = 1
	}
	return h
}

// SplitPaneWidths returns the text and media widths of a split slide.
// Compact terminals stack the panes instead, so both get the full width.
func (l LayoutConfig) SplitPaneWidths(width int) (text, media int, stacked bool) {
	if l.IsCompact {
		return width, width, true
	}
	text = int(float64(width) * l.SplitRatio)
	media = width - text - SplitPaneDivider
	if media < MinMediaPaneWidth {
		return width, width, true
	}
	return text, media, false
}
