package ui

import (
	"fmt"
	"strings"

	"postdeck/internal/deck"
	"postdeck/internal/manifest"
	"postdeck/internal/mdx"
	"postdeck/internal/nav"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Renderer renders Markdown for the terminal.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFactory builds a Renderer that wraps at width.
type RendererFactory func(width int) (Renderer, error)

// GlamourRenderer returns a factory for glamour renderers. theme is a glamour
// style name; "" and "auto" detect the terminal background.
func GlamourRenderer(theme string) RendererFactory {
	return func(width int) (Renderer, error) {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
		if theme == "" || theme == "auto" {
			opts = append(opts, glamour.WithAutoStyle())
		} else {
			opts = append(opts, glamour.WithStylePath(theme))
		}
		return glamour.NewTermRenderer(opts...)
	}
}

// clipRef identifies the manifest entry of segment (slide, segment).
type clipRef struct {
	slide   int
	segment int
	active  bool
}

// docInput is everything the document depends on.
type docInput struct {
	post    *mdx.Post
	deck    *deck.Deck
	pos     nav.Position
	reveal  nav.Reveal
	layout  LayoutConfig
	styles  Styles
	panes   map[int]*manifest.Pane
	playing clipRef
}

// document is the rendered, scrollable presentation. anchors holds the
// first line of every rendered segment by flat index, -1 when hidden.
type document struct {
	content string
	anchors []int
	lines   int
}

// anchor returns the line to scroll to for flat. The first segment always
// scrolls to the top so the prose before the deck is in view.
func (d document) anchor(flat int) int {
	if flat <= 0 || flat >= len(d.anchors) || d.anchors[flat] < 0 {
		return 0
	}
	return d.anchors[flat]
}

type blocks struct {
	parts []string
	lines int
}

func (b *blocks) add(s string) {
	s = strings.TrimRight(s, "\n")
	b.parts = append(b.parts, s)
	b.lines += lipgloss.Height(s)
}

func buildDocument(in docInput, render func(md string, width int) string) document {
	width := in.layout.ContentWidth(in.post.Meta.Layout == mdx.LayoutFull)
	anchors := make([]int, in.deck.Total())
	for i := range anchors {
		anchors[i] = -1
	}

	var b blocks
	if in.post.Before != "" {
		b.add(render(in.post.Before, width))
	}

	n := in.deck.Len()
	for i := 0; i < n; i++ {
		if !nav.SlideVisible(in.reveal, in.pos, i) {
			continue
		}
		slide, _ := in.deck.Slide(i)
		b.add(in.styles.RenderRule(fmt.Sprintf("%d/%d", i+1, n), width))

		if slide.Kind == deck.KindSplit {
			addSplit(&b, in, slide, width, anchors, render)
			continue
		}
		for g, seg := range slide.Segments {
			if !nav.SegmentVisible(in.pos, i, g) {
				break
			}
			flat, _ := in.deck.Flatten(i, g)
			anchors[flat] = b.lines
			b.add(render(seg.Body, width))
		}
	}

	if in.post.After != "" && in.pos.Slide == n-1 {
		b.add(render(in.post.After, width))
	}

	return document{
		content: strings.Join(b.parts, "\n"),
		anchors: anchors,
		lines:   b.lines,
	}
}

func addSplit(b *blocks, in docInput, slide deck.Slide, width int, anchors []int, render func(string, int) string) {
	textW, mediaW, stacked := in.layout.SplitPaneWidths(width)

	// Segments are wrapped to the column before counting so anchors match
	// the joined pane.
	column := lipgloss.NewStyle().Width(textW)
	var text blocks
	for g, seg := range slide.Segments {
		if !nav.SegmentVisible(in.pos, slide.Index, g) {
			break
		}
		flat, _ := in.deck.Flatten(slide.Index, g)
		anchors[flat] = b.lines + text.lines
		body := render(seg.Body, textW)
		if !stacked {
			body = column.Render(strings.TrimRight(body, "\n"))
		}
		text.add(body)
	}
	textCol := strings.Join(text.parts, "\n")
	media := renderMediaPane(in, slide.Index, mediaW)

	if stacked {
		b.add(textCol)
		b.add(media)
		return
	}
	b.add(lipgloss.JoinHorizontal(lipgloss.Top,
		textCol,
		strings.Repeat(" ", SplitPaneDivider),
		media,
	))
}

func renderMediaPane(in docInput, slide, width int) string {
	s := in.styles
	inner := width - MediaPaneBorderPad
	if inner < 1 {
		inner = 1
	}

	var body string
	pane := in.panes[slide]
	switch {
	case pane == nil || pane.State() == manifest.PaneLoading:
		body = s.Muted.Render("loading graphics…")
	case pane.State() == manifest.PaneFailed:
		body = s.Warning.Render("graphics unavailable")
	default:
		var lines []string
		for i, clip := range pane.Manifest().Slides {
			marker := "  "
			line := clip.File
			if clip.Loop {
				line += " ↻"
			}
			if clip.AutoNext {
				line += " ⏭"
			}
			if in.pos.Slide == slide && in.pos.Segment == i {
				marker = "▶ "
				if in.playing.active && in.playing.slide == slide && in.playing.segment == i {
					line += " (playing)"
				}
				line = s.ClipCurrent.Render(line)
			}
			lines = append(lines, marker+line)
		}
		if len(lines) == 0 {
			lines = append(lines, s.Muted.Render("no clips"))
		}
		body = strings.Join(lines, "\n")
	}
	return s.MediaPane.Width(inner + 2).Render(body)
}
