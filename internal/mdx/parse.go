// Package mdx parses posts: YAML front matter followed by Markdown with
// embedded slide components. Parsing is the declaration pass of a
// presentation: it registers slides and segments into a deck.Builder in
// document order and returns the frozen Deck next to the prose.
package mdx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"postdeck/internal/deck"
	"postdeck/internal/logging"

	"golang.org/x/net/html"
)

// Component tag names as the html tokenizer reports them (lowercased).
const (
	tagSlideShow       = "slideshow"
	tagSlide           = "slide"
	tagSlideSegment    = "slidesegment"
	tagNextSegmentLink = "nextsegmentlink"
	tagShowDate        = "showdate"
	tagSpan            = "span"
)

// Structural errors specific to the authoring surface. deck.ErrEmptySlide
// and deck.ErrSegmentOutsideSlide come from the registry itself.
var (
	ErrNestedSlide   = errors.New("slide declared inside another slide")
	ErrNestedSegment = errors.New("segment declared inside another segment")
	ErrStrayText     = errors.New("content inside a slide but outside any segment")
	ErrUnclosed      = errors.New("unclosed component")
	ErrUnexpectedEnd = errors.New("closing tag without matching opening tag")
	ErrSplitDeck     = errors.New("slides resumed after prose following the deck")
	ErrLinkOutside   = errors.New("NextSegmentLink outside any segment")
)

// DefaultLinkLabel is used by NextSegmentLink without children.
const DefaultLinkLabel = "continue"

// Link is a NextSegmentLink declared inside segment (Slide, Segment).
type Link struct {
	Slide   int
	Segment int
	Label   string
}

// Post is a parsed post.
type Post struct {
	ID     string
	Meta   Meta
	Before string     // Prose preceding the deck (or all prose without one)
	After  string     // Prose following the deck
	Deck   *deck.Deck // nil when the post declares no slides
	Links  []Link
}

// HasSlides reports whether the post declares a presentation.
func (p *Post) HasSlides() bool {
	return p.Deck != nil && p.Deck.Total() > 0
}

// LinkAt returns the link declared in segment (slide, segment).
func (p *Post) LinkAt(slide, segment int) (Link, bool) {
	for _, l := range p.Links {
		if l.Slide == slide && l.Segment == segment {
			return l, true
		}
	}
	return Link{}, false
}

// Parse reads a post. id is the post identifier (usually the file stem).
func Parse(id string, src []byte) (*Post, error) {
	header, body, bodyLine, err := splitFrontMatter(src)
	if err != nil {
		return nil, err
	}
	meta, err := parseMeta(header)
	if err != nil {
		return nil, err
	}

	p := &parser{
		post:    &Post{ID: id, Meta: meta},
		builder: deck.NewBuilder(),
		line:    bodyLine,
	}
	if err := p.run(body); err != nil {
		return nil, err
	}
	logging.DeckDebug("parsed %s: %d links, slides=%v", id, len(p.post.Links), p.post.HasSlides())
	return p.post, nil
}

type phase int

const (
	phaseBefore phase = iota
	phaseDeck
	phaseAfter
)

type parser struct {
	post    *Post
	builder *deck.Builder
	line    int

	phase     phase
	inShow    bool
	inSlide   bool
	slide     int
	inSegment bool
	segment   int
	segBody   strings.Builder
	before    strings.Builder
	after     strings.Builder

	link     *Link
	linkText strings.Builder

	math      bool // inside a display-math span
	spanDepth int  // nesting of plain spans inside a math span
}

func (p *parser) fail(err error) error {
	slide := -1
	if p.inSlide {
		slide = p.slide
	}
	var de *deck.DeclarationError
	if errors.As(err, &de) {
		return err
	}
	return &deck.DeclarationError{Line: p.line, Slide: slide, Err: err}
}

// out returns the buffer text currently flows into.
func (p *parser) out() *strings.Builder {
	switch {
	case p.link != nil:
		return &p.linkText
	case p.inSegment:
		return &p.segBody
	case p.phase == phaseAfter:
		return &p.after
	default:
		return &p.before
	}
}

func (p *parser) run(body []byte) error {
	z := html.NewTokenizer(bytes.NewReader(maskCode(body)))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				return p.finish()
			}
			return p.fail(z.Err())
		}

		raw := append([]byte(nil), z.Raw()...)
		tok := z.Token()
		var err error
		switch tt {
		case html.TextToken:
			err = p.text(string(raw))
		case html.StartTagToken:
			err = p.start(tok, string(raw), false)
		case html.SelfClosingTagToken:
			err = p.start(tok, string(raw), true)
		case html.EndTagToken:
			err = p.end(tok, string(raw))
		default:
			// Comments and doctypes pass through untouched.
			if !p.stray() {
				p.out().WriteString(string(raw))
			}
		}
		if err != nil {
			return err
		}
		p.line += bytes.Count(raw, []byte("\n"))
	}
}

// stray reports whether output would land inside the deck but outside any
// segment.
func (p *parser) stray() bool {
	return (p.inSlide || p.inShow) && !p.inSegment
}

func (p *parser) text(s string) error {
	s = strings.ReplaceAll(s, codeLT, "<")
	blank := strings.TrimSpace(s) == ""
	switch {
	case p.inSegment:
		p.out().WriteString(s)
	case p.inSlide, p.inShow:
		if !blank {
			return p.fail(ErrStrayText)
		}
	default:
		if p.phase == phaseDeck && !blank {
			// A bare slide closed and prose followed it.
			p.phase = phaseAfter
		}
		p.out().WriteString(s)
	}
	return nil
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func (p *parser) start(tok html.Token, raw string, selfClosing bool) error {
	switch tok.Data {
	case tagSlideShow:
		if p.inShow || p.inSlide {
			return p.fail(ErrNestedSlide)
		}
		if err := p.enterDeck(); err != nil {
			return err
		}
		p.inShow = !selfClosing
		return nil

	case tagSlide:
		if p.inSlide {
			return p.fail(ErrNestedSlide)
		}
		if err := p.enterDeck(); err != nil {
			return err
		}
		kind, err := deck.ParseKind(attr(tok, "kind"))
		if err != nil {
			return p.fail(err)
		}
		idx, err := p.builder.Slide(deck.SlideSpec{
			Kind:  kind,
			Media: p.resolveMedia(attr(tok, "media")),
			Line:  p.line,
		})
		if err != nil {
			return p.fail(err)
		}
		p.slide = idx
		// A self-closing slide stays empty; Build reports it with its line.
		p.inSlide = !selfClosing
		return nil

	case tagSlideSegment:
		if p.inSegment {
			return p.fail(ErrNestedSegment)
		}
		if !p.inSlide {
			return p.fail(deck.ErrSegmentOutsideSlide)
		}
		idx, err := p.builder.Segment(deck.SegmentSpec{Anchor: attr(tok, "anchor"), Line: p.line})
		if err != nil {
			return p.fail(err)
		}
		p.segment = idx
		p.inSegment = !selfClosing
		p.segBody.Reset()
		return nil

	case tagNextSegmentLink:
		if !p.inSegment {
			return p.fail(ErrLinkOutside)
		}
		p.link = &Link{Slide: p.slide, Segment: p.segment}
		p.linkText.Reset()
		if selfClosing {
			return p.closeLink()
		}
		return nil

	case tagShowDate:
		if p.stray() {
			return p.fail(ErrStrayText)
		}
		date := p.post.Meta.Date
		if v := attr(tok, "date"); v != "" {
			if t, err := time.Parse(DateLayout, v); err == nil {
				date = Date{t}
			}
		}
		p.out().WriteString("*" + date.Display() + "*")
		return nil

	case tagSpan:
		if p.stray() {
			return p.fail(ErrStrayText)
		}
		if p.math {
			p.spanDepth++
			p.out().WriteString(raw)
			return nil
		}
		if attr(tok, "class") == "math math-display" && !selfClosing {
			p.math = true
			p.spanDepth = 0
			if p.post.Meta.RenderMath {
				p.out().WriteString("$$")
			}
			return nil
		}
		p.out().WriteString(raw)
		return nil
	}

	// Any other tag is Markdown-embedded HTML.
	if p.stray() {
		return p.fail(ErrStrayText)
	}
	p.out().WriteString(raw)
	return nil
}

func (p *parser) end(tok html.Token, raw string) error {
	switch tok.Data {
	case tagSlideShow:
		if !p.inShow {
			return p.fail(ErrUnexpectedEnd)
		}
		if p.inSlide {
			return p.fail(ErrUnclosed)
		}
		p.inShow = false
		p.phase = phaseAfter
		return nil

	case tagSlide:
		if !p.inSlide {
			return p.fail(ErrUnexpectedEnd)
		}
		if p.inSegment {
			return p.fail(ErrUnclosed)
		}
		p.inSlide = false
		return nil

	case tagSlideSegment:
		if !p.inSegment {
			return p.fail(ErrUnexpectedEnd)
		}
		if p.link != nil {
			return p.fail(ErrUnclosed)
		}
		if err := p.builder.SetBody(p.slide, p.segment, strings.TrimSpace(p.segBody.String())); err != nil {
			return p.fail(err)
		}
		p.inSegment = false
		return nil

	case tagNextSegmentLink:
		if p.link == nil {
			return p.fail(ErrUnexpectedEnd)
		}
		return p.closeLink()

	case tagShowDate:
		return nil

	case tagSpan:
		if p.math && p.spanDepth > 0 {
			p.spanDepth--
			p.out().WriteString(raw)
			return nil
		}
		if p.math {
			p.math = false
			if p.post.Meta.RenderMath {
				p.out().WriteString("$$")
			}
			return nil
		}
	}

	if p.stray() {
		return p.fail(ErrStrayText)
	}
	p.out().WriteString(raw)
	return nil
}

func (p *parser) closeLink() error {
	l := *p.link
	l.Label = strings.TrimSpace(p.linkText.String())
	if l.Label == "" {
		l.Label = DefaultLinkLabel
	}
	p.link = nil
	p.post.Links = append(p.post.Links, l)
	p.segBody.WriteString("_" + l.Label + " →_")
	return nil
}

func (p *parser) enterDeck() error {
	switch p.phase {
	case phaseAfter:
		return p.fail(ErrSplitDeck)
	case phaseBefore:
		p.phase = phaseDeck
	}
	return nil
}

func (p *parser) finish() error {
	switch {
	case p.link != nil, p.inSegment, p.inSlide, p.inShow:
		return p.fail(ErrUnclosed)
	}

	p.post.Before = strings.TrimSpace(p.before.String())
	p.post.After = strings.TrimSpace(p.after.String())
	if p.phase == phaseBefore {
		return nil
	}

	d, err := p.builder.Build()
	if err != nil {
		return err
	}
	p.post.Deck = d
	return nil
}

func (p *parser) resolveMedia(ref string) string {
	if ref == "" || p.post.Meta.MediaBase == "" {
		return ref
	}
	base, err := url.Parse(p.post.Meta.MediaBase)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// String summarizes the post for logs.
func (p *Post) String() string {
	if !p.HasSlides() {
		return fmt.Sprintf("%s (%s)", p.ID, p.Meta.Title)
	}
	return fmt.Sprintf("%s (%s, %d slides)", p.ID, p.Meta.Title, p.Deck.Len())
}
