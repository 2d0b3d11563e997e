package mdx

import (
	"errors"
	"strings"
	"testing"

	"postdeck/internal/deck"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const talk = `---
title: Reactive UIs
date: 2024-03-01
desc: A talk about signals
tags: [rust, ui]
layout: full
render_math: true
media_base: https://example.com/media/
---
Written for the meetup on <ShowDate />.

<SlideShow>
<Slide kind="text">
<SlideSegment anchor="intro">
# Signals

What is a signal? <NextSegmentLink>show me</NextSegmentLink>
</SlideSegment>
<SlideSegment>
A cell that notifies.
</SlideSegment>
</Slide>

<Slide kind="split" media="effects.json">
<SlideSegment>
Effects: <span class="math math-display">x^2</span>
</SlideSegment>
</Slide>
</SlideShow>

Thanks for reading.
`

func TestParse_Talk(t *testing.T) {
	p, err := Parse("reactive", []byte(talk))
	require.NoError(t, err)

	assert.Equal(t, "reactive", p.ID)
	assert.Equal(t, "Reactive UIs", p.Meta.Title)
	assert.Equal(t, "Mar 1, 2024", p.Meta.Date.Display())
	assert.Equal(t, []string{"rust", "ui"}, p.Meta.Tags)
	assert.Equal(t, LayoutFull, p.Meta.Layout)
	assert.True(t, p.Meta.RenderMath)

	assert.Equal(t, "Written for the meetup on *Mar 1, 2024*.", p.Before)
	assert.Equal(t, "Thanks for reading.", p.After)

	require.True(t, p.HasSlides())
	d := p.Deck
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 3, d.Total())

	s0, _ := d.Slide(0)
	assert.Equal(t, deck.KindText, s0.Kind)
	assert.Equal(t, "intro", s0.Segments[0].Anchor)
	assert.Equal(t, "# Signals\n\nWhat is a signal? _show me →_", s0.Segments[0].Body)
	assert.Equal(t, "A cell that notifies.", s0.Segments[1].Body)

	s1, _ := d.Slide(1)
	assert.Equal(t, deck.KindSplit, s1.Kind)
	assert.Equal(t, "https://example.com/media/effects.json", s1.Media)
	assert.Equal(t, "Effects: $$x^2$$", s1.Segments[0].Body)

	want := []Link{{Slide: 0, Segment: 0, Label: "show me"}}
	if diff := cmp.Diff(want, p.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	l, ok := p.LinkAt(0, 0)
	assert.True(t, ok)
	assert.Equal(t, "show me", l.Label)
	_, ok = p.LinkAt(0, 1)
	assert.False(t, ok)
}

func TestParse_ProseOnly(t *testing.T) {
	src := "---\ntitle: About\ndate: 2023-12-24\n---\nHello <b>world</b>.\n"
	p, err := Parse("about", []byte(src))
	require.NoError(t, err)
	assert.False(t, p.HasSlides())
	assert.Nil(t, p.Deck)
	assert.Equal(t, "Hello <b>world</b>.", p.Before)
	assert.Equal(t, LayoutProse, p.Meta.Layout)
}

func TestParse_BareSlidesWithoutShow(t *testing.T) {
	src := "---\ntitle: t\ndate: 2024-01-01\n---\n" +
		"<Slide><SlideSegment>a</SlideSegment><SlideSegment/></Slide>\n" +
		"<Slide><SlideSegment>b <NextSegmentLink/></SlideSegment></Slide>\n" +
		"after\n"
	p, err := Parse("bare", []byte(src))
	require.NoError(t, err)
	require.True(t, p.HasSlides())
	assert.Equal(t, 2, p.Deck.Len())
	assert.Equal(t, 2, p.Deck.SegmentCount(0))
	assert.Equal(t, "after", p.After)
	require.Len(t, p.Links, 1)
	assert.Equal(t, DefaultLinkLabel, p.Links[0].Label)
}

func TestParse_MathWithoutRenderMath(t *testing.T) {
	src := "---\ntitle: t\ndate: 2024-01-01\n---\n" +
		`<span class="math math-display">y</span> and <span class="note">n</span>`
	p, err := Parse("m", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, `y and <span class="note">n</span>`, p.Before)
}

func TestParse_InlineCodeIsText(t *testing.T) {
	src := "---\ntitle: t\ndate: 2024-01-01\n---\nWrap content in `<SlideSegment>` tags.\n"
	p, err := Parse("docs", []byte(src))
	require.NoError(t, err)
	assert.False(t, p.HasSlides())
	assert.Equal(t, "Wrap content in `<SlideSegment>` tags.", p.Before)
}

func TestParse_FencedCodeIsText(t *testing.T) {
	fence := "```html\n<Slide><SlideSegment>x</SlideSegment></Slide>\n```"
	src := "---\ntitle: t\ndate: 2024-01-01\n---\n" +
		"Markup looks like this:\n\n" + fence + "\n\n" +
		"<Slide><SlideSegment>real `<Slide>` talk</SlideSegment></Slide>\n" +
		"more prose\n"
	p, err := Parse("docs", []byte(src))
	require.NoError(t, err)
	require.True(t, p.HasSlides())
	assert.Equal(t, 1, p.Deck.Len())
	assert.Equal(t, 1, p.Deck.Total())
	assert.Equal(t, "Markup looks like this:\n\n"+fence, p.Before)
	assert.Equal(t, "more prose", p.After)

	seg, ok := p.Deck.Segment(0, 0)
	require.True(t, ok)
	assert.Equal(t, "real `<Slide>` talk", seg.Body)
}

func TestParse_FencedCodeInsideSegment(t *testing.T) {
	src := "---\ntitle: t\ndate: 2024-01-01\n---\n" +
		"<Slide>\n<SlideSegment>\n~~~\n<NextSegmentLink/>\n~~~\n</SlideSegment>\n</Slide>\n"
	p, err := Parse("docs", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, p.Links)

	seg, ok := p.Deck.Segment(0, 0)
	require.True(t, ok)
	assert.Equal(t, "~~~\n<NextSegmentLink/>\n~~~", seg.Body)
}

func TestParse_StructuralErrors(t *testing.T) {
	head := "---\ntitle: t\ndate: 2024-01-01\n---\n"
	tests := []struct {
		name string
		body string
		want error
		line int
	}{
		{"segment outside slide", "text\n<SlideSegment>x</SlideSegment>", deck.ErrSegmentOutsideSlide, 6},
		{"empty slide", "<Slide>\n</Slide>", deck.ErrEmptySlide, 5},
		{"self-closing empty slide", "<Slide/>", deck.ErrEmptySlide, 5},
		{"nested slide", "<Slide><SlideSegment>a</SlideSegment>\n<Slide>", ErrNestedSlide, 6},
		{"nested segment", "<Slide><SlideSegment><SlideSegment>", ErrNestedSegment, 5},
		{"stray text", "<Slide>\nloose words\n<SlideSegment>a</SlideSegment></Slide>", ErrStrayText, 5},
		{"stray date", "<Slide><ShowDate/><SlideSegment>a</SlideSegment></Slide>", ErrStrayText, 5},
		{"stray tag in show", "<SlideShow>\n<br>\n<Slide><SlideSegment>a</SlideSegment></Slide></SlideShow>", ErrStrayText, 6},
		{"stray closing tag", "<Slide>\n</b><SlideSegment>a</SlideSegment></Slide>", ErrStrayText, 6},
		{"unclosed", "<Slide><SlideSegment>a", ErrUnclosed, 5},
		{"unexpected end", "</Slide>", ErrUnexpectedEnd, 5},
		{"split deck", "<Slide><SlideSegment>a</SlideSegment></Slide>\nprose\n<Slide>", ErrSplitDeck, 7},
		{"link outside", "<NextSegmentLink/>", ErrLinkOutside, 5},
		{"unknown kind", `<Slide kind="video">`, deck.ErrUnknownKind, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad", []byte(head+tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, deck.IsStructural(err), "got %T", err)

			var de *deck.DeclarationError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.line, de.Line)
		})
	}
}

func TestParse_FrontMatterErrors(t *testing.T) {
	_, err := Parse("x", []byte("no header"))
	assert.ErrorIs(t, err, ErrNoFrontMatter)

	_, err = Parse("x", []byte("---\ntitle: t\n"))
	assert.ErrorIs(t, err, ErrNoFrontMatter)

	_, err = Parse("x", []byte("---\ntitle: t\n---\n"))
	assert.ErrorIs(t, err, ErrNoDate)

	_, err = Parse("x", []byte("---\ntitle: t\ndate: 2024-01-01\nlayout: wide\n---\n"))
	assert.ErrorIs(t, err, ErrBadLayout)

	_, err = Parse("x", []byte("---\ntitle: t\ndate: March 1\n---\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "YYYY-MM-DD"))
}

func TestPost_String(t *testing.T) {
	p, err := Parse("reactive", []byte(talk))
	require.NoError(t, err)
	assert.Equal(t, "reactive (Reactive UIs, 2 slides)", p.String())
}
