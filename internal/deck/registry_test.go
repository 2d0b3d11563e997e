package deck

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_IndicesFollowDeclarationOrder(t *testing.T) {
	b := NewBuilder()

	counts := []int{2, 1, 3}
	for wantSlide, n := range counts {
		got, err := b.Slide(SlideSpec{Kind: KindText})
		require.NoError(t, err)
		assert.Equal(t, wantSlide, got)

		for wantSeg := 0; wantSeg < n; wantSeg++ {
			seg, err := b.Segment(SegmentSpec{})
			require.NoError(t, err)
			assert.Equal(t, wantSeg, seg)
		}
	}

	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 6, d.Total())

	for i, s := range d.Slides() {
		assert.Equal(t, i, s.Index)
		for j, seg := range s.Segments {
			assert.Equal(t, j, seg.Index)
			assert.Equal(t, i, seg.Slide)
		}
	}
}

func TestBuilder_SegmentOutsideSlide(t *testing.T) {
	b := NewBuilder()
	_, err := b.Segment(SegmentSpec{Line: 7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSegmentOutsideSlide))
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), "line 7")
}

func TestBuilder_EmptySlideFailsBuild(t *testing.T) {
	b := NewBuilder()
	_, _ = b.Slide(SlideSpec{Line: 1})
	_, _ = b.Segment(SegmentSpec{})
	_, _ = b.Slide(SlideSpec{Line: 12})

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySlide))

	var de *DeclarationError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Slide)
	assert.Equal(t, 12, de.Line)
}

func TestBuilder_SealedAfterBuild(t *testing.T) {
	b := NewBuilder()
	_, _ = b.Slide(SlideSpec{})
	_, _ = b.Segment(SegmentSpec{})
	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Slide(SlideSpec{})
	assert.ErrorIs(t, err, ErrSealed)
	_, err = b.Segment(SegmentSpec{})
	assert.ErrorIs(t, err, ErrSealed)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrSealed)
}

func TestBuilder_SetBody(t *testing.T) {
	b := NewBuilder()
	_, _ = b.Slide(SlideSpec{Kind: KindSplit, Media: "intro.json"})
	_, _ = b.Segment(SegmentSpec{Anchor: "a"})
	require.NoError(t, b.SetBody(0, 0, "# Hello"))
	assert.Error(t, b.SetBody(0, 1, "nope"))

	d, err := b.Build()
	require.NoError(t, err)
	seg, ok := d.Segment(0, 0)
	require.True(t, ok)
	assert.Equal(t, "# Hello", seg.Body)
	assert.Equal(t, "a", seg.Anchor)

	s, _ := d.Slide(0)
	assert.Equal(t, KindSplit, s.Kind)
	assert.Equal(t, "intro.json", s.Media)
}

func TestDeck_FlattenLocate(t *testing.T) {
	d, err := FromCounts(2, 1, 3)
	require.NoError(t, err)

	type pair struct{ Slide, Segment int }
	var got []pair
	for flat := 0; flat < d.Total(); flat++ {
		s, g, ok := d.Locate(flat)
		require.True(t, ok)
		back, ok := d.Flatten(s, g)
		require.True(t, ok)
		assert.Equal(t, flat, back)
		got = append(got, pair{s, g})
	}

	want := []pair{{0, 0}, {0, 1}, {1, 0}, {2, 0}, {2, 1}, {2, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locate mismatch (-want +got):\n%s", diff)
	}

	_, _, ok := d.Locate(6)
	assert.False(t, ok)
	_, _, ok = d.Locate(-1)
	assert.False(t, ok)
	_, ok = d.Flatten(1, 1)
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindText, false},
		{"text", KindText, false},
		{"split", KindSplit, false},
		{"video", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownKind, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDeck_SlidesReturnsCopy(t *testing.T) {
	d, err := FromCounts(1)
	require.NoError(t, err)
	slides := d.Slides()
	slides[0].Media = "changed"
	s, _ := d.Slide(0)
	assert.Empty(t, s.Media)
}
