package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"postdeck/internal/config"
	"postdeck/internal/fragment"
	"postdeck/internal/manifest"
	"postdeck/internal/mdx"
	"postdeck/internal/nav"
	"postdeck/internal/remote"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	m *manifest.Manifest
}

func (f fakeFetcher) Fetch(ctx context.Context, url string) (*manifest.Manifest, error) {
	if f.m == nil {
		return nil, errors.New("not found")
	}
	return f.m, nil
}

type plainRenderer struct{}

func (plainRenderer) Render(md string) (string, error) { return md, nil }

func plainFactory(int) (Renderer, error) { return plainRenderer{}, nil }

type instantPlayer struct {
	played []string
}

func (p *instantPlayer) Play(ctx context.Context, clip manifest.Clip) error {
	p.played = append(p.played, clip.File)
	return nil
}

type testOpts struct {
	frag    string
	fetcher manifest.Fetcher
	player  manifest.Player
}

func newTestModel(t *testing.T, o testOpts) (*Model, *fragment.Memory) {
	t.Helper()
	loc := fragment.NewMemory(o.frag)
	styles := NewStyles(LightTheme())
	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = fakeFetcher{}
	}
	m, err := New(Options{
		Post:      parseTalk(t),
		Presenter: *config.DefaultPresenterConfig(),
		Location:  loc,
		Fetcher:   fetcher,
		Player:    o.player,
		Renderer:  plainFactory,
		Styles:    &styles,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, loc
}

func ready(m *Model) {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
}

func press(m *Model, msg tea.KeyMsg) {
	m.Update(msg)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNew_RequiresSlides(t *testing.T) {
	p, err := mdx.Parse("prose", []byte("---\ntitle: Prose\ndate: 2024-01-01\n---\nJust words.\n"))
	require.NoError(t, err)

	_, err = New(Options{Post: p})
	assert.ErrorIs(t, err, ErrNoSlides)
}

func TestPresenter_RestoreDefersPersistence(t *testing.T) {
	m, loc := newTestModel(t, testOpts{frag: "slide-1"})

	pos := m.Position()
	assert.Equal(t, 1, pos.Slide)
	assert.Equal(t, 0, pos.Segment)
	assert.Equal(t, 2, pos.Flat)

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 3, m.Position().Flat)
	assert.Equal(t, 0, loc.Writes(), "nothing is written before the first layout")

	ready(m)
	frag, _ := loc.Fragment()
	assert.Equal(t, "slide-1", frag)
	assert.Equal(t, 1, loc.Writes())

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	frag, _ = loc.Fragment()
	assert.Equal(t, "slide-2", frag)
}

func TestPresenter_BadFragmentStartsAtZero(t *testing.T) {
	m, _ := newTestModel(t, testOpts{frag: "slide-99"})
	assert.Equal(t, 0, m.Position().Flat)
}

func TestPresenter_KeyNavigation(t *testing.T) {
	m, _ := newTestModel(t, testOpts{})
	ready(m)

	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, m.Position().Flat, "previous is disabled at the start")
	assert.Empty(t, m.notice)
	assert.False(t, m.keys.Previous.Enabled())

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	press(m, tea.KeyMsg{Type: tea.KeySpace})
	press(m, runes("n"))
	assert.Equal(t, nav.Position{Slide: 1, Segment: 1, Flat: 3}, m.Position())

	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, nav.Position{Slide: 0, Segment: 1, Flat: 1}, m.Position(),
		"previous from a first segment lands on the last segment of the slide before")

	press(m, runes("G"))
	assert.Equal(t, 4, m.Position().Flat)
	assert.False(t, m.keys.Next.Enabled())

	offset := m.viewport.YOffset
	press(m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, 4, m.Position().Flat)
	assert.Equal(t, offset, m.viewport.YOffset, "a disabled next never scrolls the viewport")

	press(m, runes("g"))
	assert.Equal(t, 0, m.Position().Flat)
}

func TestPresenter_FollowLink(t *testing.T) {
	m, _ := newTestModel(t, testOpts{})
	ready(m)

	assert.True(t, m.keys.Follow.Enabled())
	assert.Contains(t, m.View(), "enter: more")

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.Position().Flat)
	assert.False(t, m.keys.Follow.Enabled())

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.Position().Flat, "no link at the current segment")
}

func TestPresenter_RemoteCommands(t *testing.T) {
	m, _ := newTestModel(t, testOpts{})
	ready(m)

	reply := make(chan remoteReply, 1)
	m.Update(remoteMsg{cmd: remote.Command{Op: remote.OpGoto, Flat: 3}, reply: reply})
	r := <-reply
	require.NoError(t, r.err)
	assert.Equal(t, 3, r.snap.Position.Flat)
	assert.Equal(t, []int{2, 2, 1}, r.snap.Segments)
	assert.Equal(t, "slide-1", r.snap.Fragment)

	m.Update(remoteMsg{cmd: remote.Command{Op: remote.OpGoto, Flat: 9}, reply: reply})
	r = <-reply
	assert.ErrorIs(t, r.err, nav.ErrOutOfRange)
	assert.Equal(t, 3, r.snap.Position.Flat)
}

type loopSender struct {
	m *Model
}

func (s loopSender) Send(msg tea.Msg) { s.m.Update(msg) }

type dropSender struct{}

func (dropSender) Send(tea.Msg) {}

func TestProgramDriver(t *testing.T) {
	var d ProgramDriver
	_, err := d.Apply(context.Background(), remote.Command{Op: remote.OpNext})
	assert.ErrorIs(t, err, ErrNotAttached)

	m, _ := newTestModel(t, testOpts{})
	ready(m)
	d.Attach(loopSender{m: m})
	snap, err := d.Apply(context.Background(), remote.Command{Op: remote.OpNext})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Position.Flat)

	d.Attach(dropSender{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = d.Apply(ctx, remote.Command{Op: remote.OpNext})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPresenter_Reload(t *testing.T) {
	m, _ := newTestModel(t, testOpts{})
	ready(m)
	press(m, runes("G"))

	m.Update(ReloadMsg{Path: "signals.mdx", Err: errors.New("unclosed Slide")})
	assert.Contains(t, m.notice, "keeping previous deck")
	assert.Equal(t, 4, m.Position().Flat)

	smaller, err := mdx.Parse("signals", []byte("---\ntitle: Signals\ndate: 2024-03-01\n---\n<SlideShow>\n<Slide kind=\"text\">\n<SlideSegment>\nonly\n</SlideSegment>\n<SlideSegment>\nsecond\n</SlideSegment>\n</Slide>\n</SlideShow>\n"))
	require.NoError(t, err)

	m.Update(ReloadMsg{Path: "posts/signals.mdx", Post: smaller})
	assert.Equal(t, nav.Position{Slide: 0, Segment: 1, Flat: 1}, m.Position())
	assert.Equal(t, "reloaded signals", m.notice)
	assert.Empty(t, m.panes)
	assert.Contains(t, m.doc.content, "second")
}

func TestPresenter_AutoNextClip(t *testing.T) {
	player := &instantPlayer{}
	m, _ := newTestModel(t, testOpts{
		player: player,
		fetcher: fakeFetcher{m: &manifest.Manifest{Slides: []manifest.Clip{
			{File: "a.mp4", AutoNext: true},
			{File: "b.mp4", AutoNext: true, Loop: true},
		}}},
	})
	ready(m)

	loaded := m.Init()()
	m.Update(loaded)
	require.Equal(t, manifest.PaneReady, m.panes[1].State())

	reply := make(chan remoteReply, 1)
	m.Update(remoteMsg{cmd: remote.Command{Op: remote.OpGoto, Flat: 2}, reply: reply})
	<-reply

	play := m.startPlayback()
	require.NotNil(t, play)
	assert.Contains(t, m.View(), "(playing)")

	done := play().(clipDoneMsg)
	stale := done
	stale.gen--
	m.Update(stale)
	assert.Equal(t, 2, m.Position().Flat, "stale completions are ignored")

	m.Update(done)
	assert.Equal(t, 3, m.Position().Flat, "auto_next advances when the clip ends")

	play = m.startPlayback()
	require.NotNil(t, play)
	m.Update(play())
	assert.Equal(t, 3, m.Position().Flat, "looping clips never advance")
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, player.played)
}

func TestPresenter_FailedManifestKeepsNavigating(t *testing.T) {
	m, _ := newTestModel(t, testOpts{})
	ready(m)

	m.Update(m.Init()())
	assert.Contains(t, m.notice, "failed to load")
	assert.Equal(t, manifest.PaneFailed, m.panes[1].State())

	press(m, runes("G"))
	assert.Equal(t, 4, m.Position().Flat)
}

func TestPresenter_View(t *testing.T) {
	m, _ := newTestModel(t, testOpts{})
	assert.Equal(t, "loading…", m.View())

	ready(m)
	v := m.View()
	assert.Contains(t, v, "Signals")
	assert.Contains(t, v, "Mar 1, 2024")
	assert.Contains(t, v, "#ui")
	assert.Contains(t, v, "slide 1/3 · 1/2")
	assert.Contains(t, v, "Intro prose.")
}
