package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"postdeck/internal/config"
	"postdeck/internal/deck"
	"postdeck/internal/fragment"
	"postdeck/internal/logging"
	"postdeck/internal/manifest"
	"postdeck/internal/mdx"
	"postdeck/internal/nav"
	"postdeck/internal/post"
	"postdeck/internal/remote"
	"postdeck/internal/watch"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrNoSlides is returned when presenting a post without a deck.
var ErrNoSlides = errors.New("post declares no slides")

// Options configures a presenter.
type Options struct {
	Post      *mdx.Post
	Presenter config.PresenterConfig

	// Location persists the current slide. Defaults to an in-memory one.
	Location fragment.Location

	// Fetcher loads graphics manifests of split slides.
	Fetcher     manifest.Fetcher
	Concurrency int

	// Player plays clips; nil lists clips without ever completing them.
	Player manifest.Player

	// Remote receives a snapshot after every position change.
	Remote *remote.Server

	// Renderer defaults to glamour with the configured theme.
	Renderer RendererFactory
	Styles   *Styles
}

// Messages for tea updates
type (
	// ReloadMsg carries a live reload result into the loop.
	ReloadMsg watch.Result

	panesLoadedMsg struct {
		gen    int
		failed int
	}

	clipDoneMsg struct {
		gen  int
		ref  clipRef
		clip manifest.Clip
		err  error
	}
)

// Model is the presenter.
type Model struct {
	post    *mdx.Post
	ctl     *nav.Controller
	persist *fragment.Persister
	reveal  nav.Reveal
	cfg     config.PresenterConfig

	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	styles   Styles
	layout   LayoutConfig

	newRenderer RendererFactory
	renderers   map[int]Renderer
	cache       *RenderCache
	doc         document

	scroll scroller
	resize ResizeDebouncer

	fetcher     manifest.Fetcher
	concurrency int
	panes       map[int]*manifest.Pane
	paneGen     int

	player     manifest.Player
	playing    clipRef
	playGen    int
	playCancel context.CancelFunc

	remote *remote.Server

	notice    string
	noticeErr bool
	ready     bool
}

// New builds a presenter and restores the persisted position.
func New(opts Options) (*Model, error) {
	if opts.Post == nil || !opts.Post.HasSlides() {
		return nil, ErrNoSlides
	}
	state, err := nav.NewState(opts.Post.Deck)
	if err != nil {
		return nil, err
	}

	styles := NewStyles(ThemeFor(opts.Presenter.Theme))
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	factory := opts.Renderer
	if factory == nil {
		factory = GlamourRenderer(opts.Presenter.Theme)
	}
	loc := opts.Location
	if loc == nil {
		loc = fragment.NewMemory("")
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = manifest.NewClient(config.DefaultConfig().GetManifestTimeout())
	}

	m := &Model{
		post:        opts.Post,
		ctl:         nav.NewController(state),
		reveal:      nav.ParseReveal(opts.Presenter.Reveal),
		cfg:         opts.Presenter,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		viewport:    viewport.New(0, 0),
		styles:      styles,
		newRenderer: factory,
		renderers:   make(map[int]Renderer),
		cache:       NewRenderCache(512),
		scroll:      newScroller(opts.Presenter.AdvanceScroll, opts.Presenter.RewindScroll),
		resize:      NewResizeDebouncer(DefaultResizeDuration),
		fetcher:     fetcher,
		concurrency: opts.Concurrency,
		player:      opts.Player,
		remote:      opts.Remote,
	}
	m.panes = buildPanes(opts.Post.Deck)

	restored := fragment.Restore(loc, m.ctl)
	m.persist = fragment.NewPersister(loc, state, func(err error) {
		m.setNotice(fmt.Sprintf("could not save position: %v", err), true)
	})
	logging.Boot("presenting %s from %s", opts.Post, restored)

	m.syncKeys()
	m.publish()
	return m, nil
}

func buildPanes(d *deck.Deck) map[int]*manifest.Pane {
	panes := make(map[int]*manifest.Pane)
	for _, s := range d.Slides() {
		if s.Kind == deck.KindSplit {
			panes[s.Index] = manifest.NewPane(s.Index, s.Media)
		}
	}
	return panes
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.prefetch()
}

// Position returns the current position.
func (m *Model) Position() nav.Position {
	return m.ctl.State().Position()
}

// Close stops playback and position persistence.
func (m *Model) Close() {
	m.stopPlayback()
	m.persist.Close()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		if !m.ready {
			// Initial synchronization: render, place the viewport, then let
			// the persister write.
			m.ready = true
			play := m.startPlayback()
			m.rerender()
			m.viewport.SetYOffset(m.scroll.jump(m.target()))
			m.persist.Ready()
			return m, play
		}
		return m, m.resize.Resize(msg.Width, msg.Height)

	case resizeSettledMsg:
		if m.resize.Settled(msg) {
			m.rerender()
			m.viewport.SetYOffset(m.scroll.jump(m.target()))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case scrollFrameMsg:
		if msg.seq != m.scroll.seq || !m.scroll.active {
			return m, nil
		}
		line, done := m.scroll.step()
		m.viewport.SetYOffset(line)
		if done {
			return m, nil
		}
		return m, m.scroll.tick()

	case panesLoadedMsg:
		if msg.gen != m.paneGen {
			return m, nil
		}
		if msg.failed > 0 {
			m.setNotice(fmt.Sprintf("%d graphics manifest(s) failed to load", msg.failed), true)
		}
		var play tea.Cmd
		if !m.playing.active {
			play = m.startPlayback()
		}
		m.rerender()
		return m, play

	case clipDoneMsg:
		return m.handleClipDone(msg)

	case ReloadMsg:
		return m.handleReload(msg)

	case remoteMsg:
		ch, err := remote.Execute(m.ctl, msg.cmd)
		var cmd tea.Cmd
		if err == nil {
			cmd = m.afterChange(ch)
		}
		msg.reply <- remoteReply{snap: m.snapshot(), err: err}
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func hasKey(b key.Binding, msg tea.KeyMsg) bool {
	s := msg.String()
	for _, k := range b.Keys() {
		if k == s {
			return true
		}
	}
	return false
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pos := m.Position()
	total := m.ctl.State().Deck().Total()
	m.notice = ""

	// Navigation keys are consumed even while disabled so the viewport
	// never reinterprets them.
	switch {
	case hasKey(m.keys.Quit, msg):
		m.Close()
		return m, tea.Quit

	case hasKey(m.keys.Help, msg):
		m.help.ShowAll = !m.help.ShowAll
		m.setSize(m.layout.TerminalWidth, m.layout.TerminalHeight)
		return m, nil

	case hasKey(m.keys.Next, msg):
		if !m.ctl.HasNext() {
			return m, nil
		}
		return m, m.navigate(m.ctl.Next())

	case hasKey(m.keys.Previous, msg):
		if !m.ctl.HasPrevious() {
			return m, nil
		}
		return m, m.navigate(m.ctl.Previous())

	case hasKey(m.keys.Follow, msg):
		if _, ok := m.post.LinkAt(pos.Slide, pos.Segment); !ok || !m.ctl.LinkActive(pos.Slide, pos.Segment) {
			return m, nil
		}
		return m, m.navigate(m.ctl.FollowLink(pos.Slide, pos.Segment))

	case hasKey(m.keys.First, msg):
		if pos.Flat == 0 {
			return m, nil
		}
		return m, m.navigate(m.ctl.Goto(0))

	case hasKey(m.keys.Last, msg):
		if pos.Flat == total-1 {
			return m, nil
		}
		return m, m.navigate(m.ctl.Goto(total - 1))
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) navigate(ch nav.Change, err error) tea.Cmd {
	if err != nil {
		m.setNotice(err.Error(), true)
		return nil
	}
	return m.afterChange(ch)
}

// afterChange brings every dependent view in line with a position change.
func (m *Model) afterChange(ch nav.Change) tea.Cmd {
	m.syncKeys()
	play := m.startPlayback()
	m.rerender()
	m.publish()
	return tea.Batch(m.scrollTo(ch), play)
}

func (m *Model) scrollTo(ch nav.Change) tea.Cmd {
	if !m.ready {
		return nil
	}
	target := m.target()
	if m.scroll.modeFor(ch.Dir) == config.ScrollInstant {
		m.viewport.SetYOffset(m.scroll.jump(target))
		return nil
	}
	return m.scroll.animateTo(m.viewport.YOffset, target)
}

// target is the clamped viewport offset for the current position.
func (m *Model) target() int {
	line := m.doc.anchor(m.Position().Flat)
	max := m.doc.lines - m.viewport.Height
	if max < 0 {
		max = 0
	}
	if line > max {
		line = max
	}
	return line
}

func (m *Model) handleClipDone(msg clipDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.playGen {
		return m, nil
	}
	m.playing = clipRef{}
	if msg.err != nil {
		if !errors.Is(msg.err, context.Canceled) {
			m.setNotice(msg.err.Error(), true)
		}
		m.rerender()
		return m, nil
	}

	pos := m.Position()
	if msg.clip.AutoNext && !msg.clip.Loop &&
		pos.Slide == msg.ref.slide && pos.Segment == msg.ref.segment && m.ctl.HasNext() {
		return m, m.navigate(m.ctl.Next())
	}
	m.rerender()
	return m, nil
}

func (m *Model) handleReload(msg ReloadMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.setNotice(fmt.Sprintf("reload failed, keeping previous deck: %v", msg.Err), true)
		return m, nil
	}
	if msg.Post == nil || !msg.Post.HasSlides() {
		m.setNotice("reloaded post declares no slides, keeping previous deck", true)
		return m, nil
	}

	ch, err := m.ctl.Reload(msg.Post.Deck)
	if err != nil {
		m.setNotice(err.Error(), true)
		return m, nil
	}
	m.post = msg.Post
	m.panes = buildPanes(msg.Post.Deck)
	m.paneGen++

	cmd := m.afterChange(ch)
	m.setNotice("reloaded "+post.ID(msg.Path), false)
	return m, tea.Batch(cmd, m.prefetch())
}

func (m *Model) prefetch() tea.Cmd {
	if len(m.panes) == 0 {
		return nil
	}
	panes := make([]*manifest.Pane, 0, len(m.panes))
	for _, p := range m.panes {
		panes = append(panes, p)
	}
	sort.Slice(panes, func(i, j int) bool { return panes[i].Slide < panes[j].Slide })

	gen, f, limit := m.paneGen, m.fetcher, m.concurrency
	return func() tea.Msg {
		failed := manifest.Prefetch(context.Background(), f, panes, limit)
		return panesLoadedMsg{gen: gen, failed: failed}
	}
}

func (m *Model) stopPlayback() {
	if m.playCancel != nil {
		m.playCancel()
		m.playCancel = nil
	}
	m.playing = clipRef{}
	m.playGen++
}

// startPlayback plays the clip belonging to the current segment, replacing
// whatever was playing.
func (m *Model) startPlayback() tea.Cmd {
	m.stopPlayback()
	if !m.ready {
		return nil
	}

	pos := m.Position()
	pane, ok := m.panes[pos.Slide]
	if !ok || pane.State() != manifest.PaneReady {
		return nil
	}
	clip, ok := pane.Manifest().Clip(pos.Segment)
	if !ok || m.player == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.playCancel = cancel
	ref := clipRef{slide: pos.Slide, segment: pos.Segment, active: true}
	m.playing = ref
	gen, player := m.playGen, m.player
	logging.Manifest("playing %s for %s", clip.File, pos)
	return func() tea.Msg {
		err := player.Play(ctx, clip)
		return clipDoneMsg{gen: gen, ref: ref, clip: clip, err: err}
	}
}

func (m *Model) setSize(width, height int) {
	m.layout = NewLayoutConfig(width, height, m.cfg.ProseWidth, m.cfg.SplitPaneRatio)
	m.help.Width = width
	m.viewport.Width = width
	h := m.layout.ViewportHeight()
	if m.help.ShowAll {
		h -= len(m.keys.FullHelp()) - 1
	}
	if h < 1 {
		h = 1
	}
	m.viewport.Height = h
}

func (m *Model) syncKeys() {
	pos := m.Position()
	m.keys.Next.SetEnabled(m.ctl.HasNext())
	m.keys.Previous.SetEnabled(m.ctl.HasPrevious())
	_, hasLink := m.post.LinkAt(pos.Slide, pos.Segment)
	m.keys.Follow.SetEnabled(hasLink && m.ctl.LinkActive(pos.Slide, pos.Segment))
}

func (m *Model) setNotice(s string, isErr bool) {
	m.notice = s
	m.noticeErr = isErr
}

func (m *Model) snapshot() remote.Snapshot {
	return remote.SnapshotOf(m.post.ID, m.post.Meta.Title, m.ctl)
}

func (m *Model) publish() {
	if m.remote != nil {
		m.remote.Publish(m.snapshot())
	}
}

func (m *Model) rerender() {
	if !m.ready {
		return
	}
	m.doc = buildDocument(docInput{
		post:    m.post,
		deck:    m.ctl.State().Deck(),
		pos:     m.Position(),
		reveal:  m.reveal,
		layout:  m.layout,
		styles:  m.styles,
		panes:   m.panes,
		playing: m.playing,
	}, m.render)
	m.viewport.SetContent(m.doc.content)
}

func (m *Model) render(md string, width int) string {
	key := ComputeKey(md, width, m.cfg.Theme)
	out, err := m.cache.GetOrCompute(key, func() (string, error) {
		r, ok := m.renderers[width]
		if !ok {
			var err error
			if r, err = m.newRenderer(width); err != nil {
				return "", err
			}
			m.renderers[width] = r
		}
		return r.Render(md)
	})
	if err != nil {
		logging.RenderDebug("render at width %d failed: %v", width, err)
		return md
	}
	return out
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading…"
	}
	return strings.Join([]string{m.headerView(), m.viewport.View(), m.footerView()}, "\n")
}

func (m *Model) headerView() string {
	meta := m.post.Meta
	head := m.styles.Title.Render(meta.Title) + "  " + m.styles.Subtitle.Render(meta.Date.Display())
	if tags := post.FormatTags(meta.Tags); tags != "" {
		head += "  " + m.styles.Tag.Render(tags)
	}

	status := ""
	switch {
	case m.notice != "" && m.noticeErr:
		status = m.styles.Error.Render(m.notice)
	case m.notice != "":
		status = m.styles.Info.Render(m.notice)
	}
	return m.styles.Header.Render(head) + "\n" + m.styles.Footer.Render(status)
}

func (m *Model) footerView() string {
	pos := m.Position()
	d := m.ctl.State().Deck()

	control := func(label string, enabled bool) string {
		if enabled {
			return m.styles.ControlActive.Render(label)
		}
		return m.styles.ControlDisabled.Render(label)
	}
	parts := []string{
		control("◀ prev", m.ctl.HasPrevious()),
		m.styles.Muted.Render(fmt.Sprintf("slide %d/%d · %d/%d",
			pos.Slide+1, d.Len(), pos.Segment+1, d.SegmentCount(pos.Slide))),
		control("next ▶", m.ctl.HasNext()),
	}
	if l, ok := m.post.LinkAt(pos.Slide, pos.Segment); ok && m.ctl.LinkActive(pos.Slide, pos.Segment) {
		parts = append(parts, m.styles.LinkHint.Render("enter: "+l.Label))
	}
	return m.styles.Footer.Render(strings.Join(parts, "   ")) + "\n" + m.help.View(m.keys)
}
