package ui

import (
	"math"
	"time"

	"postdeck/internal/config"
	"postdeck/internal/nav"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

const scrollFPS = 60

// scrollFrameMsg advances a running scroll animation.
type scrollFrameMsg struct {
	seq int
}

// scroller animates the viewport offset with a critically damped spring.
type scroller struct {
	spring  harmonica.Spring
	pos     float64
	vel     float64
	target  float64
	active  bool
	seq     int
	advance config.ScrollMode
	rewind  config.ScrollMode
}

func newScroller(advance, rewind config.ScrollMode) scroller {
	return scroller{
		spring:  harmonica.NewSpring(harmonica.FPS(scrollFPS), 8.0, 1.0),
		advance: advance,
		rewind:  rewind,
	}
}

// modeFor returns how a change in direction dir should scroll.
func (s *scroller) modeFor(dir nav.Direction) config.ScrollMode {
	switch dir {
	case nav.DirForward:
		if s.advance == config.ScrollInstant {
			return config.ScrollInstant
		}
		return config.ScrollSmooth
	case nav.DirBackward:
		if s.rewind == config.ScrollSmooth {
			return config.ScrollSmooth
		}
		return config.ScrollInstant
	default:
		return config.ScrollInstant
	}
}

// jump stops any animation and places the offset at line.
func (s *scroller) jump(line int) int {
	s.seq++
	s.active = false
	s.pos = float64(line)
	s.vel = 0
	s.target = s.pos
	return line
}

// animateTo starts an animation from the current offset and returns the
// command that drives it.
func (s *scroller) animateTo(from, line int) tea.Cmd {
	s.seq++
	if !s.active {
		s.pos = float64(from)
		s.vel = 0
	}
	s.target = float64(line)
	s.active = true
	return s.tick()
}

func (s *scroller) tick() tea.Cmd {
	seq := s.seq
	return tea.Tick(time.Second/scrollFPS, func(time.Time) tea.Msg {
		return scrollFrameMsg{seq: seq}
	})
}

// step advances one frame. It returns the offset to show and whether the
// animation finished.
func (s *scroller) step() (line int, done bool) {
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, s.target)
	if math.Abs(s.pos-s.target) < 0.5 && math.Abs(s.vel) < 0.5 {
		s.pos, s.vel = s.target, 0
		s.active = false
		return int(s.target), true
	}
	return int(math.Round(s.pos)), false
}
