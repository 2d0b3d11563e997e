package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultResizeDuration is the debounce applied to terminal resizes before
// the document is re-rendered at the new width.
const DefaultResizeDuration = 150 * time.Millisecond

// resizeSettledMsg fires when no newer resize arrived within the window.
type resizeSettledMsg struct {
	seq    int
	width  int
	height int
}

// ResizeDebouncer collapses bursts of resize events inside the event loop.
// Each resize bumps a sequence number; only the tick carrying the latest
// number is acted on.
type ResizeDebouncer struct {
	duration time.Duration
	seq      int
	lastW    int
	lastH    int
}

// NewResizeDebouncer creates a debouncer with the given quiet period.
func NewResizeDebouncer(d time.Duration) ResizeDebouncer {
	return ResizeDebouncer{duration: d}
}

// Resize records a pending size and returns the command that reports it
// once settled.
func (rd *ResizeDebouncer) Resize(width, height int) tea.Cmd {
	rd.seq++
	seq := rd.seq
	return tea.Tick(rd.duration, func(time.Time) tea.Msg {
		return resizeSettledMsg{seq: seq, width: width, height: height}
	})
}

// Settled reports whether msg is the latest resize, recording its size.
func (rd *ResizeDebouncer) Settled(msg resizeSettledMsg) bool {
	if msg.seq != rd.seq {
		return false
	}
	rd.lastW, rd.lastH = msg.width, msg.height
	return true
}

// LastSize returns the last settled size.
func (rd *ResizeDebouncer) LastSize() (width, height int) {
	return rd.lastW, rd.lastH
}
