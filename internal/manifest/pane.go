package manifest

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"postdeck/internal/logging"

	"golang.org/x/sync/errgroup"
)

// PaneState is the lifecycle of a slide's graphic pane.
type PaneState int

const (
	PaneLoading PaneState = iota
	PaneReady
	PaneFailed // Terminal: a failed pane is never retried
)

func (s PaneState) String() string {
	switch s {
	case PaneReady:
		return "ready"
	case PaneFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Fetcher loads a manifest. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Manifest, error)
}

// Pane holds the graphic state of one split slide. Its failure never
// touches navigation or any other pane.
type Pane struct {
	Slide int
	URL   string

	mu       sync.RWMutex
	state    PaneState
	manifest *Manifest
	err      error
}

// NewPane returns a pane in the loading state.
func NewPane(slide int, url string) *Pane {
	return &Pane{Slide: slide, URL: url}
}

// State returns the pane state.
func (p *Pane) State() PaneState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Manifest returns the loaded manifest, or nil unless ready.
func (p *Pane) Manifest() *Manifest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.manifest
}

// Err returns the load error of a failed pane.
func (p *Pane) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Load fetches the manifest once. Panes that already settled are left as is.
func (p *Pane) Load(ctx context.Context, f Fetcher) error {
	p.mu.RLock()
	settled := p.state != PaneLoading
	p.mu.RUnlock()
	if settled {
		return p.Err()
	}

	var (
		m   *Manifest
		err error
	)
	if p.URL == "" {
		err = fmt.Errorf("slide %d: no manifest reference", p.Slide)
	} else {
		m, err = f.Fetch(ctx, p.URL)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PaneLoading {
		return p.err
	}
	if err != nil {
		p.state = PaneFailed
		p.err = err
		logging.Get(logging.CategoryManifest).Error("slide %d pane failed: %v", p.Slide, err)
		return err
	}
	p.state = PaneReady
	p.manifest = m
	return nil
}

// Prefetch loads every pane concurrently. A failing pane does not cancel
// the others; the returned count is the number of failed panes.
func Prefetch(ctx context.Context, f Fetcher, panes []*Pane, limit int) int {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	failed := 0
	for _, p := range panes {
		p := p
		g.Go(func() error {
			if err := p.Load(gctx, f); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// Player plays a clip to completion.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

// ExecPlayer runs an external command with the clip file appended.
type ExecPlayer struct {
	Command []string
}

// Play blocks until the command exits or ctx is done.
func (p ExecPlayer) Play(ctx context.Context, clip Clip) error {
	if len(p.Command) == 0 {
		return fmt.Errorf("no player command configured")
	}
	args := append(append([]string{}, p.Command[1:]...), clip.File)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play %s: %w", clip.File, err)
	}
	return nil
}
