// Package watch reloads a post when its source file changes.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"postdeck/internal/logging"
	"postdeck/internal/mdx"
	"postdeck/internal/post"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a changed post is reparsed.
const DefaultDebounce = 300 * time.Millisecond

// Result is the outcome of one reload. Err is set when the new source does
// not parse; the caller keeps presenting the previous deck in that case.
type Result struct {
	Path string
	Post *mdx.Post
	Err  error
}

// Loader parses a post file.
type Loader func(path string) (*mdx.Post, error)

// Watcher watches one post file and reports debounced reloads.
// It watches the parent directory so editors that save by rename are seen.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	load        Loader
	onReload    func(Result)
	pending     time.Time
	debounceDur time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity.
type Stats struct {
	Events   int
	Reloads  int
	Failures int
	Errors   int
}

// New creates a watcher for path. onReload is called from the watcher
// goroutine after each settled change.
func New(path string, debounce time.Duration, onReload func(Result)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Watcher{
		watcher:     fw,
		path:        abs,
		load:        post.LoadFile,
		onReload:    onReload,
		debounceDur: debounce,
		now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped watching %s", w.path)
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent records a change to the watched file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	logging.Get(logging.CategoryWatch).Debug("%s event for %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.pending = w.now()
	w.mu.Unlock()
}

// flush reloads once the pending change has settled. It reports whether a
// reload happened.
func (w *Watcher) flush() bool {
	w.mu.Lock()
	if w.pending.IsZero() || w.now().Sub(w.pending) < w.debounceDur {
		w.mu.Unlock()
		return false
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	p, err := w.load(w.path)
	res := Result{Path: w.path, Post: p, Err: err}

	w.mu.Lock()
	if err != nil {
		w.stats.Failures++
	} else {
		w.stats.Reloads++
	}
	w.mu.Unlock()

	if err != nil {
		logging.Get(logging.CategoryWatch).Warn("reload of %s failed, keeping previous deck: %v", w.path, err)
	} else {
		logging.Watch("reloaded %s", p)
	}
	if w.onReload != nil {
		w.onReload(res)
	}
	return true
}
