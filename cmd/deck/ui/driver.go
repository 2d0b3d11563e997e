package ui

import (
	"context"
	"errors"
	"sync"

	"postdeck/internal/remote"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNotAttached is returned by a ProgramDriver with no running program.
var ErrNotAttached = errors.New("presenter not running")

type remoteMsg struct {
	cmd   remote.Command
	reply chan remoteReply
}

type remoteReply struct {
	snap remote.Snapshot
	err  error
}

// Sender delivers messages into a running program. *tea.Program
// implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramDriver forwards remote commands into the presenter loop so the
// position is only ever mutated there.
type ProgramDriver struct {
	mu     sync.RWMutex
	sender Sender
}

// Attach connects the driver to the program. Create the driver first, hand
// it to the remote server, then attach once the program exists.
func (d *ProgramDriver) Attach(s Sender) {
	d.mu.Lock()
	d.sender = s
	d.mu.Unlock()
}

// Apply implements remote.Driver.
func (d *ProgramDriver) Apply(ctx context.Context, cmd remote.Command) (remote.Snapshot, error) {
	d.mu.RLock()
	s := d.sender
	d.mu.RUnlock()
	if s == nil {
		return remote.Snapshot{}, ErrNotAttached
	}

	reply := make(chan remoteReply, 1)
	go s.Send(remoteMsg{cmd: cmd, reply: reply})

	select {
	case r := <-reply:
		return r.snap, r.err
	case <-ctx.Done():
		return remote.Snapshot{}, ctx.Err()
	}
}
