// Package supervisor implements the signal / cancellation supervisor: a
// dedicated thread turns asynchronous SIGINT/SIGTERM delivery
// into a synchronous atomic flag that the dispatcher and workers poll on
// every channel receive and I/O completion.
package supervisor

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tevino/abool/v2"
)

// Grace is how long live children are given to exit after SIGTERM before
// the supervisor escalates to SIGKILL.
const Grace = 2 * time.Second

// Supervisor owns the cancellation flag and the registry of live
// children that a second signal must be able to kill immediately.
type Supervisor struct {
	cancelled *abool.AtomicBool
	aborted   *abool.AtomicBool

	mu       sync.Mutex
	children map[int]*os.Process

	sigCh  chan os.Signal
	onTerm func() // invoked once, when cancellation begins (e.g. stop dispatch)
	done   chan struct{}
}

// New creates a Supervisor. onCancel, if non-nil, is called exactly once
// when the first SIGINT/SIGTERM arrives, before children are signalled.
func New(onCancel func()) *Supervisor {
	return &Supervisor{
		cancelled: abool.New(),
		aborted:   abool.New(),
		children:  make(map[int]*os.Process),
		sigCh:     make(chan os.Signal, 2),
		onTerm:    onCancel,
		done:      make(chan struct{}),
	}
}

// Cancelled reports whether cancellation has begun. Every suspension
// point in the dispatcher and worker pool polls this on each channel
// receive and I/O completion.
func (s *Supervisor) Cancelled() bool { return s.cancelled.IsSet() }

// Done returns a channel closed the instant cancellation begins, so a
// blocking send/receive elsewhere in the pipeline can select on it
// instead of only polling Cancelled() between operations.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Aborted reports whether a second signal has demanded immediate,
// unconditional termination — the merger should stop trying to drain
// completed records and exit as fast as possible.
func (s *Supervisor) Aborted() bool { return s.aborted.IsSet() }

// RegisterChild tracks a live child so a second signal can kill it
// immediately.
func (s *Supervisor) RegisterChild(p *os.Process) {
	s.mu.Lock()
	s.children[p.Pid] = p
	s.mu.Unlock()
}

// UnregisterChild stops tracking a child that has already exited.
func (s *Supervisor) UnregisterChild(p *os.Process) {
	s.mu.Lock()
	delete(s.children, p.Pid)
	s.mu.Unlock()
}

// Watch installs the SIGINT/SIGTERM handlers and runs the supervisor loop
// until stop is closed. It is meant to run on its own goroutine — the
// only portable way to convert an asynchronous signal into the
// synchronous flag the rest of the engine polls.
func (s *Supervisor) Watch(stop <-chan struct{}) {
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.sigCh)

	select {
	case <-s.sigCh:
	case <-stop:
		return
	}

	s.cancelled.Set()
	close(s.done)
	if s.onTerm != nil {
		s.onTerm()
	}
	s.signalChildren(syscall.SIGTERM)

	graceTimer := time.NewTimer(Grace)
	defer graceTimer.Stop()

	select {
	case <-s.sigCh:
		// Second signal: immediate, unconditional termination.
		s.aborted.Set()
		s.signalChildren(syscall.SIGKILL)
	case <-graceTimer.C:
		s.signalChildren(syscall.SIGKILL)
	case <-stop:
	}
}

func (s *Supervisor) signalChildren(sig syscall.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.children {
		_ = p.Signal(sig)
	}
}
