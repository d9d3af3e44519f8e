// Package merge implements the output merger: it consumes per-job
// completion records published by the worker pool and emits them to
// stdout/stderr in job-index order (grouped mode), or simply aggregates
// exit codes while workers tee output through directly (ungrouped mode).
package merge

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/edwingeng/deque"
	"github.com/mmstick/parallel/internal/ledger"
	"github.com/mmstick/parallel/internal/tempspace"
)

// Completion is the record a worker publishes once a job's child has
// exited (or failed to even start). StdoutPath/StderrPath are populated
// in grouped mode only; in ungrouped mode the worker has already
// written the child's output directly to the merger's stdout/stderr.
type Completion struct {
	Index      uint64
	ExitCode   int
	Killed     bool // true if the child was terminated by timeout/signal
	StdoutPath string
	StderrPath string

	// InputHash, StartedAt and FinishedAt are populated by the worker so
	// the merger can append a resume-ledger row as it emits the job in
	// order.
	InputHash [32]byte
	StartedAt time.Time
	FinishedAt time.Time
}

// Merger owns the emit pointer and the pending map of completed-but-not-
// yet-emitted jobs.
type Merger struct {
	ungroup      bool
	backlogLimit int
	space        *tempspace.Space
	stdout       io.Writer
	stderr       io.Writer
	ledger       *ledger.Ledger // nil if --resume ledger is disabled

	mu         sync.Mutex
	cond       *sync.Cond
	nextToEmit uint64
	pending    map[uint64]Completion
	backlog    deque.Deque // indices waiting to be emitted, for back-pressure accounting

	discarding bool // set once the stdout side has seen EPIPE

	failMu      sync.Mutex
	firstFail   *Completion
	anyKilled   bool
	totalEmit   uint64
}

// New builds a Merger. backlogLimit is the pending-map cardinality at
// which Publish blocks (default 4×P); stdout/stderr default to
// os.Stdout/os.Stderr if nil.
func New(ungroup bool, backlogLimit int, space *tempspace.Space, lg *ledger.Ledger, stdout, stderr io.Writer) *Merger {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if backlogLimit < 1 {
		backlogLimit = 1
	}
	m := &Merger{
		ungroup:      ungroup,
		backlogLimit: backlogLimit,
		space:        space,
		stdout:       stdout,
		stderr:       stderr,
		ledger:       lg,
		nextToEmit:   1,
		pending:      make(map[uint64]Completion),
		backlog:      deque.NewDeque(),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Publish hands a completed job to the merger. It blocks while the
// pending-map cardinality is at or above the configured back-pressure
// threshold — which in turn blocks the worker that called it from
// pulling its next job off the dispatch channel, propagating
// back-pressure all the way to the dispatcher.
func (m *Merger) Publish(c Completion) {
	m.recordOutcome(c)

	if m.ungroup {
		// Ungrouped mode never reorders and has no pending map to bound;
		// the worker has already streamed output directly.
		if m.ledger != nil {
			_ = m.ledger.Record(c.Index, c.InputHash, c.ExitCode, c.StartedAt, c.FinishedAt)
		}
		return
	}

	m.mu.Lock()
	for uint64(m.backlog.Len()) >= uint64(m.backlogLimit) && c.Index != m.nextToEmit {
		m.cond.Wait()
	}
	if c.Index == m.nextToEmit {
		m.emitLocked(c)
		m.drainPendingLocked()
	} else {
		m.pending[c.Index] = c
		m.backlog.PushBack(c.Index)
	}
	m.cond.Broadcast()
	m.mu.Unlock()
}

// drainPendingLocked emits every consecutive completion already waiting
// in the pending map, advancing nextToEmit as far as it can go.
func (m *Merger) drainPendingLocked() {
	for {
		c, ok := m.pending[m.nextToEmit]
		if !ok {
			return
		}
		delete(m.pending, m.nextToEmit)
		m.removeFromBacklogLocked(c.Index)
		m.emitLocked(c)
	}
}

func (m *Merger) removeFromBacklogLocked(index uint64) {
	n := m.backlog.Len()
	for i := 0; i < n; i++ {
		v := m.backlog.PopFront()
		if v.(uint64) != index {
			m.backlog.PushBack(v)
		}
	}
}

// emitLocked streams job c's temp files to stdout/stderr in order, then
// unlinks them, and advances nextToEmit. Must be called with m.mu held.
func (m *Merger) emitLocked(c Completion) {
	defer func() { m.nextToEmit = c.Index + 1 }()
	m.totalEmit++

	if m.ledger != nil {
		if err := m.ledger.Record(c.Index, c.InputHash, c.ExitCode, c.StartedAt, c.FinishedAt); err != nil {
			// The ledger is a best-effort resume aid, never load-bearing
			// for correctness of the merged output itself.
			_ = err
		}
	}

	if c.StdoutPath == "" && c.StderrPath == "" {
		return // expansion/spawn error with nothing spilled to disk
	}

	if !m.discarding {
		if err := m.copyAndRemove(m.stdout, c.StdoutPath); err != nil {
			if isBrokenPipe(err) {
				m.discarding = true
			}
		}
	} else if c.StdoutPath != "" {
		m.space.Untrack(c.StdoutPath)
	}

	if !m.discarding {
		if err := m.copyAndRemove(m.stderr, c.StderrPath); err != nil {
			if isBrokenPipe(err) {
				m.discarding = true
			}
		}
	} else if c.StderrPath != "" {
		m.space.Untrack(c.StderrPath)
	}
}

func (m *Merger) copyAndRemove(dst io.Writer, path string) error {
	if path == "" {
		return nil
	}
	defer m.space.Untrack(path)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}

// isBrokenPipe recognises the downstream-closed-stdout case:
// a `> /dev/null` or `| head` consumer that stopped reading. There is no
// single portable sentinel for EPIPE across platforms, so this also
// matches on the well-known message text, the same pragmatic check used
// throughout the Go standard library's own os/exec tests.
func isBrokenPipe(err error) bool {
	if errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	return strings.Contains(err.Error(), "broken pipe") || strings.Contains(err.Error(), "EPIPE")
}

func (m *Merger) recordOutcome(c Completion) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if c.Killed {
		m.anyKilled = true
	}
	if c.ExitCode != 0 {
		if m.firstFail == nil || c.Index < m.firstFail.Index {
			cc := c
			m.firstFail = &cc
		}
	}
}

// ExitCode aggregates the process exit code
// child exited 0, otherwise the exit code of the first failing child by
// index, bitwise-ORed with 1 if any child was killed by signal.
func (m *Merger) ExitCode() int {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if m.firstFail == nil {
		if m.anyKilled {
			return 1
		}
		return 0
	}
	code := m.firstFail.ExitCode
	if m.anyKilled {
		code |= 1
	}
	return code
}

// Ungrouped reports whether this Merger was built in ungrouped mode, so
// callers (the worker pool) know whether to spill output to temp files
// or tee it through directly.
func (m *Merger) Ungrouped() bool { return m.ungroup }

// Emitted returns how many jobs have been fully emitted so far in grouped
// mode; ungrouped mode does not count emissions.
func (m *Merger) Emitted() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalEmit
}

// Drain emits, without waiting, every already-published completion that
// is contiguous with the emit pointer; called by the engine once the
// dispatcher and all workers have stopped, so pending output from work
// already done is still flushed even under cancellation. Completions
// behind a gap stay pending and are not emitted.
func (m *Merger) Drain() {
	if m.ungroup {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.backlog.Len() > 0 {
		m.drainPendingLocked()
		if m.backlog.Len() == 0 {
			break
		}
		// A gap remains: some index between nextToEmit and the backlog's
		// entries never completed (worker died without publishing). Stop
		// rather than spin.
		break
	}
}

// ErrNoLedger is returned by a resume lookup when no ledger is configured.
var ErrNoLedger = errors.New("merge: no resume ledger configured")
