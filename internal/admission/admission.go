// Package admission implements the admission controller: it paces
// spawns with `--delay` and gates them on `--memfree` before each worker
// starts a child.
package admission

import (
	"sync"
	"time"

	"github.com/mikoim/go-loadavg"
	"github.com/mmstick/parallel/internal/errs"
)

// hardCapWait is the maximum consecutive time spent waiting on memfree
// before admitting the job anyway, to avoid deadlock).
const hardCapWait = 60 * time.Second

const memfreePoll = 1 * time.Second

// Controller enforces delay pacing and memfree gating across all workers.
type Controller struct {
	delay        time.Duration
	memfreeBytes uint64
	maxLoad      float64 // < 0 disables the load-average gate

	mu        sync.Mutex
	lastSpawn time.Time

	// availableMemory is overridable in tests; defaults to reading
	// /proc/meminfo (Linux) or a conservative always-admit stub elsewhere.
	availableMemory func() (uint64, error)
	now             func() time.Time
	sleep           func(time.Duration)
}

// New builds a Controller. delay may be zero to disable pacing; memfree
// may be zero to disable the memory gate; maxLoad < 0 disables the
// load-average gate.
func New(delay time.Duration, memfreeBytes uint64, maxLoad float64) *Controller {
	return &Controller{
		delay:           delay,
		memfreeBytes:    memfreeBytes,
		maxLoad:         maxLoad,
		availableMemory: readAvailableMemory,
		now:             time.Now,
		sleep:           time.Sleep,
	}
}

// Gate blocks the calling worker until it is admitted to spawn, applying
// delay pacing then the memfree/load gate in order.
// Returns a non-fatal *errs.Error (kind Admission) if memfree pressure
// persisted past the hard cap; the caller still proceeds to spawn.
func (c *Controller) Gate() error {
	c.applyDelay()
	return c.applyMemfree()
}

func (c *Controller) applyDelay() {
	if c.delay <= 0 {
		return
	}
	c.mu.Lock()
	target := c.lastSpawn.Add(c.delay)
	now := c.now()
	var wait time.Duration
	if now.Before(target) {
		wait = target.Sub(now)
	}
	c.lastSpawn = now.Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		c.sleep(wait)
	}
}

func (c *Controller) applyMemfree() error {
	if c.memfreeBytes == 0 && c.maxLoad < 0 {
		return nil
	}

	waited := time.Duration(0)
	for {
		ok, err := c.admitted()
		if err != nil {
			// A failure to read the admission signal is ignored and the
			// job admitted — it must never block the pool.
			return nil
		}
		if ok {
			return nil
		}
		if waited >= hardCapWait {
			return errs.New(errs.Admission, "memfree", errGaveUpWaiting)
		}
		c.sleep(memfreePoll)
		waited += memfreePoll
	}
}

func (c *Controller) admitted() (bool, error) {
	if c.memfreeBytes > 0 {
		avail, err := c.availableMemory()
		if err != nil {
			return false, err
		}
		if avail < c.memfreeBytes {
			return false, nil
		}
	}
	if c.maxLoad >= 0 {
		load, err := loadavg.Parse()
		if err != nil {
			return false, err
		}
		if load.LoadAverage1 > c.maxLoad {
			return false, nil
		}
	}
	return true, nil
}

var errGaveUpWaiting = errGaveUp{}

type errGaveUp struct{}

func (errGaveUp) Error() string {
	return "memfree pressure persisted past the admission hard cap; dispatched anyway"
}
