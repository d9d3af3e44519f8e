// Package tempspace implements the temp-file lifecycle: it
// allocates the tempdir that holds the argument materialiser's
// unprocessed-inputs file and the worker pool's per-job output spills,
// tracks every file created under it in a manifest, and guarantees their
// removal on exit — normal, error, or signalled.
package tempspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ahrtr/gocontainer/set"
	"github.com/go-co-op/gocron/v2"
)

const dirMode = 0700

// Space owns one tempdir and the manifest of files created under it.
type Space struct {
	Dir string

	mu       sync.Mutex
	manifest set.Interface
	sched    gocron.Scheduler
	base     string
}

// New creates `${base}/parallel-<pid>` with mode 0700 and returns a Space
// that tracks everything created under it.
func New(base string) (*Space, error) {
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, fmt.Sprintf("parallel-%d", os.Getpid()))
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("tempspace: mkdir %s: %w", dir, err)
	}
	if err := os.Chmod(dir, dirMode); err != nil {
		return nil, fmt.Errorf("tempspace: chmod %s: %w", dir, err)
	}
	return &Space{Dir: dir, manifest: set.New(), base: base}, nil
}

// UnprocessedPath is the path the argument materialiser writes the
// materialised argument stream to.
func (s *Space) UnprocessedPath() string { return filepath.Join(s.Dir, "unprocessed") }

// JobOutputPaths returns the per-job stdout/stderr spill paths for a given
// 1-based job index.
func (s *Space) JobOutputPaths(index uint64) (stdout, stderr string) {
	name := strconv.FormatUint(index, 10)
	return filepath.Join(s.Dir, name+".out"), filepath.Join(s.Dir, name+".err")
}

// Track records a file as belonging to this tempdir's manifest.
func (s *Space) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.Add(path)
}

// Untrack removes path from the manifest and deletes it, if present.
func (s *Space) Untrack(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest.Contains(path) {
		os.Remove(path)
		s.manifest.Remove(path)
	}
}

// Cleanup traverses the manifest, unlinks every tracked file, then removes
// the tempdir itself. Called on success, error, or signal.
func (s *Space) Cleanup() error {
	s.StopWatchdog()

	s.mu.Lock()
	paths := make([]string, 0, s.manifest.Size())
	s.manifest.Iterate(func(v interface{}) bool {
		paths = append(paths, v.(string))
		return true
	})
	s.manifest.Clear()
	s.mu.Unlock()

	for _, p := range paths {
		os.Remove(p)
	}
	return os.RemoveAll(s.Dir)
}

// SweepStale removes any `parallel-<pid>` directory under base whose
// owning pid is no longer running — the crash-recovery hook run on
// startup.
func SweepStale(base string) error {
	if base == "" {
		base = os.TempDir()
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "parallel-") {
			continue
		}
		pidStr := strings.TrimPrefix(e.Name(), "parallel-")
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			continue
		}
		if pidAlive(pid) {
			continue
		}
		os.RemoveAll(filepath.Join(base, e.Name()))
	}
	return nil
}

// StartWatchdog schedules a recurring sweep of stale sibling tempdirs
// under base, so a very long `parallel` run also reaps dirs abandoned by
// sibling instances that crashed while this one kept going.
func (s *Space) StartWatchdog(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { _ = SweepStale(s.base) }),
	)
	if err != nil {
		return err
	}
	s.sched = sched
	sched.Start()
	return nil
}

// StopWatchdog shuts down the periodic sweep, if running.
func (s *Space) StopWatchdog() {
	if s.sched != nil {
		_ = s.sched.Shutdown()
		s.sched = nil
	}
}
