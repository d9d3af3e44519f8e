// Package dispatch implements the dispatcher: it reads the
// materialiser's unprocessed-inputs file strictly forward, pairs each
// line with a monotonically increasing 1-based job index, and hands the
// pair to the next idle worker through a bounded handoff channel of
// capacity P — one slot per worker.
package dispatch

import (
	"bufio"
	"os"

	"github.com/mmstick/parallel/internal/errs"
	"github.com/mmstick/parallel/internal/record"
)

// Job is one (job_index, input_line) pair handed to a worker.
type Job struct {
	Index uint64
	Input record.Record
}

// Resumer reports whether a job index was already recorded as completed
// by a prior run's ledger, so --resume can skip it.
type Resumer interface {
	Done(index uint64) bool
}

// Run reads path line by line, dispatching Jobs on out until EOF,
// cancellation, or a read error. It closes out before returning. Skipped
// (already-resumed) indices are not sent but still counted towards
// skipped for the caller's bookkeeping via the returned count. stop, when
// closed, aborts both the scan loop and any in-flight blocking send —
// the dispatch channel fills up under merger back-pressure, so a mere
// poll between sends would not interrupt a send already blocked.
func Run(path string, out chan<- Job, stop <-chan struct{}, resume Resumer) (skipped uint64, err error) {
	defer close(out)

	f, openErr := os.Open(path)
	if openErr != nil {
		return 0, errs.New(errs.IO, "open unprocessed inputs", openErr)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var index uint64
	for scanner.Scan() {
		index++
		select {
		case <-stop:
			return skipped, nil
		default:
		}
		if resume != nil && resume.Done(index) {
			skipped++
			continue
		}
		job := Job{Index: index, Input: record.Decode(scanner.Text())}
		select {
		case out <- job:
		case <-stop:
			return skipped, nil
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return skipped, errs.New(errs.IO, "read unprocessed inputs", scanErr)
	}
	return skipped, nil
}
