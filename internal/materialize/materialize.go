// Package materialize implements the argument materialiser: it
// drains the permutator's lazy index tuples into the on-disk
// unprocessed-inputs file the dispatcher later reads strictly forward,
// one line per permutation, ASCII-unit-separator-joined.
//
// Decoupling generation from dispatch bounds peak RSS to a small
// constant plus live job state and is a prerequisite for --resume
// semantics.
package materialize

import (
	"bufio"
	"os"

	"github.com/mmstick/parallel/internal/errs"
	"github.com/mmstick/parallel/internal/inputs"
	"github.com/mmstick/parallel/internal/permute"
	"github.com/mmstick/parallel/internal/record"
)

// Write drains perm against lists, writing one record per permutation to
// path. Buffered writes, single flush on completion.
// Returns the total number of records written (equal to perm.Total()
// unless an error cuts the run short).
func Write(path string, perm *permute.Permutator, lists []inputs.List) (uint64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errs.New(errs.IO, "create unprocessed inputs", err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 64*1024)
	var n uint64
	for {
		tuple, ok := perm.Next()
		if !ok {
			break
		}
		rec := recordFor(lists, tuple)
		if err := rec.Validate(); err != nil {
			return n, errs.New(errs.Input, "materialize", err)
		}
		if _, err := w.WriteString(rec.Encode()); err != nil {
			return n, errs.New(errs.IO, "write unprocessed inputs", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return n, errs.New(errs.IO, "write unprocessed inputs", err)
		}
		n++
	}
	if err := w.Flush(); err != nil {
		return n, errs.New(errs.IO, "flush unprocessed inputs", err)
	}
	return n, nil
}

func recordFor(lists []inputs.List, tuple []int) record.Record {
	rec := make(record.Record, len(lists))
	for k, idx := range tuple {
		rec[k] = lists[k][idx]
	}
	return rec
}
