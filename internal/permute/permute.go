// Package permute implements the permutator: the cartesian product of
// the input collector's lists, produced as a lazy, restartable sequence of
// index tuples. No permutation is ever materialised in memory as a whole;
// only the current index tuple and the per-list lengths are kept.
package permute

import (
	"errors"
	"math"

	"lukechampine.com/uint128"
)

// ErrOverflow is returned when the total number of permutations would not
// fit in a uint64.
var ErrOverflow = errors.New("permute: total permutation count overflows uint64")

// Permutator generates index tuples (i1,...,im) for each list, with the
// right-most index advancing fastest.
type Permutator struct {
	lengths []int
	total   uint64
	pos     uint64
}

// New builds a Permutator over lists of the given lengths. A negative
// length is an error; a zero-length list makes the product empty.
func New(lengths []int) (*Permutator, error) {
	total := uint128.From64(1)
	max := uint128.From64(math.MaxUint64)
	for _, l := range lengths {
		if l < 0 {
			return nil, errors.New("permute: negative list length")
		}
		total = total.Mul(uint128.From64(uint64(l)))
		if total.Cmp(max) > 0 {
			return nil, ErrOverflow
		}
	}
	return &Permutator{lengths: append([]int(nil), lengths...), total: total.Big().Uint64()}, nil
}

// Total returns the total number of permutations across every input list.
func (p *Permutator) Total() uint64 { return p.total }

// Seek restarts the sequence at the given 0-based position, without
// materialising anything in between — the defining property that makes
// the permutator "restartable from any position".
func (p *Permutator) Seek(pos uint64) { p.pos = pos }

// Next produces the next index tuple, or ok=false once the sequence is
// exhausted.
func (p *Permutator) Next() (tuple []int, ok bool) {
	if p.pos >= p.total {
		return nil, false
	}
	tuple = p.indicesFor(p.pos)
	p.pos++
	return tuple, true
}

// indicesFor computes the index tuple for the permutation at position pos
// directly, by successive division — this is what makes Seek() cheap and
// the whole permutator restartable without replaying earlier tuples.
func (p *Permutator) indicesFor(pos uint64) []int {
	tuple := make([]int, len(p.lengths))
	remaining := pos
	for k := len(p.lengths) - 1; k >= 0; k-- {
		l := uint64(p.lengths[k])
		if l == 0 {
			tuple[k] = 0
			continue
		}
		tuple[k] = int(remaining % l)
		remaining /= l
	}
	return tuple
}
