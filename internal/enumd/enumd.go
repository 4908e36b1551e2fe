// Package enumd walks admissible cofactor extensions of a modulus d,
// lifting cube roots of k by batched CRT combination as it goes. It is the
// recursive/iterative engine that turns "d divides an admissible modulus up
// to p" into the full set of (d*c, roots-of-k-mod-d*c) pairs handed to
// internal/dispatch.
package enumd

import (
	"github.com/snakehand/zcubes/internal/ktables"
	"github.com/snakehand/zcubes/internal/modarith"
)

// IBATCH bounds how many pending cofactors accumulate before a batch
// inversion is worth paying for, mirroring the original enumerator's queue
// size.
const IBATCH = 256

// Emit receives one lifted (modulus, roots) pair from the enumerator; the
// dispatcher package supplies the concrete implementation that calls
// ProcKD. Returning false asks the enumerator to stop early (a checkpoint
// resume or abort signal).
type Emit func(d uint64, roots []uint64) bool

// pending is one not-yet-CRT-combined cofactor extension waiting for its
// batch inverse.
type pending struct {
	q     uint64 // the cofactor's modulus (a prime power)
	roots []uint64
	inv   uint64 // filled in after BatchInvert
}

// EnumD recursively appends prime powers q^e with q < p to d, CRT-lifting
// the cube roots of k at every step, until every admissible extension
// d*q1^e1*q2^e2*... <= dmax has been emitted. It is used while d is still
// small enough (d < cdmin) that extensions must be built prime-power by
// prime-power from the cached table rather than read whole from a
// precomputed cofactor index.
func EnumD(tab *ktables.Tables, d uint64, pIdx int, zd []uint64, emit Emit) bool {
	var batch []pending

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		xs := make([]uint64, len(batch))
		for i, b := range batch {
			xs[i] = b.q
		}
		if err := modarith.BatchInvert(xs, d); err != nil {
			// d shares a factor with one of the queued q's: none of this
			// batch can combine with d, so it is silently dropped. This
			// cannot happen for admissible tables (q is always coprime to
			// d by construction) but is handled defensively rather than
			// asserted, since enumd has no error return path.
			batch = batch[:0]
			return true
		}
		for i := range batch {
			batch[i].inv = xs[i]
		}
		for _, b := range batch {
			combined := crtLift(d, zd, b.q, b.roots, b.inv)
			if !emit(d*b.q, combined) {
				return false
			}
			dq := d * b.q
			if dq >= tab.CDMin {
				if !EnumCD(tab, dq, pIdx, combined, emit) {
					return false
				}
			} else {
				if !EnumD(tab, dq, pIdx, combined, emit) {
					return false
				}
			}
		}
		batch = batch[:0]
		return true
	}

	for i := pIdx; i >= 0; i-- {
		p := tab.CPTab[i]
		if modarith.MulExceeds(d, p, tab.DMax) {
			continue
		}
		for _, pw := range tab.Powers[p] {
			if modarith.MulExceeds(d, pw.Q, tab.DMax) {
				break
			}
			batch = append(batch, pending{q: pw.Q, roots: pw.Roots})
			if len(batch) >= IBATCH {
				if !flush() {
					return false
				}
			}
		}
	}
	return flush()
}

// EnumCD extends d using the precomputed small-cofactor table (SDTab) when d
// is already large enough (d >= cdmin) that every remaining admissible
// cofactor is small and fully cached, avoiding the prime-by-prime recursion
// EnumD performs for smaller d.
func EnumCD(tab *ktables.Tables, d uint64, pIdx int, zd []uint64, emit Emit) bool {
	var batch []pending
	maxP := uint64(0)
	if pIdx >= 0 && pIdx < len(tab.CPTab) {
		maxP = tab.CPTab[pIdx]
	}

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		xs := make([]uint64, len(batch))
		for i, b := range batch {
			xs[i] = b.q
		}
		if err := modarith.BatchInvert(xs, d); err != nil {
			batch = batch[:0]
			return true
		}
		for i := range batch {
			batch[i].inv = xs[i]
		}
		for _, b := range batch {
			combined := crtLift(d, zd, b.q, b.roots, b.inv)
			if !emit(d*b.q, combined) {
				return false
			}
		}
		batch = batch[:0]
		return true
	}

	for _, e := range tab.SDTab {
		if modarith.MulExceeds(d, e.D, tab.DMax) {
			break
		}
		if maxP > 0 && e.D >= maxP {
			continue // cofactor's own prime factor is not strictly below p
		}
		batch = append(batch, pending{q: e.D, roots: e.Roots})
		if len(batch) >= IBATCH {
			if !flush() {
				return false
			}
		}
	}
	return flush()
}

// crtLift combines every root mod d with every root mod q into the roots of
// k mod d*q, via CRT. gcd(d,q)=1 is an invariant of how the tables are
// built: q's prime factors never divide an admissible d. qInvModD is q's
// inverse modulo d (d is fixed across a whole batch, which is what lets the
// caller amortize these inversions with a single BatchInvert call).
func crtLift(d uint64, zd []uint64, q uint64, zq []uint64, qInvModD uint64) []uint64 {
	out := make([]uint64, 0, len(zd)*len(zq))
	for _, rd := range zd {
		for _, rq := range zq {
			out = append(out, modarith.CRTCombine(rq, q, rd, d, qInvModD))
		}
	}
	return out
}
