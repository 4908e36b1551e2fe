// Package sieve generates the primes in [pmin, pmax) that feed the search,
// using a 2-3-5-7 wheel to skip the 162 non-candidate residues out of every
// 210 integers before running a segmented Eratosthenes pass over what
// remains. The wheel-skip approach is grounded on the channel-based wheel
// sieve in the retrieval pack's gosieve example; the segmented range scan
// and batched delivery into internal/primepipe are this module's own, sized
// for the k pmin/pmax ranges the search walks (often far from zero, so a
// sieve-from-zero is wasteful).
package sieve

import (
	"context"

	"github.com/snakehand/zcubes/internal/primepipe"
)

// wheel lists the successive deltas that walk every integer coprime to
// 2, 3, 5 and 7, starting at 11. Same table as the gosieve reference.
var wheel = [48]uint64{
	2, 4, 2, 4, 6, 2, 6, 4, 2, 4, 6, 6, 2, 6, 4, 2,
	6, 4, 6, 8, 4, 2, 4, 2, 4, 8, 6, 4, 6, 2, 4, 6,
	2, 6, 6, 4, 2, 4, 6, 2, 6, 4, 2, 4, 2, 10, 2, 10,
}

const segmentSize = 1 << 16

// Segment is a batch of primes in increasing order, all from the same
// [lo, hi) window, ready to feed a primepipe.Pipe.
type Segment struct {
	Lo, Hi uint64
	Primes []uint64
}

// Run drives a segmented sieve over [pmin, pmax) and feeds every prime it
// finds to pipe, in increasing order, until the range is exhausted or ctx is
// cancelled. It closes pipe on normal completion; callers that want to keep
// feeding further ranges should use Feed directly instead.
func Run(ctx context.Context, pipe *primepipe.Pipe, pmin, pmax uint64) error {
	defer pipe.Close()
	for lo := pmin; lo < pmax; lo += segmentSize {
		hi := lo + segmentSize
		if hi > pmax {
			hi = pmax
		}
		seg := sieveSegment(lo, hi)
		if len(seg) == 0 {
			continue
		}
		if err := pipe.Feed(ctx, seg); err != nil {
			return err
		}
	}
	return nil
}

// sieveSegment returns every prime in [lo, hi) in increasing order.
func sieveSegment(lo, hi uint64) []uint64 {
	var out []uint64
	for _, p := range smallPrimes {
		if p >= lo && p < hi {
			out = append(out, p)
		}
	}
	if hi <= 11 {
		return out
	}
	start := lo
	if start < 11 {
		start = 11
	}

	// base primes up to sqrt(hi) used to strike composites out of the window
	base := basePrimesBelow(isqrt(hi) + 1)

	candidates := wheelCandidates(start, hi)
	composite := make([]bool, len(candidates))

	idx := make(map[uint64]int, len(candidates))
	for i, c := range candidates {
		idx[c] = i
	}
	for _, p := range base {
		m := p * p
		if m < start {
			m = ((start + p - 1) / p) * p
		}
		for ; m < hi; m += p {
			if i, ok := idx[m]; ok {
				composite[i] = true
			}
		}
	}
	for i, c := range candidates {
		if !composite[i] {
			out = append(out, c)
		}
	}
	return out
}

var smallPrimes = []uint64{2, 3, 5, 7}

// basePrimesBelow runs a plain Eratosthenes sieve up to n, adequate since n is sqrt(hi) of a
// single segment and stays small even for large search ranges.
func basePrimesBelow(n uint64) []uint64 {
	if n < 2 {
		return nil
	}
	sieve := make([]bool, n+1)
	var primes []uint64
	for i := uint64(2); i <= n; i++ {
		if sieve[i] {
			continue
		}
		primes = append(primes, i)
		for j := i * i; j <= n; j += i {
			sieve[j] = true
		}
	}
	return primes
}

// wheelCandidates lists every integer in [start, hi) coprime to 2,3,5,7,
// walking the 210-periodic wheel forward from 11 until it reaches start.
func wheelCandidates(start, hi uint64) []uint64 {
	if hi <= 11 {
		return nil
	}
	var out []uint64
	n := uint64(11)
	i := 0
	for n < start {
		n += wheel[i]
		i = (i + 1) % 48
	}
	for n < hi {
		out = append(out, n)
		n += wheel[i]
		i = (i + 1) % 48
	}
	return out
}

func isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := uint64(1)
	for x*x < n {
		x <<= 1
	}
	for x*x > n {
		x = (x + n/x) / 2
	}
	for (x+1)*(x+1) <= n {
		x++
	}
	return x
}
