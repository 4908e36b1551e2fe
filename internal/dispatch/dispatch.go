// Package dispatch decides, for each admissible modulus d and its cube
// roots of k, which of three z-progression check strategies to run, and
// combines d with the admissible divisors of k before handing off to
// internal/zcheck.
package dispatch

import (
	"math/big"

	"github.com/snakehand/zcubes/internal/ktables"
	"github.com/snakehand/zcubes/internal/modarith"
	"github.com/snakehand/zcubes/internal/zcheck"
)

// ZSHORT and ZFEW bound how many arithmetic progressions of z are cheap
// enough to check one-by-one or a-few-at-a-time before the dispatcher falls
// back to the batched "lift" strategy.
const (
	ZSHORT = 8
	ZFEW   = 64
)

// Dispatcher ties together the admissibility tables, search bounds, and a
// z-check kernel. Its own fields are read-only after New, so whether one
// Dispatcher can be shared between goroutines depends on its Checker; the
// zcheck checker keeps per-worker scratch, so each worker gets its own.
type Dispatcher struct {
	Tab     *ktables.Tables
	ZMax    modarith.U128
	Fudged  *big.Float
	Checker zcheck.Checker
}

// New builds a Dispatcher over shared, read-only tables and bounds.
func New(tab *ktables.Tables, zmax modarith.U128, checker zcheck.Checker) *Dispatcher {
	return &Dispatcher{
		Tab:     tab,
		ZMax:    zmax,
		Fudged:  modarith.ZMaxFudged(zmax),
		Checker: checker,
	}
}

// ProcKD expands a modulus d (already known to divide an admissible cofactor
// structure) by every admissible divisor of k, then dispatches each
// resulting (a, roots) pair. It returns false if any dispatch call asked to
// stop early (checkpoint resume / abort).
func (disp *Dispatcher) ProcKD(d uint64, zd []uint64) bool {
	if !disp.ProcDCoprime(d, zd) {
		return false
	}
	for ki := 1; ki < len(disp.Tab.KDivisors); ki++ {
		kd := disp.Tab.KDivisors[ki]
		if d > kd.KDMax {
			continue
		}
		a := d * kd.D
		combined := combineWithKDivisor(d, zd, kd)
		if !disp.ProcD(ki, a, combined) {
			return false
		}
	}
	return true
}

// combineWithKDivisor CRT-combines the roots of k mod d with the
// precomputed roots of k mod a k-divisor, the same way enumd combines
// cofactors, except the k-divisor's own modulus may share k's prime
// factors, so it is CRT-combined as-is rather than re-derived on the fly.
func combineWithKDivisor(d uint64, zd []uint64, kd ktables.KDivisor) []uint64 {
	if kd.D == 1 {
		return append([]uint64(nil), zd...)
	}
	dInv, err := modarith.Inverse(d, kd.D)
	if err != nil {
		return nil
	}
	out := make([]uint64, 0, len(zd)*len(kd.Roots))
	for _, rd := range zd {
		for _, rk := range kd.Roots {
			out = append(out, modarith.CRTCombine(rd, d, rk, kd.D, dInv))
		}
	}
	return out
}

// sgnZIndex computes the sign class of d used to pick which half of the
// z-progression residues apply, mirroring the original's sgnz_index(d): the
// two sign classes correspond to d's residue being above or below the
// progression modulus's midpoint.
func sgnZIndex(d uint64, b uint32) uint32 {
	if d%uint64(b) < uint64(b)/2 {
		return 0
	}
	return 1
}

// ProcDCoprime handles the trivial k-divisor case (a = d, c = len(z)): it
// computes the sign class and progression modulus, then dispatches.
func (disp *Dispatcher) ProcDCoprime(d uint64, z []uint64) bool {
	return disp.procD(0, d, z, false)
}

// ProcD handles a is d combined with the ki'th admissible divisor of k.
func (disp *Dispatcher) ProcD(ki int, a uint64, z []uint64) bool {
	return disp.procD(ki, a, z, true)
}

func (disp *Dispatcher) procD(ki int, a uint64, z []uint64, fromKDivisor bool) bool {
	if len(z) == 0 {
		return true
	}
	b := disp.Tab.B
	si := sgnZIndex(a, b)
	if disp.Tab.SevenActive && ktables.OneZMod7(a, si) {
		b = b * 7
	}

	l := progressionLength(disp.Fudged, a, b)
	ca := uint64(len(z))

	ab := modarith.Mul64(a, uint64(b))
	if l <= ZSHORT || l*ca <= ZFEW {
		if ab.Cmp(disp.ZMax) > 0 {
			return disp.Checker.CheckOne(a, z)
		}
		return disp.Checker.CheckAFew(a, z, l)
	}
	return disp.Checker.CheckLift(a, z, l)
}

// ProcDBigPrime is the optimized entry for d already known to be a single
// prime in the big-prime regime: it skips the k-divisor expansion ProcKD
// performs (big primes can never divide k within the admissible range) and
// dispatches directly.
func (disp *Dispatcher) ProcDBigPrime(d uint64, z []uint64) bool {
	return disp.procD(0, d, z, false)
}

// progressionLength computes l = ceil(zmax / (a*b)) using extended
// precision, matching the original's fastceilboundl over a fudged zmax.
func progressionLength(fudged *big.Float, a uint64, b uint32) uint64 {
	denom := a * uint64(b)
	if denom == 0 {
		return 0
	}
	return modarith.FudgedBound(fudged, denom)
}
