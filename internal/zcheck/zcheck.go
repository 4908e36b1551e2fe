// Package zcheck verifies candidate arithmetic progressions of z against
// the equation x^3 + y^3 + z^3 = k, and recovers x, y for any hit.
package zcheck

import (
	"math/big"
	"math/bits"

	"github.com/snakehand/zcubes/internal/modarith"
	"github.com/snakehand/zcubes/internal/reporter"
)

// Checker is the interface internal/dispatch calls into once it has decided
// how a modulus a and its cube roots z should be checked for solutions.
type Checker interface {
	// CheckOne verifies, for each root in z, the progression values at
	// t = floor(zmax/a) and t-1, and reports any hit.
	CheckOne(a uint64, z []uint64) bool
	// CheckAFew walks n consecutive progression steps for every root.
	CheckAFew(a uint64, z []uint64, n uint64) bool
	// CheckLift walks a long run of progression steps using a bitmap sieve
	// to batch the x^3+y^3 recovery check instead of testing each z alone.
	CheckLift(a uint64, z []uint64, n uint64) bool
}

// bitmapBytes bounds how large a single CheckLift sieve pass gets before it
// is processed and reset, keeping memory bounded regardless of n.
const bitmapBytes = 1 << 17 // 2^20 candidate z's per pass, one bit each

// checker is the concrete implementation wired into internal/dispatch; it
// owns no mutable state beyond its per-worker scratch buffers, so one
// instance belongs to exactly one worker goroutine.
type checker struct {
	k    *big.Int
	zmax modarith.U128
	rep  reporter.Reporter
	bm   []byte
}

// New returns a Checker bound to k, zmax and a reporter, with its own
// private scratch buffers.
func New(k uint32, zmax modarith.U128, rep reporter.Reporter) Checker {
	return &checker{
		k:    new(big.Int).SetUint64(uint64(k)),
		zmax: zmax,
		rep:  rep,
		bm:   make([]byte, bitmapBytes),
	}
}

// CheckOne verifies z = a*t + r for t = floor(zmax/a) and, when t > 0, for
// t-1, for every root r in z.
func (c *checker) CheckOne(a uint64, z []uint64) bool {
	for _, r := range z {
		t := c.zmax.Lo / a
		zc := a*t + r
		if !c.tryZ(a, zc) {
			return false
		}
		if t > 0 {
			if !c.tryZ(a, a*(t-1)+r) {
				return false
			}
		}
	}
	return true
}

// CheckAFew walks n consecutive progression values t=0..n-1 for every root.
func (c *checker) CheckAFew(a uint64, z []uint64, n uint64) bool {
	for _, r := range z {
		for t := uint64(0); t < n; t++ {
			zc := a*t + r
			if zc > c.zmax.Lo && c.zmax.Hi == 0 {
				break
			}
			if !c.tryZ(a, zc) {
				return false
			}
		}
	}
	return true
}

// CheckLift runs the same progression walk as CheckAFew but in chunkBits
// offsets at a time, ORing every root's admissible offsets into one bitmap
// before scanning for survivors: an offset is worth the expensive cube check
// below if ANY root produced it, so the per-root passes must union, not
// cancel, into the shared bitmap.
func (c *checker) CheckLift(a uint64, z []uint64, n uint64) bool {
	const chunkBits = bitmapBytes * 8
	for base := uint64(0); base < n; base += chunkBits {
		chunk := n - base
		if chunk > chunkBits {
			chunk = chunkBits
		}
		for i := range c.bm {
			c.bm[i] = 0
		}
		for _, r := range z {
			for t := uint64(0); t < chunk; t++ {
				zc := a*(base+t) + r
				if zc > c.zmax.Lo && c.zmax.Hi == 0 {
					break
				}
				if quickAdmissible(c.k, a, zc) {
					c.bm[t/8] |= 1 << (t % 8)
				}
			}
		}
		for byteIdx, b := range c.bm {
			for b != 0 {
				bit := bits.TrailingZeros8(b)
				b &= b - 1
				t := uint64(byteIdx)*8 + uint64(bit)
				if t >= chunk {
					continue
				}
				// recover which root produced this offset by re-deriving z
				// directly; cheap relative to the sieve pass above.
				for _, r := range z {
					zc := a*(base+t) + r
					if !c.tryZ(a, zc) {
						return false
					}
				}
			}
		}
	}
	return true
}

// quickAdmissible is a cheap pre-filter run inside the sieve loop before the
// more expensive tryZ recovery; in this simplified kernel it always accepts,
// deferring to tryZ's exact check, since CheckLift's value here is bounding
// memory via fixed-size chunking rather than narrowing candidates further.
func quickAdmissible(k *big.Int, a, z uint64) bool {
	return true
}

// tryZ tests whether z yields a solution: k - z^3 = x^3 + y^3 for some
// integers x, y with x+y = a (the modulus that produced this z). It solves
// the resulting quadratic for x, y directly rather than searching.
func (c *checker) tryZ(a, z uint64) bool {
	// k - z^3 = (x+y)(x^2-xy+y^2) = a * (x^2-xy+y^2); with x+y=a and
	// x^2-xy+y^2 = (x+y)^2 - 3xy = a^2 - 3xy, q := m/a gives xy = (a^2-q)/3,
	// and x,y are then the roots of t^2 - a*t + xy = 0.
	zBig := new(big.Int).SetUint64(z)
	z3 := new(big.Int).Exp(zBig, big.NewInt(3), nil)
	m := new(big.Int).Sub(c.k, z3)

	aBig := new(big.Int).SetUint64(a)
	q, rem := new(big.Int).QuoRem(m, aBig, new(big.Int))
	if rem.Sign() != 0 {
		return true // a does not divide k - z^3; not a candidate, keep going
	}

	aa := new(big.Int).Mul(aBig, aBig)
	num3 := new(big.Int).Sub(aa, q) // 3*xy
	xy, rem3 := new(big.Int).QuoRem(num3, big.NewInt(3), new(big.Int))
	if rem3.Sign() != 0 {
		return true // a^2 - q not divisible by 3: no integer xy
	}

	disc := new(big.Int).Sub(aa, new(big.Int).Mul(big.NewInt(4), xy))
	if disc.Sign() < 0 {
		return true
	}
	root := new(big.Int).Sqrt(disc)
	if new(big.Int).Mul(root, root).Cmp(disc) != 0 {
		return true // not a perfect square: no integer x
	}

	num := new(big.Int).Add(aBig, root)
	if num.Bit(0) != 0 {
		num = new(big.Int).Sub(aBig, root)
		if num.Bit(0) != 0 {
			return true // neither root has the right parity: no integer x
		}
	}
	x := new(big.Int).Rsh(num, 1)
	y := new(big.Int).Sub(aBig, x)

	if !verifySolution(c.k, x, y, zBig) {
		return true
	}
	return c.rep.Solution(x.Int64(), y.Int64(), int64(z))
}

func verifySolution(k, x, y, z *big.Int) bool {
	sum := new(big.Int)
	sum.Add(sum, new(big.Int).Exp(x, big.NewInt(3), nil))
	sum.Add(sum, new(big.Int).Exp(y, big.NewInt(3), nil))
	sum.Add(sum, new(big.Int).Exp(z, big.NewInt(3), nil))
	return sum.Cmp(k) == 0
}

