// Package modarith provides the low-level modular arithmetic primitives
// consumed by the enumerator and dispatcher: 64-bit modular multiply/inverse
// (with a batched array-inversion entry point), 128-bit comparisons for zmax,
// and the CRT combine used to lift cube roots from mod-a and mod-b to mod-(ab).
//
// These primitives are architecturally external to the search algorithm
// itself (the distilled specification treats Montgomery/Barrett arithmetic as
// a pre-existing collaborator); this package is the concrete implementation
// that collaborator takes in this module, built on math/bits and math/big
// rather than hand-rolled Montgomery/Barrett reduction, since exactness here
// matters far more than shaving a few cycles off a multiply.
package modarith

import (
	"math/big"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/templexxx/cpu"
)

// FastPath reports whether the host CPU exposes the vector extensions that
// would let a production build of BatchInvert use a SIMD-accelerated
// triangular product. It is informational only: BatchInvert's behavior does
// not change, but the supervisor logs the choice the way xorsimd logs its own
// dispatch decision.
func FastPath() bool {
	return cpu.X86.HasAVX2
}

// U128 is an unsigned 128-bit integer, used for zmax and for overflow-safe
// products of two uint64 values (d*q, a*b, ...).
type U128 struct {
	Hi, Lo uint64
}

// Mul64 computes the full 128-bit product of a and b.
func Mul64(a, b uint64) U128 {
	hi, lo := bits.Mul64(a, b)
	return U128{Hi: hi, Lo: lo}
}

// Cmp compares u against v, returning -1, 0 or 1.
func (u U128) Cmp(v U128) int {
	if u.Hi != v.Hi {
		if u.Hi < v.Hi {
			return -1
		}
		return 1
	}
	switch {
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	default:
		return 0
	}
}

// LessUint64 reports whether u < n for a plain uint64 n.
func (u U128) LessUint64(n uint64) bool {
	return u.Hi == 0 && u.Lo < n
}

// LessEqUint64 reports whether u <= n for a plain uint64 n.
func (u U128) LessEqUint64(n uint64) bool {
	return u.Hi == 0 && u.Lo <= n
}

// FromUint64 widens a uint64 into a U128.
func FromUint64(n uint64) U128 { return U128{Lo: n} }

// BigInt converts u to a *big.Int.
func (u U128) BigInt() *big.Int {
	x := new(big.Int).SetUint64(u.Hi)
	x.Lsh(x, 64)
	x.Or(x, new(big.Int).SetUint64(u.Lo))
	return x
}

// U128FromBigInt narrows a non-negative *big.Int known to fit in 128 bits.
func U128FromBigInt(x *big.Int) U128 {
	mask := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(x, mask).Uint64()
	hi := new(big.Int).Rsh(x, 64).Uint64()
	return U128{Hi: hi, Lo: lo}
}

// MulOverflowsUint64 reports whether a*b would not fit in a uint64 (i.e.
// whether d*q > dmax style checks need the wide path).
func MulOverflowsUint64(a, b uint64) bool {
	hi, _ := bits.Mul64(a, b)
	return hi != 0
}

// MulExceeds reports whether a*b (as an exact 128-bit product) exceeds bound.
func MulExceeds(a, b, bound uint64) bool {
	p := Mul64(a, b)
	return !p.LessEqUint64(bound)
}

// Inverse returns the modular inverse of a modulo m (0 < a < m, gcd(a,m)=1).
func Inverse(a, m uint64) (uint64, error) {
	if m == 0 {
		return 0, errors.New("modarith: modulus must be nonzero")
	}
	g, x, _ := extGCD(int64(a%m), int64(m))
	if g != 1 {
		return 0, errors.Errorf("modarith: %d has no inverse mod %d", a, m)
	}
	x %= int64(m)
	if x < 0 {
		x += int64(m)
	}
	return uint64(x), nil
}

func extGCD(a, b int64) (g, x, y int64) {
	if a == 0 {
		return b, 0, 1
	}
	g, x1, y1 := extGCD(b%a, a)
	return g, y1 - (b/a)*x1, x1
}

// BatchInvert inverts every element of xs modulo m in place, using a single
// shared modular inversion (the standard Montgomery-trick triangular product)
// so that IBATCH elements cost one inversion plus O(IBATCH) multiplications
// instead of IBATCH inversions. Every xs[i] must be coprime to m.
func BatchInvert(xs []uint64, m uint64) error {
	n := len(xs)
	if n == 0 {
		return nil
	}
	prefix := make([]uint64, n)
	acc := uint64(1)
	for i, x := range xs {
		acc = mulMod(acc, x%m, m)
		prefix[i] = acc
	}
	inv, err := Inverse(acc, m)
	if err != nil {
		return errors.WithStack(err)
	}
	for i := n - 1; i >= 0; i-- {
		var prevPrefix uint64 = 1
		if i > 0 {
			prevPrefix = prefix[i-1]
		}
		xi := xs[i] % m
		xs[i] = mulMod(inv, prevPrefix, m)
		inv = mulMod(inv, xi, m)
	}
	return nil
}

// mulMod computes a*b mod m without overflow, for 64-bit a,b,m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%m, lo, m)
	return rem
}

// MulMod exports mulMod's overflow-safe product-then-reduce for callers
// outside this package (the CRT combine and the dispatcher's b-reductions).
func MulMod(a, b, m uint64) uint64 { return mulMod(a, b, m) }

// CRTCombine returns the unique x in [0, a*b) with x ≡ ra (mod a), x ≡ rb
// (mod b), given a and b coprime. aInvB is a^-1 mod b, precomputed by the
// caller (typically via BatchInvert) since it is reused across many roots
// sharing the same (a,b) pair.
func CRTCombine(ra, a, rb, b, aInvB uint64) uint64 {
	t := mulMod((rb+b-ra%b)%b, aInvB, b)
	return ra + a*t
}

// FudgedBound computes ceil(zmax / denom) using extra-precision arithmetic,
// mirroring the distilled spec's long-double "fastceilboundl" with the
// zmaxld = zmax*(1+2^-62)+1 fudge factor folded into zmaxFudged.
func FudgedBound(zmaxFudged *big.Float, denom uint64) uint64 {
	if denom == 0 {
		return 0
	}
	q := new(big.Float).Quo(zmaxFudged, new(big.Float).SetUint64(denom))
	i, acc := q.Int(nil)
	if acc == big.Below {
		// big.Float.Int truncates toward zero; round up to get the ceiling.
		i.Add(i, big.NewInt(1))
	}
	if !i.IsUint64() {
		return ^uint64(0)
	}
	return i.Uint64()
}

// ZMaxFudged builds the extended-precision fudged bound zmax*(1+2^-62)+1 used
// throughout the dispatcher's progression-length computations.
func ZMaxFudged(zmax U128) *big.Float {
	f := new(big.Float).SetPrec(96).SetInt(zmax.BigInt())
	fudge := new(big.Float).SetPrec(96).Quo(f, new(big.Float).SetPrec(96).SetInt64(1<<62))
	f.Add(f, fudge)
	f.Add(f, big.NewFloat(1))
	return f
}

// SoftAssert panics with the given message when built with the zcubes_verify
// build tag; it is a no-op otherwise. See softassert_verify.go /
// softassert_noverify.go.
func SoftAssert(cond bool, msg string) {
	softAssert(cond, msg)
}
