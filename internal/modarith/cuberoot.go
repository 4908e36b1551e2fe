package modarith

import "math/big"

var (
	big1 = big.NewInt(1)
	big3 = big.NewInt(3)
)

// CubeRootsModPrime returns every x in [0,p) with x^3 ≡ k (mod p), for an
// odd prime p. For p ≡ 2 (mod 3) the cube map is a bijection on Z/pZ and the
// unique root is recovered by inverting the exponent 3 modulo p-1. For
// p ≡ 1 (mod 3) there are either zero or three roots; they are recovered by
// factoring the discrete logarithm of k with respect to a primitive root of
// p (baby-step giant-step), then dividing that logarithm by 3 modulo p-1.
func CubeRootsModPrime(k *big.Int, p uint64) []uint64 {
	P := new(big.Int).SetUint64(p)
	kk := new(big.Int).Mod(k, P)

	if p == 3 {
		// x^3 ≡ x (mod 3) by Fermat's little theorem.
		return []uint64{kk.Uint64()}
	}
	if kk.Sign() == 0 {
		return []uint64{0}
	}

	pm1 := p - 1
	if pm1%3 != 0 {
		// gcd(3,p-1)=1: cubing is a bijection, invert the exponent.
		pm1Big := new(big.Int).SetUint64(pm1)
		e := new(big.Int).ModInverse(big3, pm1Big)
		root := new(big.Int).Exp(kk, e, P)
		return []uint64{root.Uint64()}
	}

	crit := new(big.Int).Exp(kk, new(big.Int).SetUint64(pm1/3), P)
	if crit.Cmp(big1) != 0 {
		return nil // k is not a cubic residue mod p
	}

	g := primitiveRoot(p)
	x, ok := discreteLog(g, kk.Uint64(), p)
	if !ok {
		return nil
	}
	// x = dlog_g(k); since k is a cubic residue, x is divisible by 3.
	x0 := (x / 3) % pm1
	step := pm1 / 3
	roots := make([]uint64, 0, 3)
	gBig := new(big.Int).SetUint64(g)
	for i := uint64(0); i < 3; i++ {
		exp := (x0 + i*step) % pm1
		r := new(big.Int).Exp(gBig, new(big.Int).SetUint64(exp), P)
		roots = append(roots, r.Uint64())
	}
	return roots
}

// primitiveRoot finds a generator of the cyclic group (Z/pZ)* by trial,
// checking candidates against every prime factor of p-1.
func primitiveRoot(p uint64) uint64 {
	pm1 := p - 1
	factors := distinctPrimeFactors(pm1)
	P := new(big.Int).SetUint64(p)
	for g := uint64(2); g < p; g++ {
		isRoot := true
		gBig := new(big.Int).SetUint64(g)
		for _, q := range factors {
			e := new(big.Int).Exp(gBig, new(big.Int).SetUint64(pm1/q), P)
			if e.Cmp(big1) == 0 {
				isRoot = false
				break
			}
		}
		if isRoot {
			return g
		}
	}
	return 2
}

func distinctPrimeFactors(n uint64) []uint64 {
	var out []uint64
	for q := uint64(2); q*q <= n; q++ {
		if n%q == 0 {
			out = append(out, q)
			for n%q == 0 {
				n /= q
			}
		}
	}
	if n > 1 {
		out = append(out, n)
	}
	return out
}

// discreteLog solves g^x ≡ target (mod p) for 0 <= x < p-1 via baby-step
// giant-step, O(sqrt(p)) time and space. Adequate for the prime sizes this
// module's tests and admissibility tables operate on.
func discreteLog(g, target, p uint64) (uint64, bool) {
	pm1 := p - 1
	m := isqrtCeil(pm1)
	P := new(big.Int).SetUint64(p)

	babySteps := make(map[uint64]uint64, m)
	cur := uint64(1)
	gBig := new(big.Int).SetUint64(g)
	for j := uint64(0); j < m; j++ {
		if _, exists := babySteps[cur]; !exists {
			babySteps[cur] = j
		}
		cur = MulMod(cur, g, p)
	}

	gInvM := new(big.Int).Exp(gBig, new(big.Int).SetUint64(m), P)
	gInvM.ModInverse(gInvM, P)
	factor := gInvM.Uint64()

	gamma := target % p
	for i := uint64(0); i <= m; i++ {
		if j, ok := babySteps[gamma]; ok {
			return (i*m + j) % pm1, true
		}
		gamma = MulMod(gamma, factor, p)
	}
	return 0, false
}

func isqrtCeil(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	x := uint64(1)
	for x*x < n {
		x++
	}
	return x
}

// CubeRootsModPrimePower lifts the cube roots of k modulo p to cube roots
// modulo p^e via Hensel's lemma, for any odd prime p not dividing k (so the
// derivative 3x^2 is always invertible along the lift). Primes dividing k are
// handled by the k-divisor table instead (internal/ktables), not by this
// generic lifting path; see DESIGN.md.
func CubeRootsModPrimePower(k *big.Int, p uint64, e int) []uint64 {
	if e <= 0 {
		return nil
	}
	roots := CubeRootsModPrime(k, p)
	if e == 1 || roots == nil {
		return roots
	}
	P := new(big.Int).SetUint64(p)
	modulus := new(big.Int).Set(P)
	cur := make([]*big.Int, len(roots))
	for i, r := range roots {
		cur[i] = new(big.Int).SetUint64(r)
	}
	for lvl := 1; lvl < e; lvl++ {
		nextModulus := new(big.Int).Mul(modulus, P)
		next := make([]*big.Int, 0, len(cur))
		for _, x := range cur {
			lifted := henselLiftCube(k, x, modulus, P, nextModulus)
			if lifted != nil {
				next = append(next, lifted)
			}
		}
		cur = next
		modulus = nextModulus
	}
	out := make([]uint64, len(cur))
	for i, x := range cur {
		out[i] = x.Uint64()
	}
	return out
}

// henselLiftCube lifts a single root x of x^3 ≡ k (mod m) to a root modulo
// m*p, given p is prime and invertible against 3x^2 mod p.
func henselLiftCube(k, x, m, p, mp *big.Int) *big.Int {
	x3 := new(big.Int).Exp(x, big3, mp)
	f := new(big.Int).Sub(x3, k)
	f.Mod(f, mp)
	fOverM := new(big.Int).Div(f, m)
	deriv := new(big.Int).Mod(new(big.Int).Mul(big3, new(big.Int).Mul(x, x)), p)
	if deriv.Sign() == 0 {
		return nil
	}
	derivInv := new(big.Int).ModInverse(deriv, p)
	if derivInv == nil {
		return nil
	}
	t := new(big.Int).Mod(new(big.Int).Mul(fOverM, derivInv), p)
	t.Neg(t)
	t.Mod(t, p)
	result := new(big.Int).Add(x, new(big.Int).Mul(t, m))
	result.Mod(result, mp)
	return result
}
