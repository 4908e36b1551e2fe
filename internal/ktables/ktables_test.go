package ktables

import "testing"

func TestValidateK(t *testing.T) {
	cases := []struct {
		k    uint32
		want bool
	}{
		{3, true},
		{6, true},
		{30, true},
		{42, true},
		{4, false},
		{1001, false},
		{0, false},
	}
	for _, c := range cases {
		err := ValidateK(c.k)
		if (err == nil) != c.want {
			t.Fatalf("ValidateK(%d): err=%v, want valid=%v", c.k, err, c.want)
		}
	}
}

func TestSevenActive(t *testing.T) {
	if !sevenActive(30) { // 30 mod 7 = 2
		t.Fatalf("30 ≡ 2 mod 7 should be seven-active")
	}
	if !sevenActive(12) { // 12 mod 7 = 5
		t.Fatalf("12 ≡ 5 mod 7 should be seven-active")
	}
	if sevenActive(3) {
		t.Fatalf("3 mod 7 = 3 should not be seven-active")
	}
}

func TestBForK(t *testing.T) {
	if bForK(3) != 162 {
		t.Fatalf("bForK(3) = %d, want 162", bForK(3))
	}
	if bForK(6) != 18 {
		t.Fatalf("bForK(6) = %d, want 18", bForK(6))
	}
}

func TestKClassIndex(t *testing.T) {
	cases := []struct {
		b2, b7 uint32
		want   int
	}{
		{1, 1, 0},
		{2, 1, 1},
		{1, 7, 2},
		{2, 7, 3},
	}
	for _, c := range cases {
		if got := KClassIndex(c.b2, c.b7); got != c.want {
			t.Fatalf("KClassIndex(%d,%d) = %d, want %d", c.b2, c.b7, got, c.want)
		}
	}
}

func TestBuildSmallK(t *testing.T) {
	tbl, err := Build(6, 1000, 50)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.CPMax < 50 {
		t.Fatalf("CPMax=%d should honor the hint floor", tbl.CPMax)
	}
	if len(tbl.CPTab) == 0 {
		t.Fatalf("expected cached primes for k=6")
	}
	for _, p := range tbl.CPTab {
		if uint64(tbl.K)%p == 0 {
			t.Fatalf("cached prime table must exclude primes dividing k, found %d", p)
		}
	}
	if len(tbl.KDivisors) == 0 || tbl.KDivisors[0].D != 1 {
		t.Fatalf("KDivisors must include the trivial divisor 1 first, got %v", tbl.KDivisors)
	}
}

func TestBuildEnforcesCPMaxFloor(t *testing.T) {
	tbl, err := Build(3, 1_000_000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.CPMax < isqrt(1_000_000) {
		t.Fatalf("CPMax=%d must be at least sqrt(dmax)", tbl.CPMax)
	}
}

func TestPrimePowersStayWithinDMax(t *testing.T) {
	tbl, err := Build(6, 200, 20)
	if err != nil {
		t.Fatal(err)
	}
	for p, powers := range tbl.Powers {
		for _, pw := range powers {
			if pw.Q > tbl.DMax {
				t.Fatalf("prime power %d^%d = %d exceeds dmax %d", p, pw.E, pw.Q, tbl.DMax)
			}
		}
	}
}

// TestCubeRootsModCompositeCountsAllMultiples pins down the concrete example
// from k=24=2^3*3: d=8 forces x^3 ≡ 0 (mod 8), whose roots are every
// multiple of 8^(1/3)=2, not just the trivial root 0.
func TestCubeRootsModCompositeCountsAllMultiples(t *testing.T) {
	roots := cubeRootsModComposite(8)
	want := []uint64{0, 2, 4, 6}
	if len(roots) != len(want) {
		t.Fatalf("cubeRootsModComposite(8) = %v, want %v", roots, want)
	}
	seen := map[uint64]bool{}
	for _, r := range roots {
		seen[r] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Fatalf("cubeRootsModComposite(8) = %v, missing root %d", roots, w)
		}
	}
}

// TestCubeRootsModCompositeCombinesDistinctPrimes checks the two-prime case
// (d=8*27=216, k divisible by both 2^3 and 3^3) CRT-combines each prime's
// root set rather than only handling a single prime factor.
func TestCubeRootsModCompositeCombinesDistinctPrimes(t *testing.T) {
	roots := cubeRootsModComposite(216)
	if len(roots) != 4*9 {
		t.Fatalf("cubeRootsModComposite(216) has %d roots, want 36 (4 mod 8 x 9 mod 27)", len(roots))
	}
	for _, r := range roots {
		if r >= 216 {
			t.Fatalf("root %d out of range mod 216", r)
		}
		if (r*r*r)%216 != 0 {
			t.Fatalf("root %d does not satisfy x^3 = 0 (mod 216)", r)
		}
	}
}

// TestCofactorRegimeBoundariesAreOrdered confirms cdmin/sdmin sit strictly
// between cpmax and dmax so the Uncached/Cocached phases are reachable
// rather than collapsing to dmax.
func TestCofactorRegimeBoundariesAreOrdered(t *testing.T) {
	tbl, err := Build(6, 1_000_000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !(tbl.CPMax < tbl.CDMin && tbl.CDMin < tbl.SDMin && tbl.SDMin < tbl.DMax) {
		t.Fatalf("expected cpmax(%d) < cdmin(%d) < sdmin(%d) < dmax(%d)",
			tbl.CPMax, tbl.CDMin, tbl.SDMin, tbl.DMax)
	}
}

func TestIsqrt(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 1, 4: 2, 15: 3, 16: 4, 1_000_000: 1000}
	for n, want := range cases {
		if got := isqrt(n); got != want {
			t.Fatalf("isqrt(%d) = %d, want %d", n, got, want)
		}
	}
}
