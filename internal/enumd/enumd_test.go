package enumd

import (
	"testing"

	"github.com/snakehand/zcubes/internal/ktables"
)

func cube(x, m uint64) uint64 {
	return (x * x % m) * x % m
}

func TestEnumDRootsAreValid(t *testing.T) {
	k := uint32(6)
	tab, err := ktables.Build(k, 5000, 50)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[uint64]bool{}
	emit := func(d uint64, roots []uint64) bool {
		if d > tab.DMax {
			t.Fatalf("emitted d=%d exceeds dmax=%d", d, tab.DMax)
		}
		for _, r := range roots {
			if r >= d {
				t.Fatalf("root %d out of range for modulus %d", r, d)
			}
			if cube(r, d) != uint64(k)%d {
				t.Fatalf("root %d does not cube to k mod %d (d=%d)", r, uint64(k)%d, d)
			}
		}
		seen[d] = true
		return true
	}

	if !EnumD(tab, 1, len(tab.CPTab)-1, []uint64{0}, emit) {
		t.Fatalf("EnumD returned false unexpectedly")
	}
	if len(seen) == 0 {
		t.Fatalf("expected at least one admissible cofactor to be emitted")
	}
}

func TestEnumDStopsOnEmitFalse(t *testing.T) {
	tab, err := ktables.Build(6, 2000, 30)
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	emit := func(d uint64, roots []uint64) bool {
		calls++
		return false
	}
	if EnumD(tab, 1, len(tab.CPTab)-1, []uint64{0}, emit) {
		t.Fatalf("expected EnumD to propagate the emit-false stop signal")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one emit call before stopping, got %d", calls)
	}
}

func TestEnumCDRootsAreValid(t *testing.T) {
	k := uint32(6)
	tab, err := ktables.Build(k, 5000, 50)
	if err != nil {
		t.Fatal(err)
	}
	emit := func(d uint64, roots []uint64) bool {
		for _, r := range roots {
			if cube(r, d) != uint64(k)%d {
				t.Fatalf("root %d does not cube to k mod %d", r, d)
			}
		}
		return true
	}
	EnumCD(tab, tab.CDMin, len(tab.CPTab)-1, []uint64{0}, emit)
}
