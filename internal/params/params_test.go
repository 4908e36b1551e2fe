package params

import "testing"

func TestParseValidBasicRange(t *testing.T) {
	sp, err := Parse([]string{"4", "3", "7", "7", "10000", "1000000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Workers != 4 || sp.K != 3 || sp.Primes.Min != 7 || sp.Primes.Max != 7 || sp.DMax != 10000 {
		t.Fatalf("unexpected parse result: %+v", sp)
	}
}

func TestParseZeroWorkersUsesNumCPU(t *testing.T) {
	sp, err := Parse([]string{"0", "6", "2", "1000", "10000", "1000000"})
	if err != nil {
		t.Fatal(err)
	}
	if sp.Workers <= 0 {
		t.Fatalf("Workers = %d, want > 0", sp.Workers)
	}
}

func TestParseRejectsInvalidK(t *testing.T) {
	for _, k := range []string{"5", "1001", "4"} {
		if _, err := Parse([]string{"1", k, "2", "1000", "10000", "1000000"}); err == nil {
			t.Fatalf("k=%s: expected validation error, got none", k)
		}
	}
}

func TestParsePinnedP0xQForm(t *testing.T) {
	sp, err := Parse([]string{"1", "3", "5x7", "20", "10000", "1000000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sp.Primes.Pinned || sp.Primes.P0 != 5 || sp.Primes.Min != 7 || sp.Primes.Max != 20 {
		t.Fatalf("unexpected pinned range: %+v", sp.Primes)
	}
}

func TestParseRejectsPmaxBelowPmin(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "100", "50", "10000", "1000000"}); err == nil {
		t.Fatal("expected error when pmax < pmin")
	}
}

func TestParseRejectsPinnedQMaxBelowQ(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "5x20", "7", "10000", "1000000"}); err == nil {
		t.Fatal("expected error when pinned pmax < Q")
	}
}

func TestParseRejectsBadDMax(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "2", "1000", "0", "1000000"}); err == nil {
		t.Fatal("expected error for dmax=0")
	}
	if _, err := Parse([]string{"1", "3", "2", "1000", "not-a-number", "1000000"}); err == nil {
		t.Fatal("expected error for non-numeric dmax")
	}
}

func TestParseTooFewArguments(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "2", "1000"}); err == nil {
		t.Fatal("expected error for too few positional arguments")
	}
}

func TestParseOptionsBitmask(t *testing.T) {
	sp, err := Parse([]string{"1", "3", "2", "1000", "10000", "1000000", "5"})
	if err != nil {
		t.Fatal(err)
	}
	if sp.Options != 5 {
		t.Fatalf("Options = %d, want 5", sp.Options)
	}
}

func TestParseRejectsOptionsOutOfRange(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "2", "1000", "10000", "1000000", "7"}); err == nil {
		t.Fatal("expected error for options=7")
	}
}

func TestParseTrailingCounts(t *testing.T) {
	sp, err := Parse([]string{"1", "3", "2", "1000", "10000", "1000000", "pcnt=10", "dcnt=20"})
	if err != nil {
		t.Fatal(err)
	}
	if sp.PCnt != 10 || sp.DCnt != 20 || sp.CCnt != 0 || sp.RCnt != 0 {
		t.Fatalf("unexpected counts: %+v", sp)
	}
}

func TestParseTrailingCountsWithOptions(t *testing.T) {
	sp, err := Parse([]string{"1", "3", "2", "1000", "10000", "1000000", "3", "ccnt=99"})
	if err != nil {
		t.Fatal(err)
	}
	if sp.Options != 3 || sp.CCnt != 99 {
		t.Fatalf("unexpected result: %+v", sp)
	}
}

func TestParseRejectsUnrecognizedTrailingArg(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "2", "1000", "10000", "1000000", "bogus=1"}); err == nil {
		t.Fatal("expected error for unrecognized trailing argument")
	}
}

func TestParseZMaxBeyondUint64(t *testing.T) {
	sp, err := Parse([]string{"1", "3", "2", "1000", "10000", "340282366920938463463374607431768211455"})
	if err != nil {
		t.Fatalf("unexpected error for max 128-bit zmax: %v", err)
	}
	if sp.ZMax.Hi != ^uint64(0) || sp.ZMax.Lo != ^uint64(0) {
		t.Fatalf("unexpected ZMax: %+v", sp.ZMax)
	}
}

func TestParseZMaxOverflows128Bits(t *testing.T) {
	if _, err := Parse([]string{"1", "3", "2", "1000", "10000", "340282366920938463463374607431768211456"}); err == nil {
		t.Fatal("expected error for zmax exceeding 2^128-1")
	}
}
