package zcheck

import (
	"testing"

	"github.com/snakehand/zcubes/internal/modarith"
)

// fakeReporter records every solution reported and never asks to stop.
type fakeReporter struct {
	solutions [][3]int64
}

func (f *fakeReporter) Start(string, uint32, uint64, uint64, uint64) error { return nil }
func (f *fakeReporter) End() error                                        { return nil }
func (f *fakeReporter) ReportP(uint64) bool                               { return true }
func (f *fakeReporter) ReportC(uint64) bool                               { return true }
func (f *fakeReporter) ReportD(uint64, int) bool                          { return true }
func (f *fakeReporter) ReportPhase(string) bool                           { return true }
func (f *fakeReporter) Solution(x, y, z int64) bool {
	f.solutions = append(f.solutions, [3]int64{x, y, z})
	return true
}
func (f *fakeReporter) Printf(string, ...interface{})                   {}
func (f *fakeReporter) Warnf(string, ...interface{})                    {}
func (f *fakeReporter) JobStart(int)                                    {}
func (f *fakeReporter) JobEnd(int)                                      {}
func (f *fakeReporter) Comparisons(uint64, uint64, uint64, uint64) bool { return true }
func (f *fakeReporter) ProfileCheckpoint() bool                         { return true }
func (f *fakeReporter) Profiling() bool                                 { return false }
func (f *fakeReporter) Reporting() bool                                 { return true }

func hasSolution(sols [][3]int64, x, y, z int64) bool {
	for _, s := range sols {
		if s == [3]int64{x, y, z} {
			return true
		}
	}
	return false
}

// TestCheckOneFindsKnownSolution exercises k=29 = 3^3+1^3+1^3, a = x+y = 4,
// z = 1: with zmax pinned to the progression's own first step, CheckOne
// lands exactly on z=1 and tryZ must recover x=3, y=1 from the quadratic.
func TestCheckOneFindsKnownSolution(t *testing.T) {
	rep := &fakeReporter{}
	c := New(29, modarith.FromUint64(1), rep)
	if !c.CheckOne(4, []uint64{1}) {
		t.Fatal("CheckOne returned false unexpectedly")
	}
	if !hasSolution(rep.solutions, 3, 1, 1) {
		t.Fatalf("expected solution (3,1,1) in %v", rep.solutions)
	}
}

// TestCheckAFewFindsKnownSolution exercises the same identity via the
// consecutive-step walk.
func TestCheckAFewFindsKnownSolution(t *testing.T) {
	rep := &fakeReporter{}
	c := New(29, modarith.FromUint64(1000), rep)
	if !c.CheckAFew(4, []uint64{1}, 1) {
		t.Fatal("CheckAFew returned false unexpectedly")
	}
	if !hasSolution(rep.solutions, 3, 1, 1) {
		t.Fatalf("expected solution (3,1,1) in %v", rep.solutions)
	}
}

// TestCheckAFewWalksProgressionWithoutFalsePositives checks a range of t
// values around the known hit and confirms no spurious solutions appear.
func TestCheckAFewWalksProgressionWithoutFalsePositives(t *testing.T) {
	rep := &fakeReporter{}
	c := New(29, modarith.FromUint64(1000), rep)
	if !c.CheckAFew(4, []uint64{1}, 5) {
		t.Fatal("CheckAFew returned false unexpectedly")
	}
	if len(rep.solutions) != 1 || !hasSolution(rep.solutions, 3, 1, 1) {
		t.Fatalf("expected exactly one solution (3,1,1), got %v", rep.solutions)
	}
}

func TestCheckLiftFindsSameSolutionAsCheckAFew(t *testing.T) {
	rep := &fakeReporter{}
	c := New(29, modarith.FromUint64(1000), rep)
	if !c.CheckLift(4, []uint64{1}, 5) {
		t.Fatal("CheckLift returned false unexpectedly")
	}
	if !hasSolution(rep.solutions, 3, 1, 1) {
		t.Fatalf("expected solution (3,1,1) in %v", rep.solutions)
	}
}

// TestCheckLiftUnionsMultipleRoots exercises CheckLift with two roots rather
// than one: since quickAdmissible always accepts, every offset is marked
// admissible under both roots, so a merge that cancels agreeing bits instead
// of keeping their union would silently skip every candidate (including the
// known hit at r=1, t=0) and report nothing.
func TestCheckLiftUnionsMultipleRoots(t *testing.T) {
	rep := &fakeReporter{}
	c := New(29, modarith.FromUint64(1000), rep)
	if !c.CheckLift(4, []uint64{1, 7}, 5) {
		t.Fatal("CheckLift returned false unexpectedly")
	}
	if !hasSolution(rep.solutions, 3, 1, 1) {
		t.Fatalf("expected solution (3,1,1) in %v", rep.solutions)
	}
}

func TestTryZRejectsNonDivisibleModulus(t *testing.T) {
	rep := &fakeReporter{}
	c := New(29, modarith.FromUint64(1000), rep).(*checker)
	// a=5 does not divide k - z^3 for z=1 (28 % 5 != 0): must return true
	// (keep going) and report nothing.
	if !c.tryZ(5, 1) {
		t.Fatal("tryZ should return true (not a stop signal) for a non-candidate")
	}
	if len(rep.solutions) != 0 {
		t.Fatalf("expected no solutions, got %v", rep.solutions)
	}
}

func TestSolutionStopsEarlyWhenReporterDeclines(t *testing.T) {
	rep := &stoppingReporter{fakeReporter: fakeReporter{}}
	c := New(29, modarith.FromUint64(1000), rep)
	if c.CheckAFew(4, []uint64{1}, 1) {
		t.Fatal("expected CheckAFew to propagate the reporter's stop signal")
	}
}

type stoppingReporter struct {
	fakeReporter
}

func (s *stoppingReporter) Solution(x, y, z int64) bool {
	s.fakeReporter.Solution(x, y, z)
	return false
}
