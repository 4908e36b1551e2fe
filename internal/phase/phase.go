// Package phase implements the top-level per-worker search loop: as the
// prime a worker pulls from the pipe grows, the cheapest available check
// strategy changes, so the loop advances monotonically through six phases
// rather than re-deciding from scratch on every prime.
package phase

import (
	"context"

	"github.com/snakehand/zcubes/internal/dispatch"
	"github.com/snakehand/zcubes/internal/enumd"
	"github.com/snakehand/zcubes/internal/ktables"
	"github.com/snakehand/zcubes/internal/modarith"
	"github.com/snakehand/zcubes/internal/primepipe"
	"github.com/snakehand/zcubes/internal/reporter"
)

// Phase enumerates the six boundaries a worker crosses, in increasing order
// of p relative to dmax/zmax.
type Phase int

const (
	Cached Phase = iota
	Uncached
	Cocached
	NearPrime
	Prime
	BigPrime
)

func (p Phase) String() string {
	switch p {
	case Cached:
		return "Cached"
	case Uncached:
		return "Uncached"
	case Cocached:
		return "Cocached"
	case NearPrime:
		return "NearPrime"
	case Prime:
		return "Prime"
	case BigPrime:
		return "BigPrime"
	default:
		return "Unknown"
	}
}

// Scratch is per-worker transient state: never touched by any goroutine
// other than the one that owns it.
type Scratch struct {
	Roots []uint64 // CUBEROOT_BUFSIZE-equivalent reusable root buffer
}

// NewScratch allocates a worker's private scratch buffers, sized to the
// original's CUBEROOT_BUFSIZE upper bound (sum_{i=0}^{10} 3^i).
func NewScratch() *Scratch {
	return &Scratch{Roots: make([]uint64, 0, 88573)}
}

// Driver runs the six-phase loop over a prime pipe for one worker.
type Driver struct {
	Tab   *ktables.Tables
	Disp  *dispatch.Dispatcher
	Rep   reporter.Reporter
	PDMin uint64 // below this p, cofactors are built from the cached tables (NearPrime/Cached/Uncached/Cocached)
	BPMin uint64 // at/above this p, d=p itself is already in the big-prime regime
}

// ProcessPrimes pulls primes from cur until the pipe is exhausted, aborted,
// or the reporter asks to stop, advancing through phases as p grows.
func (d *Driver) ProcessPrimes(ctx context.Context, workerID int, cur *primepipe.Cursor, scratch *Scratch) error {
	d.Rep.JobStart(workerID)
	defer d.Rep.JobEnd(workerID)

	current := Cached
	if !d.Rep.ReportPhase(current.String()) {
		return nil
	}

	for {
		p, err := cur.Next(ctx)
		if err == primepipe.ErrClosed {
			return nil
		}
		if err != nil {
			return err
		}
		if !d.Rep.ReportP(p) {
			return nil
		}

		next := d.phaseFor(p)
		if next != current {
			current = next
			if !d.Rep.ReportPhase(current.String()) {
				return nil
			}
		}

		if !d.processOnePrime(p, current, scratch) {
			return nil
		}
	}
}

// phaseFor classifies a prime p into one of the six phases based on its size
// relative to cpmax/cdmin/sdmin/pdmin/bpmin, preserving the monotone
// ordering the distilled spec requires (phases only ever advance, never
// regress, for an increasing prime stream): Cached ends at cpmax, Uncached
// at cdmin, Cocached at sdmin, NearPrime at pdmin, Prime at bpmin, and
// BigPrime takes every p from bpmin up.
func (d *Driver) phaseFor(p uint64) Phase {
	switch {
	case p <= d.Tab.CPMax:
		return Cached
	case p < d.Tab.CDMin:
		return Uncached
	case p < d.Tab.SDMin:
		return Cocached
	case p < d.PDMin:
		return NearPrime
	case p < d.BPMin:
		return Prime
	default:
		return BigPrime
	}
}

func (d *Driver) processOnePrime(p uint64, ph Phase, scratch *Scratch) bool {
	roots := cubeRootsAtP(d.Tab, p)
	if len(roots) == 0 {
		return true
	}
	if !d.Rep.ReportD(p, len(roots)) {
		return false
	}

	switch ph {
	case Cached, Uncached:
		emit := func(dd uint64, z []uint64) bool { return d.Disp.ProcKD(dd, z) }
		return enumd.EnumD(d.Tab, p, indexBelow(d.Tab, p), roots, emit)
	case Cocached:
		emit := func(dd uint64, z []uint64) bool { return d.Disp.ProcKD(dd, z) }
		return enumd.EnumCD(d.Tab, p, indexBelow(d.Tab, p), roots, emit)
	case NearPrime:
		return d.processNearPrime(p, roots)
	case Prime:
		return d.Disp.ProcDCoprime(p, roots)
	case BigPrime:
		return d.Disp.ProcDBigPrime(p, roots)
	default:
		return true
	}
}

// processNearPrime handles the sdtab-walk phase: d=p on its own (cofactor 1)
// plus d=p*c for every small cached cofactor c in sdtab, CRT-combining p's
// roots with c's. p is always coprime to every sdtab entry here since sdtab
// is built entirely from cached primes <= sdmax <= cpmax < p.
func (d *Driver) processNearPrime(p uint64, roots []uint64) bool {
	if !d.Disp.ProcKD(p, roots) {
		return false
	}
	for _, sd := range d.Tab.SDTab {
		if modarith.MulExceeds(p, sd.D, d.Tab.DMax) {
			continue
		}
		combined := crtLiftPair(p, roots, sd.D, sd.Roots)
		if len(combined) == 0 {
			continue
		}
		dd := p * sd.D
		if !d.Rep.ReportD(dd, len(combined)) {
			return false
		}
		if !d.Disp.ProcKD(dd, combined) {
			return false
		}
	}
	return true
}

// ProcessSubprimes is the alternate entry used when the caller pins the
// largest admissible prime factor to p0 <= sqrt(dmax): every modulus walked
// is p0 times a second prime ranged over the pipe, rather than p0 varying.
// When the pipe delivers q = p0 itself, d = p0^e is handled for every cached
// power e instead of attempting a self-CRT (p0 is never coprime to itself).
func (d *Driver) ProcessSubprimes(ctx context.Context, workerID int, p0 uint64, cur *primepipe.Cursor, scratch *Scratch) error {
	d.Rep.JobStart(workerID)
	defer d.Rep.JobEnd(workerID)

	p0Roots := cubeRootsAtP(d.Tab, p0)
	if len(p0Roots) == 0 {
		return nil
	}

	for {
		q, err := cur.Next(ctx)
		if err == primepipe.ErrClosed {
			return nil
		}
		if err != nil {
			return err
		}
		if !d.Rep.ReportP(q) {
			return nil
		}
		if q == p0 {
			if !d.processP0Powers(p0, p0Roots) {
				return nil
			}
			continue
		}
		if modarith.MulExceeds(p0, q, d.Tab.DMax) {
			continue
		}
		qRoots := cubeRootsAtP(d.Tab, q)
		if len(qRoots) == 0 {
			continue
		}
		combined := crtLiftPair(p0, p0Roots, q, qRoots)
		if !d.Rep.ReportD(p0*q, len(combined)) {
			return nil
		}
		if !d.Disp.ProcKD(p0*q, combined) {
			return nil
		}
	}
}

// processP0Powers handles d = p0^e for every e the cached power table holds
// for p0 (e=1 using p0Roots directly, e>=2 from tab.Powers[p0]).
func (d *Driver) processP0Powers(p0 uint64, p0Roots []uint64) bool {
	if !d.Rep.ReportD(p0, len(p0Roots)) {
		return false
	}
	if !d.Disp.ProcKD(p0, p0Roots) {
		return false
	}
	powers, ok := d.Tab.Powers[p0]
	if !ok {
		return true
	}
	for _, pw := range powers[1:] {
		if !d.Rep.ReportD(pw.Q, len(pw.Roots)) {
			return false
		}
		if !d.Disp.ProcKD(pw.Q, pw.Roots) {
			return false
		}
	}
	return true
}

func cubeRootsAtP(tab *ktables.Tables, p uint64) []uint64 {
	powers, ok := tab.Powers[p]
	if !ok || len(powers) == 0 {
		return nil
	}
	return powers[0].Roots
}

func indexBelow(tab *ktables.Tables, p uint64) int {
	// tab.CPTab is sorted ascending; find the largest index whose prime < p.
	lo, hi := 0, len(tab.CPTab)
	for lo < hi {
		mid := (lo + hi) / 2
		if tab.CPTab[mid] < p {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

func crtLiftPair(p0 uint64, z0 []uint64, q uint64, zq []uint64) []uint64 {
	inv, err := modarith.Inverse(q, p0)
	if err != nil {
		return nil
	}
	out := make([]uint64, 0, len(z0)*len(zq))
	for _, r0 := range z0 {
		for _, rq := range zq {
			out = append(out, modarith.CRTCombine(rq, q, r0, p0, inv))
		}
	}
	return out
}
