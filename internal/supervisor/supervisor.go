// Package supervisor wires the precompute, sieve feeder and per-worker phase
// drivers into a single run: build the tables, start the prime pipe feeding
// from a sieve goroutine, fan workers out over it, and wait for either
// completion, a worker-requested stop, or a cancelled context.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/snakehand/zcubes/internal/dispatch"
	"github.com/snakehand/zcubes/internal/ktables"
	"github.com/snakehand/zcubes/internal/modarith"
	"github.com/snakehand/zcubes/internal/params"
	"github.com/snakehand/zcubes/internal/phase"
	"github.com/snakehand/zcubes/internal/primepipe"
	"github.com/snakehand/zcubes/internal/reporter"
	"github.com/snakehand/zcubes/internal/sieve"
	"github.com/snakehand/zcubes/internal/zcheck"
)

// Run builds the search tables from sp, starts the sieve feeder and sp.Workers
// phase-driver goroutines over it (one when sp.Profile is set), and blocks
// until every worker returns; a worker that fails cancels the others. It
// reports the final comparison tallies through rep before returning.
func Run(ctx context.Context, sp *params.SearchParams, rep reporter.Reporter) error {
	if sp.Primes.Pinned {
		return runPinned(ctx, sp, rep)
	}
	return runPlain(ctx, sp, rep)
}

func buildDriver(sp *params.SearchParams, rep reporter.Reporter) (*phase.Driver, error) {
	tab, err := ktables.Build(sp.K, sp.DMax, 0)
	if err != nil {
		return nil, errors.Wrap(err, "build precompute tables")
	}
	checker := zcheck.New(sp.K, sp.ZMax, rep)
	disp := dispatch.New(tab, sp.ZMax, checker)
	return &phase.Driver{
		Tab:   tab,
		Disp:  disp,
		Rep:   rep,
		PDMin: 1 + sp.DMax/tab.CPTab[0],
		BPMin: modarith.FudgedBound(modarith.ZMaxFudged(sp.ZMax), uint64(tab.B)*dispatch.ZSHORT),
	}, nil
}

// runPlain is the common case: pmin/pmax bound a single prime stream that
// the workers share through one pipe cursor, so each prime goes to exactly
// one worker.
func runPlain(ctx context.Context, sp *params.SearchParams, rep reporter.Reporter) error {
	fp := reporter.Fingerprint(sp.K, sp.Primes.Min, sp.Primes.Max, sp.DMax)
	return runWithDriver(ctx, sp, rep, fp, func(runCtx context.Context, id int, driver *phase.Driver, cur *primepipe.Cursor) error {
		return driver.ProcessPrimes(runCtx, id, cur, phase.NewScratch())
	})
}

// runPinned handles the P0xQ form: p0 is fixed, and every worker ranges over
// the second prime q in [Min, Max] via ProcessSubprimes.
func runPinned(ctx context.Context, sp *params.SearchParams, rep reporter.Reporter) error {
	fp := reporter.Fingerprint(sp.K, sp.Primes.P0, sp.Primes.Max, sp.DMax)
	return runWithDriver(ctx, sp, rep, fp, func(runCtx context.Context, id int, driver *phase.Driver, cur *primepipe.Cursor) error {
		return driver.ProcessSubprimes(runCtx, id, sp.Primes.P0, cur, phase.NewScratch())
	})
}

// workerFunc runs one worker's loop over the shared pipe cursor until the
// pipe closes, aborts, or the reporter asks to stop.
type workerFunc func(runCtx context.Context, id int, driver *phase.Driver, cur *primepipe.Cursor) error

// runWithDriver builds the precompute tables, starts the sieve feeder and
// sp.Workers worker goroutines over a shared pipe, and waits for all of them
// to finish before reporting the final tallies.
func runWithDriver(ctx context.Context, sp *params.SearchParams, rep reporter.Reporter, fingerprint string, work workerFunc) error {
	if err := rep.Start(fingerprint, sp.K, sp.Primes.Min, sp.Primes.Max, sp.DMax); err != nil {
		return errors.Wrap(err, "reporter start")
	}
	defer rep.End()

	driver, err := buildDriver(sp, rep)
	if err != nil {
		return err
	}
	rep.Printf("modarith: AVX2 fast path available: %v", modarith.FastPath())
	if !rep.ReportPhase("Precompute") {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipe := primepipe.New()
	var sieveErr error
	var sieveWG sync.WaitGroup
	sieveWG.Add(1)
	go func() {
		defer sieveWG.Done()
		sieveErr = sieve.Run(runCtx, pipe, sp.Primes.Min, sp.Primes.Max+1)
	}()

	workers := sp.Workers
	if sp.Profile {
		workers = 1
	}
	var wg sync.WaitGroup
	workerErrs := make([]error, workers)
	cur := pipe.NewCursor()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					workerErrs[id] = errors.Errorf("worker %d panicked: %v", id, r)
					cancel()
				}
			}()
			wd := *driver
			wd.Disp = dispatch.New(driver.Tab, sp.ZMax, zcheck.New(sp.K, sp.ZMax, rep))
			if werr := work(runCtx, id, &wd, cur); werr != nil {
				workerErrs[id] = werr
				cancel()
			}
		}(w)
	}

	wg.Wait()
	cancel()
	sieveWG.Wait()

	if sieveErr != nil && sieveErr != context.Canceled {
		return errors.Wrap(sieveErr, "sieve")
	}
	for _, werr := range workerErrs {
		if werr != nil && werr != context.Canceled {
			return errors.Wrap(werr, "worker")
		}
	}

	rep.Comparisons(sp.PCnt, sp.CCnt, sp.DCnt, sp.RCnt)
	return nil
}

// StartSNMP wires the periodic CSV stats dump when sp requests one, returning
// a no-op if it does not. Callers should arrange for ctx to be cancelled once
// Run returns so the logger goroutine does not outlive the search.
func StartSNMP(ctx context.Context, sp *params.SearchParams, rep *reporter.FileReporter) {
	if sp.SNMPLogPath == "" {
		return
	}
	period := time.Duration(sp.SNMPPeriod) * time.Second
	if period <= 0 {
		period = 10 * time.Second
	}
	go reporter.StartSNMPLogger(ctx, rep, sp.SNMPLogPath, period)
}
