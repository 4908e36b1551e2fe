// Package params validates and parses the command-line arguments into a
// SearchParams the supervisor can run, reproducing the original CLI's
// argument surface (positional n/k/pmin/pmax/dmax/zmax, an options bitmask,
// and trailing pcnt=/ccnt=/dcnt=/rcnt= comparison arguments) on top of
// Go-native flag parsing for the ambient additions.
package params

import (
	"math/big"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/snakehand/zcubes/internal/ktables"
	"github.com/snakehand/zcubes/internal/modarith"
)

// PrimeRange is either a plain [Min,Max] range, or — when Pinned is set — a
// fixed largest prime factor P0 with a second-largest prime ranged over
// [Min,Max], the "P0xQ" form.
type PrimeRange struct {
	Pinned bool
	P0     uint64
	Min    uint64
	Max    uint64
}

// SearchParams is the fully validated, immutable configuration the
// supervisor runs from.
type SearchParams struct {
	Workers int
	K       uint32
	Primes  PrimeRange
	DMax    uint64
	ZMax    modarith.U128
	Options uint8

	PCnt, CCnt, DCnt, RCnt uint64 // 0 means "not specified, skip comparison"

	Profile        bool
	CheckpointPath string
	SNMPLogPath    string
	SNMPPeriod     int
	Quiet          bool
	LogJSON        bool
}

var p0xqPattern = regexp.MustCompile(`^([0-9]+)[xX]([0-9]+)$`)
var countPattern = regexp.MustCompile(`^(pcnt|ccnt|dcnt|rcnt)=([0-9]+)$`)

// Parse validates positional args (n k pmin pmax dmax zmax [options]
// [pcnt=..] [ccnt=..] [dcnt=..] [rcnt=..]) the way the original argv parser
// does, failing fast with a wrapped, human-readable diagnostic.
func Parse(args []string) (*SearchParams, error) {
	if len(args) < 6 {
		return nil, errors.Errorf("expected at least 6 positional arguments (n k pmin pmax dmax zmax), got %d", len(args))
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return nil, errors.Errorf("n must be a non-negative integer, got %q", args[0])
	}
	if n == 0 {
		n = runtime.NumCPU()
	}

	k64, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "k must be an integer, got %q", args[1])
	}
	k := uint32(k64)
	if err := ktables.ValidateK(k); err != nil {
		return nil, err
	}

	primes, err := parsePrimeRange(args[2], args[3])
	if err != nil {
		return nil, err
	}

	dmax, err := strconv.ParseUint(args[4], 10, 64)
	if err != nil || dmax == 0 || dmax >= (1<<63) {
		return nil, errors.Errorf("dmax must be a positive integer < 2^63, got %q", args[4])
	}

	zmax, err := parseU128(args[5])
	if err != nil {
		return nil, errors.Wrapf(err, "zmax must be a non-negative integer, got %q", args[5])
	}

	sp := &SearchParams{
		Workers: n,
		K:       k,
		Primes:  primes,
		DMax:    dmax,
		ZMax:    zmax,
	}

	rest := args[6:]
	if len(rest) > 0 && !countPattern.MatchString(rest[0]) {
		opt, err := strconv.ParseUint(rest[0], 10, 8)
		if err != nil || opt > 6 {
			return nil, errors.Errorf("options must be an integer in [0,6], got %q", rest[0])
		}
		sp.Options = uint8(opt)
		rest = rest[1:]
	}

	for _, arg := range rest {
		m := countPattern.FindStringSubmatch(arg)
		if m == nil {
			return nil, errors.Errorf("unrecognized trailing argument %q (expected pcnt=/ccnt=/dcnt=/rcnt=)", arg)
		}
		v, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid count in %q", arg)
		}
		switch m[1] {
		case "pcnt":
			sp.PCnt = v
		case "ccnt":
			sp.CCnt = v
		case "dcnt":
			sp.DCnt = v
		case "rcnt":
			sp.RCnt = v
		}
	}

	return sp, nil
}

func parsePrimeRange(minArg, maxArg string) (PrimeRange, error) {
	if m := p0xqPattern.FindStringSubmatch(minArg); m != nil {
		p0, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return PrimeRange{}, errors.Wrapf(err, "invalid P0 in %q", minArg)
		}
		q, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return PrimeRange{}, errors.Wrapf(err, "invalid Q in %q", minArg)
		}
		qMaxArg := maxArg
		if mm := p0xqPattern.FindStringSubmatch(maxArg); mm != nil {
			p0Max, err := strconv.ParseUint(mm[1], 10, 64)
			if err != nil || p0Max != p0 {
				return PrimeRange{}, errors.Errorf("pmax %q must use the same P0 as pmin %q", maxArg, minArg)
			}
			qMaxArg = mm[2]
		}
		qMax, err := strconv.ParseUint(qMaxArg, 10, 64)
		if err != nil {
			return PrimeRange{}, errors.Wrapf(err, "pmax must be an integer or P0xQ when pmin is P0xQ, got %q", maxArg)
		}
		if qMax < q {
			return PrimeRange{}, errors.Errorf("pmax (%d) must be >= Q (%d) in P0xQ form", qMax, q)
		}
		return PrimeRange{Pinned: true, P0: p0, Min: q, Max: qMax}, nil
	}

	pmin, err := strconv.ParseUint(minArg, 10, 64)
	if err != nil {
		return PrimeRange{}, errors.Wrapf(err, "pmin must be an integer or P0xQ, got %q", minArg)
	}
	pmax, err := strconv.ParseUint(maxArg, 10, 64)
	if err != nil {
		return PrimeRange{}, errors.Wrapf(err, "pmax must be an integer, got %q", maxArg)
	}
	if pmax < pmin {
		return PrimeRange{}, errors.Errorf("pmax (%d) must be >= pmin (%d)", pmax, pmin)
	}
	return PrimeRange{Min: pmin, Max: pmax}, nil
}

// maxU128 is 2^128 - 1, the largest value parseU128 will accept.
var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// parseU128 accepts zmax values up to 2^128-1, widening via math/big for
// values that do not fit in a plain uint64 (zmax is parsed once at process
// startup, so this need not be fast).
func parseU128(s string) (modarith.U128, error) {
	s = strings.TrimSpace(s)
	if lo, err := strconv.ParseUint(s, 10, 64); err == nil {
		return modarith.FromUint64(lo), nil
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok || x.Sign() < 0 || x.Cmp(maxU128) > 0 {
		return modarith.U128{}, errors.Errorf("not a valid non-negative 128-bit integer: %q", s)
	}
	return modarith.U128FromBigInt(x), nil
}
