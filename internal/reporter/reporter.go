// Package reporter owns every side effect the search performs outside of
// pure computation: progress logging, phase/checkpoint bookkeeping, and
// persisting a resumable checkpoint file. It is the seam the distilled
// algorithm calls through instead of touching stdout, a clock, or a file
// directly.
package reporter

// Reporter is implemented by FileReporter and is the only way internal/phase,
// internal/dispatch and internal/zcheck are allowed to produce observable
// output or decide to stop early. Every predicate-shaped method (ReportP,
// ReportC, ReportD, ReportPhase) returns false to mean "stop here", which is
// not an error: it is how a checkpoint resume point or a user-requested
// abort is communicated back up through the call stack without plumbing an
// error value through the hot path.
type Reporter interface {
	// Start begins a run, recording its fingerprint and search parameters.
	Start(fingerprint string, k uint32, pmin, pmax, dmax uint64) error
	// End finalizes the run: flushes counters, closes the checkpoint file.
	End() error

	// ReportP is called once per prime a worker begins processing.
	ReportP(p uint64) bool
	// ReportC is called once per candidate cofactor count observed for a d.
	ReportC(n uint64) bool
	// ReportD is called once per admissible modulus d with its root count.
	ReportD(d uint64, n int) bool
	// ReportPhase is called on every phase transition in internal/phase.
	ReportPhase(phase string) bool

	// Solution is called by internal/zcheck on every verified hit.
	Solution(x, y, z int64) bool

	// Printf writes an ambient progress/diagnostic line (never solutions).
	Printf(format string, args ...interface{})
	// Warnf writes a colorized warning line, mirroring the teacher's
	// color.Red(...) configuration warnings.
	Warnf(format string, args ...interface{})

	// JobStart/JobEnd bracket one worker's lifetime for the SNMP-style
	// periodic stats dump.
	JobStart(workerID int)
	JobEnd(workerID int)

	// Comparisons reports the final tallies against the caller-supplied
	// pcnt/ccnt/dcnt/rcnt expectations, returning false (a non-fatal
	// mismatch report, not an error) if any expectation was violated.
	Comparisons(pcnt, ccnt, dcnt, rcnt uint64) bool

	// ProfileCheckpoint reports whether the single profiling worker should
	// keep going. Nothing in this module polls it.
	ProfileCheckpoint() bool
	// Profiling reports whether the run was started with --profile.
	Profiling() bool
	// Reporting reports whether progress output is enabled (false when
	// --quiet was set).
	Reporting() bool
}
