package reporter

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// FileReporter is the concrete Reporter used outside of tests: it logs
// progress with the standard logger (matching the teacher's
// log.SetFlags(log.LstdFlags | log.Lshortfile) convention), prints
// colorized warnings the way the teacher colors configuration warnings, and
// writes a checkpoint file once, when End is called.
type FileReporter struct {
	quiet       bool
	profiling   bool
	logJSON     bool
	checkpoint  string
	fingerprint string

	pCount atomic.Uint64
	cCount atomic.Uint64
	dCount atomic.Uint64
	rCount atomic.Uint64

	lastPhase atomic.Value // string
}

// Config bundles the ambient flags that shape a FileReporter's behavior.
type Config struct {
	Quiet          bool
	Profiling      bool
	LogJSON        bool
	CheckpointPath string
}

// NewFileReporter returns a Reporter backed by the standard logger and an
// optional checkpoint file.
func NewFileReporter(cfg Config) *FileReporter {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	r := &FileReporter{
		quiet:      cfg.Quiet,
		profiling:  cfg.Profiling,
		logJSON:    cfg.LogJSON,
		checkpoint: cfg.CheckpointPath,
	}
	r.lastPhase.Store("")
	return r
}

// logLine is the shape emitted when --log-json is set; encoding/json is used
// here rather than a pack library since none of the teacher's or the wider
// retrieval pack's dependencies do structured logging (the pack's logging
// surface is entirely the standard logger plus color.Red-style warnings).
type logLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (r *FileReporter) logf(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.logJSON {
		b, err := json.Marshal(logLine{Time: time.Now().Format(time.RFC3339), Level: level, Message: msg})
		if err == nil {
			log.Print(string(b))
			return
		}
	}
	log.Print(msg)
}

func (r *FileReporter) Start(fingerprint string, k uint32, pmin, pmax, dmax uint64) error {
	r.fingerprint = fingerprint
	if !r.quiet {
		r.logf("info", "zcubes run %s: k=%d pmin=%d pmax=%d dmax=%d", fingerprint, k, pmin, pmax, dmax)
	}
	return nil
}

func (r *FileReporter) End() error {
	if r.checkpoint == "" {
		return nil
	}
	return writeCheckpoint(r.checkpoint, checkpoint{
		Fingerprint: r.fingerprint,
		Phase:       r.currentPhase(),
		PCnt:        r.pCount.Load(),
		CCnt:        r.cCount.Load(),
		DCnt:        r.dCount.Load(),
		RCnt:        r.rCount.Load(),
	})
}

func (r *FileReporter) ReportP(p uint64) bool {
	r.pCount.Add(1)
	return true
}

func (r *FileReporter) ReportC(n uint64) bool {
	r.cCount.Add(n)
	return true
}

func (r *FileReporter) ReportD(d uint64, n int) bool {
	r.dCount.Add(1)
	r.rCount.Add(uint64(n))
	return true
}

func (r *FileReporter) ReportPhase(phase string) bool {
	r.lastPhase.Store(phase)
	if !r.quiet {
		r.logf("info", "phase: %s", phase)
	}
	return true
}

func (r *FileReporter) currentPhase() string {
	if v, ok := r.lastPhase.Load().(string); ok {
		return v
	}
	return ""
}

func (r *FileReporter) Solution(x, y, z int64) bool {
	fmt.Printf("%d %d %d\n", x, y, z)
	return true
}

func (r *FileReporter) Printf(format string, args ...interface{}) {
	if r.quiet {
		return
	}
	r.logf("info", format, args...)
}

func (r *FileReporter) Warnf(format string, args ...interface{}) {
	if r.logJSON {
		r.logf("warn", format, args...)
		return
	}
	color.Red(format, args...)
}

func (r *FileReporter) JobStart(workerID int) {
	if !r.quiet {
		r.logf("info", "worker %d: start", workerID)
	}
}

func (r *FileReporter) JobEnd(workerID int) {
	if !r.quiet {
		r.logf("info", "worker %d: done", workerID)
	}
}

func (r *FileReporter) Comparisons(pcnt, ccnt, dcnt, rcnt uint64) bool {
	ok := true
	if pcnt != 0 && pcnt != r.pCount.Load() {
		r.Warnf("pcnt mismatch: observed %d, expected %d", r.pCount.Load(), pcnt)
		ok = false
	}
	if ccnt != 0 && ccnt != r.cCount.Load() {
		r.Warnf("ccnt mismatch: observed %d, expected %d", r.cCount.Load(), ccnt)
		ok = false
	}
	if dcnt != 0 && dcnt != r.dCount.Load() {
		r.Warnf("dcnt mismatch: observed %d, expected %d", r.dCount.Load(), dcnt)
		ok = false
	}
	if rcnt != 0 && rcnt != r.rCount.Load() {
		r.Warnf("rcnt mismatch: observed %d, expected %d", r.rCount.Load(), rcnt)
		ok = false
	}
	return ok
}

func (r *FileReporter) ProfileCheckpoint() bool { return true }
func (r *FileReporter) Profiling() bool         { return r.profiling }
func (r *FileReporter) Reporting() bool         { return !r.quiet }
