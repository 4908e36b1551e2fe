// Package primepipe implements the single-producer, multi-consumer prime
// feed that replaces the upstream fork/shared-memory pipe with a
// single-process buffer guarded by a mutex and condition variable. One
// feeder goroutine appends primes (or prime-power batches) to the buffer,
// which grows without bound, so Feed never waits for readers. Goroutines
// that share one Cursor split the stream between them, each prime going to
// exactly one of them; separate Cursors each see every prime.
package primepipe

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrAborted is returned by Cursor.Next and Feed once Abort has been called
// with a nil error; a non-nil error passed to Abort is returned instead.
var ErrAborted = errors.New("primepipe: aborted")

// ErrClosed is returned by Feed after Close, and by Cursor.Next once every buffered
// item has been drained from a closed pipe.
var ErrClosed = errors.New("primepipe: closed")

// Pipe is a growable ring buffer of uint64 primes shared by one feeder and
// any number of readers, each tracked by its own Cursor.
type Pipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []uint64
	base   int // buf[0] corresponds to logical index base
	closed bool
	abort  error
}

// New creates an empty pipe.
func New() *Pipe {
	p := &Pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Feed appends a batch of primes to the pipe and wakes any blocked readers.
// It returns ErrClosed or ErrAborted if the pipe is no longer accepting
// input.
func (p *Pipe) Feed(ctx context.Context, batch []uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abort != nil {
		return p.abort
	}
	if p.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	p.buf = append(p.buf, batch...)
	p.cond.Broadcast()
	return nil
}

// Close marks the pipe as fully fed: no more Feed calls will succeed, and
// readers drain the remaining buffer before seeing ErrClosed.
func (p *Pipe) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
}

// Abort unblocks every reader and feeder immediately with err, overriding
// normal close/drain semantics. It mirrors the supervisor killing every
// worker after one reports an abnormal failure.
func (p *Pipe) Abort(err error) {
	if err == nil {
		err = ErrAborted
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abort == nil {
		p.abort = err
	}
	p.cond.Broadcast()
}

// Cursor is a read position into a Pipe. Next reads and advances it under
// the pipe's lock, so several goroutines may share one Cursor.
type Cursor struct {
	p   *Pipe
	pos int
}

// NewCursor returns a reader positioned at the start of the pipe's history.
// Every cursor sees every prime ever fed, regardless of when it was created.
func (p *Pipe) NewCursor() *Cursor {
	return &Cursor{p: p}
}

// Next blocks until a prime is available, the pipe is closed and drained, or
// ctx is cancelled / the pipe is aborted.
func (c *Cursor) Next(ctx context.Context) (uint64, error) {
	p := c.p

	// cond.Wait only wakes on Broadcast/Signal, so a single background
	// goroutine nudges it whenever ctx is cancelled. It exits as soon as
	// Next returns, via the stop channel below.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		case <-stop:
		}
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.abort != nil {
			return 0, p.abort
		}
		if idx := c.pos - p.base; idx < len(p.buf) {
			v := p.buf[idx]
			c.pos++
			return v, nil
		}
		if p.closed {
			return 0, ErrClosed
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		p.cond.Wait()
	}
}

// Compact drops buffered entries before logical index minPos. minPos must not
// exceed the position of any live cursor, since entries it drops can no
// longer be read. Nothing in this module calls it outside its tests.
func (p *Pipe) Compact(minPos int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	drop := minPos - p.base
	if drop <= 0 || drop > len(p.buf) {
		return
	}
	p.buf = append([]uint64(nil), p.buf[drop:]...)
	p.base += drop
}
