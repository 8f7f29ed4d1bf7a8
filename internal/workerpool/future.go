package workerpool

import (
	"context"
	"errors"
)

// ErrTimeout is returned by Future.Await when the deadline elapses before
// the job completes.
var ErrTimeout = errors.New("workerpool: await timed out")

// Future is a one-shot result holder for a submitted job.
type Future struct {
	done chan struct{}
	val  any
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(val any, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Await blocks until the job completes or ctx is done, whichever comes
// first. A ctx timeout/cancellation yields (nil, ErrTimeout); the
// underlying job, if still running, is not interrupted (cancellation is
// advisory).
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}
