package ready

import (
	"context"
	"errors"
	"sync"
)

// ErrNilFailure is stored when Fail is called with a nil error.
var ErrNilFailure = errors.New("ready: failed with nil error")

// Future is a single-assignment completion value.
// The zero value is not usable; create one with NewFuture.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewFuture creates an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete settles the future successfully.
// It reports whether this call settled the future.
func (f *Future) Complete() bool {
	return f.settle(nil)
}

// Fail settles the future with err.
// It reports whether this call settled the future.
func (f *Future) Fail(err error) bool {
	if err == nil {
		err = ErrNilFailure
	}
	return f.settle(err)
}

func (f *Future) settle(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done returns a channel that is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has been completed or failed.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the failure, or nil when the future completed successfully or
// has not settled yet.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx is done.
// Giving up on ctx does not affect the future or other waiters.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	default:
	}

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
