package completion

import (
	"errors"
	"sync"
	"time"
)

// Future errors.
var (
	// ErrResolved is returned when Resolve is called on an already
	// resolved Future. Double resolution is a protocol error.
	ErrResolved = errors.New("future already resolved")

	// ErrWaitTimeout is returned by Wait when the timeout expires before
	// the Future resolves. The underlying operation is not cancelled.
	ErrWaitTimeout = errors.New("timed out waiting for completion")
)

// Callback is invoked exactly once when a Future resolves.
type Callback func(success bool, err error)

// Future is a thread-safe, one-shot completion future.
//
// The zero value is not usable; create instances with New.
type Future struct {
	mu sync.Mutex

	done    bool
	success bool
	failure error

	// Closed on resolution. Waiters block on this.
	doneCh chan struct{}

	// Callbacks registered before resolution.
	callbacks []Callback
}

// New creates a pending Future.
func New() *Future {
	return &Future{
		doneCh: make(chan struct{}),
	}
}

// Resolve marks the Future as done with the given outcome.
//
// Resolve succeeds at most once. A second call returns ErrResolved and
// changes nothing: once done, the state never reverts.
func (f *Future) Resolve(success bool, failure error) error {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return ErrResolved
	}

	f.done = true
	f.success = success
	f.failure = failure
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.doneCh)
	f.mu.Unlock()

	// Callbacks run outside the lock so they may inspect the Future.
	for _, cb := range callbacks {
		cb(success, failure)
	}
	return nil
}

// Done reports whether the Future has resolved.
func (f *Future) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Success reports the outcome. It is only meaningful once Done is true.
func (f *Future) Success() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done && f.success
}

// Err returns the carried failure, if any. Nil while pending.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

// Wait blocks until the Future resolves or the timeout expires.
// A timeout of zero or less waits forever.
//
// On resolution with a failure, Wait re-delivers that failure. On
// timeout, Wait returns ErrWaitTimeout; the operation keeps running and
// may resolve the Future later.
func (f *Future) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		<-f.doneCh
		return f.outcome()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.doneCh:
		return f.outcome()
	case <-timer.C:
		return ErrWaitTimeout
	}
}

func (f *Future) outcome() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.success {
		return nil
	}
	if f.failure != nil {
		return f.failure
	}
	return errors.New("operation failed")
}

// OnComplete registers a callback to run when the Future resolves.
//
// If the Future has already resolved, the callback runs synchronously
// before OnComplete returns. Otherwise it runs exactly once from the
// goroutine that calls Resolve, including a Resolve that happens after
// a waiter has already timed out.
func (f *Future) OnComplete(cb Callback) {
	f.mu.Lock()
	if !f.done {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	success, failure := f.success, f.failure
	f.mu.Unlock()

	cb(success, failure)
}
