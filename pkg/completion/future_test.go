package completion

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFutureResolveOnce(t *testing.T) {
	f := New()

	if f.Done() {
		t.Error("Done() = true before resolve, want false")
	}

	if err := f.Resolve(true, nil); err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if !f.Done() {
		t.Error("Done() = false after resolve, want true")
	}
	if !f.Success() {
		t.Error("Success() = false, want true")
	}

	// Second resolve is a protocol error and must not change the outcome.
	if err := f.Resolve(false, errors.New("late failure")); !errors.Is(err, ErrResolved) {
		t.Errorf("second Resolve error = %v, want ErrResolved", err)
	}
	if !f.Success() {
		t.Error("outcome changed by rejected second Resolve")
	}
}

func TestFutureWaitSuccess(t *testing.T) {
	f := New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = f.Resolve(true, nil)
	}()

	if err := f.Wait(time.Second); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestFutureWaitFailureRedelivered(t *testing.T) {
	f := New()
	boom := errors.New("limit violation")

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = f.Resolve(false, boom)
	}()

	if err := f.Wait(time.Second); !errors.Is(err, boom) {
		t.Errorf("Wait() = %v, want carried failure", err)
	}
}

func TestFutureWaitTimeoutThenLateResolve(t *testing.T) {
	f := New()

	// Waiter gives up.
	if err := f.Wait(20 * time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("Wait() = %v, want ErrWaitTimeout", err)
	}

	// Late resolution is still valid and still notifies callbacks.
	notified := make(chan bool, 1)
	f.OnComplete(func(success bool, err error) {
		notified <- success
	})

	if err := f.Resolve(true, nil); err != nil {
		t.Fatalf("late Resolve failed: %v", err)
	}

	select {
	case success := <-notified:
		if !success {
			t.Error("callback observed success=false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("callback not invoked after late resolve")
	}
}

func TestFutureCallbackAfterResolution(t *testing.T) {
	f := New()
	_ = f.Resolve(false, errors.New("no write access"))

	// Registered after resolution: must fire synchronously.
	var called bool
	f.OnComplete(func(success bool, err error) {
		called = true
		if success {
			t.Error("callback success = true, want false")
		}
		if err == nil {
			t.Error("callback err = nil, want carried failure")
		}
	})

	if !called {
		t.Error("callback not invoked synchronously on resolved future")
	}
}

func TestFutureAllWaitersObserveOneOutcome(t *testing.T) {
	f := New()

	const waiters = 8
	var wg sync.WaitGroup
	errs := make(chan error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.Wait(time.Second)
		}()
	}

	_ = f.Resolve(true, nil)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("waiter observed %v, want nil", err)
		}
	}
}

func TestFutureCallbackFiresExactlyOnce(t *testing.T) {
	f := New()

	count := 0
	f.OnComplete(func(bool, error) { count++ })

	_ = f.Resolve(true, nil)
	_ = f.Resolve(true, nil) // rejected

	if count != 1 {
		t.Errorf("callback fired %d times, want 1", count)
	}
}
