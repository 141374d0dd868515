package dispatch

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher errors.
var (
	// ErrStopped is returned when submitting to a stopped dispatcher.
	ErrStopped = errors.New("dispatcher stopped")

	// ErrJoinTimeout is returned by Stop when a worker does not drain
	// within the join timeout.
	ErrJoinTimeout = errors.New("timed out joining dispatcher workers")
)

// Category identifies which worker queue a callback runs on.
type Category uint8

const (
	// Monitor carries value-change callbacks.
	Monitor Category = iota

	// Metadata carries connection, access-rights and metadata callbacks.
	Metadata

	// PutCompletion carries remote write acknowledgements.
	PutCompletion

	// Utility carries best-effort background tasks.
	Utility

	numCategories
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Monitor:
		return "monitor"
	case Metadata:
		return "metadata"
	case PutCompletion:
		return "put_completion"
	case Utility:
		return "utility"
	default:
		return "unknown"
	}
}

// ContextBinder pins a worker goroutine to a provider communication
// context. Providers whose client libraries are context-sensitive
// implement this; others may leave it nil.
type ContextBinder interface {
	// AttachContext binds the calling goroutine to the context.
	AttachContext() error

	// DetachContext releases the binding. Called once when the worker
	// exits.
	DetachContext()
}

// Config holds dispatcher configuration.
type Config struct {
	// QueueSize is the per-category queue capacity.
	QueueSize int

	// JoinTimeout bounds how long Stop waits for each worker to drain.
	JoinTimeout time.Duration

	// Binder, when non-nil, is attached by every worker at startup.
	Binder ContextBinder

	// Logger receives worker lifecycle and callback panic reports.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Default configuration values.
const (
	DefaultQueueSize   = 1024
	DefaultJoinTimeout = 5 * time.Second
)

// Dispatcher owns one worker per callback category.
type Dispatcher struct {
	mu sync.Mutex

	queues  [numCategories]chan func()
	done    [numCategories]chan struct{}
	logger  *slog.Logger
	timeout time.Duration
	stopped bool
}

// New creates a dispatcher and starts its workers.
func New(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		logger:  cfg.Logger,
		timeout: cfg.JoinTimeout,
	}

	for c := Category(0); c < numCategories; c++ {
		d.queues[c] = make(chan func(), cfg.QueueSize)
		d.done[c] = make(chan struct{})
		go d.worker(c, cfg.Binder)
	}

	return d
}

// worker drains one category queue until it receives the nil shutdown
// sentinel. The worker attaches to the provider context exactly once,
// before processing any task.
func (d *Dispatcher) worker(c Category, binder ContextBinder) {
	defer close(d.done[c])

	if binder != nil {
		if err := binder.AttachContext(); err != nil {
			d.logger.Error("dispatch worker failed to attach context",
				"category", c.String(), "err", err)
			return
		}
		defer binder.DetachContext()
	}

	for fn := range d.queues[c] {
		if fn == nil {
			// Shutdown sentinel.
			return
		}
		d.invoke(c, fn)
	}
}

// invoke runs a task, recovering panics from application callbacks so a
// failing subscriber cannot stop the worker.
func (d *Dispatcher) invoke(c Category, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("callback panicked in dispatch worker",
				"category", c.String(), "panic", r)
		}
	}()
	fn()
}

// Submit enqueues fn on the category's worker. It blocks if the queue is
// full; callbacks are never dropped while the dispatcher is running.
func (d *Dispatcher) Submit(c Category, fn func()) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	q := d.queues[c]
	d.mu.Unlock()

	select {
	case q <- fn:
		return nil
	case <-d.done[c]:
		return ErrStopped
	}
}

// Alive reports whether the dispatcher is accepting tasks.
func (d *Dispatcher) Alive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped
}

// Stop shuts the dispatcher down: one shutdown sentinel is enqueued per
// worker, then each worker is joined with a bounded timeout. Stop is
// idempotent; second and later calls return nil immediately.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	for c := Category(0); c < numCategories; c++ {
		d.queues[c] <- nil
	}

	var err error
	deadline := time.Now().Add(d.timeout)

	for c := Category(0); c < numCategories; c++ {
		select {
		case <-d.done[c]:
		case <-time.After(time.Until(deadline)):
			d.logger.Warn("dispatch worker did not drain before join timeout",
				"category", c.String())
			err = ErrJoinTimeout
		}
	}
	return err
}
