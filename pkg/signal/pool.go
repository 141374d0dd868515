package signal

import (
	"errors"
	"sync"
)

// SetPool errors.
var (
	// ErrPoolStopped is returned when submitting to a stopped pool.
	ErrPoolStopped = errors.New("set pool stopped")
)

// Default set pool sizing.
const (
	DefaultSetWorkers   = 16
	DefaultSetQueueSize = 64
)

// SetPool runs set-and-settle tasks on a fixed pool of workers, bounding
// concurrent settle loops no matter how many signals call Set.
type SetPool struct {
	mu      sync.RWMutex
	tasks   chan func()
	stopped bool
	wg      sync.WaitGroup
}

// NewSetPool creates a pool with the given worker count and queue size.
// Non-positive arguments take the defaults.
func NewSetPool(workers, queueSize int) *SetPool {
	if workers <= 0 {
		workers = DefaultSetWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultSetQueueSize
	}

	p := &SetPool{tasks: make(chan func(), queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for fn := range p.tasks {
				fn()
			}
		}()
	}
	return p
}

// Submit enqueues a settle task. It blocks while the queue is full and
// returns ErrPoolStopped after Stop.
func (p *SetPool) Submit(fn func()) error {
	// The read lock is held across the send so Stop cannot close the
	// queue underneath an in-flight submission.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	p.tasks <- fn
	return nil
}

// Stop drains the pool. In-flight settle loops run to completion.
func (p *SetPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

var (
	defaultPoolOnce sync.Once
	defaultPool     *SetPool
)

// defaultSetPool is the shared pool used by signals constructed without
// an explicit one.
func defaultSetPool() *SetPool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewSetPool(DefaultSetWorkers, DefaultSetQueueSize)
	})
	return defaultPool
}
