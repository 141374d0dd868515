package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
)

// Chan is one consumer's attachment to a simulated point.
type Chan struct {
	point *point

	mu       sync.Mutex
	cbs      channel.Callbacks
	released bool
}

// Name implements channel.Channel.
func (c *Chan) Name() string {
	return c.point.name
}

// Connected implements channel.Channel.
func (c *Chan) Connected() bool {
	c.point.mu.Lock()
	defer c.point.mu.Unlock()
	return c.point.connected
}

// Get implements channel.Channel. A disconnected point never produces a
// value, so the call waits out the timeout the way a real client would.
func (c *Chan) Get(timeout time.Duration) (channel.Reading, error) {
	if err := c.checkReleased(); err != nil {
		return channel.Reading{}, err
	}

	c.point.mu.Lock()
	connected := c.point.connected
	reading := channel.Reading{Value: c.point.value, Metadata: c.point.md}
	c.point.mu.Unlock()

	if !connected {
		time.Sleep(timeout)
		return channel.Reading{}, fmt.Errorf("%w: get %s", channel.ErrTimeout, c.point.name)
	}
	return reading, nil
}

// Put implements channel.Channel. With a configured delay the echo to
// monitor subscribers and the completion acknowledgement fire from a
// provider goroutine once the delay elapses; a zero-delay put applies
// and echoes before returning.
func (c *Chan) Put(value any, timeout time.Duration, complete channel.PutCallback) error {
	if err := c.checkReleased(); err != nil {
		return err
	}

	pt := c.point
	pt.mu.Lock()
	if !pt.connected {
		pt.mu.Unlock()
		return fmt.Errorf("%w: put %s", channel.ErrNotConnected, pt.name)
	}
	hook := pt.onPut
	delay := pt.putDelay
	pt.mu.Unlock()

	applied := value
	if hook != nil {
		var err error
		applied, err = hook(pt.name, value)
		if err != nil {
			return err
		}
	}

	settle := func() {
		pt.mu.Lock()
		pt.value = applied
		pt.md.Timestamp = time.Now()
		md := pt.md
		subs := append([]*Chan(nil), pt.subs...)
		pt.mu.Unlock()

		for _, s := range subs {
			s.notifyValue(applied, md)
		}
		if complete != nil {
			complete(nil)
		}
	}

	if delay > 0 {
		time.AfterFunc(delay, settle)
	} else {
		settle()
	}
	return nil
}

// AllMetadata implements channel.Channel.
func (c *Chan) AllMetadata(timeout time.Duration) (channel.Metadata, error) {
	if err := c.checkReleased(); err != nil {
		return channel.Metadata{}, err
	}

	c.point.mu.Lock()
	connected := c.point.connected
	md := c.point.md
	c.point.mu.Unlock()

	if !connected {
		time.Sleep(timeout)
		return channel.Metadata{}, fmt.Errorf("%w: metadata %s", channel.ErrTimeout, c.point.name)
	}
	return md, nil
}

// AllMetadataAsync implements channel.Channel.
func (c *Chan) AllMetadataAsync(cb channel.MetadataCallback, timeout time.Duration) {
	go func() {
		md, err := c.AllMetadata(timeout)
		if err != nil {
			return
		}
		cb(c.point.name, md)
	}()
}

func (c *Chan) checkReleased() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return channel.ErrReleased
	}
	return nil
}

func (c *Chan) notifyValue(value any, md channel.Metadata) {
	c.mu.Lock()
	cb := c.cbs.OnValue
	c.mu.Unlock()
	if cb != nil {
		cb(c.point.name, value, md)
	}
}

func (c *Chan) notifyConnection(connected bool) {
	c.mu.Lock()
	cb := c.cbs.OnConnection
	c.mu.Unlock()
	if cb != nil {
		cb(c.point.name, connected)
	}
}

func (c *Chan) notifyAccess(read, write bool) {
	c.mu.Lock()
	cb := c.cbs.OnAccess
	c.mu.Unlock()
	if cb != nil {
		cb(c.point.name, read, write)
	}
}

// Compile-time interface satisfaction check.
var _ channel.Channel = (*Chan)(nil)
