package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
)

// flakyMetaChan fails its first AllMetadata calls, then succeeds.
type flakyMetaChan struct {
	mu       sync.Mutex
	failures int
	calls    int
	md       channel.Metadata
}

func (c *flakyMetaChan) Name() string    { return "flaky" }
func (c *flakyMetaChan) Connected() bool { return true }

func (c *flakyMetaChan) Get(timeout time.Duration) (channel.Reading, error) {
	return channel.Reading{}, nil
}

func (c *flakyMetaChan) Put(value any, timeout time.Duration, complete channel.PutCallback) error {
	return nil
}

func (c *flakyMetaChan) AllMetadata(timeout time.Duration) (channel.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failures > 0 {
		c.failures--
		return channel.Metadata{}, channel.ErrTimeout
	}
	return c.md, nil
}

func (c *flakyMetaChan) AllMetadataAsync(cb channel.MetadataCallback, timeout time.Duration) {
	go func() {
		md, err := c.AllMetadata(timeout)
		if err != nil {
			return
		}
		cb(c.Name(), md)
	}()
}

func TestFetchMetadataRetriesTransientFailures(t *testing.T) {
	d := newTestDispatcher(t)
	ch := &flakyMetaChan{failures: 2, md: channel.Metadata{Units: "mm"}}

	got := make(chan channel.Metadata, 1)
	FetchMetadata(d, ch, func(name string, md channel.Metadata) { got <- md }, time.Second)

	// Two transient failures are requeued; the third attempt delivers.
	select {
	case md := <-got:
		if md.Units != "mm" {
			t.Errorf("delivered metadata units = %q, want mm", md.Units)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("metadata never delivered after transient failures")
	}

	ch.mu.Lock()
	calls := ch.calls
	ch.mu.Unlock()
	if calls != 3 {
		t.Errorf("AllMetadata called %d times, want 3", calls)
	}
}

func TestFetchMetadataGivesUpAfterRetries(t *testing.T) {
	d := newTestDispatcher(t)
	ch := &flakyMetaChan{failures: 100}

	delivered := make(chan struct{}, 1)
	FetchMetadata(d, ch, func(name string, md channel.Metadata) {
		delivered <- struct{}{}
	}, 10*time.Millisecond)

	select {
	case <-delivered:
		t.Fatal("callback ran for a fetch that never succeeded")
	case <-time.After(300 * time.Millisecond):
	}

	ch.mu.Lock()
	calls := ch.calls
	ch.mu.Unlock()
	if calls != metadataFetchRetries+1 {
		t.Errorf("AllMetadata called %d times, want %d", calls, metadataFetchRetries+1)
	}
}
