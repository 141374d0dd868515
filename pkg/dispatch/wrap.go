package dispatch

import (
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
)

// The Wrap helpers adapt provider callbacks so that their delivery is
// serialized on the owning dispatcher worker instead of running on a
// provider-internal goroutine. A wrapped callback submitted to a stopped
// dispatcher is silently dropped.

// WrapValue routes a value callback through the Monitor worker.
func WrapValue(d *Dispatcher, cb channel.ValueCallback) channel.ValueCallback {
	if cb == nil {
		return nil
	}
	return func(name string, value any, md channel.Metadata) {
		_ = d.Submit(Monitor, func() { cb(name, value, md) })
	}
}

// WrapConnection routes a connection callback through the Metadata worker.
func WrapConnection(d *Dispatcher, cb channel.ConnectionCallback) channel.ConnectionCallback {
	if cb == nil {
		return nil
	}
	return func(name string, connected bool) {
		_ = d.Submit(Metadata, func() { cb(name, connected) })
	}
}

// WrapAccess routes an access-rights callback through the Metadata worker.
func WrapAccess(d *Dispatcher, cb channel.AccessCallback) channel.AccessCallback {
	if cb == nil {
		return nil
	}
	return func(name string, readAccess, writeAccess bool) {
		_ = d.Submit(Metadata, func() { cb(name, readAccess, writeAccess) })
	}
}

// WrapPut routes a put-completion callback through the PutCompletion worker.
func WrapPut(d *Dispatcher, cb channel.PutCallback) channel.PutCallback {
	if cb == nil {
		return nil
	}
	return func(err error) {
		_ = d.Submit(PutCompletion, func() { cb(err) })
	}
}

// WrapMetadata routes a full-metadata callback through the Metadata worker.
func WrapMetadata(d *Dispatcher, cb channel.MetadataCallback) channel.MetadataCallback {
	if cb == nil {
		return nil
	}
	return func(name string, md channel.Metadata) {
		_ = d.Submit(Metadata, func() { cb(name, md) })
	}
}

// ScheduleUtility runs fn on the best-effort Utility worker.
func ScheduleUtility(d *Dispatcher, fn func()) {
	_ = d.Submit(Utility, fn)
}

// metadataFetchRetries bounds how often a failed metadata fetch is
// requeued before giving up until the next reconnect edge.
const metadataFetchRetries = 3

// FetchMetadata asks the channel for its full metadata set on the
// Utility worker and delivers the result through the Metadata worker.
// The synchronous AllMetadata call blocks only the Utility worker. A
// transient fetch failure is logged and requeued a bounded number of
// times.
func FetchMetadata(d *Dispatcher, ch channel.Channel, cb channel.MetadataCallback, timeout time.Duration) {
	fetchMetadata(d, ch, cb, timeout, metadataFetchRetries)
}

func fetchMetadata(d *Dispatcher, ch channel.Channel, cb channel.MetadataCallback, timeout time.Duration, retries int) {
	wrapped := WrapMetadata(d, cb)
	ScheduleUtility(d, func() {
		md, err := ch.AllMetadata(timeout)
		if err != nil {
			if retries > 0 {
				d.logger.Warn("metadata fetch failed, requeueing",
					"channel", ch.Name(), "retries_left", retries, "err", err)
				fetchMetadata(d, ch, cb, timeout, retries-1)
				return
			}
			d.logger.Error("metadata fetch failed, giving up until reconnect",
				"channel", ch.Name(), "err", err)
			return
		}
		wrapped(ch.Name(), md)
	})
}
