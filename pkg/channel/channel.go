package channel

import (
	"errors"
	"time"
)

// Channel errors.
var (
	// ErrTimeout is returned when a get or put does not complete within
	// its timeout budget.
	ErrTimeout = errors.New("channel operation timed out")

	// ErrNotConnected is returned for synchronous operations on a
	// channel that is not currently connected.
	ErrNotConnected = errors.New("channel not connected")

	// ErrReleased is returned for operations on a channel that has been
	// released back to its provider.
	ErrReleased = errors.New("channel has been released")

	// ErrUnknownChannel is returned by providers that cannot resolve a
	// channel name.
	ErrUnknownChannel = errors.New("unknown channel")
)

// Metadata carries the descriptive state a channel reports alongside its
// value: alarm state, display precision, engineering units, control
// limits and enumerated choice strings. Optional numeric fields are nil
// when the remote side does not report them.
type Metadata struct {
	// Timestamp is the remote-side timestamp of the value or metadata.
	Timestamp time.Time

	// Status is the alarm status code, nil if not reported.
	Status *int

	// Severity is the alarm severity code, nil if not reported.
	Severity *int

	// Precision is the display precision, nil if not reported.
	Precision *int

	// Units is the engineering unit string.
	Units string

	// LowerCtrlLimit and UpperCtrlLimit are the control limits, nil if
	// not reported.
	LowerCtrlLimit *float64
	UpperCtrlLimit *float64

	// EnumStrs holds the choice strings for enumerated channels.
	EnumStrs []string
}

// Reading is a value paired with the metadata delivered alongside it.
type Reading struct {
	Value    any
	Metadata Metadata
}

// ValueCallback is invoked when the channel delivers a new value, either
// from a monitor subscription or an explicit get.
type ValueCallback func(name string, value any, md Metadata)

// ConnectionCallback is invoked when the channel connects or disconnects.
type ConnectionCallback func(name string, connected bool)

// AccessCallback is invoked when the channel's access rights change.
type AccessCallback func(name string, readAccess, writeAccess bool)

// PutCallback is invoked when the remote side acknowledges that a write
// took effect. A nil error indicates success.
type PutCallback func(err error)

// MetadataCallback receives the result of an asynchronous full-metadata
// request.
type MetadataCallback func(name string, md Metadata)

// Callbacks bundles the subscriptions registered at connect time.
// Any field may be nil.
type Callbacks struct {
	OnConnection ConnectionCallback
	OnAccess     AccessCallback
	OnValue      ValueCallback
}

// Channel is one live remote data point.
//
// Implementations must be safe for concurrent use. Synchronous Get and
// Put calls may block up to their timeout; they must never be called
// from the goroutine that delivers callbacks.
type Channel interface {
	// Name returns the remote channel name.
	Name() string

	// Connected reports the current transport-level connection state.
	Connected() bool

	// Get performs a synchronous read of the current value and its
	// metadata. It returns ErrTimeout if no value arrives in time.
	Get(timeout time.Duration) (Reading, error)

	// Put writes a value. When complete is non-nil the provider invokes
	// it once the remote side acknowledges completion; this is a
	// distinct signal from the next monitored value update.
	Put(value any, timeout time.Duration, complete PutCallback) error

	// AllMetadata fetches the full metadata set synchronously.
	AllMetadata(timeout time.Duration) (Metadata, error)

	// AllMetadataAsync fetches the full metadata set on a provider
	// utility goroutine and delivers it to cb.
	AllMetadataAsync(cb MetadataCallback, timeout time.Duration)
}

// Provider supplies channels over some remote transport.
type Provider interface {
	// Connect resolves a channel by name and registers the given
	// callbacks. The returned channel begins connecting immediately;
	// callbacks fire as connection, access-rights, and value events
	// arrive.
	Connect(name string, cbs Callbacks) (Channel, error)

	// Release clears all callbacks registered on the channel and
	// returns it to the provider. Releasing a channel twice is a no-op.
	Release(ch Channel)
}
