package signal

import (
	"time"

	"github.com/sigio-project/sigio-go/pkg/completion"
)

// Reading is one entry in a Read result.
type Reading struct {
	Value     any
	Timestamp time.Time
}

// Description is one entry in a Describe result. The key sets returned
// by Read and Describe for a given signal always match.
type Description struct {
	// Source identifies where the value comes from (e.g. "sim:name",
	// "ch:CHANNEL").
	Source string

	// DType is the value type: "number", "integer", "string",
	// "boolean", "array".
	DType string

	// Shape is empty for scalars.
	Shape []int

	// Units is the engineering unit string, if known.
	Units string

	// LowerCtrlLimit and UpperCtrlLimit are the control limits, nil
	// when not configured.
	LowerCtrlLimit *float64
	UpperCtrlLimit *float64

	// Precision is the display precision, nil when not reported.
	Precision *int

	// EnumStrs holds choice strings for enumerated signals.
	EnumStrs []string

	// DerivedFrom names the upstream signal for derived signals.
	DerivedFrom string
}

// Readable is anything that can produce a value.
type Readable interface {
	Name() string

	// Get returns the current value. Remote implementations block until
	// ready and may return ErrTimeout or ErrDestroyed.
	Get() (any, error)

	// Read returns {name: {value, timestamp}}.
	Read() (map[string]Reading, error)

	// Describe returns schema and provenance for Read, under the same
	// keys.
	Describe() (map[string]Description, error)
}

// Writable is anything that accepts values.
type Writable interface {
	// Put writes a value synchronously.
	Put(value any, opts PutOptions) error

	// Set writes asynchronously and settles: the returned future
	// resolves once the readback agrees with the request within
	// tolerance, or the timeout expires.
	Set(value any, timeout, settle time.Duration) (*completion.Future, error)

	// CheckValue validates a candidate value without writing it.
	CheckValue(value any) error
}

// Subscribable is anything that fans out change events.
type Subscribable interface {
	// Subscribe registers cb for events of type t. When runNow is true
	// the callback is invoked once, synchronously, with current state.
	// The returned id cancels the subscription via Unsubscribe.
	Subscribe(t EventType, cb Callback, runNow bool) (int, error)

	Unsubscribe(id int)
}

// ConnectionAware is anything with remote connection state.
type ConnectionAware interface {
	// Connected reports aggregate readiness.
	Connected() bool

	// WaitForConnection blocks until ready or the timeout expires.
	WaitForConnection(timeout time.Duration) error
}

// Compile-time capability checks for the concrete signal types.
var (
	_ Readable     = (*Signal)(nil)
	_ Writable     = (*Signal)(nil)
	_ Subscribable = (*Signal)(nil)

	_ Readable        = (*RemoteSignal)(nil)
	_ Writable        = (*RemoteSignal)(nil)
	_ Subscribable    = (*RemoteSignal)(nil)
	_ ConnectionAware = (*RemoteSignal)(nil)

	_ Readable        = (*RemoteSignalRO)(nil)
	_ Subscribable    = (*RemoteSignalRO)(nil)
	_ ConnectionAware = (*RemoteSignalRO)(nil)

	_ Readable        = (*DerivedSignal)(nil)
	_ Writable        = (*DerivedSignal)(nil)
	_ Subscribable    = (*DerivedSignal)(nil)
	_ ConnectionAware = (*DerivedSignal)(nil)
)
