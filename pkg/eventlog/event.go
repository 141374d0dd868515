package eventlog

import (
	"time"
)

// Event represents a signal event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Time when the event occurred (nanosecond precision).
	Time time.Time `cbor:"1,keyasint"`

	// Signal is the name of the signal that produced the event.
	Signal string `cbor:"2,keyasint"`

	// Type classifies the event.
	Type Type `cbor:"3,keyasint"`

	// Old is the previous value (value and setpoint events).
	Old any `cbor:"4,keyasint,omitempty"`

	// New is the current value (value and setpoint events).
	New any `cbor:"5,keyasint,omitempty"`

	// Connected is the connection flag (metadata and connection events).
	Connected *bool `cbor:"6,keyasint,omitempty"`

	// ReadAccess is the read-access flag (access events).
	ReadAccess *bool `cbor:"7,keyasint,omitempty"`

	// WriteAccess is the write-access flag (access events).
	WriteAccess *bool `cbor:"8,keyasint,omitempty"`

	// Error is the error message (error events).
	Error string `cbor:"9,keyasint,omitempty"`

	// Detail carries free-form context for the event.
	Detail string `cbor:"10,keyasint,omitempty"`
}

// Type classifies the event.
type Type uint8

const (
	// TypeValue indicates a readback value update.
	TypeValue Type = 0
	// TypeSetpoint indicates a setpoint write.
	TypeSetpoint Type = 1
	// TypeMeta indicates a metadata change.
	TypeMeta Type = 2
	// TypeConnection indicates a connection edge.
	TypeConnection Type = 3
	// TypeAccess indicates an access-rights change.
	TypeAccess Type = 4
	// TypeError indicates an error event.
	TypeError Type = 5
)

// String returns the event type name.
func (t Type) String() string {
	switch t {
	case TypeValue:
		return "VALUE"
	case TypeSetpoint:
		return "SETPOINT"
	case TypeMeta:
		return "META"
	case TypeConnection:
		return "CONNECTION"
	case TypeAccess:
		return "ACCESS"
	case TypeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
