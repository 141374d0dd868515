package signal

import "errors"

// Signal errors.
var (
	// ErrReadOnly is returned for writes without write access.
	ErrReadOnly = errors.New("signal does not allow write access")

	// ErrLimit is returned when a value falls outside the configured
	// control limits.
	ErrLimit = errors.New("value outside control limits")

	// ErrTimeout is returned when a connection, read, write or wait
	// budget is exceeded.
	ErrTimeout = errors.New("signal operation timed out")

	// ErrDestroyed is returned for any use of a signal after Destroy.
	ErrDestroyed = errors.New("signal has been destroyed")

	// ErrBusy is returned by Set while another Set is still pending.
	ErrBusy = errors.New("another set operation is still in progress")

	// ErrProtocol is returned for malformed data from the remote side.
	ErrProtocol = errors.New("protocol error")

	// ErrNilValue is returned when writing nil; remote channels never
	// accept it.
	ErrNilValue = errors.New("cannot write nil value")
)
