package signal

import (
	"fmt"
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
	"github.com/sigio-project/sigio-go/pkg/completion"
	"github.com/sigio-project/sigio-go/pkg/dispatch"
)

// RemoteSignalRO is a read-only remote signal. All writes fail with
// ErrReadOnly regardless of the channel's reported access rights.
type RemoteSignalRO struct {
	*RemoteSignal
}

// NewRemoteRO creates a read-only remote signal on a single channel.
// The WriteChannel option is ignored.
func NewRemoteRO(p channel.Provider, d *dispatch.Dispatcher, opts RemoteOptions) (*RemoteSignalRO, error) {
	opts.WriteChannel = ""
	rs, err := NewRemote(p, d, opts)
	if err != nil {
		return nil, err
	}
	return &RemoteSignalRO{RemoteSignal: rs}, nil
}

// Put fails with ErrReadOnly.
func (rs *RemoteSignalRO) Put(value any, opts PutOptions) error {
	return fmt.Errorf("%w: %s", ErrReadOnly, rs.name)
}

// Set fails with ErrReadOnly.
func (rs *RemoteSignalRO) Set(value any, timeout, settle time.Duration) (*completion.Future, error) {
	return nil, fmt.Errorf("%w: %s", ErrReadOnly, rs.name)
}

// CheckValue fails with ErrReadOnly: no value is acceptable for writing.
func (rs *RemoteSignalRO) CheckValue(value any) error {
	return fmt.Errorf("%w: %s", ErrReadOnly, rs.name)
}

// WriteAccess is always false.
func (rs *RemoteSignalRO) WriteAccess() bool { return false }
