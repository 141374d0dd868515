package signal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
	"github.com/sigio-project/sigio-go/pkg/completion"
	"github.com/sigio-project/sigio-go/pkg/dispatch"
	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// Default remote operation timeouts.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 5 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// RemoteOptions configures a remote signal.
type RemoteOptions struct {
	// ReadChannel is the channel the readback comes from. Required.
	ReadChannel string

	// WriteChannel is the channel writes go to. Defaults to ReadChannel.
	WriteChannel string

	// Name is the signal name. Defaults to ReadChannel.
	Name string

	// Kind classifies the signal; the zero value means KindHinted.
	Kind Kind

	// Tolerance and RTolerance configure Set settling.
	Tolerance  float64
	RTolerance float64

	// UseLimits enables control-limit validation on writes. Limits are
	// honored only when the channel reports a low limit strictly below
	// the high limit.
	UseLimits bool

	// PutComplete makes Put block until the remote side acknowledges
	// completion rather than returning once the write is issued.
	PutComplete bool

	// ConnectTimeout bounds waits for readiness inside Get and Put.
	ConnectTimeout time.Duration

	// ReadTimeout bounds synchronous channel reads.
	ReadTimeout time.Duration

	// WriteTimeout bounds synchronous channel writes.
	WriteTimeout time.Duration

	// Pool runs Set settle tasks.
	Pool *SetPool

	// EventLog, when non-nil, records value/metadata/connection events.
	EventLog eventlog.Logger
}

// chanState tracks per-channel readiness. A channel contributes to
// aggregate readiness once it is connected, has reported access rights,
// and has delivered its first full metadata set.
type chanState struct {
	ch channel.Channel

	connected    bool
	accessValid  bool
	metaReceived bool

	read, write bool
	meta        channel.Metadata
}

func (st *chanState) ready() bool {
	return st.connected && st.accessValid && st.metaReceived
}

// RemoteSignal is a signal backed by one or two remote channels: a
// readback channel and an optional distinct write channel.
//
// Construction returns immediately with the signal in a not-ready
// state; connection, access-rights, and metadata events drive it ready
// asynchronously. Reads and writes block until ready or their timeout
// expires. All callback delivery is serialized through the dispatcher
// passed at construction.
type RemoteSignal struct {
	*Signal

	provider channel.Provider
	disp     *dispatch.Dispatcher

	useLimits   bool
	putComplete bool

	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	rmu       sync.Mutex
	states    map[string]*chanState
	readName  string
	writeName string

	// ready is closed while all channels are ready and replaced with a
	// fresh channel when readiness is lost.
	ready   chan struct{}
	isReady bool

	setpoint any
}

// NewRemote creates a remote signal and begins connecting its channels.
func NewRemote(p channel.Provider, d *dispatch.Dispatcher, opts RemoteOptions) (*RemoteSignal, error) {
	if opts.ReadChannel == "" {
		return nil, errors.New("signal: ReadChannel is required")
	}
	if p == nil {
		return nil, errors.New("signal: provider is required")
	}
	if d == nil {
		return nil, errors.New("signal: dispatcher is required")
	}

	readName := opts.ReadChannel
	writeName := opts.WriteChannel
	if writeName == "" {
		writeName = readName
	}
	name := opts.Name
	if name == "" {
		name = readName
	}

	keys := append([]string(nil), remoteMetadataKeys...)
	if writeName != readName {
		keys = append(keys, setpointMetadataKeys...)
	}

	base := New(name, Options{
		Kind:         opts.Kind,
		Tolerance:    opts.Tolerance,
		RTolerance:   opts.RTolerance,
		MetadataKeys: keys,
		Pool:         opts.Pool,
		EventLog:     opts.EventLog,
	})

	// A remote signal starts disconnected with no access.
	base.mu.Lock()
	base.metadata[MDConnected] = false
	base.metadata[MDReadAccess] = false
	base.metadata[MDWriteAccess] = false
	base.mu.Unlock()

	rs := &RemoteSignal{
		Signal:         base,
		provider:       p,
		disp:           d,
		useLimits:      opts.UseLimits,
		putComplete:    opts.PutComplete,
		connectTimeout: opts.ConnectTimeout,
		readTimeout:    opts.ReadTimeout,
		writeTimeout:   opts.WriteTimeout,
		states:         make(map[string]*chanState),
		readName:       readName,
		writeName:      writeName,
		ready:          make(chan struct{}),
	}
	if rs.connectTimeout <= 0 {
		rs.connectTimeout = DefaultConnectTimeout
	}
	if rs.readTimeout <= 0 {
		rs.readTimeout = DefaultReadTimeout
	}
	if rs.writeTimeout <= 0 {
		rs.writeTimeout = DefaultWriteTimeout
	}

	names := []string{readName}
	if writeName != readName {
		names = append(names, writeName)
	}

	// Register the states before connecting: the provider may replay
	// connection and access callbacks during Connect, before a channel
	// handle is stored.
	rs.rmu.Lock()
	for _, cn := range names {
		rs.states[cn] = &chanState{}
	}
	rs.rmu.Unlock()

	cbs := channel.Callbacks{
		OnConnection: dispatch.WrapConnection(d, rs.onConnection),
		OnAccess:     dispatch.WrapAccess(d, rs.onAccess),
		OnValue:      dispatch.WrapValue(d, rs.onValue),
	}

	var connected []channel.Channel
	for _, cn := range names {
		ch, err := p.Connect(cn, cbs)
		if err != nil {
			for _, c := range connected {
				p.Release(c)
			}
			return nil, fmt.Errorf("signal %s: connect %s: %w", name, cn, err)
		}
		connected = append(connected, ch)

		rs.rmu.Lock()
		st := rs.states[cn]
		st.ch = ch
		rs.maybeFetchMetaLocked(cn, st)
		rs.rmu.Unlock()
	}

	return rs, nil
}

// maybeFetchMetaLocked requests the full metadata set once the channel
// handle exists and the channel is connected. Called with rmu held.
func (rs *RemoteSignal) maybeFetchMetaLocked(name string, st *chanState) {
	if st.ch == nil || !st.connected || st.metaReceived {
		return
	}
	dispatch.FetchMetadata(rs.disp, st.ch, rs.onMetadata, rs.readTimeout)
}

// onConnection handles channel connection edges. Runs on the
// dispatcher's metadata worker.
func (rs *RemoteSignal) onConnection(name string, connected bool) {
	rs.rmu.Lock()
	st, ok := rs.states[name]
	if !ok {
		rs.rmu.Unlock()
		return
	}
	st.connected = connected
	if connected {
		// Metadata may have changed while disconnected; refetch.
		st.metaReceived = false
		rs.maybeFetchMetaLocked(name, st)
	} else {
		// A disconnect resets the channel fully: readiness requires a
		// fresh access-rights callback and metadata set after reconnect.
		st.accessValid = false
		st.metaReceived = false
	}
	edge := rs.recomputeReadyLocked()
	rs.rmu.Unlock()

	rs.applyReadyEdge(edge)
}

// onAccess handles access-rights updates. Runs on the dispatcher's
// metadata worker.
func (rs *RemoteSignal) onAccess(name string, readAccess, writeAccess bool) {
	rs.rmu.Lock()
	st, ok := rs.states[name]
	if !ok {
		rs.rmu.Unlock()
		return
	}
	st.accessValid = true
	st.read = readAccess
	st.write = writeAccess

	entries := map[string]any{}
	if name == rs.readName {
		entries[MDReadAccess] = readAccess
	}
	if name == rs.writeName {
		entries[MDWriteAccess] = writeAccess
	}
	edge := rs.recomputeReadyLocked()
	rs.rmu.Unlock()

	rs.mu.Lock()
	rs.updateMetadataLocked(entries)
	rs.mu.Unlock()

	if edge != 0 {
		rs.applyReadyEdge(edge)
		return
	}
	rs.notifyMeta()
}

// onMetadata handles full-metadata responses. Runs on the dispatcher's
// metadata worker.
func (rs *RemoteSignal) onMetadata(name string, md channel.Metadata) {
	rs.rmu.Lock()
	st, ok := rs.states[name]
	if !ok {
		rs.rmu.Unlock()
		return
	}
	st.metaReceived = true
	st.meta = md

	var entries map[string]any
	if name == rs.readName {
		entries = fullMetadataEntries(md)
	} else {
		entries = setpointMetadataEntries(md)
	}
	edge := rs.recomputeReadyLocked()
	rs.rmu.Unlock()

	rs.mu.Lock()
	rs.updateMetadataLocked(entries)
	rs.mu.Unlock()

	if edge != 0 {
		rs.applyReadyEdge(edge)
		return
	}
	rs.notifyMeta()
}

// onValue handles monitor updates. Runs on the dispatcher's monitor
// worker, so delivery order matches arrival order.
func (rs *RemoteSignal) onValue(name string, value any, md channel.Metadata) {
	if name == rs.readName {
		rs.applyReadback(value, md)
		return
	}
	rs.applySetpointEcho(value, md)
}

// recomputeReadyLocked returns +1 when aggregate readiness was gained,
// -1 when lost, 0 otherwise. Called with rmu held.
func (rs *RemoteSignal) recomputeReadyLocked() int {
	ready := true
	for _, st := range rs.states {
		if !st.ready() {
			ready = false
			break
		}
	}
	if ready == rs.isReady {
		return 0
	}
	rs.isReady = ready
	if ready {
		close(rs.ready)
		return 1
	}
	rs.ready = make(chan struct{})
	return -1
}

// applyReadyEdge publishes a readiness transition: exactly one metadata
// event per edge, regardless of how many channels moved.
func (rs *RemoteSignal) applyReadyEdge(edge int) {
	if edge == 0 {
		return
	}
	connected := edge > 0

	rs.mu.Lock()
	rs.metadata[MDConnected] = connected
	elog := rs.elog
	rs.mu.Unlock()

	if elog != nil {
		elog.Log(eventlog.Event{
			Time:      time.Now(),
			Signal:    rs.name,
			Type:      eventlog.TypeConnection,
			Connected: &connected,
		})
	}
	rs.notifyMeta()
}

// applyReadback updates the cached readback from a monitor event and
// fans out a value event.
func (rs *RemoteSignal) applyReadback(value any, md channel.Metadata) {
	ts := md.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	rs.mu.Lock()
	old := rs.readback
	rs.readback = value
	rs.updateMetadataLocked(readbackEntries(md))
	rs.metadata[MDTimestamp] = ts

	ev := Event{
		Signal:    rs.name,
		Type:      EventValue,
		OldValue:  old,
		Value:     value,
		Timestamp: ts,
		Metadata:  subsetMetadata(rs.metadata, rs.metadataKeys),
	}
	cbs := rs.subs.snapshot(EventValue)
	elog := rs.elog
	rs.mu.Unlock()

	if elog != nil {
		elog.Log(eventlog.Event{
			Time:   ts,
			Signal: rs.name,
			Type:   eventlog.TypeValue,
			Old:    old,
			New:    value,
		})
	}
	for _, cb := range cbs {
		cb(ev)
	}
}

// applySetpointEcho updates the cached setpoint from a write-channel
// monitor event and fans out a setpoint event.
func (rs *RemoteSignal) applySetpointEcho(value any, md channel.Metadata) {
	ts := md.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	rs.rmu.Lock()
	old := rs.setpoint
	rs.setpoint = value
	rs.rmu.Unlock()

	rs.mu.Lock()
	rs.updateMetadataLocked(setpointMetadataEntries(md))
	ev := Event{
		Signal:    rs.name,
		Type:      EventSetpoint,
		OldValue:  old,
		Value:     value,
		Timestamp: ts,
		Metadata:  subsetMetadata(rs.metadata, setpointMetadataKeys),
	}
	cbs := rs.subs.snapshot(EventSetpoint)
	elog := rs.elog
	rs.mu.Unlock()

	if elog != nil {
		elog.Log(eventlog.Event{
			Time:   ts,
			Signal: rs.name,
			Type:   eventlog.TypeSetpoint,
			Old:    old,
			New:    value,
		})
	}
	for _, cb := range cbs {
		cb(ev)
	}
}

// Connected reports aggregate readiness: every channel connected, with
// access rights and first metadata received.
func (rs *RemoteSignal) Connected() bool {
	if rs.Destroyed() {
		return false
	}
	rs.rmu.Lock()
	defer rs.rmu.Unlock()
	return rs.isReady
}

// WaitForConnection blocks until the signal is ready or the timeout
// expires. A timeout of zero or less waits forever.
func (rs *RemoteSignal) WaitForConnection(timeout time.Duration) error {
	if rs.Destroyed() {
		return fmt.Errorf("%w: %s", ErrDestroyed, rs.name)
	}

	rs.rmu.Lock()
	ready := rs.ready
	rs.rmu.Unlock()

	if timeout <= 0 {
		<-ready
		return nil
	}
	select {
	case <-ready:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: %s not connected within %s", ErrTimeout, rs.name, timeout)
	}
}

// Get reads the current value from the readback channel. It blocks
// until the signal is ready, then performs a synchronous channel read.
// The reading flows through the same value-update routine as monitor
// callbacks, so value subscribers see it too.
func (rs *RemoteSignal) Get() (any, error) {
	if err := rs.WaitForConnection(rs.connectTimeout); err != nil {
		return nil, err
	}

	rs.rmu.Lock()
	ch := rs.states[rs.readName].ch
	rs.rmu.Unlock()

	reading, err := ch.Get(rs.readTimeout)
	if err != nil {
		return nil, rs.wrapChannelErr("get", err)
	}

	rs.applyReadback(reading.Value, reading.Metadata)
	return reading.Value, nil
}

// Put writes a value through the write channel.
//
// Unless forced, the value check runs before any channel I/O and a
// write without write access fails with ErrReadOnly. With PutComplete
// enabled, Put blocks until the remote side acknowledges completion.
func (rs *RemoteSignal) Put(value any, opts PutOptions) error {
	if !opts.Force {
		if err := rs.CheckValue(value); err != nil {
			return err
		}
	}
	if err := rs.WaitForConnection(rs.connectTimeout); err != nil {
		return err
	}

	rs.rmu.Lock()
	st := rs.states[rs.writeName]
	ch := st.ch
	writable := st.write
	rs.rmu.Unlock()

	if !writable && !opts.Force {
		return fmt.Errorf("%w: %s", ErrReadOnly, rs.name)
	}

	var done chan error
	var complete channel.PutCallback
	if rs.putComplete {
		done = make(chan error, 1)
		complete = dispatch.WrapPut(rs.disp, func(err error) {
			done <- err
		})
	}

	if err := ch.Put(value, rs.writeTimeout, complete); err != nil {
		return rs.wrapChannelErr("put", err)
	}

	if done != nil {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("signal %s: put completion: %w", rs.name, err)
			}
		case <-time.After(rs.writeTimeout):
			return fmt.Errorf("%w: %s put not acknowledged within %s",
				ErrTimeout, rs.name, rs.writeTimeout)
		}
	}

	rs.rmu.Lock()
	rs.setpoint = value
	rs.rmu.Unlock()

	// Same-channel writes echo locally right away, pending the
	// authoritative monitor update.
	if rs.readName == rs.writeName {
		rs.applyReadback(value, channel.Metadata{})
	}
	return nil
}

// Set writes asynchronously and settles against the readback channel.
func (rs *RemoteSignal) Set(value any, timeout, settle time.Duration) (*completion.Future, error) {
	return rs.settleAsync(rs, value, timeout, settle)
}

// CheckValue validates a candidate value before any channel I/O. Nil
// values are always rejected; numeric values are checked against the
// control limits when UseLimits is set and the channel reports a
// meaningful limit pair (low strictly below high).
func (rs *RemoteSignal) CheckValue(value any) error {
	if value == nil {
		return fmt.Errorf("%w: %s", ErrNilValue, rs.name)
	}
	if !rs.useLimits {
		return nil
	}
	low, high, ok := rs.limitPair()
	if !ok || low >= high {
		return nil
	}
	v, numeric := toFloat64(value)
	if !numeric {
		return nil
	}
	if v < low || v > high {
		return fmt.Errorf("%w: %s value %v outside [%v, %v]",
			ErrLimit, rs.name, value, low, high)
	}
	return nil
}

// Limits returns the write channel's control limits, zeros when the
// channel does not report them.
func (rs *RemoteSignal) Limits() (float64, float64) {
	low, high, ok := rs.limitPair()
	if !ok {
		return 0, 0
	}
	return low, high
}

func (rs *RemoteSignal) limitPair() (float64, float64, bool) {
	rs.rmu.Lock()
	defer rs.rmu.Unlock()
	md := rs.states[rs.writeName].meta
	if md.LowerCtrlLimit == nil || md.UpperCtrlLimit == nil {
		return 0, 0, false
	}
	return *md.LowerCtrlLimit, *md.UpperCtrlLimit, true
}

// Setpoint returns the last written or echoed setpoint. When the write
// target is the readback channel, the setpoint is the readback.
func (rs *RemoteSignal) Setpoint() (any, error) {
	if rs.readName == rs.writeName {
		return rs.Get()
	}
	rs.rmu.Lock()
	defer rs.rmu.Unlock()
	return rs.setpoint, nil
}

// Read returns the current value and timestamp keyed by signal name.
// It performs a channel read.
func (rs *RemoteSignal) Read() (map[string]Reading, error) {
	value, err := rs.Get()
	if err != nil {
		return nil, err
	}
	return map[string]Reading{
		rs.name: {Value: value, Timestamp: rs.Timestamp()},
	}, nil
}

// Describe returns schema and provenance from the readback channel's
// metadata.
func (rs *RemoteSignal) Describe() (map[string]Description, error) {
	if rs.Destroyed() {
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, rs.name)
	}

	rs.rmu.Lock()
	md := rs.states[rs.readName].meta
	rs.rmu.Unlock()

	rs.mu.Lock()
	value := rs.readback
	rs.mu.Unlock()

	desc := Description{
		Source:         "ch:" + rs.readName,
		DType:          dataType(value),
		Shape:          dataShape(value),
		Units:          md.Units,
		LowerCtrlLimit: md.LowerCtrlLimit,
		UpperCtrlLimit: md.UpperCtrlLimit,
		Precision:      md.Precision,
		EnumStrs:       append([]string(nil), md.EnumStrs...),
	}
	return map[string]Description{rs.name: desc}, nil
}

// Destroy releases the channels and tombstones the signal. Destroy is
// idempotent.
func (rs *RemoteSignal) Destroy() {
	rs.mu.Lock()
	if rs.destroyed {
		rs.mu.Unlock()
		return
	}
	rs.mu.Unlock()

	rs.rmu.Lock()
	var chans []channel.Channel
	for _, st := range rs.states {
		if st.ch != nil {
			chans = append(chans, st.ch)
		}
	}
	if rs.isReady {
		rs.isReady = false
		rs.ready = make(chan struct{})
	}
	rs.rmu.Unlock()

	for _, ch := range chans {
		rs.provider.Release(ch)
	}
	rs.Signal.Destroy()
}

func (rs *RemoteSignal) wrapChannelErr(op string, err error) error {
	switch {
	case errors.Is(err, channel.ErrTimeout):
		return fmt.Errorf("%w: %s %s: %v", ErrTimeout, rs.name, op, err)
	case errors.Is(err, channel.ErrReleased):
		return fmt.Errorf("%w: %s", ErrDestroyed, rs.name)
	case errors.Is(err, channel.ErrNotConnected):
		return fmt.Errorf("%w: %s %s: channel not connected", ErrTimeout, rs.name, op)
	default:
		return fmt.Errorf("%w: %s %s: %v", ErrProtocol, rs.name, op, err)
	}
}

// readbackEntries maps channel metadata onto the core value keys.
func readbackEntries(md channel.Metadata) map[string]any {
	e := make(map[string]any, 3)
	if md.Status != nil {
		e[MDStatus] = *md.Status
	}
	if md.Severity != nil {
		e[MDSeverity] = *md.Severity
	}
	if md.Precision != nil {
		e[MDPrecision] = *md.Precision
	}
	return e
}

// fullMetadataEntries maps a full metadata response from the readback
// channel onto signal metadata keys.
func fullMetadataEntries(md channel.Metadata) map[string]any {
	e := readbackEntries(md)
	if md.Units != "" {
		e[MDUnits] = md.Units
	}
	if md.LowerCtrlLimit != nil {
		e[MDLowerLimit] = *md.LowerCtrlLimit
	}
	if md.UpperCtrlLimit != nil {
		e[MDUpperLimit] = *md.UpperCtrlLimit
	}
	if len(md.EnumStrs) > 0 {
		e[MDEnumStrs] = append([]string(nil), md.EnumStrs...)
	}
	return e
}

// setpointMetadataEntries maps write-channel metadata onto the setpoint
// keys.
func setpointMetadataEntries(md channel.Metadata) map[string]any {
	e := make(map[string]any, 4)
	if md.Status != nil {
		e[MDSetpointStatus] = *md.Status
	}
	if md.Severity != nil {
		e[MDSetpointSeverity] = *md.Severity
	}
	if md.Precision != nil {
		e[MDSetpointPrecision] = *md.Precision
	}
	if !md.Timestamp.IsZero() {
		e[MDSetpointTimestamp] = md.Timestamp
	}
	return e
}
