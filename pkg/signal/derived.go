package signal

import (
	"errors"
	"fmt"
	"time"

	"github.com/sigio-project/sigio-go/pkg/completion"
	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// Source is the upstream surface a derived signal builds on. Write and
// connection capabilities are discovered by assertion.
type Source interface {
	Readable
	Subscribable
}

// Transform converts a value between upstream and derived spaces.
type Transform func(value any) (any, error)

// DerivedOptions configures a derived signal.
type DerivedOptions struct {
	// Name is the signal name. Defaults to the upstream name with a
	// "_derived" suffix.
	Name string

	// Forward converts derived values into upstream values on writes.
	// Nil means identity.
	Forward Transform

	// Inverse converts upstream values into derived values on reads and
	// monitor events. Nil means identity.
	Inverse Transform

	// ReadOnly rejects writes regardless of upstream capability.
	ReadOnly bool

	// Kind classifies the signal; the zero value means KindHinted.
	Kind Kind

	// Tolerance and RTolerance configure Set settling, applied in the
	// derived value space.
	Tolerance  float64
	RTolerance float64

	// Pool runs Set settle tasks.
	Pool *SetPool

	// EventLog, when non-nil, records value and error events.
	EventLog eventlog.Logger
}

// DerivedSignal presents an upstream signal through a forward/inverse
// transform pair. Reads and monitor events pass through Inverse; writes
// pass through Forward and land on the upstream. Connectivity and write
// access mirror the upstream.
type DerivedSignal struct {
	*Signal

	upstream Source
	forward  Transform
	inverse  Transform
	readOnly bool

	valueSubID int
	metaSubID  int
}

// upstreamWriter is the optional write capability of an upstream.
type upstreamWriter interface {
	Put(value any, opts PutOptions) error
	CheckValue(value any) error
}

// upstreamLimiter is the optional limits capability of an upstream.
type upstreamLimiter interface {
	Limits() (float64, float64)
}

// NewDerived creates a derived signal over upstream. Writes are
// rejected when requested at construction or whenever the upstream
// itself cannot be written.
func NewDerived(upstream Source, opts DerivedOptions) (*DerivedSignal, error) {
	if upstream == nil {
		return nil, errors.New("signal: upstream is required")
	}

	name := opts.Name
	if name == "" {
		name = upstream.Name() + "_derived"
	}

	forward := opts.Forward
	if forward == nil {
		forward = identityTransform
	}
	inverse := opts.Inverse
	if inverse == nil {
		inverse = identityTransform
	}

	base := New(name, Options{
		Kind:       opts.Kind,
		Tolerance:  opts.Tolerance,
		RTolerance: opts.RTolerance,
		Pool:       opts.Pool,
		EventLog:   opts.EventLog,
	})

	ds := &DerivedSignal{
		Signal:   base,
		upstream: upstream,
		forward:  forward,
		inverse:  inverse,
		readOnly: opts.ReadOnly,
	}

	base.mu.Lock()
	base.metadata[MDWriteAccess] = ds.writable()
	base.mu.Unlock()

	// Seed the derived readback immediately when the upstream already
	// has a usable value.
	runNow := true
	if aware, ok := upstream.(ConnectionAware); ok {
		runNow = aware.Connected()
	}
	id, err := upstream.Subscribe(EventValue, ds.onUpstreamValue, runNow)
	if err != nil {
		return nil, fmt.Errorf("signal %s: subscribe upstream: %w", name, err)
	}
	ds.valueSubID = id

	// Readiness and access edges mirror the upstream.
	id, err = upstream.Subscribe(EventMeta, ds.onUpstreamMeta, true)
	if err != nil {
		upstream.Unsubscribe(ds.valueSubID)
		return nil, fmt.Errorf("signal %s: subscribe upstream meta: %w", name, err)
	}
	ds.metaSubID = id

	return ds, nil
}

// writable reports whether writes can currently land on the upstream.
func (ds *DerivedSignal) writable() bool {
	if ds.readOnly {
		return false
	}
	if _, ok := ds.upstream.(upstreamWriter); !ok {
		return false
	}
	if aa, ok := ds.upstream.(interface{ WriteAccess() bool }); ok {
		return aa.WriteAccess()
	}
	return true
}

func identityTransform(value any) (any, error) { return value, nil }

// onUpstreamValue transforms an upstream value event into a derived
// value event.
func (ds *DerivedSignal) onUpstreamValue(ev Event) {
	// A ready upstream with no reading yet has nothing to seed.
	if ev.Value == nil {
		return
	}
	value, err := ds.inverse(ev.Value)
	if err != nil {
		ds.logTransformErr("inverse", err)
		return
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	ds.mu.Lock()
	if ds.destroyed {
		ds.mu.Unlock()
		return
	}
	old := ds.readback
	ds.readback = value
	ds.metadata[MDTimestamp] = ts

	out := Event{
		Signal:    ds.name,
		Type:      EventValue,
		OldValue:  old,
		Value:     value,
		Timestamp: ts,
		Metadata:  subsetMetadata(ds.metadata, ds.metadataKeys),
	}
	cbs := ds.subs.snapshot(EventValue)
	elog := ds.elog
	ds.mu.Unlock()

	if elog != nil {
		elog.Log(eventlog.Event{
			Time:   ts,
			Signal: ds.name,
			Type:   eventlog.TypeValue,
			Old:    old,
			New:    value,
		})
	}
	for _, cb := range cbs {
		cb(out)
	}
}

// onUpstreamMeta mirrors the upstream connection and write-access
// flags.
func (ds *DerivedSignal) onUpstreamMeta(ev Event) {
	connected := true
	if aware, ok := ds.upstream.(ConnectionAware); ok {
		connected = aware.Connected()
	}
	writable := ds.writable()

	ds.mu.Lock()
	if ds.destroyed {
		ds.mu.Unlock()
		return
	}
	prevConn, _ := ds.metadata[MDConnected].(bool)
	prevWrite, _ := ds.metadata[MDWriteAccess].(bool)
	ds.metadata[MDConnected] = connected
	ds.metadata[MDWriteAccess] = writable
	ds.mu.Unlock()

	if prevConn != connected || prevWrite != writable {
		ds.notifyMeta()
	}
}

func (ds *DerivedSignal) logTransformErr(which string, err error) {
	ds.mu.Lock()
	elog := ds.elog
	ds.mu.Unlock()
	if elog != nil {
		elog.Log(eventlog.Event{
			Time:   time.Now(),
			Signal: ds.name,
			Type:   eventlog.TypeError,
			Error:  err.Error(),
			Detail: which + " transform",
		})
	}
}

// Get reads the upstream and returns the transformed value.
func (ds *DerivedSignal) Get() (any, error) {
	if ds.Destroyed() {
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, ds.name)
	}
	raw, err := ds.upstream.Get()
	if err != nil {
		return nil, err
	}
	value, err := ds.inverse(raw)
	if err != nil {
		return nil, fmt.Errorf("signal %s: inverse transform: %w", ds.name, err)
	}

	ds.mu.Lock()
	ds.readback = value
	ds.mu.Unlock()
	return value, nil
}

// Put transforms the value through Forward and writes the upstream.
func (ds *DerivedSignal) Put(value any, opts PutOptions) error {
	if ds.Destroyed() {
		return fmt.Errorf("%w: %s", ErrDestroyed, ds.name)
	}
	if ds.readOnly && !opts.Force {
		return fmt.Errorf("%w: %s", ErrReadOnly, ds.name)
	}
	writer, ok := ds.upstream.(upstreamWriter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnly, ds.name)
	}
	raw, err := ds.forward(value)
	if err != nil {
		return fmt.Errorf("signal %s: forward transform: %w", ds.name, err)
	}
	return writer.Put(raw, opts)
}

// Set writes asynchronously and settles in the derived value space.
func (ds *DerivedSignal) Set(value any, timeout, settle time.Duration) (*completion.Future, error) {
	if ds.readOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, ds.name)
	}
	return ds.settleAsync(ds, value, timeout, settle)
}

// CheckValue maps the value into upstream space and validates it there.
func (ds *DerivedSignal) CheckValue(value any) error {
	if ds.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, ds.name)
	}
	writer, ok := ds.upstream.(upstreamWriter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnly, ds.name)
	}
	raw, err := ds.forward(value)
	if err != nil {
		return fmt.Errorf("signal %s: forward transform: %w", ds.name, err)
	}
	return writer.CheckValue(raw)
}

// Limits maps the upstream limits into the derived space through
// Inverse and returns them sorted (low, high). Zeros when the upstream
// has no limits or the transform fails.
func (ds *DerivedSignal) Limits() (float64, float64) {
	limiter, ok := ds.upstream.(upstreamLimiter)
	if !ok {
		return 0, 0
	}
	rawLow, rawHigh := limiter.Limits()
	if rawLow == 0 && rawHigh == 0 {
		return 0, 0
	}

	a, err := ds.inverse(rawLow)
	if err != nil {
		return 0, 0
	}
	b, err := ds.inverse(rawHigh)
	if err != nil {
		return 0, 0
	}
	fa, ok1 := toFloat64(a)
	fb, ok2 := toFloat64(b)
	if !ok1 || !ok2 {
		return 0, 0
	}
	if fa > fb {
		fa, fb = fb, fa
	}
	return fa, fb
}

// Connected mirrors the upstream's readiness when it reports any.
func (ds *DerivedSignal) Connected() bool {
	if ds.Destroyed() {
		return false
	}
	if aware, ok := ds.upstream.(ConnectionAware); ok {
		return aware.Connected()
	}
	return true
}

// WaitForConnection delegates to the upstream when it reports
// connectivity.
func (ds *DerivedSignal) WaitForConnection(timeout time.Duration) error {
	if ds.Destroyed() {
		return fmt.Errorf("%w: %s", ErrDestroyed, ds.name)
	}
	if aware, ok := ds.upstream.(ConnectionAware); ok {
		return aware.WaitForConnection(timeout)
	}
	return nil
}

// Read returns the transformed value and timestamp keyed by the derived
// signal's name.
func (ds *DerivedSignal) Read() (map[string]Reading, error) {
	value, err := ds.Get()
	if err != nil {
		return nil, err
	}
	return map[string]Reading{
		ds.name: {Value: value, Timestamp: ds.Timestamp()},
	}, nil
}

// Describe reports the derived schema with provenance pointing at the
// upstream.
func (ds *DerivedSignal) Describe() (map[string]Description, error) {
	if ds.Destroyed() {
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, ds.name)
	}

	ds.mu.Lock()
	value := ds.readback
	ds.mu.Unlock()

	desc := Description{
		Source:      "derived:" + ds.upstream.Name(),
		DType:       dataType(value),
		Shape:       dataShape(value),
		DerivedFrom: ds.upstream.Name(),
	}
	low, high := ds.Limits()
	if low < high {
		desc.LowerCtrlLimit = &low
		desc.UpperCtrlLimit = &high
	}
	return map[string]Description{ds.name: desc}, nil
}

// Destroy unsubscribes from the upstream and tombstones the signal.
// The upstream itself is left alive.
func (ds *DerivedSignal) Destroy() {
	ds.mu.Lock()
	if ds.destroyed {
		ds.mu.Unlock()
		return
	}
	ds.mu.Unlock()

	ds.upstream.Unsubscribe(ds.valueSubID)
	if ds.metaSubID != 0 {
		ds.upstream.Unsubscribe(ds.metaSubID)
	}
	ds.Signal.Destroy()
}
