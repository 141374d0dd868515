package signal

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sigio-project/sigio-go/pkg/completion"
	"github.com/sigio-project/sigio-go/pkg/eventlog"
)

// Options configures signal construction.
type Options struct {
	// Value is the initial value.
	Value any

	// Timestamp is the timestamp of the initial value; defaults to now.
	Timestamp time.Time

	// Kind classifies the signal; the zero value means KindHinted.
	Kind Kind

	// Tolerance is the absolute tolerance used when settling a Set.
	Tolerance float64

	// RTolerance is the relative tolerance used when settling a Set:
	// a set is settled when |readback-want| <= Tolerance +
	// RTolerance*|readback|.
	RTolerance float64

	// Metadata supplies additional initial metadata entries.
	Metadata map[string]any

	// MetadataKeys fixes the metadata key set. When nil, the set is the
	// core keys plus any keys from Metadata. The key set never changes
	// after construction.
	MetadataKeys []string

	// Pool runs Set settle tasks. Defaults to a process-shared bounded
	// pool.
	Pool *SetPool

	// EventLog, when non-nil, records value/metadata/connection events.
	EventLog eventlog.Logger
}

// PutOptions configures a single Put.
type PutOptions struct {
	// Timestamp overrides the timestamp associated with the value.
	Timestamp time.Time

	// Metadata updates metadata entries alongside the value. Keys
	// outside the signal's fixed key set are ignored.
	Metadata map[string]any

	// Force skips write-access and value checks.
	Force bool
}

// Signal is an in-process value holder with subscriber fan-out. It is
// created fully initialized and usable immediately; remote variants
// build on it.
type Signal struct {
	mu sync.Mutex

	name string
	kind Kind

	readback     any
	metadata     map[string]any
	metadataKeys []string

	tolerance  float64
	rtolerance float64

	subs      *subscribers
	destroyed bool

	pool          *SetPool
	settlePending bool

	elog eventlog.Logger

	// check validates values before non-forced puts; nil accepts all.
	// Remote variants install their limit check here.
	check func(value any) error
}

// New creates a soft signal holding an in-process value. It defaults to
// connected with full read/write access.
func New(name string, opts Options) *Signal {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	kind := opts.Kind
	if kind == 0 {
		kind = KindHinted
	}
	pool := opts.Pool
	if pool == nil {
		pool = defaultSetPool()
	}

	md := map[string]any{
		MDConnected:   true,
		MDReadAccess:  true,
		MDWriteAccess: true,
		MDTimestamp:   ts,
		MDStatus:      nil,
		MDSeverity:    nil,
		MDPrecision:   nil,
	}
	for k, v := range opts.Metadata {
		md[k] = v
	}

	keys := opts.MetadataKeys
	if keys == nil {
		keys = append([]string(nil), coreMetadataKeys...)
		var extra []string
		for k := range md {
			if !containsKey(keys, k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		keys = append(keys, extra...)
	} else {
		keys = append([]string(nil), keys...)
		for _, k := range keys {
			if _, ok := md[k]; !ok {
				md[k] = nil
			}
		}
	}

	return &Signal{
		name:         name,
		kind:         kind,
		readback:     opts.Value,
		metadata:     md,
		metadataKeys: keys,
		tolerance:    opts.Tolerance,
		rtolerance:   opts.RTolerance,
		subs:         newSubscribers(),
		pool:         pool,
		elog:         opts.EventLog,
	}
}

func containsKey(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

// Name returns the signal name.
func (s *Signal) Name() string { return s.name }

// Kind returns the classification flags.
func (s *Signal) Kind() Kind { return s.kind }

// Timestamp returns the timestamp of the readback value.
func (s *Signal) Timestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, _ := s.metadata[MDTimestamp].(time.Time)
	return ts
}

// Tolerance returns the absolute settle tolerance.
func (s *Signal) Tolerance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tolerance
}

// SetTolerance changes the absolute settle tolerance.
func (s *Signal) SetTolerance(tol float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tolerance = tol
}

// RTolerance returns the relative settle tolerance.
func (s *Signal) RTolerance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtolerance
}

// Metadata returns a copy of the metadata map.
func (s *Signal) Metadata() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMetadata(s.metadata)
}

// MetadataKeys returns the fixed metadata key set.
func (s *Signal) MetadataKeys() []string {
	return append([]string(nil), s.metadataKeys...)
}

// Connected reports whether the signal is usable. Soft signals are
// always connected until destroyed.
func (s *Signal) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, _ := s.metadata[MDConnected].(bool)
	return conn && !s.destroyed
}

// ReadAccess reports whether the signal can be read.
func (s *Signal) ReadAccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ra, _ := s.metadata[MDReadAccess].(bool)
	return ra
}

// WriteAccess reports whether the signal can be written.
func (s *Signal) WriteAccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wa, _ := s.metadata[MDWriteAccess].(bool)
	return wa
}

// Destroyed reports whether Destroy has been called.
func (s *Signal) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Get returns the cached readback value. The base signal performs no
// I/O.
func (s *Signal) Get() (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, s.name)
	}
	return s.readback, nil
}

// Put updates the readback value.
//
// Unless forced, the write-access flag and the value check run first
// and may reject the value. The value and metadata update atomically,
// then value subscribers are notified with the old value, the new
// value, and the metadata-key subset registered for this signal.
func (s *Signal) Put(value any, opts PutOptions) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDestroyed, s.name)
	}

	if !opts.Force {
		if wa, _ := s.metadata[MDWriteAccess].(bool); !wa {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrReadOnly, s.name)
		}
		check := s.check
		if check != nil {
			// The check reads only construction-time state.
			s.mu.Unlock()
			if err := check(value); err != nil {
				return err
			}
			s.mu.Lock()
			if s.destroyed {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s", ErrDestroyed, s.name)
			}
		}
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	old := s.readback
	s.readback = value
	for k, v := range opts.Metadata {
		if _, known := s.metadata[k]; known {
			s.metadata[k] = v
		}
	}
	s.metadata[MDTimestamp] = ts

	ev := Event{
		Signal:    s.name,
		Type:      EventValue,
		OldValue:  old,
		Value:     value,
		Timestamp: ts,
		Metadata:  subsetMetadata(s.metadata, s.metadataKeys),
	}
	cbs := s.subs.snapshot(EventValue)
	elog := s.elog
	s.mu.Unlock()

	if elog != nil {
		elog.Log(eventlog.Event{
			Time:   ts,
			Signal: s.name,
			Type:   eventlog.TypeValue,
			Old:    old,
			New:    value,
		})
	}
	for _, cb := range cbs {
		cb(ev)
	}
	return nil
}

// CheckValue validates a candidate value without writing it.
func (s *Signal) CheckValue(value any) error {
	s.mu.Lock()
	check := s.check
	s.mu.Unlock()
	if check == nil {
		return nil
	}
	return check(value)
}

// Set writes asynchronously and settles. It submits exactly one settle
// task to the signal's pool; the returned future resolves success once
// |readback-value| <= tolerance + rtolerance*|readback|, or failure on
// timeout. A second Set while one is pending fails with ErrBusy; the
// first call's future still resolves.
func (s *Signal) Set(value any, timeout, settle time.Duration) (*completion.Future, error) {
	return s.settleAsync(s, value, timeout, settle)
}

// settleTarget is the read/write surface a settle loop polls. Remote
// variants pass themselves so the loop uses their Get and Put.
type settleTarget interface {
	Get() (any, error)
	Put(value any, opts PutOptions) error
}

// settlePollInterval is the readback polling period inside a settle loop.
const settlePollInterval = 10 * time.Millisecond

func (s *Signal) settleAsync(target settleTarget, value any, timeout, settle time.Duration) (*completion.Future, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, s.name)
	}
	if s.settlePending {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBusy, s.name)
	}
	s.settlePending = true
	tol, rtol := s.tolerance, s.rtolerance
	s.mu.Unlock()

	fut := completion.New()
	task := func() {
		err := runSettle(target, value, timeout, settle, tol, rtol)

		s.mu.Lock()
		s.settlePending = false
		s.mu.Unlock()

		// No caller to raise to: a timeout inside the settle loop
		// resolves the future with failure instead.
		_ = fut.Resolve(err == nil, err)
	}

	if err := s.pool.Submit(task); err != nil {
		s.mu.Lock()
		s.settlePending = false
		s.mu.Unlock()
		return nil, err
	}
	return fut, nil
}

// runSettle writes the value once, then polls the readback until it
// agrees within tolerance or the timeout expires. A timeout of zero or
// less polls forever.
func runSettle(target settleTarget, want any, timeout, settle time.Duration, tol, rtol float64) error {
	if err := target.Put(want, PutOptions{}); err != nil {
		return err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		got, err := target.Get()
		if err == nil && withinTolerance(got, want, tol, rtol) {
			if settle > 0 {
				time.Sleep(settle)
			}
			return nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w: readback did not settle at %v within %s",
				ErrTimeout, want, timeout)
		}
		time.Sleep(settlePollInterval)
	}
}

// withinTolerance compares numerically when both values coerce to
// float64, by equality otherwise.
func withinTolerance(got, want any, tol, rtol float64) bool {
	g, ok1 := toFloat64(got)
	w, ok2 := toFloat64(want)
	if !ok1 || !ok2 {
		return got == want
	}
	return math.Abs(w-g) <= tol+rtol*math.Abs(g)
}

// Subscribe registers cb for events of type t. When runNow is true the
// callback is invoked once, synchronously, with the current state.
func (s *Signal) Subscribe(t EventType, cb Callback, runNow bool) (int, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrDestroyed, s.name)
	}
	id := s.subs.add(t, cb)
	ev := s.currentEventLocked(t)
	s.mu.Unlock()

	if runNow {
		cb(ev)
	}
	return id, nil
}

// currentEventLocked builds an event snapshot of the current state.
func (s *Signal) currentEventLocked(t EventType) Event {
	ts, _ := s.metadata[MDTimestamp].(time.Time)
	ev := Event{
		Signal:    s.name,
		Type:      t,
		Timestamp: ts,
		Metadata:  subsetMetadata(s.metadata, s.metadataKeys),
	}
	if t == EventValue || t == EventSetpoint {
		ev.Value = s.readback
	}
	return ev
}

// Unsubscribe cancels a subscription by id. Unknown ids are ignored.
func (s *Signal) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.remove(id)
}

// ClearSubscriptions removes all subscriptions.
func (s *Signal) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.clear()
}

// notifyMeta publishes a metadata event with the current metadata-key
// subset. Callbacks run outside the lock.
func (s *Signal) notifyMeta() {
	s.mu.Lock()
	ev := s.currentEventLocked(EventMeta)
	cbs := s.subs.snapshot(EventMeta)
	elog := s.elog
	connected, _ := s.metadata[MDConnected].(bool)
	s.mu.Unlock()

	if elog != nil {
		elog.Log(eventlog.Event{
			Time:      time.Now(),
			Signal:    s.name,
			Type:      eventlog.TypeMeta,
			Connected: &connected,
		})
	}
	for _, cb := range cbs {
		cb(ev)
	}
}

// Read returns the current value and timestamp keyed by signal name.
func (s *Signal) Read() (map[string]Reading, error) {
	value, err := s.Get()
	if err != nil {
		return nil, err
	}
	return map[string]Reading{
		s.name: {Value: value, Timestamp: s.Timestamp()},
	}, nil
}

// Describe returns schema and provenance for Read under the same key.
func (s *Signal) Describe() (map[string]Description, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, s.name)
	}
	value := s.readback
	s.mu.Unlock()

	return map[string]Description{
		s.name: {
			Source: "local:" + s.name,
			DType:  dataType(value),
			Shape:  dataShape(value),
		},
	}, nil
}

// Limits returns the control limits (low, high). The base signal has
// none and reports zeros.
func (s *Signal) Limits() (float64, float64) {
	return 0, 0
}

// WaitForConnection blocks until the signal is usable. Soft signals are
// always connected; only destruction makes them unusable.
func (s *Signal) WaitForConnection(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("%w: %s", ErrDestroyed, s.name)
	}
	return nil
}

// Destroy tombstones the signal: all subscriptions are cleared and all
// further operations fail fast. Destroy is idempotent.
func (s *Signal) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.subs.clear()
}

// setCheck installs the value-check hook used by non-forced puts.
func (s *Signal) setCheck(check func(value any) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.check = check
}

// updateMetadataLocked applies entries to known keys only; the key set
// is fixed at construction.
func (s *Signal) updateMetadataLocked(entries map[string]any) {
	for k, v := range entries {
		if _, known := s.metadata[k]; known {
			s.metadata[k] = v
		}
	}
}
