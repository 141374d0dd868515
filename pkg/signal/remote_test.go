package signal

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
	"github.com/sigio-project/sigio-go/pkg/channel/sim"
	"github.com/sigio-project/sigio-go/pkg/dispatch"
)

func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.New(dispatch.Config{})
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func floatPtr(v float64) *float64 { return &v }

func TestRemoteBecomesReady(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:TEMP", Value: 21.5})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:TEMP"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()

	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}
	if !rs.Connected() {
		t.Error("signal should report connected once ready")
	}

	v, err := rs.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 21.5 {
		t.Errorf("Get: got %v, want 21.5", v)
	}
}

func TestRemoteNotReadyWhileDisconnected(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:X", Value: 1, Disconnected: true})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:X"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()

	if rs.Connected() {
		t.Error("signal must not be ready before the channel connects")
	}
	if err := rs.WaitForConnection(50 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	p.SetConnected("PLC:X", true)
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection after connect failed: %v", err)
	}
}

func TestRemoteGetBlocksUntilReady(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:Y", Value: 7, Disconnected: true})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:Y"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()

	got := make(chan any, 1)
	errs := make(chan error, 1)
	go func() {
		v, err := rs.Get()
		if err != nil {
			errs <- err
			return
		}
		got <- v
	}()

	time.Sleep(50 * time.Millisecond)
	p.SetConnected("PLC:Y", true)

	select {
	case v := <-got:
		if v != 7 {
			t.Errorf("Get: got %v, want 7", v)
		}
	case err := <-errs:
		t.Fatalf("Get failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Get did not return after the channel connected")
	}
}

func TestRemoteReadinessLostSingleEvent(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:Z", Value: 1})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:Z"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	var mu sync.Mutex
	lost := 0
	_, err = rs.Subscribe(EventMeta, func(ev Event) {
		if conn, _ := ev.Metadata[MDConnected].(bool); !conn {
			mu.Lock()
			lost++
			mu.Unlock()
		}
	}, false)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	p.SetConnected("PLC:Z", false)
	waitUntil(t, func() bool { return !rs.Connected() }, "signal never lost readiness")

	// Give spurious duplicates a chance to arrive.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	n := lost
	mu.Unlock()
	if n != 1 {
		t.Errorf("expected exactly 1 readiness-lost event, got %d", n)
	}

	p.SetConnected("PLC:Z", true)
	waitUntil(t, rs.Connected, "signal never regained readiness")
}

func TestRemotePutAndMonitorEcho(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:SP", Value: 0.0})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:SP"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	values := make(chan any, 4)
	_, _ = rs.Subscribe(EventValue, func(ev Event) { values <- ev.Value }, false)

	if err := rs.Put(5.0, PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	select {
	case v := <-values:
		if v != 5.0 {
			t.Errorf("monitor echo: got %v, want 5.0", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no monitor echo after Put")
	}

	if got := p.Value("PLC:SP"); got != 5.0 {
		t.Errorf("remote value: got %v, want 5.0", got)
	}
}

func TestRemotePutEchoesLocally(t *testing.T) {
	// The remote monitor echo is slow; the accepted value must still
	// surface locally as soon as Put returns.
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:OPT", Value: 0.0, PutDelay: 500 * time.Millisecond})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:OPT"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	values := make(chan any, 4)
	_, _ = rs.Subscribe(EventValue, func(ev Event) { values <- ev.Value }, false)

	if err := rs.Put(5.0, PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	select {
	case v := <-values:
		if v != 5.0 {
			t.Errorf("local echo: got %v, want 5.0", v)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no value event shortly after Put returned")
	}

	rs.mu.Lock()
	rb := rs.readback
	rs.mu.Unlock()
	if rb != 5.0 {
		t.Errorf("cached readback: got %v, want 5.0", rb)
	}
}

func TestRemoteGetNotifiesSubscribers(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:G", Value: 8.5})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:G"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	values := make(chan any, 4)
	_, _ = rs.Subscribe(EventValue, func(ev Event) { values <- ev.Value }, false)

	// A synchronous read flows through the same update routine as
	// monitor callbacks and reaches value subscribers.
	if _, err := rs.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	select {
	case v := <-values:
		if v != 8.5 {
			t.Errorf("value event from Get: got %v, want 8.5", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Get did not notify value subscribers")
	}
}

func TestRemotePutCompletionBlocks(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:SLOW", Value: 0.0, PutDelay: 30 * time.Millisecond})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{
		ReadChannel: "PLC:SLOW",
		PutComplete: true,
	})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	start := time.Now()
	if err := rs.Put(3.0, PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Put returned before completion: %v", elapsed)
	}
	if got := p.Value("PLC:SLOW"); got != 3.0 {
		t.Errorf("remote value: got %v, want 3.0", got)
	}
}

func TestRemoteLimitRejectsBeforeIO(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{
		Name:  "PLC:LIM",
		Value: 5.0,
		Metadata: channel.Metadata{
			LowerCtrlLimit: floatPtr(0),
			UpperCtrlLimit: floatPtr(10),
		},
	})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:LIM", UseLimits: true})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	if err := rs.Put(15.0, PutOptions{}); !errors.Is(err, ErrLimit) {
		t.Errorf("expected ErrLimit, got %v", err)
	}
	if got := p.Value("PLC:LIM"); got != 5.0 {
		t.Errorf("rejected write reached the channel: value %v", got)
	}

	// Nil is never writable.
	if err := rs.Put(nil, PutOptions{}); !errors.Is(err, ErrNilValue) {
		t.Errorf("expected ErrNilValue, got %v", err)
	}

	// Inside the limits passes.
	if err := rs.Put(9.0, PutOptions{}); err != nil {
		t.Errorf("in-range Put failed: %v", err)
	}

	low, high := rs.Limits()
	if low != 0 || high != 10 {
		t.Errorf("Limits: got (%v, %v), want (0, 10)", low, high)
	}
}

func TestRemoteSetSettlesWithinTolerance(t *testing.T) {
	// The point lands at 9.6 for a request of 10.0.
	p := sim.NewProvider()
	p.Define(sim.Point{
		Name:  "PLC:POS",
		Value: 0.0,
		OnPut: func(name string, requested any) (any, error) {
			return 9.6, nil
		},
	})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:POS", Tolerance: 0.5})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	fut, err := rs.Set(10.0, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := fut.Wait(3 * time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !fut.Success() {
		t.Errorf("expected settle within tolerance, got %v", fut.Err())
	}
}

func TestRemoteSetTimesOutWhenStuck(t *testing.T) {
	// The point sticks at 9.0, outside the 0.5 tolerance around 10.0.
	p := sim.NewProvider()
	p.Define(sim.Point{
		Name:  "PLC:STUCK",
		Value: 0.0,
		OnPut: func(name string, requested any) (any, error) {
			return 9.0, nil
		},
	})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:STUCK", Tolerance: 0.5})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	fut, err := rs.Set(10.0, 200*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Wait re-delivers the failure the future resolved with.
	if err := fut.Wait(3 * time.Second); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait: expected ErrTimeout, got %v", err)
	}
	if fut.Success() {
		t.Fatal("expected failure outcome")
	}
	if !errors.Is(fut.Err(), ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", fut.Err())
	}
}

func TestRemoteWriteAccessDenied(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:RO", Value: 1, ReadOnly: true})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:RO"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	if err := rs.Put(2, PutOptions{}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if rs.WriteAccess() {
		t.Error("write access should be false")
	}
}

func TestRemoteSeparateWriteChannel(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:RBV", Value: 1.0})
	p.Define(sim.Point{Name: "PLC:VAL", Value: 1.0})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{
		ReadChannel:  "PLC:RBV",
		WriteChannel: "PLC:VAL",
		Name:         "motor",
	})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	setpoints := make(chan any, 4)
	_, _ = rs.Subscribe(EventSetpoint, func(ev Event) { setpoints <- ev.Value }, false)

	if err := rs.Put(4.0, PutOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	select {
	case v := <-setpoints:
		if v != 4.0 {
			t.Errorf("setpoint echo: got %v, want 4.0", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no setpoint event after Put")
	}

	// The write landed on the write channel, not the readback.
	if got := p.Value("PLC:VAL"); got != 4.0 {
		t.Errorf("write channel value: got %v, want 4.0", got)
	}
	if got := p.Value("PLC:RBV"); got != 1.0 {
		t.Errorf("readback channel value: got %v, want 1.0", got)
	}

	sp, err := rs.Setpoint()
	if err != nil {
		t.Fatalf("Setpoint failed: %v", err)
	}
	if sp != 4.0 {
		t.Errorf("Setpoint: got %v, want 4.0", sp)
	}

	// The setpoint metadata keys join the key set for two-channel signals.
	keys := rs.MetadataKeys()
	found := false
	for _, k := range keys {
		if k == MDSetpointTimestamp {
			found = true
		}
	}
	if !found {
		t.Error("setpoint metadata keys missing from two-channel signal")
	}
}

func TestRemoteDescribe(t *testing.T) {
	prec := 3
	p := sim.NewProvider()
	p.Define(sim.Point{
		Name:  "PLC:D",
		Value: 2.5,
		Metadata: channel.Metadata{
			Units:          "mm",
			Precision:      &prec,
			LowerCtrlLimit: floatPtr(-5),
			UpperCtrlLimit: floatPtr(5),
		},
	})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:D", Name: "pos"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}
	if _, err := rs.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	descs, err := rs.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	desc, ok := descs["pos"]
	if !ok {
		t.Fatal("Describe result missing signal key")
	}
	if desc.Source != "ch:PLC:D" {
		t.Errorf("Source: got %q, want %q", desc.Source, "ch:PLC:D")
	}
	if desc.Units != "mm" {
		t.Errorf("Units: got %q, want mm", desc.Units)
	}
	if desc.Precision == nil || *desc.Precision != 3 {
		t.Errorf("Precision: got %v, want 3", desc.Precision)
	}
	if desc.DType != "number" {
		t.Errorf("DType: got %q, want number", desc.DType)
	}
}

func TestRemoteDestroy(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:DEAD", Value: 1})
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "PLC:DEAD"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	calls := 0
	_, _ = rs.Subscribe(EventValue, func(Event) { calls++ }, false)

	rs.Destroy()
	rs.Destroy() // idempotent

	if _, err := rs.Get(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Get after Destroy: expected ErrDestroyed, got %v", err)
	}
	if err := rs.Put(2, PutOptions{}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Put after Destroy: expected ErrDestroyed, got %v", err)
	}
	if rs.Connected() {
		t.Error("destroyed signal must not report connected")
	}

	// The released channel no longer delivers callbacks.
	p.SetValue("PLC:DEAD", 9)
	time.Sleep(50 * time.Millisecond)
	if calls != 0 {
		t.Errorf("callbacks ran after Destroy: %d", calls)
	}
}

func TestRemoteROIsReadOnly(t *testing.T) {
	p := sim.NewProvider()
	p.Define(sim.Point{Name: "PLC:ROV", Value: 42})
	d := newTestDispatcher(t)

	rs, err := NewRemoteRO(p, d, RemoteOptions{ReadChannel: "PLC:ROV"})
	if err != nil {
		t.Fatalf("NewRemoteRO failed: %v", err)
	}
	defer rs.Destroy()
	if err := rs.WaitForConnection(2 * time.Second); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	v, err := rs.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 42 {
		t.Errorf("Get: got %v, want 42", v)
	}

	if err := rs.Put(1, PutOptions{}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Put: expected ErrReadOnly, got %v", err)
	}
	if _, err := rs.Set(1, time.Second, 0); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set: expected ErrReadOnly, got %v", err)
	}
	if err := rs.CheckValue(1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("CheckValue: expected ErrReadOnly, got %v", err)
	}
	if rs.WriteAccess() {
		t.Error("WriteAccess must be false")
	}
}

// manualChan lets a test drive connection and access callbacks itself,
// modeling a provider that replays nothing on reconnect.
type manualChan struct {
	name string
	cbs  channel.Callbacks

	mu    sync.Mutex
	value any
	md    channel.Metadata
}

func (c *manualChan) Name() string    { return c.name }
func (c *manualChan) Connected() bool { return true }

func (c *manualChan) Get(timeout time.Duration) (channel.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return channel.Reading{Value: c.value, Metadata: c.md}, nil
}

func (c *manualChan) Put(value any, timeout time.Duration, complete channel.PutCallback) error {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
	if complete != nil {
		complete(nil)
	}
	return nil
}

func (c *manualChan) AllMetadata(timeout time.Duration) (channel.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.md, nil
}

func (c *manualChan) AllMetadataAsync(cb channel.MetadataCallback, timeout time.Duration) {
	go func() {
		md, err := c.AllMetadata(timeout)
		if err != nil {
			return
		}
		cb(c.name, md)
	}()
}

type manualProvider struct {
	mu    sync.Mutex
	chans map[string]*manualChan
}

func newManualProvider() *manualProvider {
	return &manualProvider{chans: make(map[string]*manualChan)}
}

func (p *manualProvider) Connect(name string, cbs channel.Callbacks) (channel.Channel, error) {
	ch := &manualChan{name: name, cbs: cbs}
	p.mu.Lock()
	p.chans[name] = ch
	p.mu.Unlock()
	return ch, nil
}

func (p *manualProvider) Release(ch channel.Channel) {}

func (p *manualProvider) lookup(name string) *manualChan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chans[name]
}

func TestRemoteDisconnectResetsAccessState(t *testing.T) {
	p := newManualProvider()
	d := newTestDispatcher(t)

	rs, err := NewRemote(p, d, RemoteOptions{ReadChannel: "X"})
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	defer rs.Destroy()

	ch := p.lookup("X")
	ch.cbs.OnConnection("X", true)
	ch.cbs.OnAccess("X", true, true)
	waitUntil(t, rs.Connected, "signal never became ready")

	ch.cbs.OnConnection("X", false)
	waitUntil(t, func() bool { return !rs.Connected() }, "signal never lost readiness")

	// Reconnecting without a fresh access-rights callback must not
	// produce a ready signal carrying the stale rights.
	ch.cbs.OnConnection("X", true)
	time.Sleep(100 * time.Millisecond)
	if rs.Connected() {
		t.Fatal("signal ready after reconnect without fresh access rights")
	}

	ch.cbs.OnAccess("X", true, true)
	waitUntil(t, rs.Connected, "signal never became ready after access rights arrived")
}

func TestRemoteUnknownChannel(t *testing.T) {
	p := sim.NewProvider()
	d := newTestDispatcher(t)

	if _, err := NewRemote(p, d, RemoteOptions{ReadChannel: "NOPE"}); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}
