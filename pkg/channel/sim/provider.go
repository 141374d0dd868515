package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/sigio-project/sigio-go/pkg/channel"
)

// PutHook shapes how a simulated point reacts to a write. It receives
// the requested value and returns the value the point actually takes on,
// or an error to fail the put.
type PutHook func(name string, requested any) (any, error)

// Point describes one simulated channel.
type Point struct {
	// Name is the channel name.
	Name string

	// Value is the initial value.
	Value any

	// Metadata is the initial metadata. The timestamp is stamped on
	// every update.
	Metadata channel.Metadata

	// Disconnected starts the point disconnected. Points connect as
	// soon as a consumer attaches unless this is set.
	Disconnected bool

	// ReadOnly denies write access.
	ReadOnly bool

	// PutDelay delays the value echo and completion after a put.
	PutDelay time.Duration

	// OnPut, when non-nil, shapes the applied value.
	OnPut PutHook
}

// point is the live state behind a Point definition.
type point struct {
	mu sync.Mutex

	name        string
	value       any
	md          channel.Metadata
	connected   bool
	readAccess  bool
	writeAccess bool
	putDelay    time.Duration
	onPut       PutHook

	// Attached consumers, in attach order.
	subs []*Chan
}

// Provider is an in-memory channel.Provider.
type Provider struct {
	mu     sync.Mutex
	points map[string]*point
}

// NewProvider creates an empty simulated provider.
func NewProvider() *Provider {
	return &Provider{points: make(map[string]*point)}
}

// Define registers a simulated point. Defining an existing name panics;
// the simulator is driven by tests and a duplicate is a test bug.
func (p *Provider) Define(def Point) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.points[def.Name]; exists {
		panic(fmt.Sprintf("sim: point %q already defined", def.Name))
	}

	md := def.Metadata
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now()
	}

	p.points[def.Name] = &point{
		name:        def.Name,
		value:       def.Value,
		md:          md,
		connected:   !def.Disconnected,
		readAccess:  true,
		writeAccess: !def.ReadOnly,
		putDelay:    def.PutDelay,
		onPut:       def.OnPut,
	}
}

// Names returns the defined point names.
func (p *Provider) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.points))
	for name := range p.points {
		names = append(names, name)
	}
	return names
}

// Connect implements channel.Provider.
func (p *Provider) Connect(name string, cbs channel.Callbacks) (channel.Channel, error) {
	p.mu.Lock()
	pt, exists := p.points[name]
	p.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", channel.ErrUnknownChannel, name)
	}

	ch := &Chan{point: pt, cbs: cbs}

	pt.mu.Lock()
	pt.subs = append(pt.subs, ch)
	connected := pt.connected
	read, write := pt.readAccess, pt.writeAccess
	pt.mu.Unlock()

	// A freshly attached consumer sees the current connection and
	// access state, the way a real client replays them on attach.
	if connected {
		if cbs.OnConnection != nil {
			cbs.OnConnection(name, true)
		}
		if cbs.OnAccess != nil {
			cbs.OnAccess(name, read, write)
		}
	}

	return ch, nil
}

// Release implements channel.Provider.
func (p *Provider) Release(ch channel.Channel) {
	sc, ok := ch.(*Chan)
	if !ok {
		return
	}

	pt := sc.point
	pt.mu.Lock()
	for i, s := range pt.subs {
		if s == sc {
			pt.subs = append(pt.subs[:i], pt.subs[i+1:]...)
			break
		}
	}
	pt.mu.Unlock()

	sc.mu.Lock()
	sc.released = true
	sc.cbs = channel.Callbacks{}
	sc.mu.Unlock()
}

// SetValue updates a point's value and fires monitor callbacks on every
// attached consumer.
func (p *Provider) SetValue(name string, value any) {
	pt := p.lookup(name)
	if pt == nil {
		return
	}

	pt.mu.Lock()
	pt.value = value
	pt.md.Timestamp = time.Now()
	md := pt.md
	subs := append([]*Chan(nil), pt.subs...)
	pt.mu.Unlock()

	for _, s := range subs {
		s.notifyValue(value, md)
	}
}

// SetMetadata replaces a point's metadata and stamps it.
func (p *Provider) SetMetadata(name string, md channel.Metadata) {
	pt := p.lookup(name)
	if pt == nil {
		return
	}

	pt.mu.Lock()
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now()
	}
	pt.md = md
	pt.mu.Unlock()
}

// SetConnected flips a point's connection state and fires connection
// callbacks. Reconnecting also replays the access-rights state.
func (p *Provider) SetConnected(name string, connected bool) {
	pt := p.lookup(name)
	if pt == nil {
		return
	}

	pt.mu.Lock()
	if pt.connected == connected {
		pt.mu.Unlock()
		return
	}
	pt.connected = connected
	read, write := pt.readAccess, pt.writeAccess
	subs := append([]*Chan(nil), pt.subs...)
	pt.mu.Unlock()

	for _, s := range subs {
		s.notifyConnection(connected)
		if connected {
			s.notifyAccess(read, write)
		}
	}
}

// SetAccess changes a point's access rights and fires access callbacks.
func (p *Provider) SetAccess(name string, readAccess, writeAccess bool) {
	pt := p.lookup(name)
	if pt == nil {
		return
	}

	pt.mu.Lock()
	pt.readAccess = readAccess
	pt.writeAccess = writeAccess
	subs := append([]*Chan(nil), pt.subs...)
	pt.mu.Unlock()

	for _, s := range subs {
		s.notifyAccess(readAccess, writeAccess)
	}
}

// Value returns a point's current value.
func (p *Provider) Value(name string) any {
	pt := p.lookup(name)
	if pt == nil {
		return nil
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.value
}

func (p *Provider) lookup(name string) *point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.points[name]
}

// Compile-time interface satisfaction check.
var _ channel.Provider = (*Provider)(nil)
