package signal

import "time"

// EventType selects which signal events a subscription receives.
type EventType uint8

const (
	// EventValue fires on readback value changes.
	EventValue EventType = iota

	// EventMeta fires on metadata changes, including readiness edges.
	EventMeta

	// EventSetpoint fires on setpoint echoes when the write target is a
	// distinct channel.
	EventSetpoint

	// EventSetpointMeta fires on setpoint metadata changes.
	EventSetpointMeta
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventValue:
		return "value"
	case EventMeta:
		return "meta"
	case EventSetpoint:
		return "setpoint"
	case EventSetpointMeta:
		return "setpoint_meta"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on signal state changes.
type Event struct {
	// Signal is the emitting signal's name.
	Signal string

	// Type is the event category.
	Type EventType

	// OldValue and Value carry the transition for value and setpoint
	// events; both are nil for pure metadata events.
	OldValue any
	Value    any

	// Timestamp is the remote-side time of the change.
	Timestamp time.Time

	// Metadata is the metadata-key subset registered for the signal.
	Metadata map[string]any
}

// Callback receives signal events.
type Callback func(Event)

// subscriber is one registered callback.
type subscriber struct {
	id int
	cb Callback
}

// subscribers keeps per-event-type callback lists in registration order.
type subscribers struct {
	nextID int
	byType map[EventType][]subscriber
}

func newSubscribers() *subscribers {
	return &subscribers{nextID: 1, byType: make(map[EventType][]subscriber)}
}

func (s *subscribers) add(t EventType, cb Callback) int {
	id := s.nextID
	s.nextID++
	s.byType[t] = append(s.byType[t], subscriber{id: id, cb: cb})
	return id
}

func (s *subscribers) remove(id int) {
	for t, subs := range s.byType {
		for i, sub := range subs {
			if sub.id == id {
				s.byType[t] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (s *subscribers) clear() {
	s.byType = make(map[EventType][]subscriber)
}

// snapshot returns the callbacks for an event type; the caller invokes
// them after releasing the signal lock.
func (s *subscribers) snapshot(t EventType) []Callback {
	subs := s.byType[t]
	if len(subs) == 0 {
		return nil
	}
	out := make([]Callback, len(subs))
	for i, sub := range subs {
		out[i] = sub.cb
	}
	return out
}
