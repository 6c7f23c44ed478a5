package store

// EventKind distinguishes the subscription-time signal from mutation events.
type EventKind uint8

const (
	// EventInitial is delivered once to a listener when it subscribes.
	// Only State is set.
	EventInitial EventKind = iota + 1

	// EventChange is delivered for every Set or Update call.
	EventChange
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventInitial:
		return "initial"
	case EventChange:
		return "change"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners.
type Event struct {
	Kind EventKind

	// Seq is the store's mutation counter. A change event carries the number
	// of its own mutation; an initial event carries the number of the last
	// mutation its State reflects. Events built outside a Store leave it zero.
	Seq uint64

	// Old is the store contents before the mutation. Nil for EventInitial.
	Old Snapshot

	// State is the store contents after the mutation, or at subscription
	// time for EventInitial.
	State Snapshot

	// Changes holds the per-key diff. Nil for EventInitial.
	Changes ChangeSet
}

// Initial reports whether the event is the subscription-time signal.
func (e Event) Initial() bool {
	return e.Kind == EventInitial
}

// Listener receives store events.
type Listener interface {
	OnStoreEvent(ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
//
// Function values cannot be compared, so every Subscribe call with a
// ListenerFunc creates a separate registration.
type ListenerFunc func(ev Event)

// OnStoreEvent calls f(ev).
func (f ListenerFunc) OnStoreEvent(ev Event) {
	f(ev)
}
