package store

import (
	"errors"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// registration is one listener's membership in a Broker.
type registration struct {
	id       uint64
	listener Listener
	revoked  atomic.Bool

	// since is the store sequence number covered by the listener's initial
	// event. Events at or below it are not delivered again.
	since uint64
}

// Broker keeps the ordered set of listeners and delivers events to them.
// A Broker is safe for concurrent use. Its lock is never held while a
// listener runs, so listeners may subscribe, unsubscribe or mutate the store
// during delivery.
type Broker struct {
	regs []*registration
	mu   sync.RWMutex

	logger *slog.Logger
}

// NewBroker creates an empty broker. A nil logger uses slog.Default().
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{logger: logger}
}

// Subscribe registers l and then delivers initial to it before returning.
//
// Listeners whose dynamic type is a pointer are deduplicated by identity:
// subscribing the same pointer twice keeps the original position and returns
// a handle to the existing registration. The initial event is delivered in
// both cases.
func (b *Broker) Subscribe(l Listener, initial Event) *Subscription {
	sub := b.register(l, initial.Seq)
	b.deliverInitial(sub.reg, initial)
	return sub
}

// register adds l without delivering anything. Events with a sequence number
// at or below since are skipped for a new registration.
func (b *Broker) register(l Listener, since uint64) *Subscription {
	reg, added := b.add(l, since)
	if added {
		b.logger.Debug("listener subscribed",
			"listener", reg.id,
			"since", since,
			"subscribers", b.Len())
	}
	return &Subscription{broker: b, reg: reg}
}

func (b *Broker) add(l Listener, since uint64) (*registration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.regs {
		if !existing.revoked.Load() && sameListener(existing.listener, l) {
			return existing, false
		}
	}

	reg := &registration{id: nextID(), listener: l, since: since}
	b.regs = append(b.regs, reg)
	return reg, true
}

// deliverInitial sends the subscription-time event unless reg was revoked
// before it got the chance.
func (b *Broker) deliverInitial(reg *registration, initial Event) {
	if reg.revoked.Load() {
		return
	}
	if err := b.deliver(reg, initial); err != nil {
		b.logger.Warn("initial delivery failed", "listener", reg.id, "error", err)
	}
}

// remove revokes reg. Only the first call has an effect.
func (b *Broker) remove(reg *registration) {
	if !reg.revoked.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	for i, existing := range b.regs {
		if existing == reg {
			// Preserve registration order for the remaining listeners
			b.regs = append(b.regs[:i:i], b.regs[i+1:]...)
			break
		}
	}
	remaining := len(b.regs)
	b.mu.Unlock()

	b.logger.Debug("listener unsubscribed",
		"listener", reg.id,
		"subscribers", remaining)
}

// Notify delivers ev to every registered listener in registration order.
//
// The listener list is copied before delivery. A listener revoked while the
// event is in flight is skipped; a listener added while the event is in
// flight does not receive it, and neither does one whose initial event
// already reflects ev.Seq. Panics are recovered per listener and returned
// joined as ListenerPanicError values after every listener has been tried.
func (b *Broker) Notify(ev Event) (delivered int, err error) {
	b.mu.RLock()
	regs := make([]*registration, len(b.regs))
	copy(regs, b.regs)
	b.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if reg.revoked.Load() || ev.Seq != 0 && ev.Seq <= reg.since {
			continue
		}
		if err := b.deliver(reg, ev); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	return delivered, errors.Join(errs...)
}

// deliver runs one listener with panic recovery.
func (b *Broker) deliver(reg *registration, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			b.logger.Error("listener panic",
				"panic", r,
				"listener", reg.id,
				"event", ev.Kind.String(),
				"stack", string(stack))
			err = NewListenerPanicError(reg.id, ev.Kind, r, stack)
		}
	}()

	reg.listener.OnStoreEvent(ev)
	return nil
}

// Len returns the number of registered listeners.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.regs)
}

// sameListener reports whether a and b are the same pointer listener.
// Other listener kinds never match, which also keeps == away from func values.
func sameListener(a, b Listener) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || ta.Kind() != reflect.Pointer {
		return false
	}
	return a == b
}
