package consumer

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/sharedstore/pkg/store"
)

// Reaction is invoked by a Base after its mirror changes.
// changes is nil for the activation call.
type Reaction interface {
	OnStoreUpdate(old store.Snapshot, changes store.ChangeSet, next store.Snapshot)
}

// ReactionFunc adapts a function to the Reaction interface.
type ReactionFunc func(old store.Snapshot, changes store.ChangeSet, next store.Snapshot)

// OnStoreUpdate calls f(old, changes, next).
func (f ReactionFunc) OnStoreUpdate(old store.Snapshot, changes store.ChangeSet, next store.Snapshot) {
	f(old, changes, next)
}

// Nop is the default Reaction. It does nothing.
type Nop struct{}

// OnStoreUpdate discards the update.
func (Nop) OnStoreUpdate(store.Snapshot, store.ChangeSet, store.Snapshot) {}

// Option configures a Base.
type Option func(*Base)

// WithName sets the name used in log output.
func WithName(name string) Option {
	return func(b *Base) {
		b.name = name
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Base subscribes a component to a store while it is active and keeps a
// local mirror of the store contents.
type Base struct {
	store    *store.Store
	reaction Reaction
	name     string
	logger   *slog.Logger

	mu     sync.Mutex
	state  store.Snapshot
	sub    *store.Subscription
	active bool

	// gen is bumped on every Activate and Deactivate. Deliveries carry the
	// generation they were subscribed under and are dropped when it no
	// longer matches.
	gen uint64
}

// NewBase creates an inactive Base bound to s. A nil reaction is replaced
// with Nop.
func NewBase(s *store.Store, r Reaction, opts ...Option) *Base {
	if r == nil {
		r = Nop{}
	}
	b := &Base{
		store:    s,
		reaction: r,
		logger:   slog.Default(),
		state:    store.Snapshot{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "consumer", "consumer", b.name)
	return b
}

// Activate subscribes to the store. The subscription's initial signal
// primes the mirror and calls the Reaction with an empty old snapshot. If
// the store is delivering an event when Activate runs, for example when a
// component is activated from another component's Reaction, the mirror is
// primed once that delivery finishes. Calling Activate on an active Base does
// nothing.
func (b *Base) Activate() {
	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return
	}
	b.active = true
	b.gen++
	gen := b.gen
	b.state = store.Snapshot{}
	b.mu.Unlock()

	sub := b.store.Subscribe(store.ListenerFunc(func(ev store.Event) {
		b.receive(gen, ev)
	}))

	b.mu.Lock()
	if b.gen != gen {
		// Deactivated from inside the initial Reaction call
		b.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	b.sub = sub
	b.mu.Unlock()

	b.logger.Debug("consumer activated", "subscription", sub.ID())
}

// Deactivate revokes the subscription. The Reaction is not called again
// until the next Activate. Calling Deactivate on an inactive Base does
// nothing.
func (b *Base) Deactivate() {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return
	}
	b.active = false
	b.gen++
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		b.logger.Debug("consumer deactivated", "subscription", sub.ID())
	}
}

// Active reports whether the Base is subscribed.
func (b *Base) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// State returns the mirror: the store contents as of the last event this
// Base received. The returned snapshot must be treated as read-only.
func (b *Base) State() store.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Store returns the store this Base is bound to.
func (b *Base) Store() *store.Store {
	return b.store
}

// Name returns the name given with WithName.
func (b *Base) Name() string {
	return b.name
}

// UpdateStore applies partial to the shared store as one batch.
func (b *Base) UpdateStore(partial map[string]any) {
	b.store.Update(partial)
}

// Set writes a single key to the shared store.
func (b *Base) Set(key string, value any) {
	b.store.Set(key, value)
}

// receive replaces the mirror and calls the Reaction. The lock is released
// before the Reaction runs so it may write to the store.
func (b *Base) receive(gen uint64, ev store.Event) {
	b.mu.Lock()
	if !b.active || gen != b.gen {
		b.mu.Unlock()
		return
	}
	old := b.state
	if ev.Initial() {
		old = store.Snapshot{}
	}
	next := ev.State.Clone()
	b.state = next
	r := b.reaction
	b.mu.Unlock()

	r.OnStoreUpdate(old, ev.Changes, next)
}
