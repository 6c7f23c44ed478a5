package store

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Store is the shared state container. Create one per process with New and
// pass it to every component that reads or writes shared state.
//
// All writes go through Set and Update, which snapshot the contents, apply
// the write, compute a ChangeSet and queue exactly one Event. Events are
// numbered under the store lock and delivered in that order by a single
// goroutine at a time. A call that finds no delivery in progress delivers its
// own event, and anything queued behind it, before returning. A call made
// while another is delivering (from inside a listener or from a concurrent
// goroutine) queues its event and returns; the delivering call picks it up.
type Store struct {
	data map[string]any
	mu   sync.RWMutex

	// Guarded by mu.
	seq        uint64
	queue      []delivery
	delivering bool

	broker     *Broker
	policy     ChangePolicy
	middleware []Middleware

	logger *slog.Logger
	ctx    context.Context
}

// delivery is one queued fan-out. Initial deliveries target a single
// registration; change deliveries carry their mutation.
type delivery struct {
	ev  Event
	m   *Mutation
	reg *registration
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data:   make(map[string]any),
		logger: slog.Default(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	s.broker = NewBroker(s.logger)
	return s
}

// Get returns the current value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// State returns a snapshot of the current contents.
func (s *Store) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(Snapshot(s.data))
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Policy returns the change policy the store was created with.
func (s *Store) Policy() ChangePolicy {
	return s.policy
}

// Subscribers returns the number of registered listeners.
func (s *Store) Subscribers() int {
	return s.broker.Len()
}

// Subscribe registers l for future events and queues one EventInitial
// carrying the current contents. The snapshot and the registration are taken
// together, so l sees every later mutation exactly once and nothing the
// snapshot already reflects. When no delivery is in progress the initial
// event reaches l before Subscribe returns; otherwise it is delivered in
// order, ahead of any mutation made after the call.
func (s *Store) Subscribe(l Listener) *Subscription {
	s.mu.Lock()
	initial := Event{Kind: EventInitial, Seq: s.seq, State: maps.Clone(Snapshot(s.data))}
	sub := s.broker.register(l, s.seq)
	s.queue = append(s.queue, delivery{ev: initial, reg: sub.reg})
	s.drainLocked()
	return sub
}

// SubscribeFunc is shorthand for Subscribe(ListenerFunc(fn)).
func (s *Store) SubscribeFunc(fn func(ev Event)) *Subscription {
	return s.Subscribe(ListenerFunc(fn))
}

// Set writes value under key and notifies listeners once.
//
// Under PolicyReportWrites the change set always contains key, even when the
// new value is the same as the old one.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	old := maps.Clone(Snapshot(s.data))
	prev := s.data[key]
	s.data[key] = value

	changes := make(ChangeSet, 1)
	if s.policy == PolicyReportWrites || !Same(prev, value) {
		changes[key] = Change{Old: prev, New: value}
	}

	s.commitLocked(
		&Mutation{Op: OpSet, Keys: []string{key}, ctx: s.ctx},
		Event{Kind: EventChange, Old: old, State: maps.Clone(Snapshot(s.data)), Changes: changes})
}

// Update applies every key of partial and notifies listeners once for the
// whole batch. The change set holds only keys whose value differs from the
// previous contents. An Update that changes nothing still notifies, with an
// empty change set.
func (s *Store) Update(partial map[string]any) {
	s.mu.Lock()
	old := maps.Clone(Snapshot(s.data))
	maps.Copy(s.data, partial)

	s.commitLocked(
		&Mutation{Op: OpUpdate, Keys: slices.Sorted(maps.Keys(partial)), ctx: s.ctx},
		Event{Kind: EventChange, Old: old, State: maps.Clone(Snapshot(s.data)), Changes: Diff(old, partial)})
}

// commitLocked numbers an applied mutation and queues its event. It must be
// called with s.mu held and returns with it released.
func (s *Store) commitLocked(m *Mutation, ev Event) {
	s.seq++
	ev.Seq = s.seq
	m.Seq = s.seq
	m.Changes = ev.Changes

	s.queue = append(s.queue, delivery{ev: ev, m: m})
	s.drainLocked()
}

// drainLocked delivers queued events in order unless another call is already
// doing so. It must be called with s.mu held and returns with it released.
func (s *Store) drainLocked() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.dispatch(d)

		s.mu.Lock()
	}

	s.queue = nil
	s.delivering = false
	s.mu.Unlock()
}

// dispatch delivers one queued event. A panic escaping middleware releases
// the delivery role before it propagates, so later calls still deliver.
func (s *Store) dispatch(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	if d.m == nil {
		s.broker.deliverInitial(d.reg, d.ev)
		return
	}
	s.notify(d.m, d.ev)
}

// notify runs the fan-out of an applied mutation inside the middleware chain.
func (s *Store) notify(m *Mutation, ev Event) {
	handler := func() error {
		m.Subscribers = s.broker.Len()

		delivered, err := s.broker.Notify(ev)
		m.Delivered = delivered
		return err
	}

	err := ComposeMiddleware(m, s.middleware, handler)

	if s.logger.Enabled(m.Context(), slog.LevelDebug) {
		s.logger.DebugContext(m.Context(), "store mutated",
			"op", string(m.Op),
			"seq", m.Seq,
			"keys", m.Keys,
			"changed", m.Changes.Keys(),
			"delivered", m.Delivered)
	}
	if err != nil {
		s.logger.WarnContext(m.Context(), "mutation delivered with listener failures",
			"op", string(m.Op),
			"seq", m.Seq,
			"error", err)
	}
}
