package storetest

import (
	"sync"
	"testing"

	"github.com/vango-dev/sharedstore/pkg/store"
)

// Recorder is a store.Listener that records every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []store.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnStoreEvent records ev.
func (r *Recorder) OnStoreEvent(ev store.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []store.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Changes returns only the EventChange events.
func (r *Recorder) Changes() []store.Event {
	var out []store.Event
	for _, ev := range r.Events() {
		if ev.Kind == store.EventChange {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Last returns the most recent event, failing the test if there is none.
func (r *Recorder) Last(t testing.TB) store.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatal("storetest: no events recorded")
	}
	return r.events[len(r.events)-1]
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Update is one recorded Reaction call.
type Update struct {
	Old     store.Snapshot
	Changes store.ChangeSet
	Next    store.Snapshot
}

// Reactions records OnStoreUpdate calls. It satisfies consumer.Reaction.
type Reactions struct {
	mu      sync.Mutex
	updates []Update
}

// NewReactions creates an empty Reactions recorder.
func NewReactions() *Reactions {
	return &Reactions{}
}

// OnStoreUpdate records the call.
func (r *Reactions) OnStoreUpdate(old store.Snapshot, changes store.ChangeSet, next store.Snapshot) {
	r.mu.Lock()
	r.updates = append(r.updates, Update{Old: old, Changes: changes, Next: next})
	r.mu.Unlock()
}

// Updates returns a copy of the recorded calls.
func (r *Reactions) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

// Len returns the number of recorded calls.
func (r *Reactions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

// Last returns the most recent call, failing the test if there is none.
func (r *Reactions) Last(t testing.TB) Update {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		t.Fatal("storetest: no reactions recorded")
	}
	return r.updates[len(r.updates)-1]
}

// AssertKeys fails the test unless changes holds exactly the given keys.
func AssertKeys(t testing.TB, changes store.ChangeSet, keys ...string) {
	t.Helper()
	if changes.Len() != len(keys) {
		t.Fatalf("storetest: change set %v, want keys %v", changes.Keys(), keys)
	}
	for _, k := range keys {
		if !changes.Has(k) {
			t.Fatalf("storetest: change set %v is missing %q", changes.Keys(), k)
		}
	}
}
