// Package store provides the shared state store used by UI components.
//
// A Store owns a single mutable map of string keys to arbitrary values and a
// Broker that fans out change notifications to subscribed listeners. The
// application creates one Store at startup and hands it to every component
// that needs shared state; there is no package-level instance.
//
// Usage:
//
//	s := store.New(store.WithLogger(logger))
//
//	sub := s.Subscribe(store.ListenerFunc(func(ev store.Event) {
//	    if ev.Initial() {
//	        // ev.State holds the store contents at subscription time
//	        return
//	    }
//	    for key, change := range ev.Changes {
//	        fmt.Println(key, change.Old, "->", change.New)
//	    }
//	}))
//	defer sub.Unsubscribe()
//
//	s.Set("step", 2)
//	s.Update(map[string]any{"clicked": true, "step": 2})
//
// # Mutations
//
// Set writes a single key and always reports that key in the event's
// ChangeSet under the default PolicyReportWrites, even when the value did not
// change. Update applies a batch of writes and reports only the keys whose
// value differs from the previous one (see Same). Both deliver exactly one
// event per call. PolicyReportChanges makes Set filter unchanged values too.
//
// # Delivery
//
// Every mutation is numbered under the store lock and its event is queued in
// that order. One goroutine at a time drains the queue, calling listeners in
// registration order, so every listener sees events in mutation order even
// when writers race. A Set or Update that finds the queue idle returns only
// after its event, and any queued behind it, has reached every listener. A
// call made while delivery is in progress, such as a nested Set from inside a
// listener, queues its event and returns at once; the delivering call picks
// it up after the current event. A panicking listener is recovered and
// logged; the remaining listeners still receive the event.
//
// Snapshots carried by an Event are shared by all listeners of that event and
// must be treated as read-only. Clone them before modifying.
package store
