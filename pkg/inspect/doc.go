// Package inspect serves a shared store over HTTP for development tooling.
//
// The inspector is a store listener that forwards every change event to
// connected WebSocket clients as JSON, and exposes the current snapshot and
// Prometheus metrics:
//
//	s := store.New()
//	insp := inspect.New(s, inspect.WithLogger(logger))
//	defer insp.Close()
//
//	http.ListenAndServe("localhost:7070", insp)
//
// Values that cannot be encoded as JSON are sent in their fmt %v form.
package inspect
