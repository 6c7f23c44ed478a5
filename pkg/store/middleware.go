package store

import "context"

// Op identifies the mutation entry point.
type Op string

const (
	OpSet    Op = "set"
	OpUpdate Op = "update"
)

// Mutation describes one Set or Update call as it passes through middleware.
// The write has already been applied when middleware runs, so Seq and Changes
// are set on entry. Subscribers and Delivered are filled in by the innermost
// handler, so middleware reads them after next returns.
type Mutation struct {
	// Op is the entry point that produced the mutation.
	Op Op

	// Seq is the store sequence number of the mutation.
	Seq uint64

	// Keys are the keys written, sorted.
	Keys []string

	// Changes is the change set delivered to listeners.
	Changes ChangeSet

	// Subscribers is the number of listeners registered at fan-out time.
	Subscribers int

	// Delivered is the number of listeners that returned without panicking.
	Delivered int

	ctx context.Context
}

// Context returns the context associated with the mutation.
func (m *Mutation) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// SetContext replaces the mutation context. Tracing middleware uses it to
// hand span context to inner middleware.
func (m *Mutation) SetContext(ctx context.Context) {
	m.ctx = ctx
}

// Middleware wraps the fan-out of every mutation. The write itself happens
// before the chain runs: a middleware that returns without calling next
// suppresses the notification for that mutation, never the write.
//
// The error passed back through next joins the ListenerPanicError values of
// the fan-out. It is informational: Set and Update never return it.
type Middleware interface {
	Handle(m *Mutation, next func() error) error
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(m *Mutation, next func() error) error

// Handle calls f(m, next).
func (f MiddlewareFunc) Handle(m *Mutation, next func() error) error {
	return f(m, next)
}

// ComposeMiddleware builds a handler chain from middleware and a final handler.
// Middleware is executed in order (first to last), with the handler at the end.
func ComposeMiddleware(m *Mutation, mw []Middleware, handler func() error) error {
	if len(mw) == 0 {
		return handler()
	}

	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		h := mw[i]
		next := chain
		chain = func() error {
			return h.Handle(m, next)
		}
	}

	return chain()
}

// Chain creates a middleware that combines multiple middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(m *Mutation, next func() error) error {
		return ComposeMiddleware(m, middleware, next)
	})
}

// Only runs mw when condition is true and passes straight through otherwise.
func Only(condition func(m *Mutation) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(m *Mutation, next func() error) error {
		if !condition(m) {
			return next()
		}
		return mw.Handle(m, next)
	})
}
