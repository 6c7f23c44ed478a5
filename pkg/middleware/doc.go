// Package middleware provides observability middleware for store mutations.
//
// Middleware wraps the fan-out of every Set and Update call. It runs on the
// goroutine that delivers the mutation, after the write has been applied, and
// sees the change set on entry and the subscriber and delivery counts once
// next returns.
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware starts one span per mutation:
//
//	s := store.New(
//	    store.WithMiddleware(
//	        middleware.OpenTelemetry(),
//	    ),
//	)
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("checkout"),
//	    middleware.WithIncludeKeys(false),
//	    middleware.WithMutationFilter(func(m *store.Mutation) bool {
//	        return m.Op == store.OpUpdate
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware counts mutations, changed keys, deliveries and
// recovered listener panics, and times the fan-out:
//
//	s := store.New(
//	    store.WithMiddleware(
//	        middleware.Prometheus(),
//	    ),
//	)
//
// Then expose the metrics, for example through the inspector:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Ordering
//
// Put OpenTelemetry first so that spans cover the time measured by the
// metrics middleware:
//
//	store.WithMiddleware(middleware.OpenTelemetry(), middleware.Prometheus())
package middleware
