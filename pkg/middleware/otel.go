package middleware

import (
	"fmt"
	"time"

	"github.com/vango-dev/sharedstore/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for store mutations.
const defaultTracerName = "sharedstore"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "sharedstore").
	TracerName string

	// IncludeKeys records the written and changed keys on the span.
	// Enabled by default. Values are never recorded.
	IncludeKeys bool

	// Filter determines which mutations to trace.
	// Return true to trace the mutation, false to skip.
	// If nil, all mutations are traced.
	Filter func(m *store.Mutation) bool

	// AttributeExtractor extracts custom attributes from the mutation.
	// Called before the mutation is applied.
	AttributeExtractor func(m *store.Mutation) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeKeys enables/disables recording keys on spans.
func WithIncludeKeys(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeKeys = include
	}
}

// WithMutationFilter sets a filter function for mutations.
func WithMutationFilter(filter func(m *store.Mutation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(m *store.Mutation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		IncludeKeys: true,
	}
}

// OpenTelemetry creates middleware that traces every store mutation.
//
// The middleware:
//   - Creates a span per mutation named after the operation ("store.set", "store.update")
//   - Stores the span context on the mutation for inner middleware
//   - Records listener panics as span errors
//   - Records changed-key, subscriber and delivery counts as span attributes
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in main() before creating the store:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) store.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return store.MiddlewareFunc(func(m *store.Mutation, next func() error) error {
		if config.Filter != nil && !config.Filter(m) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("store.op", string(m.Op)),
			attribute.Int("store.key_count", len(m.Keys)),
			attribute.Int64("store.seq", int64(m.Seq)),
		}
		if config.IncludeKeys {
			attrs = append(attrs, attribute.StringSlice("store.keys", m.Keys))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(m)...)
		}

		spanCtx, span := config.tracer.Start(
			m.Context(),
			formatSpanName(m),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		defer span.End()

		m.SetContext(spanCtx)

		err := next()

		span.SetAttributes(
			attribute.Int("store.changed_count", m.Changes.Len()),
			attribute.Int("store.subscribers", m.Subscribers),
			attribute.Int("store.delivered", m.Delivered),
		)
		if config.IncludeKeys {
			span.SetAttributes(attribute.StringSlice("store.changed_keys", m.Changes.Keys()))
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	})
}

// SpanFromMutation returns the span started for m, or a non-recording span
// when m is not being traced.
//
// Example:
//
//	middleware.OpenTelemetry(),
//	store.MiddlewareFunc(func(m *store.Mutation, next func() error) error {
//	    middleware.SpanFromMutation(m).AddEvent("audit")
//	    return next()
//	}),
func SpanFromMutation(m *store.Mutation) trace.Span {
	return trace.SpanFromContext(m.Context())
}

func formatSpanName(m *store.Mutation) string {
	return fmt.Sprintf("store.%s", m.Op)
}
