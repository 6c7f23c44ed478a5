package middleware

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/sharedstore/pkg/store"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "sharedstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "store").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for mutation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "sharedstore",
		Subsystem: "store",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for store mutations.
type metrics struct {
	mutationsTotal   *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	changedKeys      *prometheus.CounterVec
	deliveriesTotal  prometheus.Counter
	listenerPanics   *prometheus.CounterVec
	subscribers      prometheus.Gauge
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of store mutations by operation and status",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "status"}),

		mutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutation_duration_seconds",
			Help:        "Time spent notifying every listener of a mutation",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),

		changedKeys: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "changed_keys_total",
			Help:        "Total number of keys reported in change sets",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		deliveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deliveries_total",
			Help:        "Total number of successful listener deliveries",
			ConstLabels: config.ConstLabels,
		}),

		listenerPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_panics_total",
			Help:        "Total number of listener panics recovered during fan-out",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Number of listeners registered at the last mutation",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for store
// mutations.
//
// Metrics collected (default namespace and subsystem):
//   - sharedstore_store_mutations_total: Counter by op and status (ok, listener_panic)
//   - sharedstore_store_mutation_duration_seconds: Histogram of fan-out time
//   - sharedstore_store_changed_keys_total: Counter of keys reported in change sets
//   - sharedstore_store_deliveries_total: Counter of successful deliveries
//   - sharedstore_store_listener_panics_total: Counter of recovered listener panics
//   - sharedstore_store_subscribers: Gauge of listeners at the last mutation
//
// Example:
//
//	s := store.New(
//	    store.WithMiddleware(
//	        middleware.Prometheus(middleware.WithNamespace("myapp")),
//	    ),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) store.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return store.MiddlewareFunc(func(mut *store.Mutation, next func() error) error {
		op := string(mut.Op)
		start := time.Now()

		err := next()

		m.mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		m.changedKeys.WithLabelValues(op).Add(float64(mut.Changes.Len()))
		m.deliveriesTotal.Add(float64(mut.Delivered))
		m.subscribers.Set(float64(mut.Subscribers))

		status := "ok"
		if err != nil {
			status = "listener_panic"
			m.listenerPanics.WithLabelValues(op).Add(float64(countPanics(err)))
		}
		m.mutationsTotal.WithLabelValues(op, status).Inc()

		return err
	})
}

// countPanics counts the ListenerPanicError values joined into err.
func countPanics(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n := 0
		for _, e := range joined.Unwrap() {
			n += countPanics(e)
		}
		return n
	}
	if errors.Is(err, store.ErrListenerPanic) {
		return 1
	}
	return 0
}

// Collector exposes the metrics for use in custom registrations and tests.
type Collector struct {
	mutationsTotal   *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	changedKeys      *prometheus.CounterVec
	deliveriesTotal  prometheus.Counter
	listenerPanics   *prometheus.CounterVec
	subscribers      prometheus.Gauge
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		mutationsTotal:   globalMetrics.mutationsTotal,
		mutationDuration: globalMetrics.mutationDuration,
		changedKeys:      globalMetrics.changedKeys,
		deliveriesTotal:  globalMetrics.deliveriesTotal,
		listenerPanics:   globalMetrics.listenerPanics,
		subscribers:      globalMetrics.subscribers,
	}
}
