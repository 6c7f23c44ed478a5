package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/sharedstore/pkg/store"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheusMiddleware_RecordsMutations(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	s := store.New(
		store.WithInitial(map[string]any{"x": 1}),
		store.WithMiddleware(Prometheus(WithRegistry(reg))),
	)
	s.SubscribeFunc(func(store.Event) {})
	s.SubscribeFunc(func(store.Event) {})

	s.Set("x", 1)
	s.Update(map[string]any{"x": 1, "y": 2, "z": 3})

	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}

	if got := metricCounterValue(t, c.mutationsTotal.WithLabelValues("set", "ok")); got != 1 {
		t.Fatalf("mutations_total(set, ok)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.mutationsTotal.WithLabelValues("update", "ok")); got != 1 {
		t.Fatalf("mutations_total(update, ok)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.changedKeys.WithLabelValues("set")); got != 1 {
		t.Fatalf("changed_keys_total(set)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.changedKeys.WithLabelValues("update")); got != 2 {
		t.Fatalf("changed_keys_total(update)=%v, want 2", got)
	}
	if got := metricCounterValue(t, c.deliveriesTotal); got != 4 {
		t.Fatalf("deliveries_total=%v, want 4", got)
	}
	if got := metricGaugeValue(t, c.subscribers); got != 2 {
		t.Fatalf("subscribers=%v, want 2", got)
	}
	if got := metricHistogramCount(t, c.mutationDuration.WithLabelValues("update")); got != 1 {
		t.Fatalf("mutation_duration_seconds(update) count=%v, want 1", got)
	}
}

func TestPrometheusMiddleware_CountsListenerPanics(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	s := store.New(store.WithMiddleware(Prometheus(WithRegistry(reg))))
	for i := 0; i < 2; i++ {
		s.SubscribeFunc(func(ev store.Event) {
			if !ev.Initial() {
				panic("listener failed")
			}
		})
	}
	s.SubscribeFunc(func(store.Event) {})

	s.Set("a", 1)

	c := GetMetrics()
	if got := metricCounterValue(t, c.mutationsTotal.WithLabelValues("set", "listener_panic")); got != 1 {
		t.Fatalf("mutations_total(set, listener_panic)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.listenerPanics.WithLabelValues("set")); got != 2 {
		t.Fatalf("listener_panics_total(set)=%v, want 2", got)
	}
	if got := metricCounterValue(t, c.deliveriesTotal); got != 1 {
		t.Fatalf("deliveries_total=%v, want 1", got)
	}
}

func TestPrometheusMiddleware_CustomNamespace(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	s := store.New(store.WithMiddleware(Prometheus(
		WithRegistry(reg),
		WithNamespace("app"),
		WithSubsystem("state"),
		WithConstLabels(prometheus.Labels{"instance": "test"}),
		WithBuckets([]float64{0.001, 0.01}),
	)))
	s.Set("a", 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "app_state_mutations_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected app_state_mutations_total to be registered")
	}
}

func TestGetMetricsBeforeInit(t *testing.T) {
	resetGlobalMetricsForTest()
	if GetMetrics() != nil {
		t.Fatal("expected nil collector before Prometheus() is called")
	}
}
