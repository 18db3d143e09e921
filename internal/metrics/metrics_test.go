package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewWithRegistry tests that independent registries do not collide
func TestNewWithRegistry(t *testing.T) {
	first := NewWithRegistry(prometheus.NewRegistry())
	second := NewWithRegistry(prometheus.NewRegistry())

	first.SearchCacheLookups.WithLabelValues("hit").Inc()
	first.DistanceFallbacks.Inc()

	if got := testutil.ToFloat64(first.SearchCacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(second.SearchCacheLookups.WithLabelValues("hit")); got != 0 {
		t.Errorf("expected second registry untouched, got %v", got)
	}
	if got := testutil.ToFloat64(first.DistanceFallbacks); got != 1 {
		t.Errorf("expected 1 fallback, got %v", got)
	}
}

// TestNewWithRegistry_Registered tests that metrics are gathered from the registry
func TestNewWithRegistry_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.SearchesTotal.WithLabelValues("found").Inc()
	m.LiveSessionsOpen.Set(2)

	count, err := testutil.GatherAndCount(reg, "searches_total", "live_search_sessions_open")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 series, got %d", count)
	}
}
