package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/evyataryagoni/itemlocator/internal/cache"
	"github.com/evyataryagoni/itemlocator/internal/catalog"
	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/metrics"
	"github.com/evyataryagoni/itemlocator/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var newYork = geo.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

func newTestPipeline(exec Executor, maxResults int) (*Pipeline, *cache.Cache) {
	c := cache.New(cache.Options{Clock: clockwork.NewFakeClock()})
	return NewPipeline(exec, c, Options{MaxResults: maxResults}, nil, nil), c
}

func names(results []models.ResultItem) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

// TestPipeline_Run_Miss tests a search that goes to the executor
func TestPipeline_Run_Miss(t *testing.T) {
	mock := catalog.NewMockCatalog()
	p, c := newTestPipeline(mock, 0)

	results, err := p.Run(context.Background(), "  WAT ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := names(results)
	want := []string{"Water 1L", "Water 5L", "Watermelon"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	calls := mock.Calls()
	if len(calls) != 1 || calls[0] != "wat" {
		t.Errorf("expected one normalized call 'wat', got %v", calls)
	}
	if _, ok := c.Get("wat"); !ok {
		t.Error("expected results to be cached under 'wat'")
	}
	for _, r := range results {
		if r.Distance != nil {
			t.Errorf("expected no distance without origin, got %v", *r.Distance)
		}
	}
}

// TestPipeline_Run_CacheHit tests that a cached query skips the executor
func TestPipeline_Run_CacheHit(t *testing.T) {
	mock := catalog.NewMockCatalog()
	p, _ := newTestPipeline(mock, 0)

	p.Run(context.Background(), "wat", nil)
	results, err := p.Run(context.Background(), "Wat", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 cached results, got %d", len(results))
	}
	if calls := mock.Calls(); len(calls) != 1 {
		t.Errorf("expected executor to be called once, got %d calls", len(calls))
	}
}

// TestPipeline_Run_TruncatesInOrder tests the max results cap
func TestPipeline_Run_TruncatesInOrder(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, term string) ([]models.RawResult, error) {
		return []models.RawResult{
			{Item: models.Item{ID: "3", Name: "Zucchini"}},
			{Item: models.Item{ID: "1", Name: "Apple"}},
			{Item: models.Item{ID: "2", Name: "Mango"}},
		}, nil
	})
	p, c := newTestPipeline(exec, 2)

	results, _ := p.Run(context.Background(), "any", nil)
	if len(results) != 2 || results[0].Name != "Zucchini" || results[1].Name != "Apple" {
		t.Errorf("expected first two results in executor order, got %v", names(results))
	}

	cached, _ := c.Get("any")
	if len(cached) != 2 {
		t.Errorf("expected truncated results to be cached, got %d", len(cached))
	}
}

// TestPipeline_Run_Distances tests annotation from an origin
func TestPipeline_Run_Distances(t *testing.T) {
	p, c := newTestPipeline(catalog.NewMockCatalog(), 0)

	results, err := p.Run(context.Background(), "water", &newYork)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Water 1L is in New York, Water 5L in London
	if results[0].Distance == nil || *results[0].Distance != 0 {
		t.Errorf("expected 0 km to the New York store, got %v", results[0].Distance)
	}
	if results[1].Distance == nil || math.Abs(*results[1].Distance-5585.2) > 5 {
		t.Errorf("expected ~5585 km to the London store, got %v", results[1].Distance)
	}

	// the cache keeps results without distances
	cached, _ := c.Get("water")
	for _, r := range cached {
		if r.Distance != nil {
			t.Fatal("expected cached results to have no distance")
		}
	}

	// a later caller with no origin gets no distances from the same entry
	again, _ := p.Run(context.Background(), "water", nil)
	if again[1].Distance != nil {
		t.Error("expected no distance for a caller without origin")
	}
}

// TestPipeline_Run_ExecutorError tests error wrapping
func TestPipeline_Run_ExecutorError(t *testing.T) {
	boom := errors.New("backend unavailable")
	mock := catalog.NewMockCatalog()
	mock.SearchError = boom
	p, c := newTestPipeline(mock, 0)

	results, err := p.Run(context.Background(), "wat", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped executor error, got %v", err)
	}
	if err.Error() != "search failed: backend unavailable" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
	if c.Len() != 0 {
		t.Error("expected nothing cached after an error")
	}
}

// TestPipeline_Run_Cancelled tests that cancellation passes through unwrapped
func TestPipeline_Run_Cancelled(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, term string) ([]models.RawResult, error) {
		// executor ignores ctx and answers anyway
		return []models.RawResult{{Item: models.Item{ID: "1", Name: "Late"}}}, nil
	})
	p, c := newTestPipeline(exec, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "late", nil)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !IsCancellation(err) {
		t.Error("expected IsCancellation to be true")
	}
	if c.Len() != 0 {
		t.Error("expected a cancelled search not to be cached")
	}
}

// TestPipeline_Invalidate tests that an invalidated query goes back to the executor
func TestPipeline_Invalidate(t *testing.T) {
	mock := catalog.NewMockCatalog()
	p, _ := newTestPipeline(mock, 0)

	p.Run(context.Background(), "milk", nil)
	p.Invalidate(" MILK")
	p.Run(context.Background(), "milk", nil)

	if calls := mock.Calls(); len(calls) != 2 {
		t.Errorf("expected 2 executor calls, got %d", len(calls))
	}
}

// TestPipeline_Metrics tests cache and search counters
func TestPipeline_Metrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := cache.New(cache.Options{Clock: clockwork.NewFakeClock()})
	p := NewPipeline(catalog.NewMockCatalog(), c, Options{}, m, nil)

	p.Run(context.Background(), "wat", nil)
	p.Run(context.Background(), "wat", nil)
	p.Run(context.Background(), "zzz", nil)

	if got := testutil.ToFloat64(m.SearchCacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.SearchCacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(m.SearchesTotal.WithLabelValues("found")); got != 2 {
		t.Errorf("expected 2 found, got %v", got)
	}
	if got := testutil.ToFloat64(m.SearchesTotal.WithLabelValues("empty")); got != 1 {
		t.Errorf("expected 1 empty, got %v", got)
	}
	if got := testutil.ToFloat64(m.SearchCacheEntries); got != 2 {
		t.Errorf("expected 2 cache entries, got %v", got)
	}
	if got := testutil.ToFloat64(m.CatalogQueriesTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 catalog queries, got %v", got)
	}
}

// TestAnnotate tests distance annotation and fallback counting
func TestAnnotate(t *testing.T) {
	results := []models.ResultItem{
		{Store: models.Store{Location: geo.Coordinate{Latitude: 0, Longitude: 1}}},
		{Store: models.Store{Location: geo.Coordinate{Latitude: 0.5, Longitude: 179.5}}},
	}
	origin := geo.Coordinate{Latitude: 0, Longitude: 0}

	annotated, fallbacks := Annotate(results, &origin)
	if fallbacks != 1 {
		t.Errorf("expected 1 fallback for the near-antipodal store, got %d", fallbacks)
	}
	if annotated[0].Distance == nil || math.Abs(*annotated[0].Distance-111.3) > 0.5 {
		t.Errorf("expected ~111.3 km, got %v", annotated[0].Distance)
	}
	if results[0].Distance != nil {
		t.Error("expected input to be left untouched")
	}

	cleared, _ := Annotate(annotated, nil)
	if cleared[0].Distance != nil {
		t.Error("expected nil origin to clear distances")
	}
}

// TestNormalizeQuery tests normalization
func TestNormalizeQuery(t *testing.T) {
	tests := map[string]string{
		"  Water ": "water",
		"MILK":     "milk",
		"":         "",
		"\tÄpfel":  "äpfel",
	}
	for in, want := range tests {
		if got := NormalizeQuery(in); got != want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
