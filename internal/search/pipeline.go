package search

import (
	"context"
	"fmt"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/cache"
	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/evyataryagoni/itemlocator/internal/metrics"
	"github.com/evyataryagoni/itemlocator/internal/models"
)

// DefaultMaxResults caps how many results a search returns
const DefaultMaxResults = 20

// Options configures a Pipeline
type Options struct {
	MaxResults int
}

// Pipeline turns a query into capped, distance-annotated results, going to
// the executor only on a cache miss. It holds no per-user state and is safe
// for concurrent use.
type Pipeline struct {
	executor   Executor
	cache      *cache.Cache
	maxResults int
	metrics    *metrics.Metrics // optional
	logger     *logger.Logger
}

// NewPipeline creates a search pipeline.
// metrics may be nil; a nil logger discards output.
func NewPipeline(executor Executor, c *cache.Cache, opts Options, m *metrics.Metrics, log *logger.Logger) *Pipeline {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Pipeline{
		executor:   executor,
		cache:      c,
		maxResults: opts.MaxResults,
		metrics:    m,
		logger:     log.WithComponent("search"),
	}
}

// Run searches for query and annotates each result with its distance from
// origin (when origin is non-nil).
//
// Cancellation errors are returned as is so callers can drop them silently;
// any other executor error is wrapped.
func (p *Pipeline) Run(ctx context.Context, query string, origin *geo.Coordinate) ([]models.ResultItem, error) {
	if results, ok := p.Lookup(query, origin); ok {
		return results, nil
	}
	return p.Fetch(ctx, query, origin)
}

// Lookup serves query from the cache only
func (p *Pipeline) Lookup(query string, origin *geo.Coordinate) ([]models.ResultItem, bool) {
	key := NormalizeQuery(query)

	data, ok := p.cache.Get(key)
	if !ok {
		p.countLookup("miss")
		p.logger.Debug().Str("query", key).Msg("Cache miss")
		return nil, false
	}

	p.countLookup("hit")
	p.logger.Debug().Str("query", key).Int("count", len(data)).Msg("Cache hit")

	results := p.annotate(truncate(data, p.maxResults), origin)
	p.countSearch(searchOutcome(results))
	return results, true
}

// Fetch runs query against the executor, bypassing the cache lookup, and
// stores the capped results under the normalized query
func (p *Pipeline) Fetch(ctx context.Context, query string, origin *geo.Coordinate) ([]models.ResultItem, error) {
	key := NormalizeQuery(query)
	log := p.logger.WithQuery(key)

	start := time.Now()
	raw, err := p.executor.Search(ctx, key)
	duration := time.Since(start)

	// whatever the executor says, a cancelled search has no result
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	if err != nil {
		if IsCancellation(err) {
			p.observeExecutor("cancelled", duration)
			p.countSearch("cancelled")
			log.Debug().Dur("duration", duration).Msg("Search cancelled")
			return nil, err
		}

		p.observeExecutor("error", duration)
		p.countSearch("error")
		if p.metrics != nil {
			p.metrics.SearchErrors.WithLabelValues("executor_error").Inc()
		}
		log.Error().Err(err).Dur("duration", duration).Msg("Search failed")
		return nil, fmt.Errorf("search failed: %w", err)
	}
	p.observeExecutor("success", duration)

	results := truncate(toResultItems(raw), p.maxResults)
	p.cache.Set(key, results)
	if p.metrics != nil {
		p.metrics.SearchCacheEntries.Set(float64(p.cache.Len()))
	}

	log.Info().
		Int("count", len(results)).
		Int("raw_count", len(raw)).
		Dur("duration", duration).
		Msg("Search completed")

	results = p.annotate(results, origin)
	p.countSearch(searchOutcome(results))
	return results, nil
}

// Invalidate drops the cached results for query
func (p *Pipeline) Invalidate(query string) {
	p.cache.Invalidate(NormalizeQuery(query))
	if p.metrics != nil {
		p.metrics.SearchCacheEntries.Set(float64(p.cache.Len()))
	}
}

func (p *Pipeline) annotate(results []models.ResultItem, origin *geo.Coordinate) []models.ResultItem {
	annotated, fallbacks := Annotate(results, origin)
	if fallbacks > 0 {
		if p.metrics != nil {
			p.metrics.DistanceFallbacks.Add(float64(fallbacks))
		}
		p.logger.Debug().Int("fallbacks", fallbacks).Msg("Distance fell back to haversine")
	}
	return annotated
}

func (p *Pipeline) countLookup(result string) {
	if p.metrics != nil {
		p.metrics.SearchCacheLookups.WithLabelValues(result).Inc()
	}
}

func (p *Pipeline) countSearch(result string) {
	if p.metrics != nil {
		p.metrics.SearchesTotal.WithLabelValues(result).Inc()
	}
}

func (p *Pipeline) observeExecutor(status string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.CatalogQueriesTotal.WithLabelValues(status).Inc()
		p.metrics.CatalogQueryDuration.WithLabelValues(status).Observe(d.Seconds())
	}
}

// Annotate returns a copy of results with Distance set to the kilometers
// between origin and each result's store, or cleared when origin is nil.
// fallbacks counts results whose distance came from the spherical fallback.
func Annotate(results []models.ResultItem, origin *geo.Coordinate) (annotated []models.ResultItem, fallbacks int) {
	annotated = make([]models.ResultItem, len(results))
	for i, r := range results {
		r.Distance = nil
		if origin != nil {
			km, converged := geo.Between(*origin, r.Store.Location)
			if !converged {
				fallbacks++
			}
			r.Distance = &km
		}
		annotated[i] = r
	}
	return annotated, fallbacks
}

func toResultItems(raw []models.RawResult) []models.ResultItem {
	results := make([]models.ResultItem, len(raw))
	for i, r := range raw {
		results[i] = models.ResultItem{Item: r.Item, Store: r.Store}
	}
	return results
}

// truncate keeps the first limit results in executor order
func truncate(results []models.ResultItem, limit int) []models.ResultItem {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func searchOutcome(results []models.ResultItem) string {
	if len(results) == 0 {
		return "empty"
	}
	return "found"
}
