package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/evyataryagoni/itemlocator/internal/metrics"
	"github.com/evyataryagoni/itemlocator/internal/models"
	"github.com/evyataryagoni/itemlocator/internal/search"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingQuery is returned when the search text is empty
	ErrMissingQuery = errors.New("query is required")

	// ErrInvalidLocation is returned for coordinates outside [-90,90] x [-180,180]
	ErrInvalidLocation = errors.New("invalid location: latitude must be within [-90, 90] and longitude within [-180, 180]")
)

// Options configures SearchService and the live sessions it creates
type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	Clock          clockwork.Clock
}

// SearchService handles business logic for item searches.
// It sits between handlers and the search pipeline:
//   - validate input (query text, coordinates)
//   - run one-shot searches and distance requests
//   - create live search sessions
type SearchService struct {
	pipeline  *search.Pipeline
	validator *validator.Validate
	opts      Options
	metrics   *metrics.Metrics // optional
	logger    *logger.Logger
}

// NewSearchService creates a new search service.
// m may be nil; a nil logger falls back to the default logger.
func NewSearchService(p *search.Pipeline, opts Options, m *metrics.Metrics, log *logger.Logger) *SearchService {
	if opts.Debounce <= 0 {
		opts.Debounce = search.DefaultDebounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = search.DefaultMinQueryLength
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &SearchService{
		pipeline:  p,
		validator: validator.New(),
		opts:      opts,
		metrics:   m,
		logger:    log.WithComponent("SearchService"),
	}
}

// Search runs a one-shot search for query, annotating distances from origin
// when it is non-nil. Queries shorter than the minimum length return an
// empty response without touching the catalog.
func (s *SearchService) Search(ctx context.Context, query string, origin *geo.Coordinate) (*models.SearchResponse, error) {
	normalized := search.NormalizeQuery(query)
	if normalized == "" {
		s.countError("validation")
		return nil, ErrMissingQuery
	}
	if err := s.ValidateOrigin(origin); err != nil {
		return nil, err
	}

	if utf8.RuneCountInString(normalized) < s.opts.MinQueryLength {
		s.logger.Debug().Str("query", normalized).Msg("Query below minimum length")
		return &models.SearchResponse{Query: normalized, Results: []models.ResultItem{}}, nil
	}

	results, err := s.pipeline.Run(ctx, normalized, origin)
	if err != nil {
		return nil, err
	}

	return &models.SearchResponse{
		Query:   normalized,
		Count:   len(results),
		Results: results,
	}, nil
}

// Invalidate drops the cached results for query so the next search goes to
// the catalog
func (s *SearchService) Invalidate(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrMissingQuery
	}
	s.pipeline.Invalidate(query)
	s.logger.Info().Str("query", search.NormalizeQuery(query)).Msg("Search cache entry invalidated")
	return nil
}

// Distance returns the geodesic distance between two points with a display label
func (s *SearchService) Distance(from, to geo.Coordinate) (*models.DistanceResponse, error) {
	if err := s.ValidateOrigin(&from); err != nil {
		return nil, err
	}
	if err := s.ValidateOrigin(&to); err != nil {
		return nil, err
	}

	km, converged := geo.Between(from, to)
	if !converged && s.metrics != nil {
		s.metrics.DistanceFallbacks.Inc()
	}

	return &models.DistanceResponse{
		Kilometers: km,
		Label:      geo.FormatDistance(km),
	}, nil
}

// ValidateOrigin checks a caller-supplied coordinate; nil means "no location"
// and is valid
func (s *SearchService) ValidateOrigin(origin *geo.Coordinate) error {
	if origin == nil {
		return nil
	}
	if err := s.validator.Struct(origin); err != nil {
		s.logger.Warn().
			Float64("latitude", origin.Latitude).
			Float64("longitude", origin.Longitude).
			Msg("Invalid coordinates")
		s.countError("validation")
		return ErrInvalidLocation
	}
	return nil
}

// NewSession creates a live search orchestrator that reports every state
// change to onChange. The caller must Close it.
func (s *SearchService) NewSession(sessionID string, onChange func(search.State)) *search.Orchestrator {
	return search.NewOrchestrator(s.pipeline, search.OrchestratorOptions{
		Debounce:       s.opts.Debounce,
		MinQueryLength: s.opts.MinQueryLength,
		Clock:          s.opts.Clock,
		OnChange:       onChange,
		Logger:         s.logger.WithSession(sessionID),
	})
}

// MinQueryLength is the shortest query that reaches the catalog
func (s *SearchService) MinQueryLength() int {
	return s.opts.MinQueryLength
}

func (s *SearchService) countError(errorType string) {
	if s.metrics != nil {
		s.metrics.SearchErrors.WithLabelValues(errorType).Inc()
	}
}
