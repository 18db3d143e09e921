// Package search runs item searches: query normalization, result caching,
// truncation and distance annotation (Pipeline), plus the per-session
// debounced state machine that drives it from keystrokes (Orchestrator).
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/evyataryagoni/itemlocator/internal/models"
)

// Executor is the query capability the search core depends on.
// A catalog.Catalog satisfies it.
//
// Search must honour ctx: when ctx is cancelled it should return an error
// that errors.Is reports as context.Canceled.
type Executor interface {
	Search(ctx context.Context, term string) ([]models.RawResult, error)
}

// ExecutorFunc adapts a plain function to Executor
type ExecutorFunc func(ctx context.Context, term string) ([]models.RawResult, error)

// Search implements Executor
func (f ExecutorFunc) Search(ctx context.Context, term string) ([]models.RawResult, error) {
	return f(ctx, term)
}

// NormalizeQuery returns the form queries are cached and executed under
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// IsCancellation reports whether err means the search was cancelled or timed
// out rather than failed
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
