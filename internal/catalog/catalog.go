// Package catalog answers item searches against the store catalog.
//
// Every backend implements the same contract: prefix match on the
// lower-cased item name, ordered by name, limited, with each item joined to
// its owning store. Items whose store is missing are left out.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evyataryagoni/itemlocator/internal/models"
)

// DefaultQueryLimit caps how many items a single catalog search returns
const DefaultQueryLimit = 50

// ErrUnknownType is returned by New for an unsupported catalog type
var ErrUnknownType = errors.New("unknown catalog type")

// Catalog defines the interface for item search operations
// Allows multiple implementations (CSV, MySQL, Redis) and easy testing with mocks
type Catalog interface {
	// Search returns items whose name starts with term, joined with their store.
	// term is expected to be trimmed and lower-cased already.
	// A cancelled ctx makes Search fail with an error wrapping ctx.Err().
	Search(ctx context.Context, term string) ([]models.RawResult, error)

	// Close cleans up resources (database connections, file handles, etc.)
	Close() error
}

// Config selects and configures a catalog backend
type Config struct {
	Type       string // "csv", "mysql" or "redis"
	StoresPath string // CSV stores file
	ItemsPath  string // CSV items file
	QueryLimit int

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates a catalog based on the configuration (factory pattern)
func New(cfg Config) (Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "csv", "":
		return NewCSVCatalog(cfg.StoresPath, cfg.ItemsPath, cfg.QueryLimit)

	case "mysql":
		return NewMySQLCatalog(cfg.MySQLDSN, cfg.QueryLimit)

	case "redis":
		return NewRedisCatalog(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.QueryLimit)

	default:
		return nil, fmt.Errorf("%w: %s (supported: 'csv', 'mysql', 'redis')", ErrUnknownType, cfg.Type)
	}
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

// nameKey is the lower-cased form item names are matched and ordered by
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// sortItems orders items by lower-cased name, then id
func sortItems(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := nameKey(items[i].Name), nameKey(items[j].Name)
		if a != b {
			return a < b
		}
		return items[i].ID < items[j].ID
	})
}

// join attaches stores to items, dropping items with no known store
func join(items []models.Item, stores map[string]models.Store) []models.RawResult {
	results := make([]models.RawResult, 0, len(items))
	for _, item := range items {
		store, ok := stores[item.StoreID]
		if !ok {
			continue
		}
		results = append(results, models.RawResult{Item: item, Store: store})
	}
	return results
}
