package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/models"
)

// MockCatalog is a test double for the Catalog interface
// It matches by name prefix over Data and records every call
type MockCatalog struct {
	mu sync.Mutex

	// Data holds the mock catalog in search order
	Data []models.RawResult

	// Track method calls for verification in tests
	SearchCalls []string
	CloseCalled bool

	// Control behavior for error scenarios
	SearchError error
	CloseError  error
}

// NewMockCatalog creates a mock catalog with two stores and a few items
//
//	s1 Fresh Market, New York
//	s2 Harbor Grocery, London
func NewMockCatalog() *MockCatalog {
	freshMarket := models.Store{
		ID:       "s1",
		Name:     "Fresh Market",
		Address:  "1 Broadway, New York",
		Location: geo.Coordinate{Latitude: 40.7128, Longitude: -74.0060},
	}
	harbor := models.Store{
		ID:       "s2",
		Name:     "Harbor Grocery",
		Address:  "10 Strand, London",
		Location: geo.Coordinate{Latitude: 51.5074, Longitude: -0.1278},
	}

	return &MockCatalog{
		Data: []models.RawResult{
			{Item: models.Item{ID: "i3", Name: "Milk", StoreID: "s2", Category: "Dairy"}, Store: harbor},
			{Item: models.Item{ID: "i1", Name: "Water 1L", StoreID: "s1", Category: "Drinks",
				Position: &models.FloorPosition{X: 12.5, Y: 40}}, Store: freshMarket},
			{Item: models.Item{ID: "i2", Name: "Water 5L", StoreID: "s2", Category: "Drinks"}, Store: harbor},
			{Item: models.Item{ID: "i4", Name: "Watermelon", StoreID: "s1", Category: "Fruit"}, Store: freshMarket},
		},
		SearchCalls: []string{},
	}
}

// NewEmptyMockCatalog creates a mock catalog with no data
func NewEmptyMockCatalog() *MockCatalog {
	return &MockCatalog{
		Data:        []models.RawResult{},
		SearchCalls: []string{},
	}
}

// Search implements the Catalog interface
func (m *MockCatalog) Search(ctx context.Context, term string) ([]models.RawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchCalls = append(m.SearchCalls, term)

	if m.SearchError != nil {
		return nil, m.SearchError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]models.RawResult, 0)
	for _, r := range m.Data {
		if strings.HasPrefix(strings.ToLower(r.Name), term) {
			results = append(results, r)
		}
	}
	return results, nil
}

// Calls returns a copy of the terms Search was called with
func (m *MockCatalog) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]string, len(m.SearchCalls))
	copy(calls, m.SearchCalls)
	return calls
}

// Close implements the Catalog interface
func (m *MockCatalog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CloseCalled = true
	return m.CloseError
}
