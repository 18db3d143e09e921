package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/models"
)

// CSVCatalog implements Catalog using two CSV files
// It loads everything into memory and keeps items sorted by name for prefix scans
type CSVCatalog struct {
	stores map[string]models.Store
	items  []models.Item // sorted by nameKey, then ID
	keys   []string      // nameKey of items[i]
	limit  int
}

// NewCSVCatalog reads the stores and items files
//
// Stores format: id,name,address,latitude,longitude[,floorplan_url]
// Items format:  id,name,store_id[,category[,pos_x,pos_y]]
//
// Both files start with a header row. Rows with missing columns or
// unparseable numbers are skipped.
func NewCSVCatalog(storesPath, itemsPath string, limit int) (*CSVCatalog, error) {
	storeRows, err := readCSV(storesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	itemRows, err := readCSV(itemsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	c := &CSVCatalog{
		stores: make(map[string]models.Store),
		limit:  queryLimit(limit),
	}

	for _, row := range storeRows {
		store, ok := parseStoreRow(row)
		if !ok {
			continue
		}
		c.stores[store.ID] = store
	}

	byID := make(map[string]models.Item)
	for _, row := range itemRows {
		item, ok := parseItemRow(row)
		if !ok {
			continue
		}
		// later rows win for duplicate ids
		byID[item.ID] = item
	}

	c.items = make([]models.Item, 0, len(byID))
	for _, item := range byID {
		c.items = append(c.items, item)
	}
	sortItems(c.items)

	c.keys = make([]string, len(c.items))
	for i, item := range c.items {
		c.keys[i] = nameKey(item.Name)
	}

	return c, nil
}

// readCSV returns all rows after the header
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // row width is validated per row
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	return records[1:], nil
}

func parseStoreRow(row []string) (models.Store, bool) {
	if len(row) < 5 || row[0] == "" {
		return models.Store{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return models.Store{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return models.Store{}, false
	}

	store := models.Store{
		ID:       row[0],
		Name:     row[1],
		Address:  row[2],
		Location: geo.Coordinate{Latitude: lat, Longitude: lon},
	}
	if len(row) > 5 {
		store.FloorplanURL = row[5]
	}
	return store, true
}

func parseItemRow(row []string) (models.Item, bool) {
	if len(row) < 3 || row[0] == "" || row[1] == "" || row[2] == "" {
		return models.Item{}, false
	}

	item := models.Item{
		ID:      row[0],
		Name:    row[1],
		StoreID: row[2],
	}
	if len(row) > 3 {
		item.Category = row[3]
	}
	if len(row) > 5 && row[4] != "" && row[5] != "" {
		x, errX := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		if errX == nil && errY == nil {
			item.Position = &models.FloorPosition{X: x, Y: y}
		}
	}
	return item, true
}

// Search implements the Catalog interface
func (c *CSVCatalog) Search(ctx context.Context, term string) ([]models.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("catalog search cancelled: %w", err)
	}

	// first item whose key is >= term; matches are contiguous from there
	start := sort.SearchStrings(c.keys, term)

	matched := make([]models.Item, 0)
	for i := start; i < len(c.items) && len(matched) < c.limit; i++ {
		if !strings.HasPrefix(c.keys[i], term) {
			break
		}
		if _, ok := c.stores[c.items[i].StoreID]; !ok {
			continue
		}
		matched = append(matched, c.items[i])
	}

	return join(matched, c.stores), nil
}

// Records returns copies of every store and item, items in name order
// Used by the loader to copy a CSV catalog into another backend
func (c *CSVCatalog) Records() ([]models.Store, []models.Item) {
	stores := make([]models.Store, 0, len(c.stores))
	for _, store := range c.stores {
		stores = append(stores, store)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })

	items := make([]models.Item, len(c.items))
	copy(items, c.items)
	return stores, items
}

// Close cleans up resources
// For CSV catalog there is nothing to release, all data is in memory
func (c *CSVCatalog) Close() error {
	return nil
}
