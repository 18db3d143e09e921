package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreModel is the GORM model for the stores table
type StoreModel struct {
	ID           string  `gorm:"column:id;primaryKey;size:64"`
	Name         string  `gorm:"column:name;size:255"`
	Address      string  `gorm:"column:address;size:255"`
	Latitude     float64 `gorm:"column:latitude"`
	Longitude    float64 `gorm:"column:longitude"`
	FloorplanURL string  `gorm:"column:floorplan_url;size:1024"`
}

// TableName specifies the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ItemModel is the GORM model for the items table
// name_lower is stored so prefix searches can use an index
type ItemModel struct {
	ID        string   `gorm:"column:id;primaryKey;size:64"`
	Name      string   `gorm:"column:name;size:255"`
	NameLower string   `gorm:"column:name_lower;size:255;index"`
	StoreID   string   `gorm:"column:store_id;size:64;index"`
	Category  string   `gorm:"column:category;size:128"`
	PosX      *float64 `gorm:"column:pos_x"`
	PosY      *float64 `gorm:"column:pos_y"`
}

// TableName specifies the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// MySQLCatalog implements Catalog using MySQL with GORM
type MySQLCatalog struct {
	db    *gorm.DB
	limit int
}

// NewMySQLCatalog connects to MySQL
//
// dsn format: user:password@tcp(host:port)/dbname?parseTime=true
func NewMySQLCatalog(dsn string, limit int) (*MySQLCatalog, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	return &MySQLCatalog{db: db, limit: queryLimit(limit)}, nil
}

// Search implements the Catalog interface
//
// Runs two queries:
//
//	SELECT * FROM items WHERE name_lower LIKE 'term%' ORDER BY name_lower, id LIMIT n
//	SELECT * FROM stores WHERE id IN (...)
func (c *MySQLCatalog) Search(ctx context.Context, term string) ([]models.RawResult, error) {
	var itemRows []ItemModel
	err := c.db.WithContext(ctx).
		Where("name_lower LIKE ?", escapeLike(term)+"%").
		Order("name_lower, id").
		Limit(c.limit).
		Find(&itemRows).Error
	if err != nil {
		return nil, fmt.Errorf("item query failed: %w", err)
	}
	if len(itemRows) == 0 {
		return []models.RawResult{}, nil
	}

	items := make([]models.Item, 0, len(itemRows))
	storeIDs := make([]string, 0, len(itemRows))
	seen := make(map[string]bool)
	for _, row := range itemRows {
		items = append(items, row.toItem())
		if !seen[row.StoreID] {
			seen[row.StoreID] = true
			storeIDs = append(storeIDs, row.StoreID)
		}
	}

	var storeRows []StoreModel
	if err := c.db.WithContext(ctx).Where("id IN ?", storeIDs).Find(&storeRows).Error; err != nil {
		return nil, fmt.Errorf("store query failed: %w", err)
	}

	stores := make(map[string]models.Store, len(storeRows))
	for _, row := range storeRows {
		stores[row.ID] = row.toStore()
	}

	return join(items, stores), nil
}

// Migrate creates or updates the stores and items tables
func (c *MySQLCatalog) Migrate() error {
	if err := c.db.AutoMigrate(&StoreModel{}, &ItemModel{}); err != nil {
		return fmt.Errorf("failed to migrate catalog tables: %w", err)
	}
	return nil
}

// SaveStore inserts or updates a store
func (c *MySQLCatalog) SaveStore(ctx context.Context, store models.Store) error {
	row := StoreModel{
		ID:           store.ID,
		Name:         store.Name,
		Address:      store.Address,
		Latitude:     store.Location.Latitude,
		Longitude:    store.Location.Longitude,
		FloorplanURL: store.FloorplanURL,
	}
	if err := c.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save store %s: %w", store.ID, err)
	}
	return nil
}

// SaveItem inserts or updates an item
func (c *MySQLCatalog) SaveItem(ctx context.Context, item models.Item) error {
	row := ItemModel{
		ID:        item.ID,
		Name:      item.Name,
		NameLower: nameKey(item.Name),
		StoreID:   item.StoreID,
		Category:  item.Category,
	}
	if item.Position != nil {
		x, y := item.Position.X, item.Position.Y
		row.PosX, row.PosY = &x, &y
	}
	if err := c.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

// Close closes the database connection
func (c *MySQLCatalog) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (m ItemModel) toItem() models.Item {
	item := models.Item{
		ID:       m.ID,
		Name:     m.Name,
		StoreID:  m.StoreID,
		Category: m.Category,
	}
	if m.PosX != nil && m.PosY != nil {
		item.Position = &models.FloorPosition{X: *m.PosX, Y: *m.PosY}
	}
	return item
}

func (m StoreModel) toStore() models.Store {
	return models.Store{
		ID:           m.ID,
		Name:         m.Name,
		Address:      m.Address,
		Location:     geo.Coordinate{Latitude: m.Latitude, Longitude: m.Longitude},
		FloorplanURL: m.FloorplanURL,
	}
}

// escapeLike escapes LIKE wildcards so user input only matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
