package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	itemQuery  = "SELECT \\* FROM `items` WHERE name_lower LIKE \\? ORDER BY name_lower, id LIMIT \\?"
	storeQuery = "SELECT \\* FROM `stores` WHERE id IN \\(.*\\)"
)

var (
	itemColumns  = []string{"id", "name", "name_lower", "store_id", "category", "pos_x", "pos_y"}
	storeColumns = []string{"id", "name", "address", "latitude", "longitude", "floorplan_url"}
)

// setupMockDB creates a mock database for testing
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	return db, mock, sqlDB
}

// TestMySQLCatalog_Search_Success tests a search that joins items with stores
func TestMySQLCatalog_Search_Success(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db, limit: 50}

	mock.ExpectQuery(itemQuery).
		WithArgs("wat%", 50).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("i1", "Water 1L", "water 1l", "s1", "Drinks", 12.5, 40.0).
			AddRow("i2", "Water 5L", "water 5l", "s2", "Drinks", nil, nil).
			AddRow("i4", "Watermelon", "watermelon", "s1", "Fruit", nil, nil))

	mock.ExpectQuery(storeQuery).
		WithArgs("s1", "s2").
		WillReturnRows(sqlmock.NewRows(storeColumns).
			AddRow("s1", "Fresh Market", "1 Broadway", 40.7128, -74.0060, "").
			AddRow("s2", "Harbor Grocery", "10 Strand", 51.5074, -0.1278, ""))

	results, err := c.Search(context.Background(), "wat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// order is the query's order
	if results[0].Name != "Water 1L" || results[1].Name != "Water 5L" || results[2].Name != "Watermelon" {
		t.Errorf("unexpected order: %s, %s, %s", results[0].Name, results[1].Name, results[2].Name)
	}
	if results[0].Store.Name != "Fresh Market" || results[1].Store.Name != "Harbor Grocery" {
		t.Errorf("unexpected join: %s, %s", results[0].Store.Name, results[1].Store.Name)
	}
	if results[0].Position == nil || results[0].Position.X != 12.5 {
		t.Errorf("expected position for Water 1L, got %+v", results[0].Position)
	}
	if results[1].Position != nil {
		t.Errorf("expected no position for Water 5L")
	}
	if results[1].Store.Location.Latitude != 51.5074 {
		t.Errorf("unexpected store latitude: %f", results[1].Store.Location.Latitude)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestMySQLCatalog_Search_NoItems tests that no store query runs when nothing matches
func TestMySQLCatalog_Search_NoItems(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db, limit: 50}

	mock.ExpectQuery(itemQuery).
		WithArgs("zzz%", 50).
		WillReturnRows(sqlmock.NewRows(itemColumns))

	results, err := c.Search(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestMySQLCatalog_Search_MissingStore tests that items without a store are dropped
func TestMySQLCatalog_Search_MissingStore(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db, limit: 50}

	mock.ExpectQuery(itemQuery).
		WithArgs("mil%", 50).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("i3", "Milk", "milk", "s2", "Dairy", nil, nil).
			AddRow("i9", "Milk Powder", "milk powder", "gone", "Dairy", nil, nil))

	mock.ExpectQuery(storeQuery).
		WithArgs("s2", "gone").
		WillReturnRows(sqlmock.NewRows(storeColumns).
			AddRow("s2", "Harbor Grocery", "10 Strand", 51.5074, -0.1278, ""))

	results, err := c.Search(context.Background(), "mil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "i3" {
		t.Errorf("expected only i3, got %+v", results)
	}

	mock.ExpectationsWereMet()
}

// TestMySQLCatalog_Search_EscapesWildcards tests that LIKE wildcards in the term match literally
func TestMySQLCatalog_Search_EscapesWildcards(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db, limit: 10}

	mock.ExpectQuery(itemQuery).
		WithArgs(`100\%\_off%`, 10).
		WillReturnRows(sqlmock.NewRows(itemColumns))

	if _, err := c.Search(context.Background(), "100%_off"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestMySQLCatalog_Search_DatabaseError tests database errors
func TestMySQLCatalog_Search_DatabaseError(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db, limit: 50}

	mock.ExpectQuery(itemQuery).
		WithArgs("wat%", 50).
		WillReturnError(sql.ErrConnDone)

	results, err := c.Search(context.Background(), "wat")
	if err == nil {
		t.Fatal("expected database error, got nil")
	}
	if results != nil {
		t.Error("expected nil results, got data")
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("expected wrapped sql.ErrConnDone, got %v", err)
	}

	mock.ExpectationsWereMet()
}

// TestMySQLCatalog_Search_StoreQueryError tests errors on the second query
func TestMySQLCatalog_Search_StoreQueryError(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db, limit: 50}

	mock.ExpectQuery(itemQuery).
		WithArgs("mil%", 50).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("i3", "Milk", "milk", "s2", "Dairy", nil, nil))
	mock.ExpectQuery(storeQuery).
		WithArgs("s2").
		WillReturnError(sql.ErrConnDone)

	if _, err := c.Search(context.Background(), "mil"); err == nil {
		t.Error("expected error from store query")
	}

	mock.ExpectationsWereMet()
}

// TestMySQLCatalog_Close tests cleanup
func TestMySQLCatalog_Close(t *testing.T) {
	db, mock, sqlDB := setupMockDB(t)
	defer sqlDB.Close()

	c := &MySQLCatalog{db: db}

	mock.ExpectClose()

	if err := c.Close(); err != nil {
		t.Errorf("unexpected error on close: %v", err)
	}

	mock.ExpectationsWereMet()
}

// TestMySQLCatalog_Close_NilDB tests close with nil db
func TestMySQLCatalog_Close_NilDB(t *testing.T) {
	c := &MySQLCatalog{db: nil}

	if err := c.Close(); err != nil {
		t.Errorf("expected no error for nil db, got: %v", err)
	}
}

// TestModels_TableName tests GORM table name overrides
func TestModels_TableName(t *testing.T) {
	if name := (StoreModel{}).TableName(); name != "stores" {
		t.Errorf("expected table name 'stores', got '%s'", name)
	}
	if name := (ItemModel{}).TableName(); name != "items" {
		t.Errorf("expected table name 'items', got '%s'", name)
	}
}

// TestEscapeLike tests LIKE escaping
func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"water", "water"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
