package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/catalog"
	"github.com/evyataryagoni/itemlocator/internal/config"
)

// This tool copies the CSV catalog into Redis or MySQL
// Usage: CATALOG_TYPE=redis go run ./cmd/load-catalog
func main() {
	appConfig := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Printf("Reading CSV catalog from %s and %s...\n", appConfig.CatalogStoresPath, appConfig.CatalogItemsPath)
	source, err := catalog.NewCSVCatalog(appConfig.CatalogStoresPath, appConfig.CatalogItemsPath, 0)
	if err != nil {
		log.Fatalf("Failed to load CSV catalog: %v", err)
	}
	defer source.Close()

	switch strings.ToLower(strings.TrimSpace(appConfig.CatalogType)) {
	case "redis":
		loadRedis(ctx, appConfig, source)
	case "mysql":
		loadMySQL(ctx, appConfig, source)
	default:
		log.Fatalf("CATALOG_TYPE must be 'redis' or 'mysql' to load data, got %q", appConfig.CatalogType)
	}
}

func loadRedis(ctx context.Context, appConfig *config.Config, source *catalog.CSVCatalog) {
	fmt.Printf("Connecting to Redis at %s...\n", appConfig.RedisAddr)
	target, err := catalog.NewRedisCatalog(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB, 0)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer target.Close()

	stores, items := source.Records()
	for _, store := range stores {
		if err := target.PutStore(ctx, store); err != nil {
			log.Fatalf("Failed to load store: %v", err)
		}
	}
	for _, item := range items {
		if err := target.PutItem(ctx, item); err != nil {
			log.Fatalf("Failed to load item: %v", err)
		}
	}

	fmt.Printf("Loaded %d stores and %d items into Redis\n", len(stores), len(items))
	fmt.Println("You can now start the server with CATALOG_TYPE=redis")
}

func loadMySQL(ctx context.Context, appConfig *config.Config, source *catalog.CSVCatalog) {
	fmt.Println("Connecting to MySQL...")
	target, err := catalog.NewMySQLCatalog(appConfig.MySQLDSN, 0)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer target.Close()

	if err := target.Migrate(); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	stores, items := source.Records()
	for _, store := range stores {
		if err := target.SaveStore(ctx, store); err != nil {
			log.Fatalf("Failed to load store: %v", err)
		}
	}
	for _, item := range items {
		if err := target.SaveItem(ctx, item); err != nil {
			log.Fatalf("Failed to load item: %v", err)
		}
	}

	fmt.Printf("Loaded %d stores and %d items into MySQL\n", len(stores), len(items))
	fmt.Println("You can now start the server with CATALOG_TYPE=mysql")
}
