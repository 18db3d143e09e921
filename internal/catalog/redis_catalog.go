package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/evyataryagoni/itemlocator/internal/models"
	"github.com/redis/go-redis/v9"
)

// Redis key layout:
//
//	store:<id>     JSON-encoded models.Store
//	item:<id>      JSON-encoded models.Item
//	items:by_name  sorted set, all scores 0, members "<lower-cased name>\x00<id>"
//
// Equal scores make the sorted set ordered lexicographically, so a prefix
// search is a single ZRANGEBYLEX.
const (
	storeKeyPrefix = "store:"
	itemKeyPrefix  = "item:"
	nameIndexKey   = "items:by_name"
	memberSep      = "\x00"
)

// RedisCatalog implements Catalog using Redis
type RedisCatalog struct {
	client *redis.Client
	limit  int
}

// NewRedisCatalog connects to Redis
func NewRedisCatalog(addr, password string, db int, limit int) (*RedisCatalog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCatalog{client: client, limit: queryLimit(limit)}, nil
}

// Search implements the Catalog interface
func (c *RedisCatalog) Search(ctx context.Context, term string) ([]models.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("catalog search cancelled: %w", err)
	}

	members, err := c.client.ZRangeByLex(ctx, nameIndexKey, &redis.ZRangeBy{
		Min:   "[" + term,
		Max:   "[" + term + "\xff",
		Count: int64(c.limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("Redis name index query failed: %w", err)
	}
	if len(members) == 0 {
		return []models.RawResult{}, nil
	}

	itemKeys := make([]string, 0, len(members))
	for _, member := range members {
		if i := strings.LastIndex(member, memberSep); i >= 0 {
			itemKeys = append(itemKeys, itemKeyPrefix+member[i+len(memberSep):])
		}
	}

	var items []models.Item
	if err := c.mgetJSON(ctx, itemKeys, func(raw string) error {
		var item models.Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	storeKeys := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		if !seen[item.StoreID] {
			seen[item.StoreID] = true
			storeKeys = append(storeKeys, storeKeyPrefix+item.StoreID)
		}
	}

	stores := make(map[string]models.Store, len(storeKeys))
	if len(storeKeys) > 0 {
		if err := c.mgetJSON(ctx, storeKeys, func(raw string) error {
			var store models.Store
			if err := json.Unmarshal([]byte(raw), &store); err != nil {
				return err
			}
			stores[store.ID] = store
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to load stores: %w", err)
		}
	}

	return join(items, stores), nil
}

// mgetJSON fetches keys in one round trip and calls decode for each present value
func (c *RedisCatalog) mgetJSON(ctx context.Context, keys []string, decode func(string) error) error {
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// missing key, index and documents are out of sync
			continue
		}
		if err := decode(raw); err != nil {
			return fmt.Errorf("failed to decode %s: %w", keys[i], err)
		}
	}
	return nil
}

// PutStore adds or updates a store document
func (c *RedisCatalog) PutStore(ctx context.Context, store models.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := c.client.Set(ctx, storeKeyPrefix+store.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	return nil
}

// PutItem adds or updates an item document and its name index entry
func (c *RedisCatalog) PutItem(ctx context.Context, item models.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}

	key := itemKeyPrefix + item.ID

	// a renamed item must not stay findable under its old name
	var previous models.Item
	old, err := c.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return fmt.Errorf("failed to read item %s: %w", item.ID, err)
	default:
		if err := json.Unmarshal([]byte(old), &previous); err != nil {
			return fmt.Errorf("failed to decode item %s: %w", item.ID, err)
		}
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous.ID != "" {
			pipe.ZRem(ctx, nameIndexKey, indexMember(previous))
		}
		pipe.Set(ctx, key, data, 0)
		pipe.ZAdd(ctx, nameIndexKey, redis.Z{Score: 0, Member: indexMember(item)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	return nil
}

// LoadFromCSV copies a CSV catalog into Redis
// Returns the number of stores and items written
func (c *RedisCatalog) LoadFromCSV(ctx context.Context, storesPath, itemsPath string) (int, int, error) {
	csvCatalog, err := NewCSVCatalog(storesPath, itemsPath, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load CSV: %w", err)
	}
	defer csvCatalog.Close()

	stores, items := csvCatalog.Records()
	for _, store := range stores {
		if err := c.PutStore(ctx, store); err != nil {
			return 0, 0, fmt.Errorf("failed to store %s: %w", store.ID, err)
		}
	}
	for _, item := range items {
		if err := c.PutItem(ctx, item); err != nil {
			return len(stores), 0, fmt.Errorf("failed to store item %s: %w", item.ID, err)
		}
	}

	return len(stores), len(items), nil
}

// IsEmpty reports whether the name index has no entries
func (c *RedisCatalog) IsEmpty(ctx context.Context) (bool, error) {
	n, err := c.client.ZCard(ctx, nameIndexKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check Redis index: %w", err)
	}
	return n == 0, nil
}

// Client returns the underlying connection so other Redis users (the rate
// limiter) can share it. It stays owned by the catalog.
func (c *RedisCatalog) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *RedisCatalog) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func indexMember(item models.Item) string {
	return nameKey(item.Name) + memberSep + item.ID
}
