// Package cache keeps recent search results in memory, bounded by age and by
// entry count.
package cache

import (
	"sync"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/models"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 50
)

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	Clock      clockwork.Clock
}

// Entry is one cached result set
type Entry struct {
	Key       string
	Data      []models.ResultItem
	Timestamp time.Time

	seq uint64 // breaks timestamp ties in eviction order
}

// Cache is a TTL + capacity bounded result cache.
// Every method is atomic with respect to the others.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock
	seq        uint64
}

// New creates an empty cache
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Cache{
		entries:    make(map[string]*Entry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		clock:      opts.Clock,
	}
}

// Get returns a copy of the data stored under key.
// An entry is a miss once TTL has elapsed since it was set; it is dropped then.
func (c *Cache) Get(key string) ([]models.ResultItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.clock.Now().Sub(entry.Timestamp) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return cloneResults(entry.Data), true
}

// Set stores data under key with the current time, then evicts the oldest
// entries until the cache is back within MaxEntries.
func (c *Cache) Set(key string, data []models.ResultItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = &Entry{
		Key:       key,
		Data:      cloneResults(data),
		Timestamp: c.clock.Now(),
		seq:       c.seq,
	}

	for len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

// Invalidate removes a single entry
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
}

// Len returns the number of entries, expired or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// evictOldest must be called with mu held
func (c *Cache) evictOldest() {
	var oldest *Entry
	for _, entry := range c.entries {
		if oldest == nil ||
			entry.Timestamp.Before(oldest.Timestamp) ||
			(entry.Timestamp.Equal(oldest.Timestamp) && entry.seq < oldest.seq) {
			oldest = entry
		}
	}
	if oldest != nil {
		delete(c.entries, oldest.Key)
	}
}

func cloneResults(data []models.ResultItem) []models.ResultItem {
	if data == nil {
		return []models.ResultItem{}
	}
	out := make([]models.ResultItem, len(data))
	copy(out, data)
	return out
}
