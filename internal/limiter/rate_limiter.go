package limiter

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	// Allow reports whether one more request from key is allowed now.
	// key identifies the client, usually its IP address.
	Allow(key string) bool

	// Close releases connections or goroutines held by the limiter
	Close() error
}

// idleBucketTTL is how long an untouched bucket is kept before cleanup
const idleBucketTTL = 5 * time.Minute

// bucket is one client's token bucket plus when it was last used
type bucket struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

func (b *bucket) take(now time.Time) bool {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (b *bucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

// MemoryLimiter keeps a token bucket per key in process memory.
// Buckets refill continuously at the configured rate and hold up to one
// second's worth of requests (at least one), so short bursts pass while the
// average is capped. Suitable for a single server; use RedisLimiter when
// several share a limit.
type MemoryLimiter struct {
	buckets sync.Map // key -> *bucket
	rate    rate.Limit
	burst   int
	clock   clockwork.Clock

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter creates an in-memory limiter allowing requestsPerSecond
// per key, with bursts of up to one second's worth
func NewMemoryLimiter(requestsPerSecond float64) *MemoryLimiter {
	return NewMemoryLimiterWithClock(requestsPerSecond, clockwork.NewRealClock())
}

// NewMemoryLimiterWithClock is NewMemoryLimiter with an explicit clock
func NewMemoryLimiterWithClock(requestsPerSecond float64, clock clockwork.Clock) *MemoryLimiter {
	// fractional rates (0.2 = one request per five seconds) still admit one request
	burst := int(math.Max(math.Floor(requestsPerSecond), 1))

	return &MemoryLimiter{
		rate:        rate.Limit(requestsPerSecond),
		burst:       burst,
		clock:       clock,
		lastCleanup: clock.Now(),
	}
}

// Allow implements Limiter
func (rl *MemoryLimiter) Allow(key string) bool {
	now := rl.clock.Now()

	b, ok := rl.buckets.Load(key)
	if !ok {
		b, _ = rl.buckets.LoadOrStore(key, &bucket{
			limiter:  rate.NewLimiter(rl.rate, rl.burst),
			lastSeen: now,
		})
	}
	allowed := b.(*bucket).take(now)

	rl.maybeCleanup(now)
	return allowed
}

// maybeCleanup drops buckets idle for idleBucketTTL, at most once per TTL
func (rl *MemoryLimiter) maybeCleanup(now time.Time) {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	if now.Sub(rl.lastCleanup) < idleBucketTTL {
		return
	}

	threshold := now.Add(-idleBucketTTL)
	rl.buckets.Range(func(key, value interface{}) bool {
		if value.(*bucket).idleSince().Before(threshold) {
			rl.buckets.Delete(key)
		}
		return true
	})

	rl.lastCleanup = now
}

// size counts live buckets
func (rl *MemoryLimiter) size() int {
	n := 0
	rl.buckets.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Close implements Limiter; there is nothing to release
func (rl *MemoryLimiter) Close() error {
	return nil
}
