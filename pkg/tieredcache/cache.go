package tieredcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantmodels/pkg/cache"
)

// Tier identifies which cache tier served a read.
type Tier int

const (
	// TierNone means the read was a miss in both tiers.
	TierNone Tier = iota
	// Tier1 is the in-process bounded cache.
	Tier1
	// Tier2 is the shared out-of-process cache.
	Tier2
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	default:
		return "none"
	}
}

// Cache layers a bounded in-process tier over a shared Redis tier. Tier 1 is
// authoritative for the cache's availability: every public operation succeeds
// as long as tier 1 works, and tier-2 failures only degrade performance.
//
// Values cross the tier-2 boundary as JSON; the serialized length is also the
// entry's cost against the tier-1 byte budget.
type Cache[V any] struct {
	cfg    Config
	tier1  *cache.LRU[string, V]
	rdb    redis.UniversalClient
	logger *slog.Logger

	// available tracks tier-2 connectivity, updated synchronously at each
	// tier-2 I/O completion rather than through client callbacks.
	available atomic.Bool
	closed    atomic.Bool

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Option configures the cache.
type Option[V any] func(*Cache[V])

// WithRedis attaches the shared tier-2 client. Without it the cache runs
// tier-1 only, which is fully functional but shares nothing across processes.
func WithRedis[V any](rdb redis.UniversalClient) Option[V] {
	return func(c *Cache[V]) {
		if rdb != nil {
			c.rdb = rdb
		}
	}
}

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger[V any](l *slog.Logger) Option[V] {
	return func(c *Cache[V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a tiered cache. The background cleanup goroutine sweeping
// expired tier-1 entries runs until Close.
func New[V any](cfg Config, opts ...Option[V]) *Cache[V] {
	cfg = cfg.withDefaults()
	c := &Cache[V]{
		cfg:         cfg,
		tier1:       cache.New[string, V](cfg.Tier1MaxEntries, cfg.Tier1MaxBytes, cfg.Tier1TTL),
		logger:      slog.Default(),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.available.Store(c.rdb != nil)

	go c.cleanup()
	return c
}

// tier2Result is the outcome of a tier-2 operation. Failures are carried as a
// distinct variant so the one place that discards them is visible in review.
type tier2Result struct {
	payload []byte
	hit     bool
	err     error
}

// Get checks tier 1, then tier 2. A tier-2 hit is copied into tier 1
// (write-through on read). The returned Tier reports which tier served the
// value; tier-2 failures are absorbed and reported as a plain miss.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, Tier) {
	var zero V
	if c.closed.Load() {
		return zero, TierNone
	}

	if v, ok := c.tier1.Get(key); ok {
		return v, Tier1
	}

	if !c.tier2Usable() {
		return zero, TierNone
	}

	res := c.tier2Get(ctx, key)
	if res.err != nil {
		// The only discard point for tier-2 read failures: downgrade to a
		// miss so the caller re-materializes from the source of truth.
		c.tier2Failed("get", key, res.err)
		return zero, TierNone
	}
	if !res.hit {
		return zero, TierNone
	}

	var v V
	if err := json.Unmarshal(res.payload, &v); err != nil {
		c.logger.Warn("tier-2 payload is not decodable, dropping",
			slog.String("key", key),
			slog.Any("error", err),
		)
		c.tier2Delete(ctx, key)
		return zero, TierNone
	}

	c.tier1.Put(key, v, int64(len(res.payload)))
	return v, Tier2
}

// Set writes to tier 1 immediately and to tier 2 best-effort with the
// configured tier-2 TTL. Tier-2 failures are logged, never propagated.
func (c *Cache[V]) Set(ctx context.Context, key string, value V) {
	c.SetTTL(ctx, key, value, c.cfg.Tier2TTL)
}

// SetTTL is Set with a per-call tier-2 TTL override. Tier 1 keeps its own,
// typically shorter, TTL regardless.
func (c *Cache[V]) SetTTL(ctx context.Context, key string, value V, tier2TTL time.Duration) {
	if c.closed.Load() {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		// Unserializable values stay usable in tier 1; only sharing is lost.
		c.logger.Warn("cache value is not serializable, skipping tier 2",
			slog.String("key", key),
			slog.Any("error", err),
		)
		c.tier1.Put(key, value, 0)
		return
	}

	c.tier1.Put(key, value, int64(len(payload)))

	if !c.tier2Usable() {
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Tier2CommandTimeout)
	defer cancel()
	if err := c.rdb.Set(opCtx, key, payload, tier2TTL).Err(); err != nil {
		c.tier2Failed("set", key, err)
		return
	}
	c.available.Store(true)
}

// Delete removes the key from tier 1 unconditionally and from tier 2
// best-effort.
func (c *Cache[V]) Delete(ctx context.Context, key string) {
	if c.closed.Load() {
		return
	}
	c.tier1.Remove(key)
	if c.tier2Usable() {
		c.tier2Delete(ctx, key)
	}
}

// Clear empties tier 1 and removes every tier-2 key under this cache's
// namespace prefix, best-effort.
func (c *Cache[V]) Clear(ctx context.Context) {
	if c.closed.Load() {
		return
	}
	c.tier1.Clear()
	if !c.tier2Usable() {
		return
	}

	// SCAN+DEL rather than FLUSHDB: the Redis is shared and only this
	// cache's namespace belongs to us.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*c.cfg.Tier2CommandTimeout)
	defer cancel()

	iter := c.rdb.Scan(opCtx, 0, c.cfg.Prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(opCtx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.rdb.Del(opCtx, keys...).Err(); err != nil {
				c.tier2Failed("clear", c.cfg.Prefix, err)
				return
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.tier2Failed("clear", c.cfg.Prefix, err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(opCtx, keys...).Err(); err != nil {
			c.tier2Failed("clear", c.cfg.Prefix, err)
			return
		}
	}
	c.available.Store(true)
}

// Tier1Stats describes the in-process tier.
type Tier1Stats struct {
	Size    int   `json:"size"`
	MaxSize int   `json:"max_size"`
	Bytes   int64 `json:"bytes"`
}

// Tier2Stats describes the shared tier.
type Tier2Stats struct {
	Connected bool  `json:"connected"`
	Keys      int64 `json:"keys"`
}

// Stats is a read-only snapshot of both tiers.
type Stats struct {
	Tier1 Tier1Stats `json:"tier1"`
	Tier2 Tier2Stats `json:"tier2"`
}

// statsKeyScanCap bounds how many namespace keys Stats will count; beyond it
// the count is approximate.
const statsKeyScanCap = 10000

// Stats snapshots both tiers. The tier-2 key count is a capped scan over this
// cache's namespace; a reachable tier 2 also refreshes the availability flag.
func (c *Cache[V]) Stats(ctx context.Context) Stats {
	stats := Stats{
		Tier1: Tier1Stats{
			Size:    c.tier1.Len(),
			MaxSize: c.cfg.Tier1MaxEntries,
			Bytes:   c.tier1.Cost(),
		},
	}
	if c.rdb == nil || c.closed.Load() {
		return stats
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*c.cfg.Tier2CommandTimeout)
	defer cancel()

	if err := c.rdb.Ping(opCtx).Err(); err != nil {
		c.available.Store(false)
		return stats
	}
	c.available.Store(true)
	stats.Tier2.Connected = true

	iter := c.rdb.Scan(opCtx, 0, c.cfg.Prefix+":*", 100).Iterator()
	for iter.Next(opCtx) {
		if stats.Tier2.Keys++; stats.Tier2.Keys >= statsKeyScanCap {
			break
		}
	}
	return stats
}

// Tier2Available reports the connectivity state as of the last tier-2 I/O.
func (c *Cache[V]) Tier2Available() bool {
	return c.rdb != nil && !c.closed.Load() && c.available.Load()
}

// Close stops the cleanup goroutine, empties tier 1, and closes the tier-2
// connection. Close errors are returned for logging but the cache is unusable
// either way. Safe to call more than once.
func (c *Cache[V]) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.stopCleanup)
	<-c.cleanupDone
	c.tier1.Clear()
	c.available.Store(false)

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		return errors.Join(ErrCacheClosed, err)
	}
	return nil
}

func (c *Cache[V]) tier2Usable() bool {
	return c.rdb != nil && c.available.Load()
}

func (c *Cache[V]) tier2Get(ctx context.Context, key string) tier2Result {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Tier2CommandTimeout)
	defer cancel()

	payload, err := c.rdb.Get(opCtx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.available.Store(true)
		return tier2Result{}
	case err != nil:
		return tier2Result{err: errors.Join(ErrTier2Unavailable, err)}
	default:
		c.available.Store(true)
		return tier2Result{payload: payload, hit: true}
	}
}

func (c *Cache[V]) tier2Delete(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Tier2CommandTimeout)
	defer cancel()
	if err := c.rdb.Del(opCtx, key).Err(); err != nil {
		c.tier2Failed("delete", key, err)
		return
	}
	c.available.Store(true)
}

// tier2Failed records a tier-2 failure: flips the availability flag and logs.
// Correctness never depends on tier 2, so this is where its errors stop.
func (c *Cache[V]) tier2Failed(op, key string, err error) {
	c.available.Store(false)
	c.logger.Warn("tier-2 cache operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.Any("error", err),
	)
}

// cleanup periodically drops expired tier-1 entries so memory is reclaimed
// even for keys that are never read again.
func (c *Cache[V]) cleanup() {
	defer close(c.cleanupDone)

	ticker := time.NewTicker(c.cfg.Tier1CleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.tier1.RemoveExpired()
			c.probeTier2()
		case <-c.stopCleanup:
			return
		}
	}
}

// probeTier2 re-checks a tier 2 that was marked unavailable. Recovery is
// observed by polling instead of client reconnect callbacks, so the flag only
// changes at a point this package controls.
func (c *Cache[V]) probeTier2() {
	if c.rdb == nil || c.available.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Tier2CommandTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err == nil {
		c.available.Store(true)
		c.logger.Info("tier-2 cache is reachable again")
	}
}
