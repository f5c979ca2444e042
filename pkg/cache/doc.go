// Package cache provides a generic, thread-safe LRU cache bounded by entry
// count and aggregate cost, with per-entry TTL.
//
// It is the in-process tier of the tiered cache: small, short-lived, and
// strictly bounded so a burst of tenants cannot grow memory without limit.
// When the entry bound or the cost budget is exceeded, the least recently
// used entries are evicted; recency is updated on both read and write.
//
// # Usage
//
// Create a cache bounded to 1000 entries and 32 MiB of serialized payload,
// with a five-minute default TTL:
//
//	c := cache.New[string, []byte](1000, 32<<20, 5*time.Minute)
//
//	c.Put("tenant:acme", payload, int64(len(payload)))
//
//	if v, ok := c.Get("tenant:acme"); ok {
//		// hit
//	}
//
// Expired entries are dropped lazily on read; callers that want bounded
// staleness run RemoveExpired on a timer.
//
// # Resource cleanup
//
// Values holding resources can be released on eviction:
//
//	c.SetEvictCallback(func(key string, v []byte) {
//		// release
//	})
package cache
