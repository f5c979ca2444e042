// Package tieredcache provides a two-level cache with independent tier
// availability: a bounded, short-TTL in-process tier backed by a shared,
// longer-TTL Redis tier.
//
// Tier 2 is a pure performance optimization. Every failure talking to it is
// absorbed inside this package (a failed read becomes a miss, a failed write
// leaves tier 1 as the only copy), so callers never see a tier-2 error and
// the system keeps working when Redis is down, just colder across processes.
//
// Anything read from tier 2 is copied into tier 1 on the way out, so under
// normal operation tier-1 contents are a recency-bounded subset of tier 2.
//
// # Usage
//
//	rdb, _ := redis.Connect(ctx, redisCfg)
//	c := tieredcache.New[models.Entry](cfg, tieredcache.WithRedis[models.Entry](rdb))
//	defer c.Close(context.Background())
//
//	c.Set(ctx, c.Key("models", "acme"), entry)
//
//	if entry, tier := c.Get(ctx, c.Key("models", "acme")); tier != tieredcache.TierNone {
//		// served from tier 1 or tier 2
//	}
//
// Keys follow the shape {prefix}:{part}:{part}...; QueryKey builds a
// deterministic segment for query-shaped values such as list filters.
package tieredcache
