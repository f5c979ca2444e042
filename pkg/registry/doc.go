// Package registry materializes ready-to-use data-model handles per tenant,
// minimizing repeated expensive setup through the tiered cache and the
// per-tenant connection manager.
//
// A handle is a logical schema bound to the tenant's live connection. Handles
// themselves are never cached; the cache holds only metadata sufficient to
// rebuild them, so a cache entry can outlive any particular connection.
//
// # Materialization
//
// Models(ctx, tenant) is the central operation:
//
//  1. Cache hit in either tier: handles are reconstructed from metadata by
//     fetching the connection and binding each cached name still in the
//     catalogue.
//  2. Cache miss: the tenant's mutual-exclusion lock is taken and the cache
//     re-checked inside it, so N concurrent cold callers for one tenant do
//     exactly one connection-open and one bind sequence (single-flight).
//     The entry is written only after every schema bound.
//
// Calls for different tenants never serialize against each other. An
// in-flight materialization is not cancellable; a caller that times out
// leaves the work running, and its result still warms the cache.
//
// # Lifecycle
//
// Build the stack bottom-up and pass the registry to the boundary layer:
//
//	mgr, _ := tenantconn.New(connCfg)
//	rdb, _ := redis.Connect(ctx, redisCfg)
//	cache := tieredcache.New[registry.Entry](cacheCfg, tieredcache.WithRedis[registry.Entry](rdb))
//
//	reg := registry.New(mgr, cache)
//	defs, _ := schema.LoadFile("schemas.yaml")
//	if err := reg.RegisterSchemas(defs...); err != nil {
//		log.Fatal(err)
//	}
//	defer reg.Shutdown(context.Background())
//
// One registry per process. Shutdown closes the connection manager and both
// cache tiers and leaves the registry permanently unusable.
package registry
