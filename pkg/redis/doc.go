// Package redis provides the connection helper for the shared tier-2 cache.
//
// The tier-2 Redis is a pure performance optimization: the system stays
// correct without it, so connection establishment here is deliberately
// forgiving: exponential backoff with a configurable cap, bounded by an
// overall connect timeout. Callers that cannot reach Redis at startup may
// choose to run tier-1 only rather than fail.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Warn("tier-2 cache unavailable, running tier-1 only", "error", err)
//	}
//
// Wire the health check into readiness probes with Healthcheck(client).
package redis
