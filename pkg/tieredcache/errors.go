package tieredcache

import "errors"

var (
	// ErrTier2Unavailable marks a failed tier-2 operation internally. It is
	// never returned from the public API: tier-2 failures downgrade reads to
	// misses and writes to tier-1-only.
	ErrTier2Unavailable = errors.New("tier-2 cache unavailable")

	// ErrCacheClosed is returned when the cache is used after Close.
	ErrCacheClosed = errors.New("tiered cache is closed")
)
