package tieredcache

import "time"

// Config represents the configuration for the tiered cache.
type Config struct {
	Prefix              string        `env:"CACHE_PREFIX" envDefault:"tenantmodels"`        // Prefix namespaces every key this cache writes in either tier.
	Tier1MaxEntries     int           `env:"CACHE_T1_MAX_ENTRIES" envDefault:"1000"`        // Tier1MaxEntries bounds the in-process cache entry count.
	Tier1MaxBytes       int64         `env:"CACHE_T1_MAX_BYTES" envDefault:"33554432"`      // Tier1MaxBytes bounds the aggregate serialized size held in process (32 MiB).
	Tier1TTL            time.Duration `env:"CACHE_T1_TTL" envDefault:"5m"`                  // Tier1TTL is the in-process entry lifetime.
	Tier1CleanupEvery   time.Duration `env:"CACHE_T1_CLEANUP_INTERVAL" envDefault:"1m"`     // Tier1CleanupEvery is how often expired tier-1 entries are swept.
	Tier2TTL            time.Duration `env:"CACHE_T2_TTL" envDefault:"30m"`                 // Tier2TTL is the shared-cache entry lifetime.
	Tier2CommandTimeout time.Duration `env:"CACHE_T2_COMMAND_TIMEOUT" envDefault:"250ms"`   // Tier2CommandTimeout bounds each individual tier-2 command.
}

// withDefaults fills zero fields so a partially constructed Config behaves
// like one loaded from the environment.
func (cfg Config) withDefaults() Config {
	if cfg.Prefix == "" {
		cfg.Prefix = "tenantmodels"
	}
	if cfg.Tier1MaxEntries <= 0 {
		cfg.Tier1MaxEntries = 1000
	}
	if cfg.Tier1MaxBytes <= 0 {
		cfg.Tier1MaxBytes = 32 << 20
	}
	if cfg.Tier1TTL <= 0 {
		cfg.Tier1TTL = 5 * time.Minute
	}
	if cfg.Tier1CleanupEvery <= 0 {
		cfg.Tier1CleanupEvery = time.Minute
	}
	if cfg.Tier2TTL <= 0 {
		cfg.Tier2TTL = 30 * time.Minute
	}
	if cfg.Tier2CommandTimeout <= 0 {
		cfg.Tier2CommandTimeout = 250 * time.Millisecond
	}
	return cfg
}
