package registry

import (
	"context"
	"sync/atomic"

	"github.com/dmitrymomot/tenantmodels/pkg/tenantconn"
	"github.com/dmitrymomot/tenantmodels/pkg/tieredcache"
)

// counters holds the registry's atomic operation counters.
type counters struct {
	tier1Hits        atomic.Int64
	tier2Hits        atomic.Int64
	misses           atomic.Int64
	materializations atomic.Int64
	errors           atomic.Int64
	activeLocks      atomic.Int64
}

// Stats merges registry counters with cache and connection snapshots.
type Stats struct {
	InstanceID       string                  `json:"instance_id"`
	Tier1Hits        int64                   `json:"tier1_hits"`
	Tier2Hits        int64                   `json:"tier2_hits"`
	Misses           int64                   `json:"misses"`
	Materializations int64                   `json:"materializations"`
	Errors           int64                   `json:"errors"`
	ActiveLocks      int64                   `json:"active_locks"`
	TenantLocks      int                     `json:"tenant_locks"`
	RegisteredModels int                     `json:"registered_models"`
	Cache            tieredcache.Stats       `json:"cache"`
	Connections      tenantconn.ManagerStats `json:"connections"`
}

// Stats returns a read-only snapshot of the whole subsystem.
func (r *Registry) Stats(ctx context.Context) Stats {
	r.lockMu.Lock()
	tenantLocks := len(r.locks)
	r.lockMu.Unlock()

	r.catMu.RLock()
	registered := len(r.catalogue)
	r.catMu.RUnlock()

	return Stats{
		InstanceID:       r.id.String(),
		Tier1Hits:        r.counters.tier1Hits.Load(),
		Tier2Hits:        r.counters.tier2Hits.Load(),
		Misses:           r.counters.misses.Load(),
		Materializations: r.counters.materializations.Load(),
		Errors:           r.counters.errors.Load(),
		ActiveLocks:      r.counters.activeLocks.Load(),
		TenantLocks:      tenantLocks,
		RegisteredModels: registered,
		Cache:            r.cache.Stats(ctx),
		Connections:      r.conns.Stats(),
	}
}
