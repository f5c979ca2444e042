package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantmodels/pkg/schema"
	"github.com/dmitrymomot/tenantmodels/pkg/tenantconn"
	"github.com/dmitrymomot/tenantmodels/pkg/tieredcache"
)

// Registry orchestrates schema registration, per-tenant model materialization,
// cache population, and statistics. It is the single entry point external
// callers depend on.
//
// Construct exactly one Registry per process and pass it to whatever boundary
// layer needs it; there is no package-level instance. After Shutdown the
// registry is permanently unusable.
type Registry struct {
	id     uuid.UUID
	conns  *tenantconn.Manager
	cache  *tieredcache.Cache[Entry]
	logger *slog.Logger

	catMu     sync.RWMutex
	catalogue map[string]schema.Definition

	// locks serializes cold materialization per tenant. The map only grows
	// with tenant cardinality; CloseTenantConnection trims entries whose
	// lock is not held, mirroring connection eviction.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	counters counters
	closed   atomic.Bool
}

// Option configures the registry.
type Option func(*Registry)

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a registry on top of a connection manager and a tiered cache.
// The registry takes ownership of both: Shutdown closes them.
func New(conns *tenantconn.Manager, cache *tieredcache.Cache[Entry], opts ...Option) *Registry {
	r := &Registry{
		id:        uuid.New(),
		conns:     conns,
		cache:     cache,
		logger:    slog.Default(),
		catalogue: make(map[string]schema.Definition),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterSchema adds one logical model to the catalogue. Registration is
// additive and idempotent: registering an existing name overwrites it.
func (r *Registry) RegisterSchema(def schema.Definition) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}
	def = def.Normalize()
	if err := def.Validate(); err != nil {
		return errors.Join(ErrInvalidRegistration, err)
	}

	r.catMu.Lock()
	r.catalogue[def.Name] = def
	r.catMu.Unlock()

	r.logger.Debug("schema registered",
		slog.String("name", def.Name),
		slog.String("collection", def.Collection),
		slog.String("variant", def.Variant.String()),
	)
	return nil
}

// RegisterSchemas registers several definitions at once, typically the fixed
// catalogue at process start. All definitions are validated before any is
// stored, so a malformed catalogue registers nothing.
func (r *Registry) RegisterSchemas(defs ...schema.Definition) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}

	normalized := make([]schema.Definition, len(defs))
	for i, def := range defs {
		def = def.Normalize()
		if err := def.Validate(); err != nil {
			return errors.Join(ErrInvalidRegistration, err)
		}
		normalized[i] = def
	}

	r.catMu.Lock()
	for _, def := range normalized {
		r.catalogue[def.Name] = def
	}
	r.catMu.Unlock()
	return nil
}

// UnregisterSchema removes a logical model from the catalogue. Removal
// invalidates the whole cache: cached metadata referencing a vanished schema
// is unsafe to reconstruct from.
func (r *Registry) UnregisterSchema(ctx context.Context, name string) {
	if r.closed.Load() {
		return
	}

	r.catMu.Lock()
	_, existed := r.catalogue[name]
	delete(r.catalogue, name)
	r.catMu.Unlock()

	if existed {
		r.InvalidateAll(ctx)
		r.logger.Info("schema unregistered, cache invalidated", slog.String("name", name))
	}
}

// SchemaNames returns the registered logical names, unordered.
func (r *Registry) SchemaNames() []string {
	r.catMu.RLock()
	defer r.catMu.RUnlock()
	names := make([]string, 0, len(r.catalogue))
	for name := range r.catalogue {
		names = append(names, name)
	}
	return names
}

// Models returns the tenant's full name-to-handle mapping.
//
// Warm path: a cache hit in either tier is turned back into live handles by
// binding each cached model name against the tenant's connection, skipping
// names no longer in the catalogue. Cold path: the per-tenant lock is taken,
// the cache re-checked, and only then is the expensive sequence run: one
// connection, every registered schema bound, one cache write. Concurrent cold
// callers for the same tenant collapse into a single materialization.
func (r *Registry) Models(ctx context.Context, tenantID string) (map[string]*Model, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	key := r.cache.Key("models", tenantID)

	if models, ok, err := r.fromCache(ctx, tenantID, key); err != nil {
		return nil, err
	} else if ok {
		return models, nil
	}

	lock := r.tenantLock(tenantID)
	lock.Lock()
	r.counters.activeLocks.Add(1)
	defer func() {
		r.counters.activeLocks.Add(-1)
		lock.Unlock()
	}()

	// Double-check: another caller may have materialized while we waited.
	// Only a miss that survives it counts, so single-flight losers do not
	// inflate the miss counter.
	if models, ok, err := r.fromCache(ctx, tenantID, key); err != nil {
		return nil, err
	} else if ok {
		return models, nil
	}
	r.counters.misses.Add(1)

	return r.materialize(ctx, tenantID, key)
}

// fromCache attempts a cache read and handle reconstruction. The bool result
// reports whether the cache served the request.
func (r *Registry) fromCache(ctx context.Context, tenantID, key string) (map[string]*Model, bool, error) {
	entry, tier := r.cache.Get(ctx, key)
	if tier == tieredcache.TierNone {
		return nil, false, nil
	}

	models, err := r.reconstruct(ctx, tenantID, entry)
	if err != nil {
		r.counters.errors.Add(1)
		return nil, false, err
	}

	if tier == tieredcache.Tier1 {
		r.counters.tier1Hits.Add(1)
	} else {
		r.counters.tier2Hits.Add(1)
	}
	return models, true, nil
}

// reconstruct rebuilds handles from cached metadata: one connection fetch,
// then a bind per cached name still present in the catalogue. Binding is a
// no-op for names the connection has already bound, so a warm tenant costs no
// storage I/O.
func (r *Registry) reconstruct(ctx context.Context, tenantID string, entry Entry) (map[string]*Model, error) {
	conn, err := r.conns.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	models := make(map[string]*Model, len(entry.Models))
	for name := range entry.Models {
		def, ok := r.lookup(name)
		if !ok {
			// Schema vanished since the entry was written; the handle
			// cannot be rebuilt safely, so it is dropped from the result.
			continue
		}
		if err := conn.Bind(ctx, def); err != nil {
			return nil, errors.Join(ErrMaterializationFailed, err)
		}
		models[name] = &Model{Name: name, Collection: def.Collection, Schema: def, conn: conn}
	}
	return models, nil
}

// materialize runs the cold path. Must be called with the tenant lock held.
// The cache entry is written only after every schema bound, so a failed
// materialization leaves no partially correct entry behind.
func (r *Registry) materialize(ctx context.Context, tenantID, key string) (map[string]*Model, error) {
	// A caller that times out mid-flight must not abort the shared cold path;
	// the finished entry still warms the cache for everyone queued behind it.
	ctx = context.WithoutCancel(ctx)

	conn, err := r.conns.Get(ctx, tenantID)
	if err != nil {
		r.counters.errors.Add(1)
		return nil, err
	}

	defs := r.snapshot()
	models := make(map[string]*Model, len(defs))
	meta := make(map[string]ModelMeta, len(defs))
	for name, def := range defs {
		if err := conn.Bind(ctx, def); err != nil {
			r.counters.errors.Add(1)
			return nil, errors.Join(ErrMaterializationFailed, err)
		}
		models[name] = &Model{Name: name, Collection: def.Collection, Schema: def, conn: conn}
		meta[name] = ModelMeta{Name: name, Collection: def.Collection, Registered: true}
	}

	r.counters.materializations.Add(1)
	r.cache.Set(ctx, key, Entry{
		TenantID:  tenantID,
		CreatedAt: time.Now(),
		Models:    meta,
	})

	r.logger.Info("tenant models materialized",
		slog.String("tenant_id", tenantID),
		slog.Int("models", len(models)),
	)
	return models, nil
}

// Model returns a single model handle for the tenant. A name missing from
// the catalogue is auto-registered with the generic fallback shape first, and
// the tenant's cache entry is invalidated so the next materialization picks
// the new schema up.
func (r *Registry) Model(ctx context.Context, tenantID, name string) (*Model, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	if _, ok := r.lookup(name); !ok {
		if err := r.RegisterSchema(schema.Fallback(name)); err != nil {
			r.counters.errors.Add(1)
			return nil, err
		}
		r.InvalidateTenant(ctx, tenantID)
	}

	models, err := r.Models(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m, ok := models[name]
	if !ok {
		r.counters.errors.Add(1)
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	return m, nil
}

// InvalidateTenant drops the tenant's cached materialization. The next Models
// call for that tenant runs cold.
func (r *Registry) InvalidateTenant(ctx context.Context, tenantID string) {
	r.cache.Delete(ctx, r.cache.Key("models", tenantID))
}

// InvalidateAll drops every cached materialization in both tiers. Mandatory
// after catalogue changes; also the hammer for out-of-band data migrations.
func (r *Registry) InvalidateAll(ctx context.Context) {
	r.cache.Clear(ctx)
}

// CloseTenantConnection closes the tenant's connection and invalidates its
// cache entry together: a stale connection must never be served from a warm
// cache. The tenant's materialization lock is trimmed too when nobody holds
// it, keeping lock-map growth in step with connection eviction.
func (r *Registry) CloseTenantConnection(ctx context.Context, tenantID string) {
	if r.closed.Load() {
		return
	}
	r.conns.CloseConn(ctx, tenantID)
	r.InvalidateTenant(ctx, tenantID)

	r.lockMu.Lock()
	if lock, ok := r.locks[tenantID]; ok && lock.TryLock() {
		lock.Unlock()
		delete(r.locks, tenantID)
	}
	r.lockMu.Unlock()
}

// Shutdown closes connections and both cache tiers and renders the registry
// unusable. Intended to be called once during process termination; later
// calls are no-ops.
func (r *Registry) Shutdown(ctx context.Context) {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.lockMu.Lock()
	r.locks = make(map[string]*sync.Mutex)
	r.lockMu.Unlock()

	r.conns.Close(ctx)
	if err := r.cache.Close(ctx); err != nil {
		r.logger.Warn("cache close failed during shutdown", slog.Any("error", err))
	}

	r.logger.Info("model registry shut down", slog.String("instance_id", r.id.String()))
}

func (r *Registry) lookup(name string) (schema.Definition, bool) {
	r.catMu.RLock()
	defer r.catMu.RUnlock()
	def, ok := r.catalogue[name]
	return def, ok
}

func (r *Registry) snapshot() map[string]schema.Definition {
	r.catMu.RLock()
	defer r.catMu.RUnlock()
	defs := make(map[string]schema.Definition, len(r.catalogue))
	for name, def := range r.catalogue {
		defs[name] = def
	}
	return defs
}

// tenantLock returns the tenant's materialization lock, creating it on first
// use. Re-requesting a lock always returns the same object.
func (r *Registry) tenantLock(tenantID string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	lock, ok := r.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[tenantID] = lock
	}
	return lock
}
