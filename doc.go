// Package tenantmodels provides the multi-tenant data-access materialization
// layer: given a tenant identifier, it produces ready-to-use data-model
// handles backed by an isolated per-tenant storage connection, minimizing
// repeated expensive setup through a two-tier cache with single-flight
// protection.
//
// The module is composed bottom-up from three components:
//
//   - tenantconn: one long-lived MongoDB connection per tenant, with idle
//     eviction and an explicit connection state machine.
//   - tieredcache: a bounded in-process LRU tier over a shared, best-effort
//     Redis tier that may be down without affecting correctness.
//   - registry: the schema catalogue and the per-tenant materialization
//     orchestrator external callers depend on.
//
// HTTP routing, authentication, request validation, and business CRUD live
// outside this module and consume it through three contracts: model handles
// per tenant (registry.Models), cache invalidation (registry.InvalidateTenant
// and friends), and health/statistics (registry.Health, registry.Stats).
//
// See the package documentation of pkg/registry for wiring the stack.
package tenantmodels
