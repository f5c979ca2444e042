package registry

import (
	"context"
)

// Status is the tri-state health of the registry subsystem.
type Status string

const (
	// StatusHealthy means connections and both cache tiers are functional.
	StatusHealthy Status = "healthy"
	// StatusDegraded means tier 2 is unreachable but everything else works;
	// the system is correct, just colder under load.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means the connection subsystem cannot be queried.
	StatusUnhealthy Status = "unhealthy"
)

// Health is the itemized health report, suitable for liveness and readiness
// probes.
type Health struct {
	Status Status            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health checks each subsystem and rolls the results into one tri-state
// status. Tier-2 unreachability alone never makes the registry unhealthy.
func (r *Registry) Health(ctx context.Context) Health {
	checks := make(map[string]string, 4)

	if r.closed.Load() {
		checks["registry"] = "closed"
		return Health{Status: StatusUnhealthy, Checks: checks}
	}
	checks["registry"] = "ok"

	status := StatusHealthy
	if err := r.conns.Healthcheck()(ctx); err != nil {
		checks["connections"] = err.Error()
		status = StatusUnhealthy
	} else {
		checks["connections"] = "ok"
	}

	cacheStats := r.cache.Stats(ctx)
	checks["cache_tier1"] = "ok"
	if cacheStats.Tier2.Connected {
		checks["cache_tier2"] = "ok"
	} else {
		checks["cache_tier2"] = "unreachable"
		if status == StatusHealthy {
			status = StatusDegraded
		}
	}

	return Health{Status: status, Checks: checks}
}
