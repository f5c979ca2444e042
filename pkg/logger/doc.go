// Package logger builds configured slog loggers for embedders of this
// module.
//
// Every component here accepts a *slog.Logger option and falls back to
// slog.Default(), so the typical wiring is one call at startup:
//
//	log := logger.New(logger.WithProduction("tenantmodels"))
//	logger.SetAsDefault(log)
//
// or, per component:
//
//	mgr, err := tenantconn.New(cfg, tenantconn.WithLogger(log))
//
// The attr helpers keep the well-known keys (tenant_id, model, tier)
// consistent across packages.
package logger
