package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id string) slog.Attr {
	return slog.String("tenant_id", id)
}

// ModelName records the logical model name under the key "model".
func ModelName(name string) slog.Attr {
	return slog.String("model", name)
}

// CacheTier records which cache tier served a read under the key "tier".
func CacheTier(tier string) slog.Attr {
	return slog.String("tier", tier)
}
