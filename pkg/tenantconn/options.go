package tenantconn

import (
	"log/slog"
	"time"
)

// Option configures the manager.
type Option func(*Manager)

// WithDialer replaces the default mongo dialer. Nil dialers are ignored.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithoutSweep disables the background idle sweep; CloseIdle remains callable
// on demand. Intended for embedders that schedule sweeps themselves.
func WithoutSweep() Option {
	return func(m *Manager) {
		m.sweepDisabled = true
	}
}
