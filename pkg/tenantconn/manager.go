package tenantconn

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// tenantIDRE is the accepted tenant identifier format. It doubles as
// injection protection since the identifier becomes part of a database name.
var tenantIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Manager maps tenant identifiers to live connections, enforcing one
// connection per tenant and reclaiming idle ones with a background sweep.
type Manager struct {
	cfg    Config
	dialer Dialer
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	conns  map[string]*Connection
	closed bool

	sweepDisabled bool
	stopSweep     chan struct{}
	sweepDone     chan struct{}
}

// New creates a connection manager. Without WithDialer it dials MongoDB using
// the configuration, so ConnectionURL must be set in that case.
func New(cfg Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		conns:  make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		if cfg.ConnectionURL == "" {
			return nil, errors.Join(ErrConnectionFailed, errors.New("connection URL is required"))
		}
		m.dialer = NewMongoDialer(cfg)
	}

	if !m.sweepDisabled && cfg.SweepInterval > 0 {
		m.stopSweep = make(chan struct{})
		m.sweepDone = make(chan struct{})
		go m.sweep()
	}
	return m, nil
}

// Get returns the tenant's live connection, creating one if needed.
//
// A connected connection is returned immediately with its last-used timestamp
// refreshed. If a dial is already in flight for the tenant, the caller waits
// for it and shares its outcome. A missing, disconnected, or errored
// connection is replaced by a fresh dial bounded by the connect timeout.
func (m *Manager) Get(ctx context.Context, tenantID string) (*Connection, error) {
	if !tenantIDRE.MatchString(tenantID) {
		return nil, ErrInvalidTenantID
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}

	if c, ok := m.conns[tenantID]; ok {
		switch c.State() {
		case StateConnected:
			m.mu.Unlock()
			c.touch()
			return c, nil
		case StateConnecting:
			m.mu.Unlock()
			conn, err := c.wait(ctx)
			if err != nil {
				return nil, classifyDialErr(err)
			}
			return conn, nil
		default:
			// Disconnected or Error: replace below.
		}
	}

	c := newConnection(tenantID, m.now, m.logger)
	m.conns[tenantID] = c
	m.mu.Unlock()

	// The dial is bounded by the connect timeout only. A caller that gives up
	// early must not abort work other callers share: the dial runs to
	// completion and the finished connection stays in the map for them.
	dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := m.dialer.Dial(dialCtx, m.cfg.DatabasePrefix+tenantID)
	if err != nil {
		wrapped := classifyDialErr(err)
		c.resolveError(wrapped)
		m.logger.Error("tenant dial failed",
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
		return nil, wrapped
	}

	if !c.resolveConnected(conn) {
		// The tenant was closed while the dial was in flight; the resolver
		// already released the fresh transport.
		return nil, ErrNotConnected
	}
	m.logger.Info("tenant connection established", slog.String("tenant_id", tenantID))
	return c, nil
}

// classifyDialErr maps raw dial failures onto the package error taxonomy.
// Already-classified errors pass through unchanged.
func classifyDialErr(err error) error {
	switch {
	case errors.Is(err, ErrConnectionTimeout), errors.Is(err, ErrConnectionFailed):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrConnectionTimeout, err)
	default:
		return errors.Join(ErrConnectionFailed, err)
	}
}

// CloseConn closes and removes the tenant's connection. It is idempotent and
// best-effort: a missing tenant is a no-op and close failures are logged.
func (m *Manager) CloseConn(ctx context.Context, tenantID string) {
	m.mu.Lock()
	c, ok := m.conns[tenantID]
	if ok {
		delete(m.conns, tenantID)
	}
	m.mu.Unlock()

	if ok {
		c.close(ctx)
		m.logger.Info("tenant connection closed", slog.String("tenant_id", tenantID))
	}
}

// CloseIdle closes every connection whose idle duration exceeds the
// configured idle timeout and returns how many were closed. A connection
// touched after the scan snapshot keeps its refreshed timestamp and is left
// alone, because last-used is read under the same lock that refreshes it.
func (m *Manager) CloseIdle(ctx context.Context) int {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0
	}
	var stale []*Connection
	for tenantID, c := range m.conns {
		if c.State() == StateConnecting {
			continue
		}
		if c.IdleFor() > m.cfg.IdleTimeout {
			stale = append(stale, c)
			delete(m.conns, tenantID)
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		c.close(ctx)
		m.logger.Info("idle tenant connection evicted",
			slog.String("tenant_id", c.TenantID()),
		)
	}
	return len(stale)
}

// ConnStats is a read-only snapshot of one tenant connection.
type ConnStats struct {
	TenantID  string        `json:"tenant_id"`
	State     State         `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	LastUsed  time.Time     `json:"last_used"`
	Idle      time.Duration `json:"idle"`
}

// ManagerStats is a read-only snapshot of the whole manager.
type ManagerStats struct {
	Total       int         `json:"total"`
	Connections []ConnStats `json:"connections"`
}

// Stats returns a snapshot of all tracked connections.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ManagerStats{
		Total:       len(m.conns),
		Connections: make([]ConnStats, 0, len(m.conns)),
	}
	for _, c := range m.conns {
		stats.Connections = append(stats.Connections, ConnStats{
			TenantID:  c.TenantID(),
			State:     c.State(),
			CreatedAt: c.CreatedAt(),
			LastUsed:  c.LastUsed(),
			Idle:      c.IdleFor(),
		})
	}
	return stats
}

// Healthcheck returns a health check function that pings every connected
// tenant connection, suitable for readiness probes.
func (m *Manager) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrManagerClosed
		}
		conns := make([]*Connection, 0, len(m.conns))
		for _, c := range m.conns {
			conns = append(conns, c)
		}
		m.mu.Unlock()

		var errs []error
		for _, c := range conns {
			if c.State() != StateConnected {
				continue
			}
			conn := c.Conn()
			if conn == nil {
				continue
			}
			if err := conn.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(append([]error{ErrHealthcheckFailed}, errs...)...)
		}
		return nil
	}
}

// Close stops the idle sweep and closes every tracked connection
// concurrently, returning once all attempts complete. Per-connection close
// failures are logged, never escalated. Safe to call more than once.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conns := m.conns
	m.conns = make(map[string]*Connection)
	m.mu.Unlock()

	if m.stopSweep != nil {
		close(m.stopSweep)
		<-m.sweepDone
	}

	var wg sync.WaitGroup
	wg.Add(len(conns))
	for _, c := range conns {
		go func(c *Connection) {
			defer wg.Done()
			c.close(ctx)
		}(c)
	}
	wg.Wait()

	m.logger.Info("connection manager closed", slog.Int("connections", len(conns)))
}

// sweep runs the periodic idle eviction loop.
func (m *Manager) sweep() {
	defer close(m.sweepDone)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CloseIdle(context.Background()); n > 0 {
				m.logger.Debug("idle sweep complete", slog.Int("closed", n))
			}
		case <-m.stopSweep:
			return
		}
	}
}
