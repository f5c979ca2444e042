package tenantconn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/tenantmodels/pkg/schema"
)

// Conn is the transport handle a tenant connection wraps. The mongo-backed
// implementation is the default; tests substitute their own through Dialer.
type Conn interface {
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// EnsureIndexes creates the indexes a schema declares on the backing
	// collection. It must be safe to call repeatedly.
	EnsureIndexes(ctx context.Context, collection string, indexes []schema.Index) error
	// Close releases the connection.
	Close(ctx context.Context) error
}

// Dialer opens a transport connection to a tenant-scoped database namespace.
type Dialer interface {
	Dial(ctx context.Context, database string) (Conn, error)
}

// DialerFunc is an adapter to allow ordinary functions as Dialers.
type DialerFunc func(ctx context.Context, database string) (Conn, error)

// Dial calls the function.
func (f DialerFunc) Dial(ctx context.Context, database string) (Conn, error) {
	return f(ctx, database)
}

// Connection is one live connection to a tenant-isolated storage namespace.
// The manager guarantees at most one Connection per tenant identifier; a
// Connection in a terminal state is replaced wholesale rather than revived.
type Connection struct {
	tenantID  string
	createdAt time.Time

	mu       sync.Mutex
	state    State
	lastUsed time.Time
	conn     Conn
	dialErr  error
	closed   bool
	bound    map[string]struct{}

	// ready is closed when the in-flight dial resolves, successfully or not.
	ready chan struct{}

	now    func() time.Time
	logger *slog.Logger
}

func newConnection(tenantID string, now func() time.Time, logger *slog.Logger) *Connection {
	t := now()
	return &Connection{
		tenantID:  tenantID,
		createdAt: t,
		state:     StateConnecting,
		lastUsed:  t,
		bound:     make(map[string]struct{}),
		ready:     make(chan struct{}),
		now:       now,
		logger:    logger,
	}
}

// TenantID returns the tenant this connection belongs to.
func (c *Connection) TenantID() string { return c.tenantID }

// CreatedAt returns when the connection object was created.
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastUsed returns the last-used timestamp.
func (c *Connection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// IdleFor returns how long the connection has gone unused.
func (c *Connection) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.lastUsed)
}

// Conn returns the underlying transport handle, or nil while connecting or
// after the connection failed or closed.
func (c *Connection) Conn() Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Bind ensures the schema's indexes exist on this connection's namespace.
// Binding is idempotent per logical name for the lifetime of the connection:
// the first call does the work, later calls only refresh the last-used
// timestamp. The bound set dies with the connection, so a replaced connection
// re-binds from scratch.
func (c *Connection) Bind(ctx context.Context, def schema.Definition) error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if _, ok := c.bound[def.Name]; ok {
		c.lastUsed = c.now()
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.mu.Unlock()

	if err := conn.EnsureIndexes(ctx, def.Collection, def.Indexes); err != nil {
		return err
	}

	c.mu.Lock()
	c.bound[def.Name] = struct{}{}
	c.lastUsed = c.now()
	c.mu.Unlock()
	return nil
}

// touch refreshes the last-used timestamp.
func (c *Connection) touch() {
	c.mu.Lock()
	c.lastUsed = c.now()
	c.mu.Unlock()
}

// transition moves the connection to a new state if the edge is legal,
// logging the change. Must be called with c.mu held.
func (c *Connection) transitionLocked(to State) bool {
	if !canTransition(c.state, to) {
		return false
	}
	c.logger.Debug("tenant connection state change",
		slog.String("tenant_id", c.tenantID),
		slog.String("from", c.state.String()),
		slog.String("to", to.String()),
	)
	c.state = to
	return true
}

// resolveConnected completes the in-flight dial. If the connection was closed
// while the dial was in flight, the fresh transport is released immediately
// instead of stored, waiters observe ErrNotConnected, and false is returned.
func (c *Connection) resolveConnected(conn Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.dialErr = ErrNotConnected
		c.mu.Unlock()
		close(c.ready)

		if err := conn.Close(context.Background()); err != nil {
			c.logger.Warn("failed to close tenant connection",
				slog.String("tenant_id", c.tenantID),
				slog.Any("error", err),
			)
		}
		return false
	}
	c.conn = conn
	c.transitionLocked(StateConnected)
	c.lastUsed = c.now()
	c.mu.Unlock()
	close(c.ready)
	return true
}

// resolveError completes the in-flight dial with an error; waiters observe it.
func (c *Connection) resolveError(err error) {
	c.mu.Lock()
	c.dialErr = err
	c.transitionLocked(StateError)
	c.mu.Unlock()
	close(c.ready)
}

// wait blocks until the in-flight dial resolves or ctx is done, then returns
// the connection or the dial error.
func (c *Connection) wait(ctx context.Context) (*Connection, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnected {
		c.lastUsed = c.now()
		return c, nil
	}
	return nil, c.dialErr
}

// close shuts down the transport, best-effort. Safe on any state; closing a
// connection whose dial is still in flight makes the resolver release the
// transport as soon as the dial returns.
func (c *Connection) close(ctx context.Context) {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.transitionLocked(StateDisconnected)
	c.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(ctx); err != nil {
		c.logger.Warn("failed to close tenant connection",
			slog.String("tenant_id", c.tenantID),
			slog.Any("error", err),
		)
	}
}
