package tenantconn_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantmodels/pkg/schema"
	"github.com/dmitrymomot/tenantmodels/pkg/tenantconn"
)

// fakeConn implements tenantconn.Conn without any real transport.
type fakeConn struct {
	database string
	mu       sync.Mutex
	closed   bool
	pingErr  error
	indexed  map[string]int
}

func newFakeConn(database string) *fakeConn {
	return &fakeConn{database: database, indexed: make(map[string]int)}
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) EnsureIndexes(ctx context.Context, collection string, indexes []schema.Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexed[collection]++
	return nil
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer counts dials and can be told to fail, block, or delay.
type fakeDialer struct {
	dials   atomic.Int64
	dialErr error
	delay   time.Duration

	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, database string) (tenantconn.Conn, error) {
	d.dials.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	conn := newFakeConn(database)
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func testDef(name string) schema.Definition {
	return schema.Definition{Name: name}.Normalize()
}

func newManager(t *testing.T, cfg tenantconn.Config, opts ...tenantconn.Option) *tenantconn.Manager {
	t.Helper()
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	opts = append([]tenantconn.Option{tenantconn.WithoutSweep()}, opts...)
	m, err := tenantconn.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func TestManager_Get(t *testing.T) {
	t.Parallel()

	t.Run("creates connection on first access", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{DatabasePrefix: "tenant_"}, tenantconn.WithDialer(dialer))

		conn, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "acme", conn.TenantID())
		assert.Equal(t, tenantconn.StateConnected, conn.State())
		assert.Equal(t, int64(1), dialer.dials.Load())
		assert.Equal(t, "tenant_acme", dialer.conns[0].database)
	})

	t.Run("reuses connected connection without dialing", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		first, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)
		second, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int64(1), dialer.dials.Load())
	})

	t.Run("different tenants get different connections", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		a, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)
		b, err := m.Get(context.Background(), "globex")
		require.NoError(t, err)

		assert.NotSame(t, a, b)
		assert.Equal(t, int64(2), dialer.dials.Load())
	})

	t.Run("rejects invalid tenant identifiers", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(&fakeDialer{}))

		for _, id := range []string{"", "acme corp", "a/b", "a.b", "тенант"} {
			_, err := m.Get(context.Background(), id)
			assert.ErrorIs(t, err, tenantconn.ErrInvalidTenantID, "id=%q", id)
		}
	})

	t.Run("dial failure surfaces as connection error", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{dialErr: errors.New("boom")}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		_, err := m.Get(context.Background(), "acme")
		assert.ErrorIs(t, err, tenantconn.ErrConnectionFailed)
	})

	t.Run("dial timeout surfaces as timeout error", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{delay: time.Second}
		m := newManager(t, tenantconn.Config{ConnectTimeout: 20 * time.Millisecond}, tenantconn.WithDialer(dialer))

		_, err := m.Get(context.Background(), "acme")
		assert.ErrorIs(t, err, tenantconn.ErrConnectionTimeout)
	})

	t.Run("failed connection is replaced on next access", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{dialErr: errors.New("boom")}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		_, err := m.Get(context.Background(), "acme")
		require.Error(t, err)

		dialer.dialErr = nil
		conn, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, tenantconn.StateConnected, conn.State())
		assert.Equal(t, int64(2), dialer.dials.Load())
	})

	t.Run("closed manager rejects access", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(&fakeDialer{}))
		m.Close(context.Background())

		_, err := m.Get(context.Background(), "acme")
		assert.ErrorIs(t, err, tenantconn.ErrManagerClosed)
	})
}

func TestManager_ConcurrentGet(t *testing.T) {
	t.Parallel()

	t.Run("concurrent callers share one dial", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{delay: 50 * time.Millisecond}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		const callers = 20
		var wg sync.WaitGroup
		wg.Add(callers)

		conns := make([]*tenantconn.Connection, callers)
		errs := make([]error, callers)
		for i := range callers {
			go func(i int) {
				defer wg.Done()
				conns[i], errs[i] = m.Get(context.Background(), "acme")
			}(i)
		}
		wg.Wait()

		for i := range callers {
			require.NoError(t, errs[i])
			assert.Same(t, conns[0], conns[i])
		}
		assert.Equal(t, int64(1), dialer.dials.Load())
	})

	t.Run("caller deadline does not abort the dial", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{delay: 80 * time.Millisecond}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		// The dial keeps running past the caller's deadline and the finished
		// connection is kept for later callers.
		conn, err := m.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, tenantconn.StateConnected, conn.State())

		again, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)
		assert.Same(t, conn, again)
		assert.Equal(t, int64(1), dialer.dials.Load())
	})

	t.Run("waiter times out independently while the dial continues", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{delay: 80 * time.Millisecond}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := m.Get(context.Background(), "acme")
			assert.NoError(t, err)
		}()

		time.Sleep(20 * time.Millisecond)

		waiterCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := m.Get(waiterCtx, "acme")
		assert.ErrorIs(t, err, tenantconn.ErrConnectionTimeout)

		// The impatient waiter changed nothing for the dialing caller.
		<-done
		_, err = m.Get(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, int64(1), dialer.dials.Load())
	})

	t.Run("waiters observe dial failure", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{delay: 50 * time.Millisecond, dialErr: errors.New("boom")}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		const callers = 10
		var wg sync.WaitGroup
		wg.Add(callers)

		var failures atomic.Int64
		for range callers {
			go func() {
				defer wg.Done()
				if _, err := m.Get(context.Background(), "acme"); err != nil {
					assert.ErrorIs(t, err, tenantconn.ErrConnectionFailed)
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(callers), failures.Load())
		assert.Equal(t, int64(1), dialer.dials.Load())
	})
}

func TestManager_CloseConn(t *testing.T) {
	t.Parallel()

	t.Run("closes and removes the connection", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		_, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)

		m.CloseConn(context.Background(), "acme")

		assert.True(t, dialer.conns[0].isClosed())
		assert.Equal(t, 0, m.Stats().Total)
	})

	t.Run("close racing an in-flight dial releases the transport", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{delay: 80 * time.Millisecond}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		result := make(chan error, 1)
		go func() {
			_, err := m.Get(context.Background(), "acme")
			result <- err
		}()

		time.Sleep(20 * time.Millisecond)
		m.CloseConn(context.Background(), "acme")

		assert.ErrorIs(t, <-result, tenantconn.ErrNotConnected)
		assert.Equal(t, 0, m.Stats().Total)

		// The transport that finished dialing after the close was released,
		// not orphaned.
		require.Len(t, dialer.conns, 1)
		assert.True(t, dialer.conns[0].isClosed())
	})

	t.Run("no-op for unknown tenant", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(&fakeDialer{}))
		m.CloseConn(context.Background(), "ghost")
		assert.Equal(t, 0, m.Stats().Total)
	})
}

func TestManager_CloseIdle(t *testing.T) {
	t.Parallel()

	t.Run("closes only connections past the idle timeout", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		var clockMu sync.Mutex
		clock := func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return now
		}
		advance := func(d time.Duration) {
			clockMu.Lock()
			now = now.Add(d)
			clockMu.Unlock()
		}

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{IdleTimeout: 10 * time.Minute},
			tenantconn.WithDialer(dialer), tenantconn.WithClock(clock))

		_, err := m.Get(context.Background(), "stale")
		require.NoError(t, err)

		advance(15 * time.Minute)

		// Refreshing "fresh" just before the sweep must protect it.
		_, err = m.Get(context.Background(), "fresh")
		require.NoError(t, err)

		closed := m.CloseIdle(context.Background())
		assert.Equal(t, 1, closed)

		stats := m.Stats()
		require.Equal(t, 1, stats.Total)
		assert.Equal(t, "fresh", stats.Connections[0].TenantID)
	})

	t.Run("refreshed connection survives the sweep", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		var clockMu sync.Mutex
		clock := func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return now
		}

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{IdleTimeout: 10 * time.Minute},
			tenantconn.WithDialer(dialer), tenantconn.WithClock(clock))

		_, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)

		clockMu.Lock()
		now = now.Add(15 * time.Minute)
		clockMu.Unlock()

		// Use refreshes last-used, so the sweep sees zero idle time.
		_, err = m.Get(context.Background(), "acme")
		require.NoError(t, err)

		assert.Equal(t, 0, m.CloseIdle(context.Background()))
	})
}

func TestManager_Stats(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

	_, err := m.Get(context.Background(), "acme")
	require.NoError(t, err)
	_, err = m.Get(context.Background(), "globex")
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 2, stats.Total)
	require.Len(t, stats.Connections, 2)
	for _, cs := range stats.Connections {
		assert.Equal(t, tenantconn.StateConnected, cs.State)
		assert.False(t, cs.LastUsed.IsZero())
	}
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	t.Run("closes all connections", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		for _, id := range []string{"a", "b", "c"} {
			_, err := m.Get(context.Background(), id)
			require.NoError(t, err)
		}

		m.Close(context.Background())

		for _, conn := range dialer.conns {
			assert.True(t, conn.isClosed())
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(&fakeDialer{}))
		m.Close(context.Background())
		m.Close(context.Background())
	})
}

func TestManager_Healthcheck(t *testing.T) {
	t.Parallel()

	t.Run("healthy when pings succeed", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		_, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)

		assert.NoError(t, m.Healthcheck()(context.Background()))
	})

	t.Run("reports ping failures", func(t *testing.T) {
		t.Parallel()

		dialer := &fakeDialer{}
		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

		_, err := m.Get(context.Background(), "acme")
		require.NoError(t, err)

		dialer.conns[0].mu.Lock()
		dialer.conns[0].pingErr = errors.New("down")
		dialer.conns[0].mu.Unlock()

		assert.ErrorIs(t, m.Healthcheck()(context.Background()), tenantconn.ErrHealthcheckFailed)
	})

	t.Run("fails after close", func(t *testing.T) {
		t.Parallel()

		m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(&fakeDialer{}))
		m.Close(context.Background())

		assert.ErrorIs(t, m.Healthcheck()(context.Background()), tenantconn.ErrManagerClosed)
	})
}

func TestConnection_Bind(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	m := newManager(t, tenantconn.Config{}, tenantconn.WithDialer(dialer))

	conn, err := m.Get(context.Background(), "acme")
	require.NoError(t, err)

	def := schema.Definition{Name: "Project", Collection: "projects"}.Normalize()

	require.NoError(t, conn.Bind(context.Background(), def))
	require.NoError(t, conn.Bind(context.Background(), def))

	// Second bind reuses the existing binding: indexes are ensured once.
	assert.Equal(t, 1, dialer.conns[0].indexed["projects"])
}
