package tieredcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantmodels/pkg/tieredcache"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTier1Only(t *testing.T) *tieredcache.Cache[payload] {
	t.Helper()
	c := tieredcache.New[payload](tieredcache.Config{Prefix: "test"})
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func newWithRedis(t *testing.T, srv *miniredis.Miniredis) *tieredcache.Cache[payload] {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := tieredcache.New[payload](
		tieredcache.Config{Prefix: "test"},
		tieredcache.WithRedis[payload](client),
	)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestCache_Tier1Only(t *testing.T) {
	t.Parallel()

	t.Run("set then get hits tier 1", func(t *testing.T) {
		t.Parallel()

		c := newTier1Only(t)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{Name: "x", Count: 1})

		v, tier := c.Get(ctx, c.Key("a"))
		assert.Equal(t, tieredcache.Tier1, tier)
		assert.Equal(t, payload{Name: "x", Count: 1}, v)
	})

	t.Run("miss on absent key", func(t *testing.T) {
		t.Parallel()

		c := newTier1Only(t)

		_, tier := c.Get(context.Background(), c.Key("missing"))
		assert.Equal(t, tieredcache.TierNone, tier)
	})

	t.Run("delete removes", func(t *testing.T) {
		t.Parallel()

		c := newTier1Only(t)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{Name: "x"})
		c.Delete(ctx, c.Key("a"))

		_, tier := c.Get(ctx, c.Key("a"))
		assert.Equal(t, tieredcache.TierNone, tier)
	})

	t.Run("clear empties tier 1", func(t *testing.T) {
		t.Parallel()

		c := newTier1Only(t)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{})
		c.Set(ctx, c.Key("b"), payload{})
		c.Clear(ctx)

		assert.Equal(t, 0, c.Stats(ctx).Tier1.Size)
	})

	t.Run("tier 2 reported unavailable", func(t *testing.T) {
		t.Parallel()

		c := newTier1Only(t)
		assert.False(t, c.Tier2Available())
		assert.False(t, c.Stats(context.Background()).Tier2.Connected)
	})
}

func TestCache_Tier2(t *testing.T) {
	t.Parallel()

	t.Run("read-through populates tier 1", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		writer := newWithRedis(t, srv)
		reader := newWithRedis(t, srv)
		ctx := context.Background()

		// Written by one process, readable by another through tier 2.
		writer.Set(ctx, writer.Key("shared"), payload{Name: "x", Count: 7})

		v, tier := reader.Get(ctx, reader.Key("shared"))
		require.Equal(t, tieredcache.Tier2, tier)
		assert.Equal(t, payload{Name: "x", Count: 7}, v)

		// The tier-2 hit was copied into tier 1.
		_, tier = reader.Get(ctx, reader.Key("shared"))
		assert.Equal(t, tieredcache.Tier1, tier)
	})

	t.Run("set writes tier 2 with configured ttl", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		c := tieredcache.New[payload](
			tieredcache.Config{Prefix: "test", Tier2TTL: 30 * time.Minute},
			tieredcache.WithRedis[payload](client),
		)
		t.Cleanup(func() { _ = c.Close(context.Background()) })

		c.Set(context.Background(), c.Key("a"), payload{Name: "x"})

		require.True(t, srv.Exists("test:a"))
		assert.Equal(t, 30*time.Minute, srv.TTL("test:a"))
	})

	t.Run("per-call ttl override", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)

		c.SetTTL(context.Background(), c.Key("a"), payload{}, time.Hour)
		assert.Equal(t, time.Hour, srv.TTL("test:a"))
	})

	t.Run("delete removes from both tiers", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{})
		c.Delete(ctx, c.Key("a"))

		_, tier := c.Get(ctx, c.Key("a"))
		assert.Equal(t, tieredcache.TierNone, tier)
		assert.False(t, srv.Exists("test:a"))
	})

	t.Run("clear removes only namespace keys", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{})
		c.Set(ctx, c.Key("b"), payload{})
		require.NoError(t, srv.Set("other:key", "keep"))

		c.Clear(ctx)

		assert.False(t, srv.Exists("test:a"))
		assert.False(t, srv.Exists("test:b"))
		assert.True(t, srv.Exists("other:key"))
	})

	t.Run("stats counts namespace keys", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{})
		c.Set(ctx, c.Key("b"), payload{})
		require.NoError(t, srv.Set("other:key", "x"))

		stats := c.Stats(ctx)
		assert.True(t, stats.Tier2.Connected)
		assert.Equal(t, int64(2), stats.Tier2.Keys)
	})
}

func TestCache_Tier2Degradation(t *testing.T) {
	t.Parallel()

	t.Run("tier-2 failure downgrades read to miss", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)
		ctx := context.Background()

		c.Set(ctx, c.Key("a"), payload{Name: "x"})

		srv.SetError("connection refused")

		// Tier 1 still serves its copy.
		v, tier := c.Get(ctx, c.Key("a"))
		assert.Equal(t, tieredcache.Tier1, tier)
		assert.Equal(t, "x", v.Name)

		// A key only in tier 2 becomes a plain miss, not an error.
		_, tier = c.Get(ctx, c.Key("elsewhere"))
		assert.Equal(t, tieredcache.TierNone, tier)
		assert.False(t, c.Tier2Available())
	})

	t.Run("writes keep succeeding in tier 1", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)
		ctx := context.Background()

		// First failure flips the availability flag.
		srv.SetError("down")
		_, _ = c.Get(ctx, c.Key("probe"))

		c.Set(ctx, c.Key("a"), payload{Name: "local"})

		v, tier := c.Get(ctx, c.Key("a"))
		assert.Equal(t, tieredcache.Tier1, tier)
		assert.Equal(t, "local", v.Name)
	})

	t.Run("stats ping restores availability", func(t *testing.T) {
		t.Parallel()

		srv := miniredis.RunT(t)
		c := newWithRedis(t, srv)
		ctx := context.Background()

		srv.SetError("down")
		_, _ = c.Get(ctx, c.Key("probe"))
		require.False(t, c.Tier2Available())

		srv.SetError("")
		stats := c.Stats(ctx)
		assert.True(t, stats.Tier2.Connected)
		assert.True(t, c.Tier2Available())
	})
}

func TestCache_Close(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := tieredcache.New[payload](
		tieredcache.Config{Prefix: "test"},
		tieredcache.WithRedis[payload](client),
	)

	c.Set(context.Background(), c.Key("a"), payload{})

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))

	_, tier := c.Get(context.Background(), c.Key("a"))
	assert.Equal(t, tieredcache.TierNone, tier)
	assert.False(t, c.Tier2Available())
}
