package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to the shared cache Redis using the
// provided configuration. It retries with exponential backoff, starting at
// 100ms and doubling up to cfg.RetryBackoffCap, until cfg.RetryAttempts are
// exhausted or the connect timeout elapses.
//
// Returns ErrFailedToParseRedisConnString if the connection URL is invalid,
// or ErrRedisNotReady if no attempt succeeds.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	backoff := 100 * time.Millisecond
	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > cfg.RetryBackoffCap {
			backoff = cfg.RetryBackoffCap
		}
	}

	return nil, ErrRedisNotReady
}
