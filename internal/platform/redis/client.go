// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides the managed client behind the fast-path cache.

Three things live in Redis, all of them disposable:

  - The access-token blacklist, each entry expiring with its token.
  - Cached user profiles keyed by username.
  - Per-route rate-limit counters (ulule/limiter).

Losing Redis never loses durable state; refresh tokens stay in Postgres.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/taibuivan/addressbook/internal/platform/constants"
)

// Opinionated default timeouts for Redis operations.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = 10
	options.MinIdleConns = 2
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// Probe adapts [Ping] to the readiness check signature used by the API server.
func Probe(client redis.UniversalClient) func(stdctx.Context) error {
	return func(context stdctx.Context) error {
		return Ping(context, client)
	}
}

/*
NewRouteLimiter builds a ulule limiter whose counters are shared through Redis.

Parameters:
  - client: redis.UniversalClient
  - formatted: Rate in ulule notation, e.g. "5-M"

Returns:
  - *limiter.Limiter: Ready for middleware.RouteLimit
  - error: Malformed rate or store failures
*/
func NewRouteLimiter(client redis.UniversalClient, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid rate %q: %w", formatted, err)
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: constants.RedisPrefixRateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: rate limit store: %w", err)
	}

	return limiter.New(store, rate), nil
}
