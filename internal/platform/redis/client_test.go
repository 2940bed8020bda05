// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "github.com/taibuivan/addressbook/internal/platform/redis"
)

func TestNewClient_PingAndProbe(t *testing.T) {
	server := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := platformredis.NewClient(context.Background(), "redis://"+server.Addr()+"/0", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, platformredis.Probe(client)(context.Background()))

	server.Close()
	assert.Error(t, platformredis.Probe(client)(context.Background()))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := platformredis.NewClient(context.Background(), "://nope", slog.Default())
	assert.Error(t, err)
}

/*
TestNewRouteLimiter_SharedCounters verifies the quota is enforced through Redis.
*/
func TestNewRouteLimiter_SharedCounters(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := platformredis.NewClient(context.Background(), "redis://"+server.Addr(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	first, err := platformredis.NewRouteLimiter(client, "2-M")
	require.NoError(t, err)
	second, err := platformredis.NewRouteLimiter(client, "2-M")
	require.NoError(t, err)

	ctx := context.Background()
	result, err := first.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Reached)

	result, err = second.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Reached)

	result, err = first.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Reached)

	_, err = platformredis.NewRouteLimiter(client, "five-per-minute")
	assert.Error(t, err)
}
