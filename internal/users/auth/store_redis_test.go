// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

func newRedisCache(t *testing.T) (*auth.RedisCache, *miniredis.Miniredis, time.Time) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache := auth.NewRedisCache(client, 15*time.Minute).WithClock(func() time.Time { return now })
	return cache, server, now
}

/*
TestRedisCache_Blacklist verifies the entry lives exactly as long as the token.
*/
func TestRedisCache_Blacklist(t *testing.T) {
	cache, server, now := newRedisCache(t)
	ctx := context.Background()

	revoked, err := cache.IsTokenRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, cache.RevokeToken(ctx, "token-a", now.Add(10*time.Minute)))
	assert.Equal(t, 10*time.Minute, server.TTL("auth:blacklist:token-a"))

	revoked, err = cache.IsTokenRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	server.FastForward(10*time.Minute + time.Second)

	revoked, err = cache.IsTokenRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisCache_RevokeExpiredTokenIsSkipped(t *testing.T) {
	cache, server, now := newRedisCache(t)

	require.NoError(t, cache.RevokeToken(context.Background(), "stale", now.Add(-time.Second)))
	assert.False(t, server.Exists("auth:blacklist:stale"))
}

/*
TestRedisCache_Profile round-trips a profile and checks that the hash never reaches Redis.
*/
func TestRedisCache_Profile(t *testing.T) {
	cache, server, _ := newRedisCache(t)
	ctx := context.Background()

	missing, err := cache.GetCachedUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, missing)

	avatar := "https://img/alice"
	require.NoError(t, cache.CacheUser(ctx, &auth.User{
		ID: 7, Username: "alice", Email: "a@x.com", PasswordHash: "$2a$10$secret",
		Role: sec.RoleModerator, Avatar: &avatar, Confirmed: true,
	}))

	raw, err := server.Get("auth:user:alice")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret")
	assert.Equal(t, 15*time.Minute, server.TTL("auth:user:alice"))

	cached, err := cache.GetCachedUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(7), cached.ID)
	assert.Equal(t, sec.RoleModerator, cached.Role)
	assert.True(t, cached.Confirmed)
	assert.Empty(t, cached.PasswordHash)
	require.NotNil(t, cached.Avatar)
	assert.Equal(t, avatar, *cached.Avatar)

	require.NoError(t, cache.DeleteUserCache(ctx, "alice"))
	assert.False(t, server.Exists("auth:user:alice"))
}

func TestRedisCache_CorruptProfileIsAMiss(t *testing.T) {
	cache, server, _ := newRedisCache(t)
	require.NoError(t, server.Set("auth:user:alice", "{not json"))

	var logs bytes.Buffer
	cache.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil)))

	cached, err := cache.GetCachedUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, cached)
	assert.False(t, server.Exists("auth:user:alice"))
	assert.Contains(t, logs.String(), "redis_user_cache_corrupt")
	assert.NotContains(t, logs.String(), "redis_user_cache_evict_failed")
}

// readOnlyReplica rejects deletes the way a demoted Redis primary does.
type readOnlyReplica struct{}

func (readOnlyReplica) DialHook(next redis.DialHook) redis.DialHook { return next }

func (readOnlyReplica) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "del" {
			err := errors.New("READONLY You can't write against a read only replica.")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (readOnlyReplica) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

/*
TestRedisCache_CorruptProfileEvictFailureIsLogged still reports a miss when the
corrupt entry cannot be removed, and leaves a warning behind.
*/
func TestRedisCache_CorruptProfileEvictFailureIsLogged(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	client.AddHook(readOnlyReplica{})

	var logs bytes.Buffer
	cache := auth.NewRedisCache(client, 15*time.Minute).
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil)))
	require.NoError(t, server.Set("auth:user:alice", "{not json"))

	cached, err := cache.GetCachedUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, cached)

	assert.True(t, server.Exists("auth:user:alice"))
	assert.Contains(t, logs.String(), `"msg":"redis_user_cache_evict_failed"`)
	assert.Contains(t, logs.String(), `"level":"WARN"`)
	assert.Contains(t, logs.String(), "READONLY")
}

/*
TestRedisCache_ConnectivityFailure surfaces errors instead of pretending to miss.
*/
func TestRedisCache_ConnectivityFailure(t *testing.T) {
	cache, server, now := newRedisCache(t)
	server.Close()
	ctx := context.Background()

	_, err := cache.IsTokenRevoked(ctx, "token")
	assert.Error(t, err)
	assert.Error(t, cache.RevokeToken(ctx, "token", now.Add(time.Minute)))
	_, err = cache.GetCachedUser(ctx, "alice")
	assert.Error(t, err)
	assert.Error(t, cache.CacheUser(ctx, &auth.User{Username: "alice"}))
}

/*
TestNopCache checks that profiles are never remembered and revocation is delegated.
*/
func TestNopCache(t *testing.T) {
	ctx := context.Background()

	var empty auth.NopCache
	require.NoError(t, empty.CacheUser(ctx, &auth.User{Username: "alice"}))
	cached, err := empty.GetCachedUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, cached)
	require.NoError(t, empty.RevokeToken(ctx, "t", time.Now().Add(time.Minute)))
	revoked, err := empty.IsTokenRevoked(ctx, "t")
	require.NoError(t, err)
	assert.False(t, revoked)

	inner, _, now := newRedisCache(t)
	delegating := auth.NopCache{Blacklist: inner}
	require.NoError(t, delegating.RevokeToken(ctx, "t", now.Add(time.Minute)))
	revoked, err = delegating.IsTokenRevoked(ctx, "t")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, delegating.CacheUser(ctx, &auth.User{Username: "alice"}))
	cached, err = inner.GetCachedUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, cached)
}
