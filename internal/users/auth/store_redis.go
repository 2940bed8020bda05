// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/addressbook/internal/platform/constants"
)

// # Redis Cache

// RedisCache implements [Cache] on top of go-redis.
type RedisCache struct {
	client  redis.UniversalClient
	userTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewRedisCache creates a Redis-backed cache whose profile entries live for userTTL.
func NewRedisCache(client redis.UniversalClient, userTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, userTTL: userTTL, now: time.Now, logger: slog.Default()}
}

// WithLogger sets the logger for failures the cache absorbs instead of returning.
func (cache *RedisCache) WithLogger(logger *slog.Logger) *RedisCache {
	cache.logger = logger
	return cache
}

// WithClock overrides the time source used to derive blacklist TTLs.
func (cache *RedisCache) WithClock(now func() time.Time) *RedisCache {
	cache.now = now
	return cache
}

func blacklistKey(token string) string { return constants.RedisPrefixBlacklist + token }
func userKey(username string) string   { return constants.RedisPrefixUser + username }

/*
IsTokenRevoked checks the blacklist for the raw access token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - bool: true if the token was revoked and has not yet expired
  - error: Connectivity failures
*/
func (cache *RedisCache) IsTokenRevoked(context context.Context, token string) (bool, error) {
	count, err := cache.client.Exists(context, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_blacklist_check_failed: %w", err)
	}
	return count > 0, nil
}

/*
RevokeToken blacklists the token for exactly the rest of its lifetime.

Description: The entry expires together with the token, so the blacklist
never outgrows the set of still-valid access tokens.

Parameters:
  - context: context.Context
  - token: string
  - expiresAt: time.Time (the token's exp claim)

Returns:
  - error: Connectivity failures
*/
func (cache *RedisCache) RevokeToken(context context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(cache.now())
	if ttl <= 0 {
		return nil
	}

	if err := cache.client.Set(context, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_blacklist_set_failed: %w", err)
	}

	return nil
}

/*
GetCachedUser returns the cached profile for username.

Returns:
  - *User: Password-less user, or nil on a miss
  - error: Connectivity or decoding failures
*/
func (cache *RedisCache) GetCachedUser(context context.Context, username string) (*User, error) {
	raw, err := cache.client.Get(context, userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_user_cache_get_failed: %w", err)
	}

	var profile CachedProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt entry is treated as a miss and removed.
		cache.logger.WarnContext(context, "redis_user_cache_corrupt",
			slog.String("username", username),
			slog.Any("error", err),
		)
		if delErr := cache.client.Del(context, userKey(username)).Err(); delErr != nil {
			cache.logger.WarnContext(context, "redis_user_cache_evict_failed",
				slog.String("username", username),
				slog.Any("error", delErr),
			)
		}
		return nil, nil
	}

	return profile.User(), nil
}

// CacheUser stores the user's [CachedProfile] for the configured TTL.
func (cache *RedisCache) CacheUser(context context.Context, user *User) error {
	payload, err := json.Marshal(NewCachedProfile(user))
	if err != nil {
		return fmt.Errorf("redis_user_cache_encode_failed: %w", err)
	}

	if err := cache.client.Set(context, userKey(user.Username), payload, cache.userTTL).Err(); err != nil {
		return fmt.Errorf("redis_user_cache_set_failed: %w", err)
	}

	return nil
}

// DeleteUserCache drops the cached profile.
func (cache *RedisCache) DeleteUserCache(context context.Context, username string) error {
	if err := cache.client.Del(context, userKey(username)).Err(); err != nil {
		return fmt.Errorf("redis_user_cache_delete_failed: %w", err)
	}
	return nil
}

// # Disabled Cache

// NopCache turns off the profile cache: every profile lookup misses and every
// profile write is dropped.
//
// Revocation cannot be turned off without breaking logout, so blacklist calls
// go to Blacklist when it is set. The zero value remembers nothing at all.
type NopCache struct {
	Blacklist Cache
}

func (cache NopCache) IsTokenRevoked(context context.Context, token string) (bool, error) {
	if cache.Blacklist == nil {
		return false, nil
	}
	return cache.Blacklist.IsTokenRevoked(context, token)
}

func (cache NopCache) RevokeToken(context context.Context, token string, expiresAt time.Time) error {
	if cache.Blacklist == nil {
		return nil
	}
	return cache.Blacklist.RevokeToken(context, token, expiresAt)
}

func (NopCache) GetCachedUser(context.Context, string) (*User, error) { return nil, nil }
func (NopCache) CacheUser(context.Context, *User) error               { return nil }
func (NopCache) DeleteUserCache(context.Context, string) error        { return nil }

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = NopCache{}
)
