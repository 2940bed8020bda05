// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/auth"
	"github.com/taibuivan/addressbook/internal/users/auth/authtest"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// # Fixtures

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []mailer.ConfirmationRequested
	resets        []mailer.ResetRequested
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, event mailer.ConfirmationRequested) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, event)
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, event mailer.ResetRequested) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, event)
	return nil
}

type staticAvatar struct {
	url string
	err error
}

func (a staticAvatar) Resolve(context.Context, string) (string, error) { return a.url, a.err }

type harness struct {
	users    *authtest.Users
	tokens   *authtest.RefreshTokens
	cache    auth.Cache
	codec    *sec.TokenService
	notifier *recordingNotifier
	redis    *miniredis.Miniredis
	service  *auth.Service
}

// cacheKinds lists the cache wirings every session-core test runs against.
// "nop" disables the profile cache and keeps only the revocation list.
var cacheKinds = []string{"redis", "nop"}

func newHarness(t *testing.T, kind string, opts ...auth.Option) *harness {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	redisCache := auth.NewRedisCache(client, 15*time.Minute)

	var cache auth.Cache = redisCache
	if kind == "nop" {
		cache = auth.NopCache{Blacklist: redisCache}
	}

	codec, err := sec.NewTokenService(sec.TokenConfig{
		Secret:    "test-secret",
		Algorithm: "HS256",
		AccessTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	h := &harness{
		users:    authtest.NewUsers(),
		tokens:   authtest.NewRefreshTokens(),
		cache:    cache,
		codec:    codec,
		notifier: &recordingNotifier{},
		redis:    server,
	}

	options := append([]auth.Option{
		auth.WithNotifier(h.notifier),
		auth.WithLogger(discardLogger),
	}, opts...)

	h.service = auth.NewService(h.users, h.tokens, h.cache, h.codec, options...)
	return h
}

func forEachCache(t *testing.T, run func(t *testing.T, kind string)) {
	for _, kind := range cacheKinds {
		t.Run(kind, func(t *testing.T) { run(t, kind) })
	}
}

// registerConfirmed creates an account and marks it confirmed.
func (h *harness) registerConfirmed(t *testing.T, username, email, password string) *auth.User {
	t.Helper()
	user, err := h.service.Register(context.Background(), auth.RegisterInput{
		Username: username, Email: email, Password: password, Host: "http://localhost/",
	})
	require.NoError(t, err)
	h.users.Confirm(username)
	return user
}
