// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/addressbook/internal/platform/avatar"
	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/account"
	"github.com/taibuivan/addressbook/internal/users/auth"
	"github.com/taibuivan/addressbook/internal/users/auth/authtest"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// # Test Doubles

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendConfirmation(ctx context.Context, event mailer.ConfirmationRequested) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, event mailer.ResetRequested) error {
	return m.Called(ctx, event).Error(0)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, username string, file io.Reader) (string, error) {
	args := m.Called(ctx, username, file)
	return args.String(0), args.Error(1)
}

// # Harness

type harness struct {
	users    *authtest.Users
	tokens   *authtest.RefreshTokens
	tx       *authtest.Transactor
	cache    *auth.RedisCache
	codec    *sec.TokenService
	notifier *mockNotifier
	uploader *mockUploader
	auth     *auth.Service
	service  *account.Service
}

func newHarness(t *testing.T, withUploader bool) *harness {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codec, err := sec.NewTokenService(sec.TokenConfig{Secret: "test-secret", Algorithm: "HS256", AccessTTL: 15 * time.Minute})
	require.NoError(t, err)

	h := &harness{
		users:    authtest.NewUsers(),
		tokens:   authtest.NewRefreshTokens(),
		cache:    auth.NewRedisCache(client, 15*time.Minute),
		codec:    codec,
		notifier: &mockNotifier{},
		uploader: &mockUploader{},
	}

	// Confirmation emails are accepted silently; tests that care count the calls.
	h.notifier.On("SendConfirmation", mock.Anything, mock.Anything).Return(nil).Maybe()

	h.auth = auth.NewService(h.users, h.tokens, h.cache, h.codec,
		auth.WithNotifier(h.notifier),
		auth.WithLogger(discardLogger),
	)

	h.tx = authtest.NewTransactor(h.users, h.tokens)

	var uploader avatar.Uploader
	if withUploader {
		uploader = h.uploader
	}

	h.service = account.NewService(account.Dependencies{
		Users:      h.users,
		Sessions:   h.tokens,
		Transactor: h.tx,
		Cache:      h.cache,
		Tokens:     h.codec,
		Confirmer:  h.auth,
		Notifier:   h.notifier,
		Uploader:   uploader,
		Logger:     discardLogger,
	})
	return h
}

// register creates an account directly through the session service.
func (h *harness) register(t *testing.T, username, email, password string, confirmed bool) *auth.User {
	t.Helper()

	user, err := h.auth.Register(context.Background(), auth.RegisterInput{
		Username: username, Email: email, Password: password, Host: "http://localhost/",
	})
	require.NoError(t, err)

	if confirmed {
		h.users.Confirm(username)
	}
	stored, err := h.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	return stored
}
