// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/taibuivan/addressbook/internal/api"
	"github.com/taibuivan/addressbook/internal/contacts"
	"github.com/taibuivan/addressbook/internal/contacts/contactstest"
	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/platform/middleware"
	redisstore "github.com/taibuivan/addressbook/internal/platform/redis"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/account"
	"github.com/taibuivan/addressbook/internal/users/auth"
	"github.com/taibuivan/addressbook/internal/users/auth/authtest"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// # Fixtures

type staticCORS struct{}

func (staticCORS) IsDevelopment() bool      { return true }
func (staticCORS) AllowedOrigins() []string { return nil }

type mailbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *mailbox) SendConfirmation(_ context.Context, event mailer.ConfirmationRequested) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[event.Email] = event.Token
	return nil
}

func (m *mailbox) SendPasswordReset(context.Context, mailer.ResetRequested) error { return nil }

func (m *mailbox) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

type stack struct {
	server *httptest.Server
	users  *authtest.Users
	mail   *mailbox
	redis  *miniredis.Miniredis
}

// newStack assembles the router the way cmd/api does, with in-memory stores.
func newStack(t *testing.T, meRate string, health api.HealthDependencies) *stack {
	t.Helper()

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codec, err := sec.NewTokenService(sec.TokenConfig{Secret: "test-secret", Algorithm: "HS256", AccessTTL: 15 * time.Minute})
	require.NoError(t, err)

	users := authtest.NewUsers()
	tokens := authtest.NewRefreshTokens()
	cache := auth.NewRedisCache(client, 15*time.Minute)
	mail := &mailbox{tokens: map[string]string{}}

	authService := auth.NewService(users, tokens, cache, codec,
		auth.WithNotifier(mail),
		auth.WithLogger(discardLogger),
	)
	guard := auth.NewGuard(authService)

	accountService := account.NewService(account.Dependencies{
		Users:      users,
		Sessions:   tokens,
		Transactor: authtest.NewTransactor(users, tokens),
		Cache:      cache,
		Tokens:     codec,
		Confirmer:  authService,
		Notifier:   mail,
		Logger:     discardLogger,
	})

	rate, err := limiter.NewRateFromFormatted(meRate)
	require.NoError(t, err)
	meLimit := middleware.RouteLimit(limiter.New(memory.NewStore(), rate))

	liveness, readiness := api.NewHealthHandlers(health, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := api.NewServer(ctx, api.Options{Port: "0", CORS: staticCORS{}}, discardLogger, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(accountService, guard, meLimit),
		Contacts:  contacts.NewHandler(contacts.NewService(contactstest.NewRepository(), discardLogger), guard.Authenticate),
	})

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	return &stack{server: httpServer, users: users, mail: mail, redis: redisServer}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func (s *stack) do(t *testing.T, method, path, bearer, contentType string, body io.Reader) (int, envelope) {
	t.Helper()

	request, err := http.NewRequestWithContext(context.Background(), method, s.server.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	var decoded envelope
	if response.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(response.Body).Decode(&decoded))
	}
	return response.StatusCode, decoded
}

func (s *stack) json(t *testing.T, method, path, bearer string, payload any) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, path, bearer, "application/json", bytes.NewReader(raw))
}

func (s *stack) login(t *testing.T, username, password string) (int, envelope) {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	return s.do(t, http.MethodPost, "/api/auth/login", "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// signUp registers, confirms through the emailed link and logs in.
func (s *stack) signUp(t *testing.T, username string) auth.TokenPair {
	t.Helper()

	email := username + "@x.com"
	status, _ := s.json(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodGet, "/api/users/confirmed_email/"+s.mail.token(email), "", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := s.login(t, username, "pw123456")
	require.Equal(t, http.StatusOK, status)

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(body.Data, &pair))
	return pair
}

// # Scenarios

/*
TestServer_SessionLifecycle drives the whole stack: registration, the
unconfirmed-login refusal, confirmation by link, /me, logout and the revoked
access token.
*/
func TestServer_SessionLifecycle(t *testing.T) {
	s := newStack(t, "100-M", api.HealthDependencies{})

	status, _ := s.json(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := s.login(t, "alice", "pw123456")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Email is not confirmed", body.Error)

	token := s.mail.token("alice@x.com")
	require.NotEmpty(t, token)

	status, _ = s.do(t, http.MethodGet, "/api/users/confirmed_email/"+token, "", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = s.login(t, "alice", "pw123456")
	require.Equal(t, http.StatusOK, status)

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(body.Data, &pair))

	status, body = s.do(t, http.MethodGet, "/api/users/me", pair.AccessToken, "", nil)
	require.Equal(t, http.StatusOK, status)
	var me auth.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, "alice", me.Username)

	status, _ = s.json(t, http.MethodPost, "/api/auth/logout", pair.AccessToken, map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	assert.Equal(t, http.StatusNoContent, status)

	status, body = s.do(t, http.MethodGet, "/api/users/me", pair.AccessToken, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token revoked", body.Error)

	status, _ = s.json(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_RoleGates(t *testing.T) {
	s := newStack(t, "100-M", api.HealthDependencies{})

	user := s.signUp(t, "alice")
	status, _ := s.do(t, http.MethodGet, "/api/users/admin", user.AccessToken, "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodGet, "/api/users/moderator", user.AccessToken, "", nil)
	assert.Equal(t, http.StatusForbidden, status)

	s.signUp(t, "root")
	s.users.SetRole("root", sec.RoleAdmin)
	// The cached profile still carries the old role until it expires.
	s.redis.FlushAll()
	status, body := s.login(t, "root", "pw123456")
	require.Equal(t, http.StatusOK, status)
	var admin auth.TokenPair
	require.NoError(t, json.Unmarshal(body.Data, &admin))

	status, _ = s.do(t, http.MethodGet, "/api/users/admin", admin.AccessToken, "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/users/moderator", admin.AccessToken, "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_ContactsRequireAuth(t *testing.T) {
	s := newStack(t, "100-M", api.HealthDependencies{})

	status, body := s.do(t, http.MethodGet, "/api/contacts/", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Code)

	pair := s.signUp(t, "alice")
	status, _ = s.json(t, http.MethodPost, "/api/contacts/", pair.AccessToken, contacts.Input{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@navy.mil",
		PhoneNumber: "+1 555 0100", Birthday: "1906-12-09",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, body = s.do(t, http.MethodGet, "/api/contacts/", pair.AccessToken, "", nil)
	require.Equal(t, http.StatusOK, status)
	var listed []contacts.Response
	require.NoError(t, json.Unmarshal(body.Data, &listed))
	assert.Len(t, listed, 1)
}

func TestServer_MeThrottle(t *testing.T) {
	s := newStack(t, "2-M", api.HealthDependencies{})
	pair := s.signUp(t, "alice")

	for range 2 {
		status, _ := s.do(t, http.MethodGet, "/api/users/me", pair.AccessToken, "", nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, _ := s.do(t, http.MethodGet, "/api/users/me", pair.AccessToken, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestServer_Health(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		redisServer := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		s := newStack(t, "100-M", api.HealthDependencies{
			CheckDatabase: func(context.Context) error { return nil },
			CheckCache:    redisstore.Probe(client),
		})

		status, _ := s.do(t, http.MethodGet, "/health", "", "", nil)
		assert.Equal(t, http.StatusOK, status)

		status, _ = s.do(t, http.MethodGet, "/ready", "", "", nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("degraded", func(t *testing.T) {
		s := newStack(t, "100-M", api.HealthDependencies{
			CheckDatabase: func(context.Context) error { return errors.New("connection refused") },
		})

		status, body := s.do(t, http.MethodGet, "/ready", "", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Contains(t, string(body.Data), "degraded")
	})
}
