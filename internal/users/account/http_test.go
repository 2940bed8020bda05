// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/users/account"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

func newAccountServer(t *testing.T, h *harness) *httptest.Server {
	t.Helper()

	handler := account.NewHandler(h.service, auth.NewGuard(h.auth), nil)

	router := chi.NewRouter()
	router.Mount("/api/users", handler.Routes())
	router.Mount("/api/auth/password", handler.PasswordRoutes())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
	Reason string          `json:"reason"`
}

func send(t *testing.T, method, target, bearer, contentType string, body io.Reader) (int, envelope) {
	t.Helper()

	request, err := http.NewRequestWithContext(context.Background(), method, target, body)
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

func sendJSON(t *testing.T, method, target, bearer string, payload any) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return send(t, method, target, bearer, "application/json", bytes.NewReader(raw))
}

func (h *harness) accessToken(t *testing.T, username string) string {
	t.Helper()
	pair, err := h.auth.Login(context.Background(), auth.LoginInput{Username: username, Password: "pw123456"})
	require.NoError(t, err)
	return pair.AccessToken
}

func avatarForm(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(account.FieldFile, "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return writer.FormDataContentType(), &body
}

func TestHTTP_UpdateAvatar(t *testing.T) {
	t.Run("uploaded", func(t *testing.T) {
		h := newHarness(t, true)
		h.register(t, "alice", "a@x.com", "pw123456", true)
		server := newAccountServer(t, h)
		token := h.accessToken(t, "alice")

		h.uploader.On("Upload", mock.Anything, "alice", mock.Anything).
			Return("https://res.cloudinary.com/demo/alice.png", nil).Once()

		contentType, body := avatarForm(t)
		status, decoded := send(t, http.MethodPatch, server.URL+"/api/users/avatar", token, contentType, body)
		require.Equal(t, http.StatusOK, status)

		var user auth.UserResponse
		require.NoError(t, json.Unmarshal(decoded.Data, &user))
		require.NotNil(t, user.Avatar)
		assert.Equal(t, "https://res.cloudinary.com/demo/alice.png", *user.Avatar)

		status, decoded = send(t, http.MethodGet, server.URL+"/api/users/me", token, "", nil)
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, json.Unmarshal(decoded.Data, &user))
		assert.Equal(t, "https://res.cloudinary.com/demo/alice.png", *user.Avatar)

		h.uploader.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		h := newHarness(t, true)
		h.register(t, "alice", "a@x.com", "pw123456", true)
		server := newAccountServer(t, h)

		status, _ := sendJSON(t, http.MethodPatch, server.URL+"/api/users/avatar", h.accessToken(t, "alice"), map[string]string{})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("uploads disabled", func(t *testing.T) {
		h := newHarness(t, false)
		h.register(t, "alice", "a@x.com", "pw123456", true)
		server := newAccountServer(t, h)

		contentType, body := avatarForm(t)
		status, _ := send(t, http.MethodPatch, server.URL+"/api/users/avatar", h.accessToken(t, "alice"), contentType, body)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})
}

func TestHTTP_ChangePassword(t *testing.T) {
	h := newHarness(t, false)
	h.register(t, "alice", "a@x.com", "pw123456", true)
	server := newAccountServer(t, h)
	token := h.accessToken(t, "alice")

	status, body := sendJSON(t, http.MethodPost, server.URL+"/api/users/password", token, map[string]string{
		"current_password": "wrong-one", "new_password": "newpass123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", body.Code)
	assert.Equal(t, "WRONG_PASSWORD", body.Reason)

	status, _ = sendJSON(t, http.MethodPost, server.URL+"/api/users/password", token, map[string]string{
		"current_password": "pw123456", "new_password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = sendJSON(t, http.MethodPost, server.URL+"/api/users/password", token, map[string]string{
		"current_password": "pw123456", "new_password": "newpass123",
	})
	require.Equal(t, http.StatusNoContent, status)

	_, err := h.auth.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "pw123456"})
	assert.ErrorIs(t, err, auth.ErrBadCredentials)

	_, err = h.auth.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "newpass123"})
	assert.NoError(t, err)
}

func TestHTTP_Sessions(t *testing.T) {
	h := newHarness(t, false)
	h.register(t, "alice", "a@x.com", "pw123456", true)
	h.register(t, "bob", "b@x.com", "pw123456", true)
	server := newAccountServer(t, h)

	token := h.accessToken(t, "alice")
	h.accessToken(t, "alice")
	bobToken := h.accessToken(t, "bob")

	status, body := send(t, http.MethodGet, server.URL+"/api/users/sessions", token, "", nil)
	require.Equal(t, http.StatusOK, status)

	var sessions []account.SessionInfo
	require.NoError(t, json.Unmarshal(body.Data, &sessions))
	require.Len(t, sessions, 2)

	target := fmt.Sprintf("%s/api/users/sessions/%d", server.URL, sessions[0].ID)

	status, _ = send(t, http.MethodDelete, target, bobToken, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = send(t, http.MethodDelete, target, token, "", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = send(t, http.MethodDelete, target, token, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = send(t, http.MethodDelete, server.URL+"/api/users/sessions/abc", token, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

/*
TestHTTP_PasswordRecovery requests a reset link, then spends the emailed token.
Unknown addresses get the same answer as known ones.
*/
func TestHTTP_PasswordRecovery(t *testing.T) {
	h := newHarness(t, false)
	h.register(t, "alice", "a@x.com", "pw123456", true)
	server := newAccountServer(t, h)

	var resetToken string
	h.notifier.On("SendPasswordReset", mock.Anything, mock.MatchedBy(func(event mailer.ResetRequested) bool {
		return event.Email == "a@x.com"
	})).Run(func(args mock.Arguments) {
		resetToken = args.Get(1).(mailer.ResetRequested).Token
	}).Return(nil).Once()

	status, known := sendJSON(t, http.MethodPost, server.URL+"/api/auth/password/forgot", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)

	status, unknown := sendJSON(t, http.MethodPost, server.URL+"/api/auth/password/forgot", "", map[string]string{"email": "ghost@x.com"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, string(known.Data), string(unknown.Data))

	require.NotEmpty(t, resetToken)

	status, _ = sendJSON(t, http.MethodPost, server.URL+"/api/auth/password/reset", "", map[string]string{
		"token": "garbage", "new_password": "newpass123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = sendJSON(t, http.MethodPost, server.URL+"/api/auth/password/reset", "", map[string]string{
		"token": resetToken, "new_password": "newpass123",
	})
	require.Equal(t, http.StatusOK, status)

	_, err := h.auth.Login(context.Background(), auth.LoginInput{Username: "alice", Password: "newpass123"})
	assert.NoError(t, err)

	h.notifier.AssertExpectations(t)
}
