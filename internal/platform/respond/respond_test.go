// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
	"github.com/taibuivan/addressbook/internal/platform/respond"
)

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) respond.ErrorEnvelope {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

/*
TestError_LocalizesAppError checks status mapping and Accept-Language handling.
*/
func TestError_LocalizesAppError(t *testing.T) {
	sentinel := apperr.Unauthorized(i18n.MsgTokenRevoked).WithReason("TOKEN_REVOKED")

	t.Run("english_default", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()

		respond.Error(recorder, request, sentinel)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		envelope := decodeError(t, recorder)
		assert.Equal(t, "Token revoked", envelope.Error)
		assert.Equal(t, "UNAUTHORIZED", envelope.Code)
		assert.Equal(t, "TOKEN_REVOKED", envelope.Reason)
	})

	t.Run("ukrainian", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Accept-Language", "uk")
		recorder := httptest.NewRecorder()

		respond.Error(recorder, request, sentinel)

		assert.Equal(t, "Токен відкликано", decodeError(t, recorder).Error)
	})
}

/*
TestError_HidesUnknownErrors ensures raw errors never reach the client.
*/
func TestError_HidesUnknownErrors(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()

	respond.Error(recorder, request, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	envelope := decodeError(t, recorder)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Code)
	assert.NotContains(t, envelope.Error, "connection refused")
}

/*
TestMessage wraps a localized message in the success envelope.
*/
func TestMessage(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()

	respond.Message(recorder, request, i18n.MsgEmailConfirmed)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"message":"Email confirmed"}}`, recorder.Body.String())
}
