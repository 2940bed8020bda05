// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/constants"
	"github.com/taibuivan/addressbook/internal/platform/ctxutil"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Int64Param parses a named URL parameter as a positive integer identifier.

Returns:
  - int64: The parsed identifier
  - error: ValidationError if the parameter is not a positive integer
*/
func Int64Param(request *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, validate.RequiredError(name, "Must be a positive integer")
	}
	return value, nil
}

/*
BearerToken extracts the token from an 'Authorization: Bearer <token>' header.

Returns:
  - string: The raw token
  - error: apperr.Unauthorized if the header is missing or malformed
*/
func BearerToken(request *http.Request) (string, error) {
	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthorized(i18n.MsgMissingBearer).WithReason("MISSING_BEARER")
	}
	return strings.TrimSpace(token), nil
}

/*
RequiredIdentity ensures the request is authenticated and returns the identity.

Returns:
  - *sec.Identity: The authenticated principal
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {

	// Get the identity injected by the auth guard
	identity := ctxutil.GetIdentity(request.Context())

	// If the user is not authenticated, return an error
	if identity == nil {
		return nil, apperr.Unauthorized(i18n.MsgMissingBearer).WithReason("MISSING_BEARER")
	}

	return identity, nil
}

/*
RequiredUserID returns the ID of the currently logged-in user.
*/
func RequiredUserID(request *http.Request) (int64, error) {
	identity, err := RequiredIdentity(request)
	if err != nil {
		return 0, err
	}
	return identity.UserID, nil
}

// BaseURL returns the public scheme://host/ of the request, honoring X-Forwarded-Proto.
// Links in outbound email are built from it.
func BaseURL(request *http.Request) string {
	scheme := "http"
	if request.TLS != nil {
		scheme = "https"
	}
	if forwarded := request.Header.Get(constants.HeaderXForwardedProto); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
	}
	return scheme + "://" + request.Host + "/"
}
