// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how limit/offset windows are requested via query parameters
// and how the resulting metadata is delivered in the API response envelope.
package pagination

import (
	"net/http"
	"strconv"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/validate"
)

const (
	// DefaultLimit is the number of items returned if not specified.
	DefaultLimit = 10
	// MaxLimit is the upper bound for items per request to prevent system abuse.
	MaxLimit = 500
	// DefaultOffset skips nothing.
	DefaultOffset = 0
)

// Params holds the parsed limit and offset from a request's query string.
type Params struct {
	Limit  int
	Offset int
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// NewMeta constructs pagination metadata for a response window of count items.
func NewMeta(params Params, count int) Meta {
	return Meta{
		Limit:  params.Limit,
		Offset: params.Offset,
		Count:  count,
	}
}

// FromRequest parses "limit" and "offset" query parameters from an HTTP request.
//
// # Validation
//
// Unlike silent clamping, out-of-range values are rejected so that clients
// notice a malformed window: limit must be within [1, MaxLimit] and offset
// must not be negative.
func FromRequest(r *http.Request) (Params, error) {
	limit, err := parseIntParam(r, "limit", DefaultLimit)
	if err != nil {
		return Params{}, err
	}

	offset, err := parseIntParam(r, "offset", DefaultOffset)
	if err != nil {
		return Params{}, err
	}

	validator := &validate.Validator{}
	validator.Range("limit", limit, 1, MaxLimit).
		Custom("offset", offset < 0, "Must be greater than or equal to 0")
	if err := validator.Err(); err != nil {
		return Params{}, err
	}

	return Params{Limit: limit, Offset: offset}, nil
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.ValidationError("Validation failed", apperr.FieldError{Field: key, Message: "Must be an integer"})
	}

	return n, nil
}
