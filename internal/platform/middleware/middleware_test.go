// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/taibuivan/addressbook/internal/platform/constants"
	"github.com/taibuivan/addressbook/internal/platform/ctxutil"
	"github.com/taibuivan/addressbook/internal/platform/middleware"
)

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

/*
TestRequestID_GeneratesAndPropagates checks both a generated and a client-supplied ID.
*/
func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "client-id")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "client-id", seen)
}

/*
TestRouteLimit_RejectsOverQuota lets five requests through per minute and rejects the sixth.
*/
func TestRouteLimit_RejectsOverQuota(t *testing.T) {
	rate, err := limiter.NewRateFromFormatted("5-M")
	require.NoError(t, err)

	handler := middleware.RouteLimit(limiter.New(memory.NewStore(), rate))(okHandler)

	for i := 0; i < 5; i++ {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		request.RemoteAddr = "10.0.0.1:5555"
		handler.ServeHTTP(recorder, request)
		require.Equal(t, http.StatusOK, recorder.Code, "request %d", i+1)
	}

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	request.RemoteAddr = "10.0.0.1:5555"
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Requests limit exceeded. Try again later.")
	assert.Equal(t, "0", recorder.Header().Get("X-RateLimit-Remaining"))

	// Another client still has its own quota.
	other := httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	request.RemoteAddr = "10.0.0.2:5555"
	handler.ServeHTTP(other, request)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestPanicRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, recorder.Body.String(), "boom")
}

type corsConfig struct {
	development bool
	origins     []string
}

func (c corsConfig) IsDevelopment() bool      { return c.development }
func (c corsConfig) AllowedOrigins() []string { return c.origins }

/*
TestCORS covers allow-listed, foreign and pre-flight requests.
*/
func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"https://app.example"}})(okHandler)

	tests := []struct {
		name    string
		method  string
		origin  string
		status  int
		allowed bool
	}{
		{"allowed_origin", http.MethodGet, "https://app.example", http.StatusOK, true},
		{"foreign_origin", http.MethodGet, "https://evil.example", http.StatusOK, false},
		{"preflight", http.MethodOptions, "https://app.example", http.StatusNoContent, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, "/api/contacts", nil)
			request.Header.Set(constants.HeaderOrigin, tt.origin)
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

/*
TestClientIP checks that forwarding headers only count when a trusted proxy sent them.
*/
func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{"direct client", "192.0.2.7:1234", "", "", "192.0.2.7"},
		{"spoofed forwarded-for from the internet", "192.0.2.7:1234", "203.0.113.9", "", "192.0.2.7"},
		{"spoofed real-ip from the internet", "192.0.2.7:1234", "", "198.51.100.3", "192.0.2.7"},
		{"behind trusted proxy", "10.0.0.5:443", "203.0.113.9", "", "203.0.113.9"},
		{"client-forged hop left of the real one", "10.0.0.5:443", "6.6.6.6, 203.0.113.9", "", "203.0.113.9"},
		{"chain of trusted proxies", "10.0.0.5:443", "203.0.113.9, 10.1.1.1, 10.2.2.2", "", "203.0.113.9"},
		{"real-ip from trusted proxy", "10.0.0.5:443", "", "198.51.100.3", "198.51.100.3"},
		{"garbage header from trusted proxy", "10.0.0.5:443", "not-an-ip", "also-bad", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := middleware.ClientIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
				seen = middleware.RealIP(request)
			}))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				request.Header.Set(constants.HeaderXForwardedFor, tt.forwarded)
			}
			if tt.realIP != "" {
				request.Header.Set(constants.HeaderXRealIP, tt.realIP)
			}

			handler.ServeHTTP(httptest.NewRecorder(), request)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestClientIP_NoTrustedProxies(t *testing.T) {
	var seen string
	handler := middleware.ClientIP(nil)(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = middleware.RealIP(request)
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "10.0.0.5:443"
	request.Header.Set(constants.HeaderXForwardedFor, "203.0.113.9")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "10.0.0.5", seen)
}

func TestRealIP_WithoutClientIPUsesPeer(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.7:1234"
	request.Header.Set(constants.HeaderXForwardedFor, "203.0.113.9")

	assert.Equal(t, "192.0.2.7", middleware.RealIP(request))
}

/*
TestRouteLimit_SpoofedHeaderSharesQuota keeps a client from minting fresh
quota by rotating X-Forwarded-For.
*/
func TestRouteLimit_SpoofedHeaderSharesQuota(t *testing.T) {
	rate, err := limiter.NewRateFromFormatted("2-M")
	require.NoError(t, err)

	handler := middleware.ClientIP(nil)(middleware.RouteLimit(limiter.New(memory.NewStore(), rate))(okHandler))

	statuses := make([]int, 0, 3)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		request.RemoteAddr = "192.0.2.7:1234"
		request.Header.Set(constants.HeaderXForwardedFor, spoofed)
		handler.ServeHTTP(recorder, request)
		statuses = append(statuses, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}
