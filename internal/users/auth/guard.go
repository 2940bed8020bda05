// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/addressbook/internal/platform/ctxkey"
	"github.com/taibuivan/addressbook/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/addressbook/internal/platform/request"
	"github.com/taibuivan/addressbook/internal/platform/respond"
	"github.com/taibuivan/addressbook/internal/platform/sec"
)

// # Identity Guards

// UserResolver turns a bearer token into the account behind it.
type UserResolver interface {
	CurrentUser(context context.Context, token string) (*User, error)
}

// Guard protects routes with bearer authentication and role gates.
type Guard struct {
	resolver UserResolver
}

// NewGuard creates a [Guard] backed by resolver (normally the session [Service]).
func NewGuard(resolver UserResolver) *Guard {
	return &Guard{resolver: resolver}
}

/*
Authenticate resolves the bearer token and attaches the account to the request.

Description: Downstream handlers read the full record with [UserFrom] and the
minimal principal with ctxutil.GetIdentity. The per-request logger gains a
user_id attribute.

Response:
  - 401: Missing bearer, revoked, invalid or orphaned token
  - 500: Cache or store failures
*/
func (guard *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, err := requestutil.BearerToken(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		user, err := guard.resolver.CurrentUser(request.Context(), token)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		ctx := context.WithValue(request.Context(), ctxkey.KeyUser, user)
		ctx = ctxutil.WithIdentity(ctx, user.Identity())
		ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.Int64("user_id", user.ID)))

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RequireRoles returns middleware that admits only the listed roles.
// It must run after [Guard.Authenticate].
func (guard *Guard) RequireRoles(allowed ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity, err := requestutil.RequiredIdentity(request)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			if err := sec.RequireRole(identity.Role, allowed...); err != nil {
				respond.Error(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// UserFrom returns the account attached by [Guard.Authenticate], or nil.
func UserFrom(ctx context.Context) *User {
	user, _ := ctx.Value(ctxkey.KeyUser).(*User)
	return user
}
