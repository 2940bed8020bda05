// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups that find nothing return an error satisfying [apperr.IsNotFound].
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account and fills in its ID and timestamps.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: ErrUsernameTaken, ErrEmailTaken or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		MarkConfirmed flips confirmed to true for the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - error: NotFound or persistence failures
	*/
	MarkConfirmed(context context.Context, email string) error

	/*
		UpdateAvatar stores a new avatar URL and returns the refreshed account.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - url: string

		Returns:
		  - *User: Updated entity
		  - error: NotFound or persistence failures
	*/
	UpdateAvatar(context context.Context, userID int64, url string) (*User, error)

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - newHash: string

		Returns:
		  - error: NotFound or persistence failures
	*/
	UpdatePassword(context context.Context, userID int64, newHash string) error
}

// # Refresh Token Data Access

// RefreshTokenRepository defines the data access contract for persisted refresh tokens.
type RefreshTokenRepository interface {

	// Create persists a new refresh token row and fills in its ID.
	Create(context context.Context, token *RefreshToken) error

	// FindByHash returns the row with the given hash regardless of its state.
	FindByHash(context context.Context, tokenHash string) (*RefreshToken, error)

	// FindActive returns the row with the given hash only if it is active at now.
	FindActive(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	/*
		RevokeIfActive sets revoked_at on the row only if it is still unrevoked.

		Returns:
		  - bool: true when this call performed the revocation
		  - error: Persistence failures
	*/
	RevokeIfActive(context context.Context, id int64, now time.Time) (bool, error)

	// RevokeAllForUser revokes every unrevoked token of a user and returns how many changed.
	RevokeAllForUser(context context.Context, userID int64, now time.Time) (int64, error)

	// DeleteStale removes tokens expired before now or revoked before cutoff.
	DeleteStale(context context.Context, now, cutoff time.Time) (int64, error)
}

// Transactor runs a unit of work whose credential writes commit or roll back together.
type Transactor interface {
	WithinTx(context context.Context, fn func(users UserRepository, tokens RefreshTokenRepository) error) error
}

// # Fast-Path Cache

// Cache is the advisory blacklist and profile cache in front of the stores.
//
// Every method must tolerate absence: a cache that remembers nothing changes
// latency, never outcomes.
type Cache interface {

	// IsTokenRevoked reports whether the raw access token is blacklisted.
	IsTokenRevoked(context context.Context, token string) (bool, error)

	// RevokeToken blacklists the token until expiresAt. Already-expired tokens are skipped.
	RevokeToken(context context.Context, token string, expiresAt time.Time) error

	// GetCachedUser returns the cached profile, or nil without error on a miss.
	GetCachedUser(context context.Context, username string) (*User, error)

	// CacheUser stores the user's profile with the configured TTL.
	CacheUser(context context.Context, user *User) error

	// DeleteUserCache drops the cached profile after any cacheable field changes.
	DeleteUserCache(context context.Context, username string) error
}
