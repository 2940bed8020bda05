// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the session core of the Addressbook API.

It defines the identity entities (User, RefreshToken) and the logic that issues,
validates, rotates and revokes the two cooperating credentials: short-lived
access tokens and long-lived opaque refresh tokens.

# Architecture

  - Service: Orchestrates registration, login, refresh rotation and logout.
  - Repositories: Postgres is the durable source of truth for users and refresh tokens.
  - Cache: Redis blacklist and profile cache. Advisory only; [NopCache] disables it.
  - Guard: HTTP gate that resolves the bearer token and enforces role checks.
  - Reaper: Background sweep of dead refresh tokens.
*/
package auth

import (
	"time"

	"github.com/taibuivan/addressbook/internal/platform/sec"
)

// # Domain Entities

// User represents a registered owner of an address book.
type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	Avatar       *string      `json:"avatar"`
	Confirmed    bool         `json:"confirmed"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Identity projects the user onto the minimal principal shared with other packages.
func (user *User) Identity() *sec.Identity {
	return &sec.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}

// RefreshToken is the persisted half of a session. Only the SHA-256 of the raw secret is stored.
type RefreshToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expired_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	IPAddress *string    `json:"ip_address,omitempty"`
	UserAgent *string    `json:"user_agent,omitempty"`
}

// IsActive reports whether the token is unrevoked and unexpired at now.
func (token *RefreshToken) IsActive(now time.Time) bool {
	return token.RevokedAt == nil && token.ExpiresAt.After(now)
}

// CachedProfile is the cache representation of a [User]. It never carries the password hash.
type CachedProfile struct {
	ID        int64        `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	Role      sec.UserRole `json:"role"`
	Avatar    *string      `json:"avatar"`
	Confirmed bool         `json:"confirmed"`
}

// NewCachedProfile strips a user down to its cacheable fields.
func NewCachedProfile(user *User) CachedProfile {
	return CachedProfile{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		Avatar:    user.Avatar,
		Confirmed: user.Confirmed,
	}
}

// User rebuilds a password-less [User] from the cached projection.
func (profile CachedProfile) User() *User {
	return &User{
		ID:        profile.ID,
		Username:  profile.Username,
		Email:     profile.Email,
		Role:      profile.Role,
		Avatar:    profile.Avatar,
		Confirmed: profile.Confirmed,
	}
}

// TokenPair is the credential bundle returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenTypeBearer is the only token_type ever issued.
const TokenTypeBearer = "bearer"

// # Field Identifiers

// Field names shared by validation and request payloads.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"
	FieldToken        = "token"
	FieldNewPassword  = "new_password"
)

// # Credential Constraints

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
	PasswordMinLen = 6
	// bcrypt ignores everything past 72 bytes.
	PasswordMaxLen = 72

	// StaleRevokedAfter is how long a revoked refresh token is kept before the reaper deletes it.
	StaleRevokedAfter = 7 * 24 * time.Hour
)
