// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles everything a signed-in or signing-up user does to
their own account outside the core session lifecycle.

It covers email confirmation, avatar uploads, password changes and resets,
and visibility into the refresh tokens (sessions) issued to the account.

# Architecture

  - Domain: Depends on the auth package for the User entity and its repositories.
  - Cache: Every credential or profile change drops the cached profile.
  - Security: A password reset revokes every refresh token of the account.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

// # Domain Entities

// SessionInfo is the client view of an active refresh token. It never carries the hash.
type SessionInfo struct {
	ID        int64     `json:"id"`
	IPAddress *string   `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expired_at"`
}

// NewSessionInfo projects a refresh token row for transport.
func NewSessionInfo(token auth.RefreshToken) SessionInfo {
	return SessionInfo{
		ID:        token.ID,
		IPAddress: token.IPAddress,
		UserAgent: token.UserAgent,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	}
}

// # Errors

var (
	ErrWrongEmailToken = apperr.Unprocessable(i18n.MsgWrongEmailToken).WithReason("WRONG_EMAIL_TOKEN")
	ErrVerification    = apperr.BadRequest(i18n.MsgVerificationError).WithReason("VERIFICATION_ERROR")
	ErrWrongPassword   = apperr.BadRequest(i18n.MsgWrongPassword).WithReason("WRONG_PASSWORD")
	ErrWrongResetToken = apperr.Unprocessable(i18n.MsgWrongResetToken).WithReason("WRONG_RESET_TOKEN")
	ErrUploadDisabled  = apperr.ServiceUnavailable(i18n.MsgAvatarUploadDisabled).WithReason("UPLOAD_DISABLED")
	ErrAvatarMissing   = apperr.BadRequest(i18n.MsgAvatarMissing).WithReason("AVATAR_MISSING")
	ErrSessionNotFound = apperr.NotFound("Session").WithReason("SESSION_NOT_FOUND")
)

// # Repository Contracts

// SessionRepository defines the visibility and revocation contract for a user's refresh tokens.
type SessionRepository interface {
	/*
		ListActive lists every unrevoked, unexpired refresh token of a user, newest first.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - now: time.Time

		Returns:
		  - []auth.RefreshToken: Active rows
		  - error: Retrieval errors
	*/
	ListActive(context context.Context, userID int64, now time.Time) ([]auth.RefreshToken, error)

	/*
		RevokeForUser revokes one active token, but only if userID owns it.

		Parameters:
		  - context: context.Context
		  - userID: int64 (Security constraint: owner validation)
		  - id: int64
		  - now: time.Time

		Returns:
		  - bool: false if no active token with that id belongs to the user
		  - error: Revocation failures
	*/
	RevokeForUser(context context.Context, userID, id int64, now time.Time) (bool, error)
}

// # Collaborators

// TokenParser is the subset of sec.TokenService used for email and reset links.
type TokenParser interface {
	ParseEmailToken(token string) (string, error)
	IssueResetToken(email string) (string, error)
	ParseResetToken(token string) (string, error)
}

// Confirmer re-sends confirmation emails. The session service implements it.
type Confirmer interface {
	RequestConfirmation(context context.Context, user *auth.User, host string)
}
