// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
)

// # Session Core Errors
//
// Each sentinel carries a Reason, so errors.Is matches wrapped or cloned copies.

var (
	ErrUsernameTaken       = apperr.Conflict(i18n.MsgUserExists).WithReason("USERNAME_TAKEN")
	ErrEmailTaken          = apperr.Conflict(i18n.MsgEmailExists).WithReason("EMAIL_TAKEN")
	ErrBadCredentials      = apperr.Unauthorized(i18n.MsgBadCredentials).WithReason("BAD_CREDENTIALS")
	ErrEmailNotConfirmed   = apperr.Unauthorized(i18n.MsgEmailNotConfirmed).WithReason("EMAIL_NOT_CONFIRMED")
	ErrInvalidToken        = apperr.Unauthorized(i18n.MsgInvalidCredentials).WithReason("INVALID_TOKEN")
	ErrTokenRevoked        = apperr.Unauthorized(i18n.MsgTokenRevoked).WithReason("TOKEN_REVOKED")
	ErrInvalidRefreshToken = apperr.Unauthorized(i18n.MsgInvalidRefreshToken).WithReason("INVALID_REFRESH_TOKEN")
)
