// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/avatar"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

// # Service Layer

// Service orchestrates account self-service: confirmation, avatar, passwords and sessions.
type Service struct {
	userRepository    auth.UserRepository
	sessionRepository SessionRepository
	transactor        auth.Transactor
	cache             auth.Cache
	tokens            TokenParser
	confirmer         Confirmer
	notifier          mailer.Notifier
	uploader          avatar.Uploader
	logger            *slog.Logger
	now               func() time.Time
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Users      auth.UserRepository
	Sessions   SessionRepository
	Transactor auth.Transactor
	Cache      auth.Cache
	Tokens     TokenParser
	Confirmer  Confirmer
	Notifier   mailer.Notifier
	Uploader   avatar.Uploader
	Logger     *slog.Logger
}

// NewService constructs a new [Service]. Nil Notifier, Uploader and Logger get inert defaults.
func NewService(deps Dependencies) *Service {
	service := &Service{
		userRepository:    deps.Users,
		sessionRepository: deps.Sessions,
		transactor:        deps.Transactor,
		cache:             deps.Cache,
		tokens:            deps.Tokens,
		confirmer:         deps.Confirmer,
		notifier:          deps.Notifier,
		uploader:          deps.Uploader,
		logger:            deps.Logger,
		now:               time.Now,
	}

	if service.notifier == nil {
		service.notifier = mailer.Discard{}
	}
	if service.uploader == nil {
		service.uploader = avatar.Disabled{}
	}
	if service.logger == nil {
		service.logger = slog.Default()
	}

	return service
}

// WithClock overrides the time source.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Email Confirmation

/*
ConfirmEmail consumes a confirmation token.

Parameters:
  - context: context.Context
  - token: string (from the emailed link)

Returns:
  - string: i18n key of the outcome (already confirmed / confirmed)
  - error: ErrWrongEmailToken, ErrVerification or storage failures
*/
func (service *Service) ConfirmEmail(context context.Context, token string) (string, error) {
	email, err := service.tokens.ParseEmailToken(token)
	if err != nil {
		return "", ErrWrongEmailToken
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", ErrVerification
		}
		return "", fmt.Errorf("account_service_confirm_lookup_failed: %w", err)
	}

	if user.Confirmed {
		return i18n.MsgEmailAlreadyConfirm, nil
	}

	if err := service.userRepository.MarkConfirmed(context, email); err != nil {
		return "", fmt.Errorf("account_service_confirm_failed: %w", err)
	}

	if err := service.cache.DeleteUserCache(context, user.Username); err != nil {
		return "", fmt.Errorf("account_service_cache_bust_failed: %w", err)
	}

	service.logger.InfoContext(context, "email_confirmed", slog.Int64("user_id", user.ID))
	return i18n.MsgEmailConfirmed, nil
}

/*
RequestEmail re-sends the confirmation link.

Description: The answer is the same whether the address is unknown or pending,
so the endpoint cannot be used to enumerate accounts.

Returns:
  - string: i18n key of the outcome
  - error: Storage failures
*/
func (service *Service) RequestEmail(context context.Context, email, host string) (string, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return i18n.MsgCheckEmail, nil
		}
		return "", fmt.Errorf("account_service_request_email_failed: %w", err)
	}

	if user.Confirmed {
		return i18n.MsgEmailAlreadyConfirm, nil
	}

	service.confirmer.RequestConfirmation(context, user, host)
	return i18n.MsgCheckEmail, nil
}

// # Profile

/*
UpdateAvatar uploads a new avatar and stores its URL.

Parameters:
  - context: context.Context
  - user: *auth.User (the authenticated account)
  - file: io.Reader (image bytes)

Returns:
  - *auth.User: Updated account
  - error: ErrUploadDisabled, upload or storage failures
*/
func (service *Service) UpdateAvatar(context context.Context, user *auth.User, file io.Reader) (*auth.User, error) {
	url, err := service.uploader.Upload(context, user.Username, file)
	if err != nil {
		if errors.Is(err, avatar.ErrUploadDisabled) {
			return nil, ErrUploadDisabled
		}
		return nil, fmt.Errorf("account_service_avatar_upload_failed: %w", err)
	}

	updated, err := service.userRepository.UpdateAvatar(context, user.ID, url)
	if err != nil {
		return nil, fmt.Errorf("account_service_avatar_update_failed: %w", err)
	}

	if err := service.cache.DeleteUserCache(context, user.Username); err != nil {
		return nil, fmt.Errorf("account_service_cache_bust_failed: %w", err)
	}

	return updated, nil
}

// # Passwords

/*
ChangePassword replaces the password after verifying the current one.

Description: The guard may hand over a password-less cached profile, so the
hash is always reloaded from the store.

Returns:
  - error: ErrWrongPassword or storage failures
*/
func (service *Service) ChangePassword(context context.Context, user *auth.User, current, next string) error {
	stored, err := service.userRepository.FindByID(context, user.ID)
	if err != nil {
		return fmt.Errorf("account_service_change_password_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(current, stored.PasswordHash) {
		return ErrWrongPassword
	}

	if err := service.setPassword(context, stored, next); err != nil {
		return err
	}

	service.logger.InfoContext(context, "password_changed", slog.Int64("user_id", stored.ID))
	return nil
}

/*
RequestPasswordReset emails a one-hour reset token.

Description: Unknown addresses succeed silently. Delivery failures are logged.

Returns:
  - error: Storage failures only
*/
func (service *Service) RequestPasswordReset(context context.Context, email, host string) error {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("account_service_reset_lookup_failed: %w", err)
	}

	token, err := service.tokens.IssueResetToken(user.Email)
	if err != nil {
		return fmt.Errorf("account_service_reset_token_failed: %w", err)
	}

	event := mailer.ResetRequested{Email: user.Email, Username: user.Username, Host: host, Token: token}
	if err := service.notifier.SendPasswordReset(context, event); err != nil {
		service.logger.WarnContext(context, "password_reset_email_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

/*
ResetPassword sets a new password from a reset token and ends every session.

Returns:
  - error: ErrWrongResetToken or storage failures
*/
func (service *Service) ResetPassword(context context.Context, token, next string) error {
	email, err := service.tokens.ParseResetToken(token)
	if err != nil {
		return ErrWrongResetToken
	}

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return ErrWrongResetToken
		}
		return fmt.Errorf("account_service_reset_lookup_failed: %w", err)
	}

	hash, err := sec.HashPassword(next)
	if err != nil {
		return fmt.Errorf("account_service_hash_failed: %w", err)
	}

	// The new password and the session wipe commit together.
	var revoked int64
	err = service.transactor.WithinTx(context, func(users auth.UserRepository, tokens auth.RefreshTokenRepository) error {
		if err := users.UpdatePassword(context, user.ID, hash); err != nil {
			return fmt.Errorf("account_service_update_password_failed: %w", err)
		}

		count, err := tokens.RevokeAllForUser(context, user.ID, service.now())
		if err != nil {
			return fmt.Errorf("account_service_reset_revoke_failed: %w", err)
		}
		revoked = count
		return nil
	})
	if err != nil {
		return err
	}

	if err := service.cache.DeleteUserCache(context, user.Username); err != nil {
		return fmt.Errorf("account_service_cache_bust_failed: %w", err)
	}

	service.logger.InfoContext(context, "password_reset",
		slog.Int64("user_id", user.ID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}

func (service *Service) setPassword(context context.Context, user *auth.User, password string) error {
	hash, err := sec.HashPassword(password)
	if err != nil {
		return fmt.Errorf("account_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hash); err != nil {
		return fmt.Errorf("account_service_update_password_failed: %w", err)
	}

	if err := service.cache.DeleteUserCache(context, user.Username); err != nil {
		return fmt.Errorf("account_service_cache_bust_failed: %w", err)
	}

	return nil
}

// # Session Security

// ListSessions returns the user's active refresh tokens.
func (service *Service) ListSessions(context context.Context, userID int64) ([]SessionInfo, error) {
	tokens, err := service.sessionRepository.ListActive(context, userID, service.now())
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, NewSessionInfo(token))
	}
	return sessions, nil
}

// RevokeSession revokes one of the user's own refresh tokens.
func (service *Service) RevokeSession(context context.Context, userID, sessionID int64) error {
	revoked, err := service.sessionRepository.RevokeForUser(context, userID, sessionID, service.now())
	if err != nil {
		return fmt.Errorf("account_service_revoke_session_failed: %w", err)
	}
	if !revoked {
		return ErrSessionNotFound
	}
	return nil
}
