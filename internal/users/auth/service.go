// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/config"
	"github.com/taibuivan/addressbook/internal/platform/mailer"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/pkg/pointer"
)

// # Contracts & Types

// TokenCodec is the subset of [sec.TokenService] the session core needs.
type TokenCodec interface {
	IssueAccessToken(username string) (string, time.Time, error)
	DecodeAccessToken(token string) (*sec.TokenClaims, error)
	IssueEmailToken(email string) (string, error)
}

// AvatarResolver derives a default avatar URL from an email address.
type AvatarResolver interface {
	Resolve(context context.Context, email string) (string, error)
}

// Service implements the session core: registration, login, refresh rotation,
// revocation and current-user resolution.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// rotation or revocation must be reviewed by the security team.
type Service struct {
	userRepository         UserRepository
	refreshTokenRepository RefreshTokenRepository
	cache                  Cache
	codec                  TokenCodec

	avatars          AvatarResolver
	notifier         mailer.Notifier
	logger           *slog.Logger
	refreshTTL       time.Duration
	trustCachedLogin bool
	now              func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithRefreshTTL sets the refresh-token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(service *Service) { service.refreshTTL = ttl }
}

// WithTrustCachedLogin toggles the cache-hit shortcut in [Service.Authenticate].
func WithTrustCachedLogin(trust bool) Option {
	return func(service *Service) { service.trustCachedLogin = trust }
}

// WithAvatarResolver sets the best-effort avatar lookup used at registration.
func WithAvatarResolver(resolver AvatarResolver) Option {
	return func(service *Service) { service.avatars = resolver }
}

// WithNotifier sets the outbound mail hook used at registration.
func WithNotifier(notifier mailer.Notifier) Option {
	return func(service *Service) { service.notifier = notifier }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(service *Service) { service.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// FromConfig applies the token and cache settings of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(service *Service) {
		service.refreshTTL = cfg.RefreshTokenTTL()
		service.trustCachedLogin = cfg.TrustCachedLogin
	}
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	refreshRepo RefreshTokenRepository,
	cache Cache,
	codec TokenCodec,
	opts ...Option,
) *Service {
	service := &Service{
		userRepository:         userRepo,
		refreshTokenRepository: refreshRepo,
		cache:                  cache,
		codec:                  codec,
		notifier:               mailer.Discard{},
		logger:                 slog.Default(),
		refreshTTL:             7 * 24 * time.Hour,
		trustCachedLogin:       true,
		now:                    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	// Host is the public base URL used to build the confirmation link.
	Host string
}

/*
Register validates uniqueness, hashes the password and persists a new account.

Description: Username is checked before email, so a request clashing on both
reports [ErrUsernameTaken]. The avatar lookup and the confirmation email are
best-effort; neither can fail the registration.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity (confirmed=false, role=user)
  - error: ErrUsernameTaken, ErrEmailTaken or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// 1. Uniqueness, username first
	if exists, err := service.exists(service.userRepository.FindByUsername(context, input.Username)); err != nil {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	} else if exists {
		return nil, ErrUsernameTaken
	}

	if exists, err := service.exists(service.userRepository.FindByEmail(context, input.Email)); err != nil {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	} else if exists {
		return nil, ErrEmailTaken
	}

	// 2. Never store plain-text passwords
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
		Avatar:       service.resolveAvatar(context, input.Email),
		Confirmed:    false,
	}

	// 3. Persist. A concurrent duplicate surfaces here as a Conflict sentinel.
	if err := service.userRepository.Create(context, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	// 4. Fire-and-forget confirmation email
	service.RequestConfirmation(context, user, input.Host)

	return user, nil
}

// RequestConfirmation issues an email token for user and hands it to the notifier.
// Failures are logged and never returned.
func (service *Service) RequestConfirmation(context context.Context, user *User, host string) {
	token, err := service.codec.IssueEmailToken(user.Email)
	if err != nil {
		service.logger.ErrorContext(context, "email_token_issue_failed", slog.Any("error", err))
		return
	}

	event := mailer.ConfirmationRequested{
		Email:    user.Email,
		Username: user.Username,
		Host:     host,
		Token:    token,
	}
	if err := service.notifier.SendConfirmation(context, event); err != nil {
		service.logger.WarnContext(context, "confirmation_email_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}
}

func (service *Service) resolveAvatar(context context.Context, email string) *string {
	if service.avatars == nil {
		return nil
	}

	url, err := service.avatars.Resolve(context, email)
	if err != nil {
		service.logger.WarnContext(context, "avatar_lookup_failed", slog.Any("error", err))
		return nil
	}

	return pointer.NilIfZero(url)
}

// exists folds a lookup result into found / not-found / failure.
func (service *Service) exists(_ *User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case apperr.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// # Authentication Flow

/*
Authenticate verifies a username/password pair.

Description: When cached-login trust is enabled, a profile cache hit is
returned without re-checking the password. The window is bounded by the
profile TTL; every credential change deletes the entry.

Parameters:
  - context: context.Context
  - username: string
  - password: string

Returns:
  - *User: Authenticated account
  - error: ErrBadCredentials, ErrEmailNotConfirmed or infrastructure errors
*/
func (service *Service) Authenticate(context context.Context, username, password string) (*User, error) {

	if service.trustCachedLogin {
		cached, err := service.cache.GetCachedUser(context, username)
		if err != nil {
			return nil, fmt.Errorf("auth_service_cache_lookup_failed: %w", err)
		}
		if cached != nil {
			if !cached.Confirmed {
				return nil, ErrEmailNotConfirmed
			}
			return cached, nil
		}
	}

	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("auth_service_authenticate_failed: %w", err)
	}

	if !user.Confirmed {
		return nil, ErrEmailNotConfirmed
	}

	// bcrypt compares in constant time
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrBadCredentials
	}

	if err := service.cache.CacheUser(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_cache_user_failed: %w", err)
	}

	return user, nil
}

// CreateAccessToken signs a new access token for username.
func (service *Service) CreateAccessToken(username string) (string, error) {
	token, _, err := service.codec.IssueAccessToken(username)
	if err != nil {
		return "", fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}
	return token, nil
}

/*
CreateRefreshToken mints a refresh secret and persists only its hash.

Parameters:
  - context: context.Context
  - userID: int64
  - ip: string (optional, empty means unknown)
  - userAgent: string (optional)

Returns:
  - string: The raw secret; this is the only time it exists server-side
  - error: Generation or persistence failures
*/
func (service *Service) CreateRefreshToken(context context.Context, userID int64, ip, userAgent string) (string, error) {
	raw, hash, err := sec.IssueRefreshSecret()
	if err != nil {
		return "", fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	token := &RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: service.now().Add(service.refreshTTL),
		IPAddress: pointer.NilIfZero(truncate(ip, 50)),
		UserAgent: pointer.NilIfZero(userAgent),
	}

	if err := service.refreshTokenRepository.Create(context, token); err != nil {
		return "", fmt.Errorf("auth_service_refresh_token_persist_failed: %w", err)
	}

	return raw, nil
}

/*
ValidateRefreshToken resolves an active refresh token and its owner.

Returns:
  - *User: Owning account
  - *RefreshToken: The active row
  - error: ErrInvalidRefreshToken if absent, inactive or orphaned
*/
func (service *Service) ValidateRefreshToken(context context.Context, raw string) (*User, *RefreshToken, error) {
	token, err := service.refreshTokenRepository.FindActive(context, sec.HashToken(raw), service.now())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	user, err := service.userRepository.FindByID(context, token.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("auth_service_refresh_owner_failed: %w", err)
	}

	return user, token, nil
}

// RevokeRefreshToken revokes the active token matching raw. Unknown or inactive tokens are a no-op.
func (service *Service) RevokeRefreshToken(context context.Context, raw string) error {
	token, err := service.refreshTokenRepository.FindActive(context, sec.HashToken(raw), service.now())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("auth_service_revoke_lookup_failed: %w", err)
	}

	if _, err := service.refreshTokenRepository.RevokeIfActive(context, token.ID, service.now()); err != nil {
		return fmt.Errorf("auth_service_revoke_failed: %w", err)
	}

	return nil
}

// RevokeAccessToken blacklists a still-valid access token until its natural expiry.
func (service *Service) RevokeAccessToken(context context.Context, token string) error {
	claims, err := service.codec.DecodeAccessToken(token)
	if err != nil {
		return ErrInvalidToken
	}

	if err := service.cache.RevokeToken(context, token, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("auth_service_blacklist_failed: %w", err)
	}

	return nil
}

/*
CurrentUser resolves the account behind a bearer token.

Description: Blacklist first, then signature and expiry, then the profile
cache with the store as fallback.

Parameters:
  - context: context.Context
  - token: string (raw access token)

Returns:
  - *User: Resolved account (may be a password-less cached copy)
  - error: ErrTokenRevoked, ErrInvalidToken, ErrBadCredentials or infrastructure errors
*/
func (service *Service) CurrentUser(context context.Context, token string) (*User, error) {

	revoked, err := service.cache.IsTokenRevoked(context, token)
	if err != nil {
		return nil, fmt.Errorf("auth_service_blacklist_check_failed: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := service.codec.DecodeAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	username := claims.Subject
	if username == "" {
		return nil, ErrBadCredentials
	}

	cached, err := service.cache.GetCachedUser(context, username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_cache_lookup_failed: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("auth_service_current_user_failed: %w", err)
	}

	if err := service.cache.CacheUser(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_cache_user_failed: %w", err)
	}

	return user, nil
}

// # Session Lifecycle

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// Login authenticates the user and issues a fresh access/refresh pair.
func (service *Service) Login(context context.Context, input LoginInput) (*TokenPair, error) {
	user, err := service.Authenticate(context, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	pair, err := service.issuePair(context, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "user_logged_in", slog.Int64("user_id", user.ID))
	return pair, nil
}

/*
Refresh implements single-use refresh token rotation.

Description: The old token is claimed with a compare-and-set before anything is
issued. Of two concurrent calls with the same secret exactly one wins; the other
gets [ErrInvalidRefreshToken]. A crash after the claim leaves the user with no
active token rather than two.

Parameters:
  - context: context.Context
  - raw: string (the refresh secret being spent)
  - ip: string
  - userAgent: string

Returns:
  - *TokenPair: New access and refresh tokens
  - error: ErrInvalidRefreshToken or infrastructure errors
*/
func (service *Service) Refresh(context context.Context, raw, ip, userAgent string) (*TokenPair, error) {

	// 1. Resolve the active token and its owner
	user, token, err := service.ValidateRefreshToken(context, raw)
	if err != nil {
		return nil, err
	}

	// 2. Claim it. Zero affected rows means another request already spent it.
	claimed, err := service.refreshTokenRepository.RevokeIfActive(context, token.ID, service.now())
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}
	if !claimed {
		service.logger.WarnContext(context, "refresh_token_reuse_detected", slog.Int64("user_id", user.ID))
		return nil, ErrInvalidRefreshToken
	}

	// 3. Issue the replacement pair
	pair, err := service.issuePair(context, user, ip, userAgent)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "refresh_token_rotated", slog.Int64("user_id", user.ID))
	return pair, nil
}

/*
Logout kills both credentials of a session.

Description: The refresh token must be active and owned by the access token's
subject; otherwise a caller could revoke somebody else's session.

Parameters:
  - context: context.Context
  - accessToken: string
  - refreshToken: string

Returns:
  - error: ErrInvalidRefreshToken, ErrInvalidToken or infrastructure errors
*/
func (service *Service) Logout(context context.Context, accessToken, refreshToken string) error {
	owner, _, err := service.ValidateRefreshToken(context, refreshToken)
	if err != nil {
		return err
	}

	claims, err := service.codec.DecodeAccessToken(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.Subject != owner.Username {
		return ErrInvalidRefreshToken
	}

	if err := service.RevokeAccessToken(context, accessToken); err != nil {
		return err
	}

	if err := service.RevokeRefreshToken(context, refreshToken); err != nil {
		return err
	}

	service.logger.InfoContext(context, "user_logged_out", slog.Int64("user_id", owner.ID))
	return nil
}

func (service *Service) issuePair(context context.Context, user *User, ip, userAgent string) (*TokenPair, error) {
	accessToken, err := service.CreateAccessToken(user.Username)
	if err != nil {
		return nil, err
	}

	refreshToken, err := service.CreateRefreshToken(context, user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
	}, nil
}

// truncate caps s at max bytes to fit the ip_address column.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
