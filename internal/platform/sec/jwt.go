// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, Role
// checks) from the domain logic. It acts as an Infrastructure service injected
// into the session core, which owns every decision about what a token means.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that is malformed, mis-signed,
// expired or minted for a different purpose.
var ErrInvalidToken = errors.New("sec: invalid token")

// # Token Purposes

// TokenPurpose separates the token families that share the signing key.
type TokenPurpose string

const (
	PurposeAccess TokenPurpose = "access"
	PurposeEmail  TokenPurpose = "email"
	PurposeReset  TokenPurpose = "reset"
)

const (
	// EmailTokenTTL bounds the email-confirmation link.
	EmailTokenTTL = 7 * 24 * time.Hour

	// ResetTokenTTL bounds the password-reset link.
	ResetTokenTTL = 1 * time.Hour
)

// TokenClaims is the payload embedded inside every signed token.
//
// Subject is the username for access tokens and the email address for
// confirmation and reset tokens.
type TokenClaims struct {
	jwt.RegisteredClaims

	Purpose TokenPurpose `json:"typ"`
}

// TokenConfig holds the settings needed to build a [TokenService].
type TokenConfig struct {
	// Secret is the symmetric signing key.
	Secret string
	// Algorithm is one of HS256, HS384 or HS512.
	Algorithm string
	// AccessTTL is the lifetime of access tokens.
	AccessTTL time.Duration
}

// TokenService signs and verifies HMAC JWTs.
type TokenService struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
	now       func() time.Time
	parser    *jwt.Parser
}

// TokenOption customizes a [TokenService].
type TokenOption func(*TokenService)

// WithClock replaces the wall clock, which keeps issuance deterministic in tests.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) {
		service.now = now
	}
}

// NewTokenService creates a new TokenService.
//
// Only HMAC algorithms are accepted; asymmetric and "none" methods are rejected
// at construction and again at parse time.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("sec: signing secret is empty")
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("sec: access token ttl must be positive, got %s", cfg.AccessTTL)
	}

	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("sec: unsupported signing algorithm %q", cfg.Algorithm)
	}

	service := &TokenService{
		secret:    []byte(cfg.Secret),
		method:    method,
		accessTTL: cfg.AccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	service.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	return service, nil
}

// AccessTTL reports the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration {
	return service.accessTTL
}

// # Access Tokens

// IssueAccessToken creates a signed access token for username.
// It returns the token and its expiry instant.
func (service *TokenService) IssueAccessToken(username string) (string, time.Time, error) {
	return service.issue(username, PurposeAccess, service.accessTTL)
}

// DecodeAccessToken verifies signature, expiry and purpose of an access token.
func (service *TokenService) DecodeAccessToken(tokenString string) (*TokenClaims, error) {
	return service.decode(tokenString, PurposeAccess)
}

// # Email Tokens

// IssueEmailToken creates the long-lived token embedded in confirmation links.
func (service *TokenService) IssueEmailToken(email string) (string, error) {
	token, _, err := service.issue(email, PurposeEmail, EmailTokenTTL)
	return token, err
}

// ParseEmailToken returns the email address carried by a confirmation token.
func (service *TokenService) ParseEmailToken(tokenString string) (string, error) {
	return service.subject(tokenString, PurposeEmail)
}

// IssueResetToken creates the short-lived token embedded in password-reset links.
func (service *TokenService) IssueResetToken(email string) (string, error) {
	token, _, err := service.issue(email, PurposeReset, ResetTokenTTL)
	return token, err
}

// ParseResetToken returns the email address carried by a reset token.
func (service *TokenService) ParseResetToken(tokenString string) (string, error) {
	return service.subject(tokenString, PurposeReset)
}

// # Internals

func (service *TokenService) issue(subject string, purpose TokenPurpose, ttl time.Duration) (string, time.Time, error) {
	issuedAt := service.now()
	expiresAt := issuedAt.Add(ttl)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
	}

	signedToken, err := jwt.NewWithClaims(service.method, claims).SignedString(service.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, claims.ExpiresAt.Time, nil
}

func (service *TokenService) decode(tokenString string, purpose TokenPurpose) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := service.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return service.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (service *TokenService) subject(tokenString string, purpose TokenPurpose) (string, error) {
	claims, err := service.decode(tokenString, purpose)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
