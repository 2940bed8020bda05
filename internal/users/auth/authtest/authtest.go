// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authtest provides in-memory repositories for tests of the session core
// and the packages built on it.
package authtest

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

// # Users

// Users is a concurrency-safe in-memory [auth.UserRepository].
type Users struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]auth.User
	Now    func() time.Time
}

// NewUsers returns an empty repository.
func NewUsers() *Users {
	return &Users{rows: make(map[int64]auth.User), Now: time.Now}
}

func (users *Users) find(match func(auth.User) bool) (*auth.User, error) {
	users.mu.Lock()
	defer users.mu.Unlock()

	for _, row := range users.rows {
		if match(row) {
			found := row
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (users *Users) FindByID(_ context.Context, id int64) (*auth.User, error) {
	return users.find(func(row auth.User) bool { return row.ID == id })
}

func (users *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return users.find(func(row auth.User) bool { return row.Email == email })
}

func (users *Users) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return users.find(func(row auth.User) bool { return row.Username == username })
}

func (users *Users) Create(_ context.Context, user *auth.User) error {
	users.mu.Lock()
	defer users.mu.Unlock()

	for _, row := range users.rows {
		if row.Username == user.Username {
			return auth.ErrUsernameTaken
		}
		if row.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}

	users.nextID++
	user.ID = users.nextID
	user.CreatedAt = users.Now()
	user.UpdatedAt = user.CreatedAt
	users.rows[user.ID] = *user
	return nil
}

func (users *Users) update(match func(auth.User) bool, apply func(*auth.User)) (*auth.User, error) {
	users.mu.Lock()
	defer users.mu.Unlock()

	for id, row := range users.rows {
		if match(row) {
			apply(&row)
			row.UpdatedAt = users.Now()
			users.rows[id] = row
			updated := row
			return &updated, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (users *Users) MarkConfirmed(_ context.Context, email string) error {
	_, err := users.update(
		func(row auth.User) bool { return row.Email == email },
		func(row *auth.User) { row.Confirmed = true },
	)
	return err
}

func (users *Users) UpdateAvatar(_ context.Context, userID int64, url string) (*auth.User, error) {
	return users.update(
		func(row auth.User) bool { return row.ID == userID },
		func(row *auth.User) { row.Avatar = &url },
	)
}

func (users *Users) UpdatePassword(_ context.Context, userID int64, hash string) error {
	_, err := users.update(
		func(row auth.User) bool { return row.ID == userID },
		func(row *auth.User) { row.PasswordHash = hash },
	)
	return err
}

// SetRole changes a stored account's role. Tests use it to build moderators and admins.
func (users *Users) SetRole(username string, role sec.UserRole) {
	_, _ = users.update(
		func(row auth.User) bool { return row.Username == username },
		func(row *auth.User) { row.Role = role },
	)
}

// Confirm marks a stored account as confirmed, the way following the emailed link would.
func (users *Users) Confirm(username string) {
	_, _ = users.update(
		func(row auth.User) bool { return row.Username == username },
		func(row *auth.User) { row.Confirmed = true },
	)
}

// # Refresh Tokens

// RefreshTokens is a concurrency-safe in-memory [auth.RefreshTokenRepository].
type RefreshTokens struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]auth.RefreshToken
	Now    func() time.Time
}

// NewRefreshTokens returns an empty repository.
func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{rows: make(map[int64]auth.RefreshToken), Now: time.Now}
}

func (tokens *RefreshTokens) Create(_ context.Context, token *auth.RefreshToken) error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	for _, row := range tokens.rows {
		if row.TokenHash == token.TokenHash {
			return apperr.Conflict("Resource already exists")
		}
	}

	tokens.nextID++
	token.ID = tokens.nextID
	token.CreatedAt = tokens.Now()
	tokens.rows[token.ID] = *token
	return nil
}

func (tokens *RefreshTokens) FindByHash(_ context.Context, hash string) (*auth.RefreshToken, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	for _, row := range tokens.rows {
		if row.TokenHash == hash {
			found := row
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Refresh token")
}

func (tokens *RefreshTokens) FindActive(context context.Context, hash string, now time.Time) (*auth.RefreshToken, error) {
	token, err := tokens.FindByHash(context, hash)
	if err != nil {
		return nil, err
	}
	if !token.IsActive(now) {
		return nil, apperr.NotFound("Refresh token")
	}
	return token, nil
}

func (tokens *RefreshTokens) RevokeIfActive(_ context.Context, id int64, now time.Time) (bool, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	row, ok := tokens.rows[id]
	if !ok || row.RevokedAt != nil {
		return false, nil
	}
	row.RevokedAt = &now
	tokens.rows[id] = row
	return true, nil
}

func (tokens *RefreshTokens) RevokeAllForUser(_ context.Context, userID int64, now time.Time) (int64, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	var revoked int64
	for id, row := range tokens.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &now
			tokens.rows[id] = row
			revoked++
		}
	}
	return revoked, nil
}

func (tokens *RefreshTokens) DeleteStale(_ context.Context, now, cutoff time.Time) (int64, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	var deleted int64
	for id, row := range tokens.rows {
		if row.ExpiresAt.Before(now) || (row.RevokedAt != nil && row.RevokedAt.Before(cutoff)) {
			delete(tokens.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// Put stores a row as-is. Tests use it to plant expired or revoked tokens.
func (tokens *RefreshTokens) Put(token auth.RefreshToken) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	if token.ID == 0 {
		tokens.nextID++
		token.ID = tokens.nextID
	} else if token.ID > tokens.nextID {
		tokens.nextID = token.ID
	}
	tokens.rows[token.ID] = token
}

// ForUser returns a snapshot of the user's rows ordered by ID.
func (tokens *RefreshTokens) ForUser(userID int64) []auth.RefreshToken {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	var rows []auth.RefreshToken
	for _, row := range tokens.rows {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// Len returns the number of stored rows.
func (tokens *RefreshTokens) Len() int {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	return len(tokens.rows)
}

var (
	_ auth.UserRepository         = (*Users)(nil)
	_ auth.RefreshTokenRepository = (*RefreshTokens)(nil)
	_ auth.Transactor             = (*Transactor)(nil)
)

// ListActive lists the user's active rows, newest first.
func (tokens *RefreshTokens) ListActive(_ context.Context, userID int64, now time.Time) ([]auth.RefreshToken, error) {
	var active []auth.RefreshToken
	for _, row := range tokens.ForUser(userID) {
		if row.IsActive(now) {
			active = append([]auth.RefreshToken{row}, active...)
		}
	}
	return active, nil
}

// RevokeForUser revokes one of the user's unrevoked rows.
func (tokens *RefreshTokens) RevokeForUser(_ context.Context, userID, id int64, now time.Time) (bool, error) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()

	row, ok := tokens.rows[id]
	if !ok || row.UserID != userID || row.RevokedAt != nil {
		return false, nil
	}
	row.RevokedAt = &now
	tokens.rows[id] = row
	return true, nil
}

// # Transactions

// Transactor is an in-memory [auth.Transactor]. A unit of work that fails
// leaves both repositories as they were before it began.
type Transactor struct {
	mu     sync.Mutex
	users  *Users
	tokens *RefreshTokens

	// WrapTokens, when set, decorates the token repository handed to each
	// unit of work. Tests use it to fail a write halfway through.
	WrapTokens func(auth.RefreshTokenRepository) auth.RefreshTokenRepository
}

// NewTransactor binds a transactor to the given repositories.
func NewTransactor(users *Users, tokens *RefreshTokens) *Transactor {
	return &Transactor{users: users, tokens: tokens}
}

// WithinTx runs fn and restores both stores if it returns an error.
// Units of work are serialized.
func (transactor *Transactor) WithinTx(_ context.Context, fn func(auth.UserRepository, auth.RefreshTokenRepository) error) error {
	transactor.mu.Lock()
	defer transactor.mu.Unlock()

	userRows, userNext := transactor.users.snapshot()
	tokenRows, tokenNext := transactor.tokens.snapshot()

	var tokens auth.RefreshTokenRepository = transactor.tokens
	if transactor.WrapTokens != nil {
		tokens = transactor.WrapTokens(tokens)
	}

	if err := fn(transactor.users, tokens); err != nil {
		transactor.users.restore(userRows, userNext)
		transactor.tokens.restore(tokenRows, tokenNext)
		return err
	}
	return nil
}

func (users *Users) snapshot() (map[int64]auth.User, int64) {
	users.mu.Lock()
	defer users.mu.Unlock()
	return maps.Clone(users.rows), users.nextID
}

func (users *Users) restore(rows map[int64]auth.User, nextID int64) {
	users.mu.Lock()
	defer users.mu.Unlock()
	users.rows, users.nextID = rows, nextID
}

func (tokens *RefreshTokens) snapshot() (map[int64]auth.RefreshToken, int64) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	return maps.Clone(tokens.rows), tokens.nextID
}

func (tokens *RefreshTokens) restore(rows map[int64]auth.RefreshToken, nextID int64) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.rows, tokens.nextID = rows, nextID
}
