// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/database/schema"
	"github.com/taibuivan/addressbook/internal/platform/dberr"
	"github.com/taibuivan/addressbook/internal/platform/postgres"
)

// # Postgres Repositories
//
// Storage-specific errors (pgx.ErrNoRows, unique violations) are mapped to
// [apperr.AppError] values so the service never sees driver details.

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	db postgres.Querier
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
// db is the pool, or an open transaction.
func NewUserRepository(db postgres.Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

var userColumns = schema.List(schema.Users.Columns()...)

func scanUser(row rowScanner) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Avatar,
		&user.Confirmed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user record and back-fills the generated ID and timestamps.

Description: Unique violations are translated into [ErrUsernameTaken] or
[ErrEmailTaken] so a concurrent registration that slips past the service's
pre-checks still yields the right Conflict.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Conflict sentinels or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s, %s`,
		schema.Users.Table,
		schema.Users.Username, schema.Users.Email, schema.Users.PasswordHash,
		schema.Users.Role, schema.Users.Avatar, schema.Users.Confirmed,
		schema.Users.ID, schema.Users.CreatedAt, schema.Users.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Avatar,
		user.Confirmed,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			switch dberr.ConstraintName(err) {
			case schema.Users.UsernameKey:
				return ErrUsernameTaken
			case schema.Users.EmailKey:
				return ErrEmailTaken
			}
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves a user record by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	return repository.findOne(context, schema.Users.ID, id, "find_by_id")
}

// FindByEmail retrieves a user record by their unique email address.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, schema.Users.Email, email, "find_by_email")
}

// FindByUsername retrieves a user record by their unique username.
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, schema.Users.Username, username, "find_by_username")
}

func (repository *PostgresUserRepository) findOne(context context.Context, column string, value any, action string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, userColumns, schema.Users.Table, column)

	user, err := scanUser(repository.db.QueryRow(context, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", action, err)
	}

	return user, nil
}

/*
MarkConfirmed sets confirmed = true for the account owning the email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: apperr.NotFound if no row matched, or database errors
*/
func (repository *PostgresUserRepository) MarkConfirmed(context context.Context, email string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE, %s = NOW() WHERE %s = $1`,
		schema.Users.Table, schema.Users.Confirmed, schema.Users.UpdatedAt, schema.Users.Email,
	)

	tag, err := repository.db.Exec(context, query, email)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_confirmed_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// UpdateAvatar stores the new avatar URL and returns the refreshed row.
func (repository *PostgresUserRepository) UpdateAvatar(context context.Context, userID int64, url string) (*User, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1 RETURNING %s`,
		schema.Users.Table, schema.Users.Avatar, schema.Users.UpdatedAt, schema.Users.ID, userColumns,
	)

	user, err := scanUser(repository.db.QueryRow(context, query, userID, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_update_avatar_failed: %w", err)
	}

	return user, nil
}

// UpdatePassword replaces only the password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID int64, newHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		schema.Users.Table, schema.Users.PasswordHash, schema.Users.UpdatedAt, schema.Users.ID,
	)

	tag, err := repository.db.Exec(context, query, userID, newHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements RefreshTokenRepository using pgx.
type PostgresRefreshTokenRepository struct {
	db postgres.Querier
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of the RefreshTokenRepository.
func NewRefreshTokenRepository(db postgres.Querier) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

var refreshTokenColumns = schema.List(schema.RefreshTokens.Columns()...)

func scanRefreshToken(row rowScanner) (*RefreshToken, error) {
	token := &RefreshToken{}
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.IPAddress,
		&token.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

/*
Create persists a refresh token row. Only the hash is ever written.

Parameters:
  - context: context.Context
  - token: *RefreshToken

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s, %s`,
		schema.RefreshTokens.Table,
		schema.RefreshTokens.UserID, schema.RefreshTokens.TokenHash, schema.RefreshTokens.ExpiredAt,
		schema.RefreshTokens.IPAddress, schema.RefreshTokens.UserAgent,
		schema.RefreshTokens.ID, schema.RefreshTokens.CreatedAt,
	)

	err := repository.db.QueryRow(context, query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.IPAddress,
		token.UserAgent,
	).Scan(&token.ID, &token.CreatedAt)

	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_create_failed: %w", err)
	}

	return nil
}

// FindByHash returns the row matching the hash in any state.
func (repository *PostgresRefreshTokenRepository) FindByHash(context context.Context, tokenHash string) (*RefreshToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		refreshTokenColumns, schema.RefreshTokens.Table, schema.RefreshTokens.TokenHash,
	)
	return repository.findOne(context, "find_by_hash", query, tokenHash)
}

/*
FindActive returns the row only if it is unrevoked and unexpired at now.

Parameters:
  - context: context.Context
  - tokenHash: string
  - now: time.Time

Returns:
  - *RefreshToken: Active row
  - error: apperr.NotFound if absent or inactive, otherwise database errors
*/
func (repository *PostgresRefreshTokenRepository) FindActive(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL AND %s > $2`,
		refreshTokenColumns, schema.RefreshTokens.Table,
		schema.RefreshTokens.TokenHash, schema.RefreshTokens.RevokedAt, schema.RefreshTokens.ExpiredAt,
	)
	return repository.findOne(context, "find_active", query, tokenHash, now)
}

func (repository *PostgresRefreshTokenRepository) findOne(context context.Context, action, query string, args ...any) (*RefreshToken, error) {
	token, err := scanRefreshToken(repository.db.QueryRow(context, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_%s_failed: %w", action, err)
	}
	return token, nil
}

/*
RevokeIfActive is the compare-and-set that makes rotation single-use.

Description: Only the caller whose UPDATE flips revoked_at from NULL wins;
every concurrent caller sees zero affected rows.

Parameters:
  - context: context.Context
  - id: int64
  - now: time.Time

Returns:
  - bool: true if this call revoked the token
  - error: Persistence failures
*/
func (repository *PostgresRefreshTokenRepository) RevokeIfActive(context context.Context, id int64, now time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1 AND %s IS NULL`,
		schema.RefreshTokens.Table, schema.RefreshTokens.RevokedAt,
		schema.RefreshTokens.ID, schema.RefreshTokens.RevokedAt,
	)

	tag, err := repository.db.Exec(context, query, id, now)
	if err != nil {
		return false, fmt.Errorf("postgres_refresh_token_repo_revoke_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// RevokeAllForUser revokes every still-unrevoked token of the user.
func (repository *PostgresRefreshTokenRepository) RevokeAllForUser(context context.Context, userID int64, now time.Time) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1 AND %s IS NULL`,
		schema.RefreshTokens.Table, schema.RefreshTokens.RevokedAt,
		schema.RefreshTokens.UserID, schema.RefreshTokens.RevokedAt,
	)

	tag, err := repository.db.Exec(context, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_revoke_all_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

/*
DeleteStale physically removes tokens that can never be used again.

Parameters:
  - context: context.Context
  - now: time.Time (rows expired before this are removed)
  - cutoff: time.Time (rows revoked before this are removed)

Returns:
  - int64: Number of deleted rows
  - error: Persistence failures
*/
func (repository *PostgresRefreshTokenRepository) DeleteStale(context context.Context, now, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1 OR (%s IS NOT NULL AND %s < $2)`,
		schema.RefreshTokens.Table,
		schema.RefreshTokens.ExpiredAt, schema.RefreshTokens.RevokedAt, schema.RefreshTokens.RevokedAt,
	)

	tag, err := repository.db.Exec(context, query, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_delete_stale_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

// # Transactions

// PostgresTransactor runs credential writes in a single pgx transaction.
type PostgresTransactor struct {
	db postgres.TxStarter
}

// NewTransactor creates a [Transactor] over the pool.
func NewTransactor(db postgres.TxStarter) *PostgresTransactor {
	return &PostgresTransactor{db: db}
}

// WithinTx hands fn repositories bound to one transaction; fn's error rolls everything back.
func (transactor *PostgresTransactor) WithinTx(context context.Context, fn func(UserRepository, RefreshTokenRepository) error) error {
	return postgres.WithTx(context, transactor.db, func(tx pgx.Tx) error {
		return fn(NewUserRepository(tx), NewRefreshTokenRepository(tx))
	})
}
