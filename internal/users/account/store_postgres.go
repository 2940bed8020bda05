// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/addressbook/internal/platform/database/schema"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] over the refresh_tokens table.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
ListActive lists every valid, non-expired session for a user.

Description: Columns are selected in [auth.RefreshToken] field order so rows
can be collected positionally.

Parameters:
  - context: context.Context
  - userID: int64
  - now: time.Time

Returns:
  - []auth.RefreshToken: Active rows, newest first
  - error: Retrieval errors
*/
func (repository *PostgresSessionRepository) ListActive(context context.Context, userID int64, now time.Time) ([]auth.RefreshToken, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s IS NULL AND %s > $2
		ORDER BY %s DESC`,
		schema.List(schema.RefreshTokens.Columns()...), schema.RefreshTokens.Table,
		schema.RefreshTokens.UserID, schema.RefreshTokens.RevokedAt, schema.RefreshTokens.ExpiredAt,
		schema.RefreshTokens.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}

	tokens, err := pgx.CollectRows(rows, pgx.RowToStructByPos[auth.RefreshToken])
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_scan_failed: %w", err)
	}

	return tokens, nil
}

/*
RevokeForUser marks one session as revoked, scoped to its owner.

Parameters:
  - context: context.Context
  - userID: int64 (Security constraint: owner validation)
  - id: int64
  - now: time.Time

Returns:
  - bool: false if nothing matched
  - error: Revocation failures
*/
func (repository *PostgresSessionRepository) RevokeForUser(context context.Context, userID, id int64, now time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $3 WHERE %s = $1 AND %s = $2 AND %s IS NULL`,
		schema.RefreshTokens.Table, schema.RefreshTokens.RevokedAt,
		schema.RefreshTokens.ID, schema.RefreshTokens.UserID, schema.RefreshTokens.RevokedAt,
	)

	tag, err := repository.pool.Exec(context, query, id, userID, now)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

var _ SessionRepository = (*PostgresSessionRepository)(nil)
