// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres provides the managed PostgreSQL connection pool that backs
// the credential, refresh-token and contact stores.
//
// # Architecture
//
// This package is part of the Infrastructure layer. Domain packages receive the
// [*pgxpool.Pool] through their constructors and never open connections themselves.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/addressbook/internal/platform/constants"
)

// Pool sizing for a single API replica.
const (
	defaultMaxConns   = 20
	defaultMinConns   = 2
	maxConnLifetime   = 60 * time.Minute
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = 1 * time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// Querier is the statement surface shared by [*pgxpool.Pool] and [pgx.Tx].
// Repositories built on it run unchanged inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStarter opens transactions. [*pgxpool.Pool] satisfies it.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ Querier   = (*pgxpool.Pool)(nil)
	_ TxStarter = (*pgxpool.Pool)(nil)
)

// Options tunes the pool. Zero values fall back to the package defaults.
type Options struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// NewPool creates and validates a new PostgreSQL connection pool.
//
// # Parameters
//   - ctx: Context for the initial connection attempt.
//   - options: DSN and optional sizing.
//   - logger: Structured logger for pool-level events.
func NewPool(ctx context.Context, options Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(options.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if options.MaxConns > 0 {
		poolConfig.MaxConns = options.MaxConns
	}
	poolConfig.MinConns = defaultMinConns
	if options.MinConns > 0 {
		poolConfig.MinConns = options.MinConns
	}
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	// Runaway queries are cut at the request deadline.
	poolConfig.AfterConnect = func(ctx context.Context, connection *pgx.Conn) error {
		timeoutQuery := fmt.Sprintf("SET statement_timeout = '%ds'", int(constants.GlobalRequestTimeout.Seconds()))
		_, err := connection.Exec(ctx, timeoutQuery)
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	stats := pool.Stat()
	logger.Info("postgres_pool_connected",
		slog.Int("max_conns", int(stats.MaxConns())),
		slog.Int("total_conns", int(stats.TotalConns())),
	)

	return pool, nil
}

// Ping verifies that the PostgreSQL connection pool is healthy.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}

// Probe adapts [Ping] to the readiness check signature used by the API server.
func Probe(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return Ping(ctx, pool)
	}
}

/*
WithTx runs fn inside a transaction, committing on success and rolling back on error.

Parameters:
  - ctx: context.Context
  - db: TxStarter (normally the pool)
  - fn: Unit of work receiving the open transaction

Returns:
  - error: fn's error, or a begin/commit failure
*/
func WithTx(ctx context.Context, db TxStarter, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_tx_begin_failed: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("postgres_tx_rollback_failed: %v: %w", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_tx_commit_failed: %w", err)
	}

	return nil
}
