package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igarcialujan/user-management-api/internal/model"
)

type Options struct {
	URL          string
	MaxConns     int32
	MinConns     int32
	MaxAttempts  uint
	MaxInterval  time.Duration
	RetryInitial time.Duration
}

// DB owns the connection pool for the lifetime of the process.
type DB struct {
	Pool *pgxpool.Pool
}

// Connect opens the pool and retries the first ping with exponential backoff.
// It returns only once the server answered or the attempts ran out.
func Connect(ctx context.Context, opts Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	policy := backoff.NewExponentialBackOff()
	if opts.RetryInitial > 0 {
		policy.InitialInterval = opts.RetryInitial
	}
	if opts.MaxInterval > 0 {
		policy.MaxInterval = opts.MaxInterval
	}

	attempts := opts.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create connection pool: %w", err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return pool, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("database not reachable, retrying", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return nil, err
	}

	db := &DB{Pool: pool}

	slog.Info("database connected", "max_conns", opts.MaxConns, "min_conns", opts.MinConns)
	return db, nil
}

// Ping reports model.ErrStoreNotReady, joined with the cause, while the server
// cannot be reached.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return model.ErrStoreNotReady
	}

	if err := db.Pool.Ping(ctx); err != nil {
		return errors.Join(model.ErrStoreNotReady, err)
	}
	return nil
}

func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}
