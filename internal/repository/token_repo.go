package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/observability"
)

type TokenRepository struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

func NewTokenRepository(pool *pgxpool.Pool, metrics *observability.Metrics) *TokenRepository {
	return &TokenRepository{pool: pool, metrics: metrics}
}

func (r *TokenRepository) Store(ctx context.Context, token model.RefreshToken) error {
	err := r.metrics.ObserveDB("refresh_tokens.store", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Consume deletes a live token row and returns its owner. A token can be
// consumed once.
func (r *TokenRepository) Consume(ctx context.Context, id string, tokenHash string) (string, error) {
	var userID string
	err := r.metrics.ObserveDB("refresh_tokens.consume", func() error {
		return r.pool.QueryRow(ctx,
			`DELETE FROM refresh_tokens
			 WHERE id = $1 AND token_hash = $2 AND expires_at > now()
			 RETURNING user_id::text`, id, tokenHash).Scan(&userID)
	})
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return "", model.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume refresh token: %w", err)
	}
	return userID, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, id string) error {
	err := r.metrics.ObserveDB("refresh_tokens.revoke", func() error {
		_, execErr := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
		return execErr
	})
	if err != nil && !isInvalidText(err) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	err := r.metrics.ObserveDB("refresh_tokens.revoke_all", func() error {
		_, execErr := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
		return execErr
	})
	if err != nil && !isInvalidText(err) {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	var tag pgconn.CommandTag
	err := r.metrics.ObserveDB("refresh_tokens.clean_expired", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clean expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
