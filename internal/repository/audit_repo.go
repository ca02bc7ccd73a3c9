package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/observability"
)

type AuditRepository struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

func NewAuditRepository(pool *pgxpool.Pool, metrics *observability.Metrics) *AuditRepository {
	return &AuditRepository{pool: pool, metrics: metrics}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.ActivityEntry) error {
	err := r.metrics.ObserveDB("activity.append", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO account_activity (id, user_id, action, occurred_at)
			 VALUES ($1, $2, $3, $4)`,
			entry.ID, entry.UserID, entry.Action, entry.OccurredAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("append activity entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	entries := make([]model.ActivityEntry, 0)
	err := r.metrics.ObserveDB("activity.list", func() error {
		rows, queryErr := r.pool.Query(ctx,
			`SELECT id::text, user_id, action, occurred_at
			 FROM account_activity
			 WHERE user_id = $1
			 ORDER BY occurred_at DESC
			 LIMIT $2`, userID, limit)
		if queryErr != nil {
			return queryErr
		}

		collected, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ActivityEntry, error) {
			var e model.ActivityEntry
			var occurredAt time.Time
			if scanErr := row.Scan(&e.ID, &e.UserID, &e.Action, &occurredAt); scanErr != nil {
				return model.ActivityEntry{}, scanErr
			}
			e.OccurredAt = occurredAt.UTC()
			return e, nil
		})
		if collectErr != nil {
			return collectErr
		}
		entries = append(entries, collected...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	return entries, nil
}
