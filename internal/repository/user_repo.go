package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/observability"
)

const userColumns = `id::text, name, username, email, password_hash, favorites, created_at, updated_at`

type UserRepository struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

func NewUserRepository(pool *pgxpool.Pool, metrics *observability.Metrics) *UserRepository {
	return &UserRepository{pool: pool, metrics: metrics}
}

func (r *UserRepository) Insert(ctx context.Context, u model.User) (string, error) {
	var id string
	err := r.metrics.ObserveDB("users.insert", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO users (name, username, email, password_hash, favorites)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id::text`,
			u.Name, u.Username, u.Email, u.PasswordHash, nonNil(u.Favorites)).Scan(&id)
	})
	if isUniqueViolation(err) {
		return "", model.ErrDuplicateKey
	}
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.metrics.ObserveDB("users.find_by_id", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u)
	})
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByField(ctx context.Context, field model.UniqueField, value string) (model.User, error) {
	var query string
	switch field {
	case model.FieldUsername:
		query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	case model.FieldEmail:
		query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	default:
		return model.User{}, fmt.Errorf("find user: unsupported field %q", field)
	}

	var u model.User
	err := r.metrics.ObserveDB("users.find_by_"+string(field), func() error {
		return scanUser(r.pool.QueryRow(ctx, query, value), &u)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by %s: %w", field, err)
	}
	return u, nil
}

func (r *UserRepository) Save(ctx context.Context, u model.User) error {
	var tag pgconn.CommandTag
	err := r.metrics.ObserveDB("users.save", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx,
			`UPDATE users
			 SET name = $2, username = $3, email = $4, password_hash = $5, favorites = $6, updated_at = $7
			 WHERE id = $1`,
			u.ID, u.Name, u.Username, u.Email, u.PasswordHash, nonNil(u.Favorites), time.Now().UTC())
		return execErr
	})
	if isUniqueViolation(err) {
		return model.ErrDuplicateKey
	}
	if isInvalidText(err) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := r.metrics.ObserveDB("users.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return execErr
	})
	if isInvalidText(err) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Favorites, &u.CreatedAt, &u.UpdatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isInvalidText matches ids that are not valid UUID text.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
