package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/igarcialujan/user-management-api/internal/model"
)

var tracer = otel.Tracer("github.com/igarcialujan/user-management-api/internal/service")

// UserStore persists users. Uniqueness of username and email is enforced by
// the store and reported as model.ErrDuplicateKey; absent records as
// model.ErrUserNotFound.
type UserStore interface {
	Insert(ctx context.Context, user model.User) (string, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByField(ctx context.Context, field model.UniqueField, value string) (model.User, error)
	Save(ctx context.Context, user model.User) error
	Delete(ctx context.Context, id string) error
}

type RefreshTokenStore interface {
	Store(ctx context.Context, token model.RefreshToken) error
	Consume(ctx context.Context, id string, tokenHash string) (string, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	CleanExpired(ctx context.Context) (int64, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hash string) (bool, error)
}

type TokenManager interface {
	IssueAccess(subject string) (string, time.Time, error)
	IssueRefresh(subject string) (string, string, time.Time, error)
	Validate(token string, expectedType string) (*model.AuthClaims, error)
	HashRefreshToken(raw string) string
	AccessTTL() time.Duration
}

// ActivityStore keeps the account audit trail. Entries outlive the account.
type ActivityStore interface {
	Append(ctx context.Context, entry model.ActivityEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error)
}
