package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/igarcialujan/user-management-api/internal/auth"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/repository"
	"github.com/igarcialujan/user-management-api/internal/security"
	"github.com/igarcialujan/user-management-api/internal/validation"
)

type fixture struct {
	users   *repository.MemoryUserRepository
	tokens  *repository.MemoryTokenRepository
	hasher  *security.BcryptHasher
	manager *auth.Manager
	userSvc *UserService
	authSvc *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	manager, err := auth.NewManager("test-secret", 10*time.Hour, 24*time.Hour)
	require.NoError(t, err)

	f := &fixture{
		users:   repository.NewMemoryUserRepository(),
		tokens:  repository.NewMemoryTokenRepository(),
		hasher:  hasher,
		manager: manager,
	}

	f.userSvc, err = NewUserService(f.users, f.tokens, hasher, validation.New())
	require.NoError(t, err)
	f.authSvc, err = NewAuthService(f.users, f.tokens, hasher, manager, nil)
	require.NoError(t, err)

	return f
}

func (f *fixture) register(t *testing.T, username string, email string, password string) string {
	t.Helper()

	id, err := f.userSvc.Register(context.Background(), model.RegisterRequest{
		Name:     "Wendy Pan",
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return id
}

func ptr[T any](v T) *T {
	return &v
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Insert(ctx context.Context, user model.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) FindByField(ctx context.Context, field model.UniqueField, value string) (model.User, error) {
	args := m.Called(ctx, field, value)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) Save(ctx context.Context, user model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
