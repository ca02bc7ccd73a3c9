package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/repository"
	"github.com/igarcialujan/user-management-api/internal/security"
	"github.com/igarcialujan/user-management-api/internal/validation"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("stores a verifiable hash, never the password", func(t *testing.T) {
		f := newFixture(t)
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		stored, err := f.users.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.NotEqual(t, "123123123", stored.PasswordHash)
		assert.Equal(t, []string{}, stored.Favorites)

		ok, err := f.hasher.Verify("123123123", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate username or email is a conflict and keeps the first user", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		_, err := f.userSvc.Register(ctx, model.RegisterRequest{Name: "Other", Username: "wendy", Email: "other@x.com", Password: "456456456"})
		require.True(t, apierror.IsKind(err, apierror.KindConflict))
		assert.EqualError(t, err, "conflict: user with this username or email already exists: duplicate key")

		_, err = f.userSvc.Register(ctx, model.RegisterRequest{Name: "Other", Username: "other", Email: "wendypan@x.com", Password: "456456456"})
		require.True(t, apierror.IsKind(err, apierror.KindConflict))

		first, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "wendy", first.Username)
		ok, err := f.hasher.Verify("123123123", first.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects malformed fields", func(t *testing.T) {
		f := newFixture(t)

		cases := map[string]model.RegisterRequest{
			"username is required":                       {Name: "W", Email: "w@x.com", Password: "123123123"},
			"username should have at least 4 characters": {Name: "W", Username: "wen", Email: "w@x.com", Password: "123123123"},
			"username should not have white spaces":      {Name: "W", Username: "wen dy", Email: "w@x.com", Password: "123123123"},
			"please enter a valid email address":         {Name: "W", Username: "wendy", Email: "not-an-email", Password: "123123123"},
			"password should have at least 8 characters": {Name: "W", Username: "wendy", Email: "w@x.com", Password: "123"},
			"name should not have white spaces around":   {Name: " W ", Username: "wendy", Email: "w@x.com", Password: "123123123"},
		}

		for want, req := range cases {
			_, err := f.userSvc.Register(context.Background(), req)
			require.True(t, apierror.IsKind(err, apierror.KindFormat), want)
			var apiErr *apierror.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, want, apiErr.Message)
		}
	})

	t.Run("store faults are not classified", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("Insert", mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

		hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
		require.NoError(t, err)
		svc, err := NewUserService(store, repository.NewMemoryTokenRepository(), hasher, validation.New())
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), model.RegisterRequest{Name: "W", Username: "wendy", Email: "w@x.com", Password: "123123123"})
		require.Error(t, err)
		assert.Equal(t, apierror.KindUnknown, apierror.KindOf(err))
		store.AssertExpectations(t)
	})
}

func TestRetrieveByID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "wendy", "wendypan@x.com", "123123123")

	user, err := f.userSvc.RetrieveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "wendy", user.Username)
	assert.Equal(t, []string{}, user.Favorites)

	_, err = f.userSvc.RetrieveByID(ctx, "missing")
	require.True(t, apierror.IsKind(err, apierror.KindNotFound))
	assert.EqualError(t, err, "not_found: user with id missing not found")
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("favorites only leaves identity and hash untouched", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")
		before, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)

		err = f.userSvc.UpdateProfile(ctx, id, model.ProfilePatch{Favorites: ptr([]string{"a", "b"})})
		require.NoError(t, err)

		after, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, after.Favorites)
		assert.Equal(t, before.Username, after.Username)
		assert.Equal(t, before.Email, after.Email)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
	})

	t.Run("password change re-hashes and revokes sessions", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		pair, err := f.authSvc.Login(ctx, model.LoginRequest{Username: "wendy", Password: "123123123"})
		require.NoError(t, err)

		err = f.userSvc.UpdateProfile(ctx, id, model.ProfilePatch{Password: ptr("123123123"), NewPassword: ptr("456456456")})
		require.NoError(t, err)

		after, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)
		ok, err := f.hasher.Verify("123123123", after.PasswordHash)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = f.hasher.Verify("456456456", after.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = f.authSvc.Refresh(ctx, pair.RefreshToken)
		require.True(t, apierror.IsKind(err, apierror.KindCredentials))
	})

	t.Run("wrong current password changes nothing", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")
		before, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)

		err = f.userSvc.UpdateProfile(ctx, id, model.ProfilePatch{
			Password:    ptr("wrong-password"),
			NewPassword: ptr("456456456"),
			NewUsername: ptr("peter"),
		})
		require.True(t, apierror.IsKind(err, apierror.KindCredentials))
		assert.EqualError(t, err, "credentials: wrong password")

		after, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("new password requires the current one", func(t *testing.T) {
		f := newFixture(t)
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		err := f.userSvc.UpdateProfile(context.Background(), id, model.ProfilePatch{NewPassword: ptr("456456456")})
		require.True(t, apierror.IsKind(err, apierror.KindFormat))
	})

	t.Run("empty staged password is treated as absent", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")
		before, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)

		err = f.userSvc.UpdateProfile(ctx, id, model.ProfilePatch{
			NewName:     ptr("Wendy P."),
			NewPassword: ptr(""),
		})
		require.NoError(t, err)

		after, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Wendy P.", after.Name)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
	})

	t.Run("staged values are committed onto canonical fields", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		err := f.userSvc.UpdateProfile(ctx, id, model.ProfilePatch{
			Username:    ptr("ignored"),
			NewUsername: ptr("wendyp"),
			NewEmail:    ptr("wendy@y.com"),
			Name:        ptr("Wendy P."),
		})
		require.NoError(t, err)

		user, err := f.userSvc.RetrieveByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "wendyp", user.Username)
		assert.Equal(t, "wendy@y.com", user.Email)
		assert.Equal(t, "Wendy P.", user.Name)
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.register(t, "peter", "peter@x.com", "123123123")
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		err := f.userSvc.UpdateProfile(ctx, id, model.ProfilePatch{NewUsername: ptr("peter")})
		require.True(t, apierror.IsKind(err, apierror.KindConflict))
		assert.EqualError(t, err, "conflict: user with that username or email already exists: duplicate key")
	})

	t.Run("empty patch and unknown user", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		err := f.userSvc.UpdateProfile(ctx, "missing", model.ProfilePatch{})
		require.True(t, apierror.IsKind(err, apierror.KindFormat))

		err = f.userSvc.UpdateProfile(ctx, "missing", model.ProfilePatch{Name: ptr("X")})
		require.True(t, apierror.IsKind(err, apierror.KindNotFound))
	})

	t.Run("invalid merged fields are rejected", func(t *testing.T) {
		f := newFixture(t)
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		err := f.userSvc.UpdateProfile(context.Background(), id, model.ProfilePatch{NewEmail: ptr("nope")})
		require.True(t, apierror.IsKind(err, apierror.KindFormat))
	})
}

func TestFavorites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "wendy", "wendypan@x.com", "123123123")

	require.NoError(t, f.userSvc.AddFavorite(ctx, id, "a"))
	require.NoError(t, f.userSvc.AddFavorite(ctx, id, "b"))
	require.NoError(t, f.userSvc.AddFavorite(ctx, id, "a"))
	require.NoError(t, f.userSvc.AddFavorite(ctx, id, "c"))

	user, err := f.userSvc.RetrieveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, user.Favorites)

	require.NoError(t, f.userSvc.RemoveFavorite(ctx, id, "b"))
	require.NoError(t, f.userSvc.RemoveFavorite(ctx, id, "b"))

	user, err = f.userSvc.RetrieveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, user.Favorites)

	require.True(t, apierror.IsKind(f.userSvc.AddFavorite(ctx, id, " "), apierror.KindFormat))
	require.True(t, apierror.IsKind(f.userSvc.RemoveFavorite(ctx, "missing", "a"), apierror.KindNotFound))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("correct password removes the user", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		require.NoError(t, f.userSvc.Delete(ctx, id, "123123123"))

		_, err := f.userSvc.RetrieveByID(ctx, id)
		require.True(t, apierror.IsKind(err, apierror.KindNotFound))
	})

	t.Run("wrong password and unknown id fail identically", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		wrongPassword := f.userSvc.Delete(ctx, id, "wrong")
		unknownID := f.userSvc.Delete(ctx, "missing", "123123123")

		require.True(t, apierror.IsKind(wrongPassword, apierror.KindCredentials))
		require.True(t, apierror.IsKind(unknownID, apierror.KindCredentials))
		assert.Equal(t, wrongPassword.Error(), unknownID.Error())

		_, err := f.userSvc.RetrieveByID(ctx, id)
		require.NoError(t, err)
	})

	t.Run("empty password is a format error", func(t *testing.T) {
		f := newFixture(t)
		id := f.register(t, "wendy", "wendypan@x.com", "123123123")

		err := f.userSvc.Delete(context.Background(), id, "")
		require.True(t, apierror.IsKind(err, apierror.KindFormat))
	})
}

func TestWendyScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	id := f.register(t, "wendy", "wendypan@x.com", "123123123")

	pair, err := f.authSvc.Login(ctx, model.LoginRequest{Username: "wendy", Password: "123123123"})
	require.NoError(t, err)
	claims, err := f.authSvc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, id, claims.UserID)

	err = f.userSvc.Delete(ctx, id, "wrong")
	require.True(t, apierror.IsKind(err, apierror.KindCredentials))
	assert.Equal(t, 401, apierror.KindOf(err).HTTPStatus())

	user, err := f.userSvc.RetrieveByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Wendy Pan", user.Name)
}
