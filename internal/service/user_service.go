package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/igarcialujan/user-management-api/internal/event"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/observability"
	"github.com/igarcialujan/user-management-api/internal/validation"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

const wrongCredentials = "wrong credentials"

type UserService struct {
	publisher
	users     UserStore
	tokens    RefreshTokenStore
	hasher    PasswordHasher
	creds     *credentialChecker
	validator *validation.Validator
}

func NewUserService(users UserStore, tokens RefreshTokenStore, hasher PasswordHasher, validator *validation.Validator) (*UserService, error) {
	creds, err := newCredentialChecker(hasher)
	if err != nil {
		return nil, err
	}

	return &UserService{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		creds:     creds,
		validator: validator,
	}, nil
}

// WithEvents makes the service publish account events to bus.
func (s *UserService) WithEvents(bus event.Bus) *UserService {
	s.bus = bus
	return s
}

// Register stores a new user and returns its id. No token is issued.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (id string, err error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer func() { observability.EndSpan(span, err) }()

	if err = s.validator.Registration(req.Name, req.Username, req.Email, req.Password); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", err
	}

	id, err = s.users.Insert(ctx, model.User{
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Favorites:    []string{},
	})
	if errors.Is(err, model.ErrDuplicateKey) {
		return "", apierror.Conflict("user with this username or email already exists", err)
	}
	if err != nil {
		return "", err
	}

	slog.Info("user registered", "user_id", id)
	s.publish(event.TypeUserRegistered, id)
	return id, nil
}

func (s *UserService) RetrieveByID(ctx context.Context, id string) (user model.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, "UserService.RetrieveByID")
	defer func() { observability.EndSpan(span, err) }()

	found, err := s.findByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}

	return found.Public(), nil
}

// UpdateProfile applies patch to the user. When the current password is sent
// it must match before anything is written; changing the password requires it.
func (s *UserService) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile")
	defer func() { observability.EndSpan(span, err) }()

	changes := patch.Resolve()
	if changes.Empty() {
		return apierror.Format("nothing to update")
	}

	user, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if patch.Password != nil {
		ok, verifyErr := s.creds.matches(*patch.Password, &user)
		if verifyErr != nil {
			return verifyErr
		}
		if !ok {
			return apierror.Credentials("wrong password")
		}
	} else if changes.NewPassword != nil {
		return apierror.Format("current password is required to change password")
	}

	updated := user
	if changes.Name != nil {
		updated.Name = *changes.Name
	}
	if changes.Username != nil {
		updated.Username = *changes.Username
	}
	if changes.Email != nil {
		updated.Email = *changes.Email
	}
	if err = s.validator.Profile(updated.Name, updated.Username, updated.Email); err != nil {
		return err
	}

	if changes.Favorites != nil {
		if slices.ContainsFunc(*changes.Favorites, isBlank) {
			return apierror.Format("favorites should not contain empty values")
		}
		updated.Favorites = slices.Clone(*changes.Favorites)
	}

	if changes.NewPassword != nil {
		if err = s.validator.Password(*changes.NewPassword); err != nil {
			return err
		}
		hash, hashErr := s.hasher.Hash(*changes.NewPassword)
		if hashErr != nil {
			return hashErr
		}
		updated.PasswordHash = hash
	}

	if err = s.save(ctx, updated); err != nil {
		return err
	}

	if changes.NewPassword != nil {
		if err = s.tokens.RevokeAllForUser(ctx, id); err != nil {
			return fmt.Errorf("revoke sessions after password change: %w", err)
		}
		slog.Info("password changed", "user_id", id)
		s.publish(event.TypeUserPasswordChanged, id)
	}

	s.publish(event.TypeUserUpdated, id)
	return nil
}

func (s *UserService) AddFavorite(ctx context.Context, id string, ref string) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.AddFavorite")
	defer func() { observability.EndSpan(span, err) }()

	if isBlank(ref) {
		return apierror.Format("favorite is required")
	}

	user, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if slices.Contains(user.Favorites, ref) {
		return nil
	}

	user.Favorites = append(user.Favorites, ref)
	return s.save(ctx, user)
}

func (s *UserService) RemoveFavorite(ctx context.Context, id string, ref string) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.RemoveFavorite")
	defer func() { observability.EndSpan(span, err) }()

	if isBlank(ref) {
		return apierror.Format("favorite is required")
	}

	user, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	idx := slices.Index(user.Favorites, ref)
	if idx < 0 {
		return nil
	}

	user.Favorites = slices.Delete(user.Favorites, idx, idx+1)
	return s.save(ctx, user)
}

// Delete removes the account after re-authentication. An unknown id and a
// wrong password fail identically.
func (s *UserService) Delete(ctx context.Context, id string, password string) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.Delete")
	defer func() { observability.EndSpan(span, err) }()

	if password == "" {
		return apierror.Format("password is required")
	}

	var target *model.User
	user, err := s.users.FindByID(ctx, id)
	switch {
	case err == nil:
		target = &user
	case !errors.Is(err, model.ErrUserNotFound):
		return err
	}

	ok, err := s.creds.matches(password, target)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.Credentials(wrongCredentials)
	}

	err = s.users.Delete(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.Credentials(wrongCredentials)
	}
	if err != nil {
		return err
	}
	if err = s.tokens.RevokeAllForUser(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions of deleted user: %w", err)
	}

	slog.Info("user deleted", "user_id", id)
	s.publish(event.TypeUserDeleted, id)
	return nil
}

func (s *UserService) findByID(ctx context.Context, id string) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.NotFound(fmt.Sprintf("user with id %s not found", id))
	}
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user model.User) error {
	err := s.users.Save(ctx, user)
	if errors.Is(err, model.ErrDuplicateKey) {
		return apierror.Conflict("user with that username or email already exists", err)
	}
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.NotFound(fmt.Sprintf("user with id %s not found", user.ID))
	}
	return err
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
