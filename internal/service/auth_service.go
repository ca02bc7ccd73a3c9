package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/igarcialujan/user-management-api/internal/auth"
	"github.com/igarcialujan/user-management-api/internal/event"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/observability"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

const staleRefreshToken = "refresh token is no longer valid"

type AuthService struct {
	publisher
	users   UserStore
	tokens  RefreshTokenStore
	manager TokenManager
	creds   *credentialChecker
	metrics *observability.Metrics
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, hasher PasswordHasher, manager TokenManager, metrics *observability.Metrics) (*AuthService, error) {
	creds, err := newCredentialChecker(hasher)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:   users,
		tokens:  tokens,
		manager: manager,
		creds:   creds,
		metrics: metrics,
	}, nil
}

// WithEvents makes the service publish account events to bus.
func (s *AuthService) WithEvents(bus event.Bus) *AuthService {
	s.bus = bus
	return s
}

// Login authenticates by username, or by email when no username is given.
// Unknown users and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (pair model.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() {
		s.metrics.AuthAttempt("login", err)
		observability.EndSpan(span, err)
	}()

	field, identifier := model.FieldUsername, strings.TrimSpace(req.Username)
	if identifier == "" {
		field, identifier = model.FieldEmail, strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return model.TokenPair{}, apierror.Format("username or email and password are required")
	}

	var target *model.User
	user, err := s.users.FindByField(ctx, field, identifier)
	switch {
	case err == nil:
		target = &user
	case !errors.Is(err, model.ErrUserNotFound):
		return model.TokenPair{}, err
	}

	ok, err := s.creds.matches(req.Password, target)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !ok {
		if target != nil {
			s.publish(event.TypeLoginFailed, target.ID)
		}
		return model.TokenPair{}, apierror.Credentials(wrongCredentials)
	}

	pair, err = s.issuePair(ctx, user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	slog.Info("user logged in", "user_id", user.ID)
	s.publish(event.TypeLogin, user.ID)
	return pair, nil
}

// Refresh rotates a refresh token: the presented one is consumed and a new
// pair is issued. A token can be exchanged once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair model.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Refresh")
	defer func() {
		s.metrics.AuthAttempt("refresh", err)
		observability.EndSpan(span, err)
	}()

	if strings.TrimSpace(refreshToken) == "" {
		return model.TokenPair{}, apierror.Format("refreshToken is required")
	}

	claims, err := s.manager.Validate(refreshToken, auth.TypeRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	ownerID, err := s.tokens.Consume(ctx, claims.TokenID, s.manager.HashRefreshToken(refreshToken))
	if errors.Is(err, model.ErrTokenNotFound) {
		return model.TokenPair{}, apierror.Credentials(staleRefreshToken)
	}
	if err != nil {
		return model.TokenPair{}, err
	}
	if ownerID != claims.UserID {
		return model.TokenPair{}, apierror.Credentials(staleRefreshToken)
	}

	if _, err = s.users.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.TokenPair{}, apierror.Credentials(staleRefreshToken)
		}
		return model.TokenPair{}, err
	}

	pair, err = s.issuePair(ctx, ownerID)
	if err != nil {
		return model.TokenPair{}, err
	}

	s.publish(event.TypeTokenRefreshed, ownerID)
	return pair, nil
}

// Logout revokes one refresh token of subject. Revoking an already revoked
// token succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, subject string) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return apierror.Format("refreshToken is required")
	}

	claims, err := s.manager.Validate(refreshToken, auth.TypeRefresh)
	if err != nil {
		return err
	}
	if claims.UserID != subject {
		return apierror.Credentials(wrongCredentials)
	}

	if err = s.tokens.Revoke(ctx, claims.TokenID); err != nil {
		return err
	}

	slog.Info("user logged out", "user_id", subject)
	s.publish(event.TypeLogout, subject)
	return nil
}

// ValidateToken checks an access token presented on a protected request.
func (s *AuthService) ValidateToken(token string) (*model.AuthClaims, error) {
	return s.manager.Validate(token, auth.TypeAccess)
}

func (s *AuthService) CleanExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.CleanExpired(ctx)
}

func (s *AuthService) issuePair(ctx context.Context, userID string) (model.TokenPair, error) {
	access, _, err := s.manager.IssueAccess(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, jti, expiresAt, err := s.manager.IssueRefresh(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	err = s.tokens.Store(ctx, model.RefreshToken{
		ID:        jti,
		UserID:    userID,
		TokenHash: s.manager.HashRefreshToken(refresh),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.manager.AccessTTL().Seconds()),
	}, nil
}
