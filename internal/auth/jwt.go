package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and validates HS256 tokens. It holds no per-token state.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, accessTTL time.Duration, refreshTTL time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *Manager) IssueAccess(subject string) (string, time.Time, error) {
	token, _, expiresAt, err := m.issue(subject, TypeAccess, m.accessTTL)
	return token, expiresAt, err
}

func (m *Manager) IssueRefresh(subject string) (raw string, jti string, expiresAt time.Time, err error) {
	return m.issue(subject, TypeRefresh, m.refreshTTL)
}

func (m *Manager) issue(subject string, tokenType string, ttl time.Duration) (string, string, time.Time, error) {
	now := m.now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return signed, jti, expiresAt, nil
}

// Validate checks signature, expiry and token type. An empty expectedType
// accepts either type.
func (m *Manager) Validate(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierror.TokenExpired("token expired", err)
		}
		return nil, apierror.TokenInvalid("invalid token", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apierror.TokenInvalid("invalid token", nil)
	}

	if expectedType != "" && claims.TokenType != expectedType {
		return nil, apierror.TokenInvalid("invalid token type", nil)
	}

	if claims.Subject == "" {
		return nil, apierror.TokenInvalid("invalid token subject", nil)
	}

	out := &model.AuthClaims{
		UserID:  claims.Subject,
		Type:    claims.TokenType,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}

func Subject(claims *model.AuthClaims) string {
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// HashRefreshToken is the digest persisted for a refresh token; the raw token
// is never stored.
func (m *Manager) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
