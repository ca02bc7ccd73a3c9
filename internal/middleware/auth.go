package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

type tokenValidator interface {
	ValidateToken(token string) (*model.AuthClaims, error)
}

type contextKey string

const (
	authClaimsContextKey contextKey = "auth_claims"
	requestIDContextKey  contextKey = "request_id"
)

type AuthMiddleware struct {
	validator  tokenValidator
	writeError ErrorWriter
}

func NewAuthMiddleware(validator tokenValidator, writeError ErrorWriter) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, writeError: writeError}
}

// RequireAuth accepts only requests carrying a valid access token as
// "Authorization: Bearer <token>".
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.writeError(w, r, apierror.Credentials("missing or invalid authorization header"))
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
