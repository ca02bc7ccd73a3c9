package handler

import (
	"net/http"

	"github.com/igarcialujan/user-management-api/internal/middleware"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/service"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	tokens, err := h.service.Login(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, r, apierror.Credentials("authentication required"))
		return
	}

	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.Logout(r.Context(), payload.RefreshToken, claims.UserID); err != nil {
		WriteError(w, r, err)
		return
	}

	writeNoContent(w)
}
