package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/igarcialujan/user-management-api/internal/middleware"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/internal/service"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := h.service.Register(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreatedResponse{ID: id})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := ownedUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.RetrieveByID(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := ownedUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var patch model.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.UpdateProfile(r.Context(), userID, patch); err != nil {
		WriteError(w, r, err)
		return
	}

	writeNoContent(w)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := ownedUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var payload model.DeleteUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), userID, payload.Password); err != nil {
		WriteError(w, r, err)
		return
	}

	writeNoContent(w)
}

func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := ownedUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	ref, err := favoriteRef(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.AddFavorite(r.Context(), userID, ref); err != nil {
		WriteError(w, r, err)
		return
	}

	writeNoContent(w)
}

func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := ownedUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	ref, err := favoriteRef(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), userID, ref); err != nil {
		WriteError(w, r, err)
		return
	}

	writeNoContent(w)
}

// ownedUserID returns the {id} path parameter after checking that the access
// token was issued to that user.
func ownedUserID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apierror.Format("invalid user id")
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", apierror.Credentials("authentication required")
	}
	if claims.UserID != id.String() {
		return "", apierror.Credentials("token does not belong to this user")
	}

	return id.String(), nil
}

// favoriteRef returns the decoded {ref} path parameter. chi matches against
// the escaped path when the request has one, so the value may still be
// percent-encoded (an escaped "/" keeps it that way).
func favoriteRef(r *http.Request) (string, error) {
	ref := chi.URLParam(r, "ref")
	if r.URL.RawPath == "" {
		return ref, nil
	}

	decoded, err := url.PathUnescape(ref)
	if err != nil {
		return "", apierror.Format("invalid favorite reference")
	}
	return decoded, nil
}
