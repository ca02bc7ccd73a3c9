package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/igarcialujan/user-management-api/internal/service"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Activity lists the caller's own account events, newest first.
func (h *AuditHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, err := ownedUserID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			WriteError(w, r, apierror.Format("limit must be a positive integer"))
			return
		}
	}

	list, err := h.service.Activity(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}
