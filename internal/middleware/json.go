package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/igarcialujan/user-management-api/internal/model"
)

// ErrorWriter renders err as the API error response. The handler package
// provides the implementation so every error goes through one mapping.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: message})
}
