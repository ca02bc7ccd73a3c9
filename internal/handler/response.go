package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/igarcialujan/user-management-api/internal/middleware"
	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

const internalErrorMessage = "unexpected server error"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError is the only place an error becomes a status code. Classified
// errors keep their message; anything else is logged and reported as a
// generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apierror.KindOf(err)
	status := kind.HTTPStatus()
	message := internalErrorMessage

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) && kind != apierror.KindUnknown {
		message = apiErr.Message
	}

	attrs := []any{
		"request_id", middleware.RequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"kind", kind.String(),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// decodeJSON reads exactly one JSON value from the body. An empty body decodes
// to the zero value; anything after the value is rejected.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return bodyError(err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return apierror.Format("invalid JSON body")
		}
		return bodyError(err)
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierror.New(apierror.KindFormat, "request body is too large", err)
	}
	return apierror.New(apierror.KindFormat, "invalid JSON body", err)
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, apierror.NotFound("endpoint not available"))
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	slog.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
	writeJSON(w, http.StatusMethodNotAllowed, model.ErrorResponse{Error: "method not allowed"})
}
