package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igarcialujan/user-management-api/internal/model"
	"github.com/igarcialujan/user-management-api/pkg/apierror"
)

type stubValidator struct {
	claims *model.AuthClaims
	err    error
	got    string
}

func (s *stubValidator) ValidateToken(token string) (*model.AuthClaims, error) {
	s.got = token
	return s.claims, s.err
}

func kindWriter(w http.ResponseWriter, _ *http.Request, err error) {
	writeJSONError(w, apierror.KindOf(err).HTTPStatus(), err.Error())
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(claims.UserID))
	})

	t.Run("missing header", func(t *testing.T) {
		m := NewAuthMiddleware(&stubValidator{}, kindWriter)
		rec := httptest.NewRecorder()

		m.RequireAuth(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		m := NewAuthMiddleware(&stubValidator{}, kindWriter)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")

		m.RequireAuth(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("validator error keeps its kind", func(t *testing.T) {
		m := NewAuthMiddleware(&stubValidator{err: apierror.TokenExpired("token expired", errors.New("exp"))}, kindWriter)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")

		m.RequireAuth(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		validator := &stubValidator{claims: &model.AuthClaims{UserID: "u-1"}}
		m := NewAuthMiddleware(validator, kindWriter)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer  tok ")

		m.RequireAuth(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u-1", rec.Body.String())
		assert.Equal(t, "tok", validator.got)
	})
}

func TestLoggingAssignsRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		writeJSONError(w, http.StatusBadRequest, "bad")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "given-id")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", seen)
}

func TestRecoveryReturnsJSON500(t *testing.T) {
	t.Parallel()

	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unexpected server error", body.Error)
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"request timed out"}`, rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestMaxBodyBytes(t *testing.T) {
	t.Parallel()

	var readErr error
	h := MaxBodyBytes(4)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 16)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))

	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, readErr, &tooLarge)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return &buf
}

func logEntries(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()

	entries := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries[entry["msg"].(string)] = entry
	}
	return entries
}

// Not parallel: swaps the default logger.
func TestPanicIsLoggedOnceWithRequestID(t *testing.T) {
	logs := captureLogs(t)

	handler := Logging(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	entries := logEntries(t, logs)
	require.Len(t, entries, 2)

	panicked := entries["panic recovered"]
	require.NotNil(t, panicked)
	assert.Equal(t, "ERROR", panicked["level"])
	assert.Equal(t, "req-42", panicked["request_id"])

	access := entries["request"]
	require.NotNil(t, access)
	assert.Equal(t, "INFO", access["level"])
	assert.EqualValues(t, 500, access["status"])
	assert.Equal(t, "unexpected server error", access["error_message"])
}
