//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/igarcialujan/user-management-api/internal/app"
	"github.com/igarcialujan/user-management-api/internal/config"
)

type tokenPair struct {
	ID           string `json:"id"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type errorBody struct {
	Error string `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:              "0",
		ServerReadHeaderTimeout: 5 * time.Second,
		ServerWriteTimeout:      10 * time.Second,
		ServerIdleTimeout:       30 * time.Second,
		ShutdownTimeout:         5 * time.Second,
		RequestTimeout:          10 * time.Second,
		StoreDriver:             config.StoreDriverMemory,
		DBMaxConns:              1,
		DBConnectMaxAttempts:    1,
		JWTSecret:               "integration-secret",
		JWTAccessTTL:            10 * time.Hour,
		JWTRefreshTTL:           24 * time.Hour,
		BcryptCost:              4,
		CORSOrigins:             []string{"*"},
		LogLevel:                "error",
		LogFormat:               "json",
		ServiceName:             "user-management-api-test",
		MetricsEnabled:          true,
		TokenCleanupInterval:    time.Hour,
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		server.Close()
		application.Close(context.Background())
	})

	return server
}

func doJSON(t *testing.T, method string, url string, body any, accessToken string) *http.Response {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerUser(t *testing.T, baseURL string, username string, email string, password string) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, baseURL+"/api/v1/users", map[string]string{
		"name":     "Wendy Pan",
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[struct {
		ID string `json:"id"`
	}](t, resp)
	require.NotEmpty(t, created.ID)

	return created.ID
}

func login(t *testing.T, baseURL string, username string, password string) tokenPair {
	t.Helper()

	resp := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pair := decode[tokenPair](t, resp)
	require.NotEmpty(t, pair.Token)
	require.NotEmpty(t, pair.RefreshToken)

	return pair
}
