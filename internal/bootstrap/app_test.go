package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dochub/internal/bootstrap"
	"dochub/internal/shared/config"
)

func testConfig(t *testing.T, databaseURL string, rateLimit int) config.Config {
	t.Helper()
	return config.Config{
		Port:               "0",
		Env:                "test",
		DatabaseURL:        databaseURL,
		AutoMigrate:        true,
		CORSAllowOrigin:    []string{"http://localhost:5173"},
		ObjectStoreType:    "local",
		LocalStoreDir:      t.TempDir(),
		JWTSecret:          "test-secret",
		JWTIssuer:          "dochub",
		AccessTokenTTL:     time.Hour,
		BcryptCost:         bcrypt.MinCost,
		RateLimitPerWindow: rateLimit,
		RateLimitWindow:    time.Minute,
		MaxUploadBytes:     1 << 20,
	}
}

func build(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := bootstrap.Build(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app.Router
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func registerAndLogin(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"username":"`+username+`","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(r, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	form := url.Values{"username": {username}, "password": {"correct-horse"}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp = serve(r, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &token))
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func uploadRequest(t *testing.T, token, fileName, text string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("keywords", "finance,q1"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func authed(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestEndToEndWithSQLite(t *testing.T) {
	r := build(t, testConfig(t, "sqlite::memory:", 100))

	resp := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"ok":true,"db":"ok"}`, resp.Body.String())

	alice := registerAndLogin(t, r, "alice")
	bob := registerAndLogin(t, r, "bob")

	resp = serve(r, uploadRequest(t, alice, "report.txt", "Quarterly revenue grew"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		ID       string `json:"id"`
		Metadata struct {
			Keywords []string `json:"keywords"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, []string{"finance", "q1"}, created.Metadata.Keywords)

	resp = serve(r, authed(http.MethodGet, "/api/v1/documents/search?q=REVENUE", alice))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), created.ID)

	resp = serve(r, authed(http.MethodGet, "/api/v1/documents/search?q=revenue", bob))
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[]`, resp.Body.String())

	resp = serve(r, authed(http.MethodGet, "/api/v1/documents/"+created.ID, bob))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = serve(r, authed(http.MethodGet, "/api/v1/documents/"+created.ID+"/file", alice))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Quarterly revenue grew", resp.Body.String())

	resp = serve(r, authed(http.MethodDelete, "/api/v1/documents/"+created.ID, alice))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = serve(r, authed(http.MethodGet, "/api/v1/documents/"+created.ID, alice))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = serve(r, authed(http.MethodGet, "/api/v1/users/me", alice))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"username":"alice"`)

	resp = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "documents_uploaded_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := build(t, testConfig(t, "", 100))

	resp := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), `"code":"unauthorized"`)

	resp = serve(r, authed(http.MethodGet, "/api/v1/documents", "not-a-jwt"))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.JSONEq(t, `{"ok":true,"db":"memory"}`, resp.Body.String())

	resp = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	require.Equal(t, http.StatusNotImplemented, resp.Code)
}

func TestRateLimitTwoPerMinute(t *testing.T) {
	r := build(t, testConfig(t, "", 2))

	token := registerAndLogin(t, r, "carol")

	for i := 0; i < 2; i++ {
		resp := serve(r, authed(http.MethodGet, "/api/v1/documents", token))
		require.Equal(t, http.StatusOK, resp.Code)
	}
	resp := serve(r, authed(http.MethodGet, "/api/v1/documents", token))
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.NotEmpty(t, resp.Header().Get("Retry-After"))
	require.Contains(t, resp.Body.String(), `"code":"rate_limited"`)
	require.Contains(t, resp.Body.String(), `"retryAfterMs"`)

	// The public group is keyed by client IP and already spent on register/login.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"carol","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = serve(r, req)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
}
