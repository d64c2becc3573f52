package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dochub/internal/shared/auth"
)

type stubVerifier struct {
	token    string
	identity auth.Identity
}

func (s stubVerifier) Verify(token string) (auth.Identity, error) {
	if token != s.token {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return s.identity, nil
}

func newAuthRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(v))
	router.GET("/api/v1/users/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserIDFromContext(c), "username": UsernameFromContext(c)})
	})
	router.OPTIONS("/api/v1/users/me", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter(stubVerifier{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingOrBadToken(t *testing.T) {
	router := newAuthRouter(stubVerifier{token: "good"})

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
		if resp.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Fatalf("header %q: expected WWW-Authenticate challenge", header)
		}
	}
}

func TestAuthStoresIdentity(t *testing.T) {
	router := newAuthRouter(stubVerifier{
		token:    "good",
		identity: auth.Identity{UserID: "user-1", Username: "alice"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "bearer good")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != `{"id":"user-1","username":"alice"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := auth.NewManager("secret", "dochub", time.Minute, false)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	token, _, err := m.WithClock(func() time.Time { return issued }).Sign("user-1", "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	router := newAuthRouter(m.WithClock(func() time.Time { return issued.Add(2 * time.Minute) }))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", resp.Code)
	}
}
