package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(limiter Limiter, rules map[string]RateLimitRule, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userId", userID)
		}
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			if c.FullPath() == "/api/v1/auth/login" {
				return "AUTH"
			}
			return "DEFAULT"
		},
		Limiter: limiter,
		Rules:   rules,
	}))
	r.GET("/api/v1/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRateLimitTwoPerMinute(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	r := newLimitedRouter(limiter, map[string]RateLimitRule{
		"DEFAULT": {Limit: 2, Window: time.Minute},
	}, "user-1")

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	start := now
	for _, at := range []time.Duration{10 * time.Second, 31 * time.Second, 59*time.Second + 999*time.Millisecond} {
		now = start.Add(at)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
		if resp.Code != http.StatusTooManyRequests {
			t.Fatalf("request at +%s expected 429, got %d", at, resp.Code)
		}
	}

	// A new window opens once the minute is over.
	now = start.Add(time.Minute)
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d in next window expected 200, got %d", i+1, resp.Code)
		}
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("third request in next window expected 429, got %d", resp.Code)
	}
}

func TestRateLimiterRetryAfterCountsDownToWindowEnd(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Limit: 1, Window: time.Minute}

	if ok, _, _ := limiter.Allow(context.Background(), "k", rule); !ok {
		t.Fatalf("expected first request to pass")
	}
	now = now.Add(45 * time.Second)
	ok, retryAfter, err := limiter.Allow(context.Background(), "k", rule)
	if err != nil || ok {
		t.Fatalf("expected rejection, got ok=%v err=%v", ok, err)
	}
	if retryAfter != 15*time.Second {
		t.Fatalf("expected 15s until reset, got %s", retryAfter)
	}
}

func TestRateLimitKeysAreIsolated(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rules := map[string]RateLimitRule{
		"DEFAULT": {Limit: 1, Window: time.Minute},
		"AUTH":    {Limit: 1, Window: time.Minute},
	}
	alice := newLimitedRouter(limiter, rules, "alice")
	bob := newLimitedRouter(limiter, rules, "bob")

	for _, r := range []*gin.Engine{alice, bob} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected first request per user to pass, got %d", resp.Code)
		}
	}

	// Same user, different group.
	resp := httptest.NewRecorder()
	alice.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected separate AUTH window, got %d", resp.Code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	r := newLimitedRouter(limiter, map[string]RateLimitRule{
		"DEFAULT": {Limit: 1, Window: time.Minute},
	}, "")

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if got := resp2.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" || payload.Error.Message == "" {
		t.Fatalf("expected rate_limited code with a message, got %+v", payload.Error)
	}
	if got, ok := payload.Error.Details["retryAfterMs"].(float64); !ok || got != 60000 {
		t.Fatalf("expected retryAfterMs=60000 in details, got %v", payload.Error.Details["retryAfterMs"])
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, RateLimitRule) (bool, time.Duration, error) {
	return false, 0, context.DeadlineExceeded
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newLimitedRouter(failingLimiter{}, map[string]RateLimitRule{
		"DEFAULT": {Limit: 1, Window: time.Minute},
	}, "user-1")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected limiter errors to let requests through, got %d", resp.Code)
	}
}

func TestRateLimiterPrunesEndedWindows(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Limit: 5, Window: time.Minute}

	for _, key := range []string{"a", "b", "c"} {
		if ok, _, _ := limiter.Allow(context.Background(), key, rule); !ok {
			t.Fatalf("expected %s to pass", key)
		}
	}
	if got := limiter.size(); got != 3 {
		t.Fatalf("expected 3 windows, got %d", got)
	}

	now = now.Add(windowSweepInterval + time.Minute)
	limiter.Allow(context.Background(), "d", rule)
	if got := limiter.size(); got != 1 {
		t.Fatalf("expected ended windows pruned, got %d", got)
	}
}
