package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"dochub/internal/shared/server/respond"
	"dochub/internal/shared/telemetry"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	windowSweepInterval   = 10 * time.Minute
)

// RateLimitRule allows Limit requests per Window.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

func (r RateLimitRule) enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// Limiter decides whether one more request under key fits the rule.
type Limiter interface {
	Allow(ctx context.Context, key string, rule RateLimitRule) (allowed bool, retryAfter time.Duration, err error)
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      Limiter
}

// RateLimiter is an in-process fixed-window counter. A window opens with the
// first request for a key and admits Limit requests until it ends.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	now       func() time.Time
	lastSweep time.Time
}

type rateWindow struct {
	count int
	reset time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		now:     now,
	}
}

// RateLimit rejects over-limit requests with 429 before the handler runs.
// The caller key is the authenticated user id, or the client IP on public
// routes.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok || !rule.enabled() {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = "ip:" + strings.TrimSpace(c.ClientIP())
		}
		key := principal + "|" + group
		allowed, retryAfter, err := cfg.Limiter.Allow(c.Request.Context(), key, rule)
		if err != nil {
			// Fail open.
			telemetry.Error("rate_limit.error", map[string]any{
				"request_id": RequestIDFromContext(c),
				"key":        key,
				"err":        err,
			})
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		telemetry.Warn("rate_limit.exceeded", map[string]any{
			"request_id": RequestIDFromContext(c),
			"key":        key,
			"path":       c.Request.URL.Path,
		})
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}

func (l *RateLimiter) Allow(_ context.Context, key string, rule RateLimitRule) (bool, time.Duration, error) {
	if l == nil || !rule.enabled() {
		return true, 0, nil
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &rateWindow{reset: now.Add(rule.Window)}
		l.windows[key] = w
	}
	if w.count < rule.Limit {
		w.count++
		return true, 0, nil
	}
	return false, w.reset.Sub(now), nil
}

// sweep drops windows that have already ended. Caller holds l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < windowSweepInterval {
		return
	}
	l.lastSweep = now
	for key, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, key)
		}
	}
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
