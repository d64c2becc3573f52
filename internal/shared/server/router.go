package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "dochub/internal/auth"
	"dochub/internal/documents"
	"dochub/internal/services/health"
	"dochub/internal/shared/metrics"
	"dochub/internal/shared/server/middleware"
	"dochub/internal/users"
)

const (
	publicRateGroup    = "AUTH"
	protectedRateGroup = "DEFAULT"
)

// RouterDeps are the wired services the HTTP layer exposes.
type RouterDeps struct {
	CORSAllowOrigins []string
	Tokens           middleware.TokenVerifier
	Limiter          middleware.Limiter
	RateLimit        middleware.RateLimitRule

	Health    *health.Service
	Users     *users.Handler
	Documents *documents.Handler
	Google    *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.CORSAllowOrigins),
	)

	rules := map[string]middleware.RateLimitRule{
		publicRateGroup:    deps.RateLimit,
		protectedRateGroup: deps.RateLimit,
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	api.GET("/metrics", metrics.Handler())

	public := api.Group("")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: publicRateGroup,
		Limiter:      deps.Limiter,
	}))
	deps.Users.RegisterPublicRoutes(public)
	if deps.Google != nil {
		deps.Google.RegisterRoutes(public)
	}

	protected := api.Group("")
	protected.Use(
		middleware.Auth(deps.Tokens),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: protectedRateGroup,
			Limiter:      deps.Limiter,
		}),
	)
	deps.Users.RegisterRoutes(protected)
	deps.Documents.RegisterRoutes(protected)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
