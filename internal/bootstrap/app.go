package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	googleauth "dochub/internal/auth"
	"dochub/internal/documents"
	"dochub/internal/services/health"
	"dochub/internal/shared/auth"
	"dochub/internal/shared/config"
	"dochub/internal/shared/server"
	"dochub/internal/shared/server/middleware"
	"dochub/internal/shared/storage/db"
	"dochub/internal/shared/storage/object"
	localstore "dochub/internal/shared/storage/object/local"
	miniostore "dochub/internal/shared/storage/object/minio"
	s3store "dochub/internal/shared/storage/object/s3"
	"dochub/internal/shared/telemetry"
	"dochub/internal/users"
)

const redisPingTimeout = 3 * time.Second

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sqlx.DB
	Redis            *redis.Client
	Store            object.ObjectStore
	Tokens           *auth.Manager
	Limiter          middleware.Limiter
	UsersRepo        users.Repo
	DocumentsRepo    documents.Repo
	UsersService     *users.Service
	DocumentsService *documents.Service
	Health           *health.Service
	GoogleAuth       *googleauth.GoogleService
}

// Build connects storage, wires services and registers routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.Env == "production")
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	redisClient, limiter, err := buildLimiter(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Redis:   redisClient,
		Store:   store,
		Tokens:  tokens,
		Limiter: limiter,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		CORSAllowOrigins: cfg.CORSAllowOrigin,
		Tokens:           tokens,
		Limiter:          limiter,
		RateLimit: middleware.RateLimitRule{
			Limit:  cfg.RateLimitPerWindow,
			Window: cfg.RateLimitWindow,
		},
		Health:    app.Health,
		Users:     users.NewHandler(app.UsersService),
		Documents: documents.NewHandler(app.DocumentsService),
		Google:    app.GoogleAuth,
	})

	return app, nil
}

// Close releases the database pool and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"env": cfg.Env})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildLimiter returns a Redis-backed limiter when REDIS_URL is set and the
// in-process fixed window otherwise.
func buildLimiter(ctx context.Context, cfg config.Config) (*redis.Client, middleware.Limiter, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, middleware.NewRateLimiter(nil), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"err": err})
			return nil, middleware.NewRateLimiter(nil), nil
		}
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, middleware.NewRedisLimiter(client, ""), nil
}

func buildServices(app *App) {
	var healthDB health.Pinger
	if app.DB != nil {
		app.UsersRepo = &users.SQLRepo{DB: app.DB}
		app.DocumentsRepo = &documents.SQLRepo{DB: app.DB}
		healthDB = app.DB
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	app.UsersService = users.NewService(app.UsersRepo, app.Tokens, app.Config.BcryptCost)
	app.DocumentsService = documents.NewService(app.DocumentsRepo, app.Store, app.Config.MaxUploadBytes)
	app.Health = health.NewService(healthDB)
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     app.Config.GoogleClientID,
		ClientSecret: app.Config.GoogleClientSecret,
		RedirectURL:  app.Config.GoogleRedirectURL,
		UIRedirect:   app.Config.UIRedirectURL,
	}, app.UsersService)
}

func closeDB(sqlDB *sqlx.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}
