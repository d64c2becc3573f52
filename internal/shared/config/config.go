package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string        `yaml:"port"`
	Env                string        `yaml:"env"`
	DatabaseURL        string        `yaml:"database_url"`
	AutoMigrate        bool          `yaml:"auto_migrate"`
	CORSAllowOrigin    []string      `yaml:"cors_allow_origins"`
	ObjectStoreType    string        `yaml:"object_store"`
	LocalStoreDir      string        `yaml:"local_store_dir"`
	AWSRegion          string        `yaml:"aws_region"`
	S3Bucket           string        `yaml:"s3_bucket"`
	S3Prefix           string        `yaml:"s3_prefix"`
	SSEKMSKeyID        string        `yaml:"sse_kms_key_id"`
	MinIOEndpoint      string        `yaml:"minio_endpoint"`
	MinIOAccessKey     string        `yaml:"minio_access_key"`
	MinIOSecretKey     string        `yaml:"minio_secret_key"`
	MinIOBucket        string        `yaml:"minio_bucket"`
	MinIOUseSSL        bool          `yaml:"minio_use_ssl"`
	JWTSecret          string        `yaml:"jwt_secret"`
	JWTIssuer          string        `yaml:"jwt_issuer"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
	BcryptCost         int           `yaml:"bcrypt_cost"`
	RateLimitPerWindow int           `yaml:"rate_limit_per_minute"`
	RateLimitWindow    time.Duration `yaml:"rate_limit_window"`
	RedisURL           string        `yaml:"redis_url"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`
	LogLevel           string        `yaml:"log_level"`
	LogFile            string        `yaml:"log_file"`
	GoogleClientID     string        `yaml:"google_client_id"`
	GoogleClientSecret string        `yaml:"google_client_secret"`
	GoogleRedirectURL  string        `yaml:"google_redirect_url"`
	UIRedirectURL      string        `yaml:"ui_redirect_url"`
}

const (
	defaultMaxUploadBytes  = 10 << 20
	defaultRateLimit       = 100
	testRateLimit          = 2
	defaultAccessTokenTTL  = 60 * time.Minute
	defaultRateLimitWindow = time.Minute
)

// Load reads configuration from environment variables with sensible defaults.
// Values from CONFIG_FILE (YAML) act as defaults that the environment overrides.
// A CONFIG_FILE that cannot be read or parsed is an error.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	base := Config{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fileCfg, err := loadYAML(path)
		if err != nil {
			return Config{}, fmt.Errorf("CONFIG_FILE %s: %w", path, err)
		}
		base = fileCfg
	}

	env := normalizeEnv(getEnv("ENV", orDefault(base.Env, "dev")))

	rateLimit := defaultRateLimit
	if env == "test" {
		rateLimit = testRateLimit
	}
	if base.RateLimitPerWindow > 0 {
		rateLimit = base.RateLimitPerWindow
	}

	return Config{
		Port:               getEnv("PORT", orDefault(base.Port, "8080")),
		Env:                env,
		DatabaseURL:        getEnv("DATABASE_URL", base.DatabaseURL),
		AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", base.AutoMigrate || env != "production"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", orDefault(strings.Join(base.CORSAllowOrigin, ","), "http://localhost:5173"))),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", orDefault(base.ObjectStoreType, "local"))),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", orDefault(base.LocalStoreDir, "./data")),
		AWSRegion:          getEnv("AWS_REGION", base.AWSRegion),
		S3Bucket:           getEnv("S3_BUCKET", base.S3Bucket),
		S3Prefix:           getEnv("S3_PREFIX", base.S3Prefix),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", base.SSEKMSKeyID),
		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", base.MinIOEndpoint),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", base.MinIOAccessKey),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", base.MinIOSecretKey),
		MinIOBucket:        getEnv("MINIO_BUCKET", base.MinIOBucket),
		MinIOUseSSL:        getEnvBool("MINIO_USE_SSL", base.MinIOUseSSL),
		JWTSecret:          getEnv("JWT_SECRET", base.JWTSecret),
		JWTIssuer:          getEnv("JWT_ISSUER", orDefault(base.JWTIssuer, "dochub")),
		AccessTokenTTL:     getEnvMinutes("ACCESS_TOKEN_EXPIRE_MINUTES", durationOr(base.AccessTokenTTL, defaultAccessTokenTTL)),
		BcryptCost:         getEnvInt("BCRYPT_COST", base.BcryptCost),
		RateLimitPerWindow: getEnvInt("RATE_LIMIT_PER_MINUTE", rateLimit),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", durationOr(base.RateLimitWindow, defaultRateLimitWindow)),
		RedisURL:           getEnv("REDIS_URL", base.RedisURL),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", int(int64Or(base.MaxUploadBytes, defaultMaxUploadBytes)))),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", orDefault(base.LogLevel, "info"))),
		LogFile:            getEnv("LOG_FILE", base.LogFile),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", base.GoogleClientID),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", base.GoogleClientSecret),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", base.GoogleRedirectURL),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", base.UIRedirectURL),
	}, nil
}

// Validate reports configuration that cannot run in the selected environment.
func (c Config) Validate() error {
	if c.Env != "production" {
		return nil
	}
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	return errors.Join(errs...)
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}

func getEnvMinutes(key string, def time.Duration) time.Duration {
	minutes := getEnvInt(key, 0)
	if minutes <= 0 {
		return def
	}
	return time.Duration(minutes) * time.Minute
}

func orDefault(val, def string) string {
	if strings.TrimSpace(val) == "" {
		return def
	}
	return val
}

func durationOr(val, def time.Duration) time.Duration {
	if val <= 0 {
		return def
	}
	return val
}

func int64Or(val, def int64) int64 {
	if val <= 0 {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test", "testing":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
