package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMaxUploadBytes    = 5 << 20 // 5MB
	defaultAccessTokenTTL    = 24 * time.Hour
	defaultRefreshTokenTTL   = 7 * 24 * time.Hour
	defaultProcessingTimeout = 30 * time.Second
	defaultJobMaxRetries     = 10
	defaultDispatchWorkers   = 4
	defaultDispatchQueueSize = 100
)

var defaultAllowedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// Config holds application configuration. It is built once at startup and
// passed to every component that needs it; business logic never reads the
// environment directly.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string

	DatabaseURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AdminEmail    string
	AdminPassword string

	UploadDir        string
	MaxUploadBytes   int64
	AllowedMimeTypes []string

	ProcessingBaseURL string
	ProcessingTimeout time.Duration
	JobMaxRetries     int
	DispatchWorkers   int
	DispatchQueueSize int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	_ = godotenv.Load(".env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("JWT_EXPIRES_IN", defaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDuration("JWT_REFRESH_EXPIRES_IN", defaultRefreshTokenTTL),

		AdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", ""),
		AdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),

		UploadDir:        getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadBytes:   getEnvInt64("MAX_FILE_SIZE", defaultMaxUploadBytes),
		AllowedMimeTypes: allowedMimeTypes(os.Getenv("ALLOWED_MIME_TYPES")),

		ProcessingBaseURL: getEnv("PROCESSING_SERVICE_URL", ""),
		ProcessingTimeout: getEnvDuration("PROCESSING_TIMEOUT", defaultProcessingTimeout),
		JobMaxRetries:     getEnvInt("INGESTION_RETRY_LIMIT", defaultJobMaxRetries),
		DispatchWorkers:   getEnvInt("INGESTION_WORKERS", defaultDispatchWorkers),
		DispatchQueueSize: getEnvInt("INGESTION_QUEUE_SIZE", defaultDispatchQueueSize),
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func allowedMimeTypes(raw string) []string {
	parsed := splitAndTrim(raw)
	if len(parsed) == 0 {
		return append([]string(nil), defaultAllowedMimeTypes...)
	}
	return parsed
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
	default:
		return "dev"
	}
}
