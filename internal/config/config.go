package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store kinds.
const (
	SessionStoreFile     = "file"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
	SessionStoreMemory   = "memory"
)

// Config aggregates runtime configuration for the portal client and the sandbox API.
type Config struct {
	App      AppConfig
	API      APIConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls the sandbox server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RoutePrefix           string
	RequestTimeoutSeconds int
	SeedAdminEmail        string
	SeedAdminPassword     string
}

// APIConfig controls how the client reaches the marketplace backend.
type APIConfig struct {
	BaseURL               string
	UserAgent             string
	RequestTimeoutSeconds int
	MaxRequestsPerSecond  float64
	MenuConcurrency       int
	RefreshWindowSeconds  int
}

// SessionConfig selects where the persisted session record lives.
type SessionConfig struct {
	Store      string
	FilePath   string
	Key        string
	TTLMinutes int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines sandbox authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	store := strings.ToLower(getEnv("SESSION_STORE", SessionStoreFile))
	switch store {
	case SessionStoreFile, SessionStoreRedis, SessionStorePostgres, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE: %q", store)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "marketplace-sandbox"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RoutePrefix:           getEnv("APP_ROUTE_PREFIX", "/api"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SeedAdminEmail:        getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
			SeedAdminPassword:     getEnv("SEED_ADMIN_PASSWORD", "admin-password"),
		},
		API: APIConfig{
			BaseURL:               strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
			UserAgent:             getEnv("API_USER_AGENT", "marketplace-portal/1.0"),
			RequestTimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
			MaxRequestsPerSecond:  getEnvAsFloat("API_MAX_RPS", 0),
			MenuConcurrency:       getEnvAsInt("API_MENU_CONCURRENCY", 0),
			RefreshWindowSeconds:  getEnvAsInt("API_REFRESH_WINDOW_SECONDS", 300),
		},
		Session: SessionConfig{
			Store:      store,
			FilePath:   getEnv("SESSION_FILE", ".portal-session.json"),
			Key:        getEnv("SESSION_KEY", "auth-storage"),
			TTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 0),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call client timeout. Zero means no timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RefreshWindow is how close to expiry a bearer token must be before it is rotated.
func (a APIConfig) RefreshWindow() time.Duration {
	if a.RefreshWindowSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RefreshWindowSeconds) * time.Second
}

// TTL returns how long a persisted session survives. Zero means no expiry.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
