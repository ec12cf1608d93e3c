package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Engine       EngineConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// ApplicationName tags server-side sessions, e.g. in pg_stat_activity.
	ApplicationName string
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

// AuthConfig defines authentication parameters. Clients is a comma separated
// list of id:bcrypt-hash:role entries allowed to request tokens.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	Clients               string
}

// NotificationConfig holds the outbound webhook settings.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
	BreakerMaxFailures    int
	BreakerOpenSeconds    int
	QueueSize             int
}

// EngineConfig controls the SLA engine host.
type EngineConfig struct {
	PolicyFile            string
	EscalationPollSeconds int
	LockBackend           string
	LockTTLSeconds        int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sla-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
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
			Clients:               os.Getenv("AUTH_CLIENTS"),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
			BreakerMaxFailures:    getEnvAsInt("NOTIFY_BREAKER_MAX_FAILURES", 5),
			BreakerOpenSeconds:    getEnvAsInt("NOTIFY_BREAKER_OPEN_SECONDS", 30),
			QueueSize:             getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		},
		Engine: EngineConfig{
			PolicyFile:            os.Getenv("SLA_POLICY_FILE"),
			EscalationPollSeconds: getEnvAsInt("ESCALATION_POLL_SECONDS", 60),
			LockBackend:           getEnv("SLA_LOCK_BACKEND", "memory"),
			LockTTLSeconds:        getEnvAsInt("SLA_LOCK_TTL_SECONDS", 10),
		},
	}

	cfg.Postgres.ApplicationName = cfg.App.Name

	if cfg.Engine.LockBackend != "memory" && cfg.Engine.LockBackend != "redis" {
		return nil, fmt.Errorf("invalid SLA_LOCK_BACKEND %q: want memory or redis", cfg.Engine.LockBackend)
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

// PollInterval returns how often the escalation worker runs.
func (e EngineConfig) PollInterval() time.Duration {
	if e.EscalationPollSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(e.EscalationPollSeconds) * time.Second
}

// LockTTL bounds how long a per-ticket lock may be held.
func (e EngineConfig) LockTTL() time.Duration {
	if e.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.LockTTLSeconds) * time.Second
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
