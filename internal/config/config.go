package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
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
	Ticket       TicketConfig
	Realtime     RealtimeConfig
	Stats        StatsConfig
	Notification NotificationConfig
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// TicketConfig tunes state-machine behavior.
type TicketConfig struct {
	// StrictTransitions rejects status moves missing from the guard table.
	// Off by default: any enum status may move to any other.
	StrictTransitions bool
}

// RealtimeConfig tunes the live-channel registry and dispatcher.
type RealtimeConfig struct {
	// SendBuffer is the per-connection outbound queue depth. A full queue
	// drops the payload for that connection; the durable notification
	// remains the fallback.
	SendBuffer int
	// RevocationRecheckSeconds enables a periodic sweep that closes live
	// connections whose credential has been revoked. Zero keeps the
	// handshake-only check.
	RevocationRecheckSeconds int
}

// StatsConfig tunes dashboard aggregation.
type StatsConfig struct {
	TopAssets int
}

// NotificationConfig bounds the durable notification read path.
type NotificationConfig struct {
	RecentLimit int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// Setting REDIS_ADDR to the empty string or "disabled" opts out of
	// redis entirely; the revocation list then runs in process. Only an
	// unset variable takes the localhost default.
	redisAddr, redisAddrSet := os.LookupEnv("REDIS_ADDR")
	if !redisAddrSet {
		redisAddr = "127.0.0.1:6379"
	}
	if strings.EqualFold(strings.TrimSpace(redisAddr), "disabled") {
		redisAddr = ""
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
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
		Ticket: TicketConfig{
			StrictTransitions: getEnvAsBool("TICKET_STRICT_TRANSITIONS", false),
		},
		Realtime: RealtimeConfig{
			SendBuffer:               getEnvAsInt("REALTIME_SEND_BUFFER", 32),
			RevocationRecheckSeconds: getEnvAsInt("REALTIME_REVOCATION_RECHECK_SECONDS", 0),
		},
		Stats: StatsConfig{
			TopAssets: getEnvAsInt("STATS_TOP_ASSETS", 5),
		},
		Notification: NotificationConfig{
			RecentLimit: getEnvAsInt("NOTIFY_RECENT_LIMIT", 20),
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

// RevocationRecheck returns the sweep interval, zero when disabled.
func (r RealtimeConfig) RevocationRecheck() time.Duration {
	if r.RevocationRecheckSeconds <= 0 {
		return 0
	}
	return time.Duration(r.RevocationRecheckSeconds) * time.Second
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
